// Package errors provides error types, formatting and logging for release-tagger.
package errors

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrorCode represents the category of an error.
type ErrorCode int

const (
	// Usage errors
	ErrInvalidArguments ErrorCode = iota + 100
	ErrInvalidConfig
	ErrMissingToken

	// Precondition failures
	ErrBehindOrigin ErrorCode = iota + 200
	ErrDirtyWorkingTree

	// Internal data errors
	ErrMalformedVersion ErrorCode = iota + 300
	ErrInvalidBumpKind

	// Process failures
	ErrGitCommandFailed ErrorCode = iota + 400

	// External errors
	ErrRegistryUnavailable ErrorCode = iota + 500
	ErrNetworkError
	ErrTimeout

	// Clean abort requested by the user
	ErrUserDeclined ErrorCode = iota + 600
)

// Category groups error codes into the failure classes reported to the user.
type Category string

const (
	CategoryUsage        Category = "usage"
	CategoryPrecondition Category = "precondition"
	CategoryData         Category = "data"
	CategoryProcess      Category = "process"
	CategoryExternal     Category = "external"
	CategoryDeclined     Category = "declined"
)

// Category returns the failure class of the error code.
func (c ErrorCode) Category() Category {
	switch {
	case c >= 100 && c < 200:
		return CategoryUsage
	case c >= 200 && c < 300:
		return CategoryPrecondition
	case c >= 300 && c < 400:
		return CategoryData
	case c >= 400 && c < 500:
		return CategoryProcess
	case c >= 500 && c < 600:
		return CategoryExternal
	default:
		return CategoryDeclined
	}
}

// String returns a human-readable name for the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrInvalidArguments:
		return "InvalidArguments"
	case ErrInvalidConfig:
		return "InvalidConfig"
	case ErrMissingToken:
		return "MissingToken"
	case ErrBehindOrigin:
		return "BehindOrigin"
	case ErrDirtyWorkingTree:
		return "DirtyWorkingTree"
	case ErrMalformedVersion:
		return "MalformedVersion"
	case ErrInvalidBumpKind:
		return "InvalidBumpKind"
	case ErrGitCommandFailed:
		return "GitCommandFailed"
	case ErrRegistryUnavailable:
		return "RegistryUnavailable"
	case ErrNetworkError:
		return "NetworkError"
	case ErrTimeout:
		return "Timeout"
	case ErrUserDeclined:
		return "UserDeclined"
	default:
		return "Unknown"
	}
}

// AppError represents an application error with context.
type AppError struct {
	Code       ErrorCode
	Message    string
	Cause      error
	Output     string // Captured process or response output, shown verbatim
	Context    map[string]interface{}
	Suggestion string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion to the error.
func (e *AppError) WithSuggestion(suggestion string) *AppError {
	e.Suggestion = suggestion
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with context.
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts an AppError from an error chain.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// HasCode reports whether the error chain contains an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Code == code
}

// IsDeclined reports whether the error is a clean abort requested by the user.
func IsDeclined(err error) bool {
	return HasCode(err, ErrUserDeclined)
}

// GetExitCode returns the process exit code for an error.
// Every failure, including a declined confirmation, exits with 1.
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// reportedError marks an error that has already been shown to the user.
type reportedError struct {
	err error
}

func (r *reportedError) Error() string { return r.err.Error() }
func (r *reportedError) Unwrap() error { return r.err }

// Reported wraps err so the entry point does not print it a second time.
func Reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

// IsReported reports whether err was already displayed.
func IsReported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}

// Common error constructors with suggestions

// NewUsageError creates an error for a missing or invalid bump kind argument.
func NewUsageError(message string) *AppError {
	return &AppError{
		Code:       ErrInvalidArguments,
		Message:    message,
		Suggestion: "Usage: release-tagger (major|minor|patch)",
	}
}

// NewInvalidConfigError creates an error for invalid configuration.
func NewInvalidConfigError(message string) *AppError {
	return &AppError{
		Code:       ErrInvalidConfig,
		Message:    message,
		Suggestion: "Run 'release-tagger config init' to create a valid configuration file",
	}
}

// NewMissingTokenError creates an error listing every place the registry token may be set.
func NewMissingTokenError(hostFile, userFile, envVar string) *AppError {
	return &AppError{
		Code:    ErrMissingToken,
		Message: "config for packagecloud not found",
		Suggestion: fmt.Sprintf("Consider setting your packagecloud api token in any of:\n"+
			"  - %s\n  - %s\n  - env var %s", userFile, hostFile, envVar),
	}
}

// NewBehindOriginError creates an error for a branch that lacks commits from
// its upstream. upstream is the remote-qualified name, e.g. origin/master.
func NewBehindOriginError(upstream, diffStat string) *AppError {
	return &AppError{
		Code:       ErrBehindOrigin,
		Message:    fmt.Sprintf("you are behind the %s branch", upstream),
		Output:     diffStat,
		Suggestion: "Please pull before releasing",
	}
}

// NewDirtyWorkingTreeError creates an error for uncommitted changes to tracked files.
func NewDirtyWorkingTreeError(files []string) *AppError {
	return &AppError{
		Code:       ErrDirtyWorkingTree,
		Message:    "there are uncommitted changes in the working directory",
		Output:     strings.Join(files, "\n"),
		Suggestion: "Please commit or stash all changes before making a release",
	}
}

// NewMalformedVersionError creates an error for a version string that is not major.minor.patch.
func NewMalformedVersionError(input string, cause error) *AppError {
	return &AppError{
		Code:    ErrMalformedVersion,
		Message: fmt.Sprintf("malformed version %q", input),
		Cause:   cause,
	}
}

// NewInvalidBumpKindError creates an error for a bump kind outside major, minor and patch.
func NewInvalidBumpKindError(kind string) *AppError {
	return &AppError{
		Code:       ErrInvalidBumpKind,
		Message:    fmt.Sprintf("could not bump %q version", kind),
		Suggestion: "Usage: release-tagger (major|minor|patch)",
	}
}

// NewGitError creates an error for git command failures.
func NewGitError(err error, output string) *AppError {
	return &AppError{
		Code:    ErrGitCommandFailed,
		Message: "git command failed",
		Cause:   err,
		Output:  output,
	}
}

// NewRegistryError creates an error for a non-success registry response.
func NewRegistryError(packageName string, statusCode int, body string) *AppError {
	appErr := &AppError{
		Code:       ErrRegistryUnavailable,
		Message:    fmt.Sprintf("error trying to get latest version of package %s: registry returned %d", packageName, statusCode),
		Output:     body,
		Suggestion: "Please check your packagecloud api token and the registry settings",
	}
	return appErr.WithContext("status_code", statusCode)
}

// NewRegistryDecodeError creates an error for a registry response that is not a list of entries.
func NewRegistryDecodeError(packageName string, err error) *AppError {
	return &AppError{
		Code:    ErrRegistryUnavailable,
		Message: fmt.Sprintf("could not parse registry response for package %s", packageName),
		Cause:   err,
	}
}

// NewNetworkError creates an error for network failures.
func NewNetworkError(err error) *AppError {
	return &AppError{
		Code:       ErrNetworkError,
		Message:    "network error occurred",
		Cause:      err,
		Suggestion: "Please check your network connection and try again",
	}
}

// NewTimeoutError creates an error for timeouts.
func NewTimeoutError(err error) *AppError {
	return &AppError{
		Code:       ErrTimeout,
		Message:    "operation timed out",
		Cause:      err,
		Suggestion: "Please check your network connection or try again later",
	}
}

// NewUserDeclinedError creates the clean-abort error for a declined confirmation.
func NewUserDeclinedError(prompt string) *AppError {
	appErr := &AppError{
		Code:    ErrUserDeclined,
		Message: "release cancelled",
	}
	return appErr.WithContext("prompt", prompt)
}

// StatusCode returns the HTTP status code carried by a registry error, or 0.
func StatusCode(err error) int {
	appErr := GetAppError(err)
	if appErr == nil || appErr.Context == nil {
		return 0
	}
	code, _ := appErr.Context["status_code"].(int)
	return code
}

// FormatError formats an error for user display.
// Credentials embedded in URLs are automatically masked.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Error: ")
	sb.WriteString(SanitizeErrorMessage(err.Error()))

	if appErr := GetAppError(err); appErr != nil {
		if output := strings.TrimRight(appErr.Output, "\n"); output != "" {
			sb.WriteString("\n")
			sb.WriteString(SanitizeErrorMessage(output))
		}
		if appErr.Suggestion != "" {
			sb.WriteString("\n")
			sb.WriteString(appErr.Suggestion)
		}
	}

	return sb.String()
}

// FormatErrorVerbose formats an error with full details for verbose mode.
func FormatErrorVerbose(err error) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder

	appErr := GetAppError(err)
	if appErr != nil {
		sb.WriteString(fmt.Sprintf("Error [%s/%s]: %s\n", appErr.Code.Category(), appErr.Code, SanitizeErrorMessage(err.Error())))

		if appErr.Output != "" {
			sb.WriteString("  Output:\n")
			for _, line := range strings.Split(strings.TrimRight(appErr.Output, "\n"), "\n") {
				sb.WriteString("    " + SanitizeErrorMessage(line) + "\n")
			}
		}

		if len(appErr.Context) > 0 {
			sb.WriteString("  Context:\n")
			for k, v := range appErr.Context {
				sb.WriteString(fmt.Sprintf("    %s: %v\n", k, SanitizeErrorMessage(fmt.Sprintf("%v", v))))
			}
		}

		sb.WriteString("  Error chain:\n")
		printErrorChain(&sb, err, 2)

		if appErr.Suggestion != "" {
			sb.WriteString(fmt.Sprintf("  Suggestion: %s\n", appErr.Suggestion))
		}
	} else {
		sb.WriteString(fmt.Sprintf("Error: %v\n", SanitizeErrorMessage(err.Error())))
		sb.WriteString("  Error chain:\n")
		printErrorChain(&sb, err, 2)
	}

	return sb.String()
}

// printErrorChain prints the error chain with indentation.
func printErrorChain(sb *strings.Builder, err error, indent int) {
	if err == nil {
		return
	}

	prefix := strings.Repeat("  ", indent)
	errMsg := SanitizeErrorMessage(err.Error())
	sb.WriteString(fmt.Sprintf("%s- %T: %v\n", prefix, err, errMsg))

	if unwrapped := errors.Unwrap(err); unwrapped != nil {
		printErrorChain(sb, unwrapped, indent+1)
	}
}

// SanitizeErrorMessage masks credentials embedded in URLs (https://token:@host).
func SanitizeErrorMessage(msg string) string {
	return urlUserinfoPattern.ReplaceAllString(msg, "${1}****@")
}

// urlUserinfoPattern matches the userinfo part of an URL.
var urlUserinfoPattern = regexp.MustCompile(`(https?://)[^/@\s]+@`)
