// Package ui provides terminal output and prompts for release-tagger.
package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	apperrors "github.com/Lostmyname/release-tagger/internal/pkg/errors"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DeclinedNotice is printed when the user answers anything but "y".
const DeclinedNotice = "Exiting."

// Spinner provides loading animation functionality.
type Spinner interface {
	Start()
	Stop()
}

// Manager defines the interface for UI operations.
type Manager interface {
	ShowStep(message string)
	ShowInfo(message string)
	ShowError(err error)
	ShowSuccess(message string)
	ShowSpinner(text string) Spinner
	DisplayRelease(tagName, message string)
	// PromptConfirm asks a yes/no question. unattended is the answer given
	// when nobody is at the terminal.
	PromptConfirm(prompt string, unattended bool) (bool, error)
}

// DefaultManager implements Manager for an interactive terminal.
// Progress goes to out; errors and prompts go to errOut.
type DefaultManager struct {
	colorEnabled bool
	in           *bufio.Reader
	out          io.Writer
	errOut       io.Writer
	styles       *styles
}

// styles holds the lipgloss styles for UI rendering.
type styles struct {
	step       lipgloss.Style
	info       lipgloss.Style
	success    lipgloss.Style
	errorStyle lipgloss.Style
	title      lipgloss.Style
	border     lipgloss.Style
}

// NewDefaultManager creates a DefaultManager bound to the process streams.
func NewDefaultManager(colorEnabled bool) *DefaultManager {
	return NewDefaultManagerWithIO(colorEnabled, os.Stdin, os.Stdout, os.Stderr)
}

// NewDefaultManagerWithIO creates a DefaultManager with explicit streams.
func NewDefaultManagerWithIO(colorEnabled bool, in io.Reader, out, errOut io.Writer) *DefaultManager {
	return &DefaultManager{
		colorEnabled: colorEnabled,
		in:           bufio.NewReader(in),
		out:          out,
		errOut:       errOut,
		styles:       newStyles(colorEnabled, out),
	}
}

func newStyles(colorEnabled bool, out io.Writer) *styles {
	if !colorEnabled {
		return &styles{
			step:       lipgloss.NewStyle(),
			info:       lipgloss.NewStyle(),
			success:    lipgloss.NewStyle(),
			errorStyle: lipgloss.NewStyle(),
			title:      lipgloss.NewStyle(),
			border:     lipgloss.NewStyle(),
		}
	}

	r := lipgloss.NewRenderer(out)
	return &styles{
		step: r.NewStyle().
			Foreground(lipgloss.Color("42")),
		info: r.NewStyle().
			Foreground(lipgloss.Color("39")),
		success: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")),
		errorStyle: r.NewStyle().
			Foreground(lipgloss.Color("196")),
		title: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220")),
		border: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1),
	}
}

// ShowStep announces a workflow step.
func (m *DefaultManager) ShowStep(message string) {
	fmt.Fprintln(m.out, m.styles.step.Render(message))
}

// ShowInfo prints an informational line.
func (m *DefaultManager) ShowInfo(message string) {
	fmt.Fprintln(m.out, m.styles.info.Render(message))
}

// ShowError prints err to the error stream. A declined confirmation is
// reported as a plain notice.
func (m *DefaultManager) ShowError(err error) {
	if err == nil {
		return
	}
	if apperrors.IsDeclined(err) {
		fmt.Fprintln(m.errOut, DeclinedNotice)
		return
	}
	fmt.Fprintln(m.errOut, m.styles.errorStyle.Render(formatError(err)))
}

// formatError includes the error chain and captured context in verbose mode.
func formatError(err error) string {
	if apperrors.IsVerbose() {
		return strings.TrimRight(apperrors.FormatErrorVerbose(err), "\n")
	}
	return apperrors.FormatError(err)
}

// ShowSuccess displays a success message to the user.
func (m *DefaultManager) ShowSuccess(message string) {
	fmt.Fprintln(m.out, m.styles.success.Render(message))
}

// DisplayRelease shows the tag and the message it will carry.
func (m *DefaultManager) DisplayRelease(tagName, message string) {
	fmt.Fprintln(m.out, m.styles.title.Render("Release "+tagName))
	fmt.Fprintln(m.out, m.styles.border.Render(strings.TrimRight(message, "\n")))
}

// PromptConfirm writes prompt to the error stream and reads one line.
// Only an answer of exactly "y" confirms; end of input declines.
func (m *DefaultManager) PromptConfirm(prompt string, _ bool) (bool, error) {
	fmt.Fprint(m.errOut, prompt)

	line, err := m.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	if errors.Is(err, io.EOF) && line == "" {
		fmt.Fprintln(m.errOut)
	}

	return isConfirmation(line), nil
}

// isConfirmation reports whether a raw input line is exactly "y".
func isConfirmation(line string) bool {
	return strings.TrimRight(line, "\r\n") == "y"
}

// ShowSpinner creates a spinner on the error stream. It animates only when
// color is enabled.
func (m *DefaultManager) ShowSpinner(text string) Spinner {
	if !m.colorEnabled {
		return &noopSpinner{}
	}
	return newBubbleSpinner(text, m.errOut)
}

// bubbleSpinner implements Spinner using Bubble Tea.
type bubbleSpinner struct {
	text    string
	output  io.Writer
	program *tea.Program
	done    chan struct{}
	mu      sync.Mutex
}

// spinnerModel is the Bubble Tea model for simple spinner.
type spinnerModel struct {
	spinner  spinner.Model
	text     string
	quitting bool
}

// spinnerQuitMsg signals the spinner to quit.
type spinnerQuitMsg struct{}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinnerQuitMsg:
		m.quitting = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.quitting {
		return ""
	}
	return fmt.Sprintf("%s %s", m.spinner.View(), m.text)
}

func newBubbleSpinner(text string, output io.Writer) *bubbleSpinner {
	return &bubbleSpinner{
		text:   text,
		output: output,
	}
}

// Start runs the spinner in the background. Input is detached so stdin
// stays available for the confirmation prompt.
func (s *bubbleSpinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.program != nil {
		return
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	model := spinnerModel{spinner: sp, text: s.text}
	s.program = tea.NewProgram(model, tea.WithInput(nil), tea.WithOutput(s.output))
	s.done = make(chan struct{})

	go func(p *tea.Program, done chan struct{}) {
		defer close(done)
		_, _ = p.Run()
	}(s.program, s.done)
}

// Stop ends the animation and waits for the program to exit.
func (s *bubbleSpinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.program == nil {
		return
	}
	s.program.Send(spinnerQuitMsg{})
	<-s.done
	s.program = nil
}

// NonInteractiveManager implements Manager without prompting.
// Every confirmation takes its unattended answer.
type NonInteractiveManager struct {
	out    io.Writer
	errOut io.Writer
}

// NewNonInteractiveManager creates a NonInteractiveManager on the process streams.
func NewNonInteractiveManager() *NonInteractiveManager {
	return NewNonInteractiveManagerWithIO(os.Stdout, os.Stderr)
}

// NewNonInteractiveManagerWithIO creates a NonInteractiveManager with explicit streams.
func NewNonInteractiveManagerWithIO(out, errOut io.Writer) *NonInteractiveManager {
	return &NonInteractiveManager{out: out, errOut: errOut}
}

func (m *NonInteractiveManager) ShowStep(message string) {
	fmt.Fprintln(m.out, message)
}

func (m *NonInteractiveManager) ShowInfo(message string) {
	fmt.Fprintln(m.out, message)
}

// ShowError displays an error message.
func (m *NonInteractiveManager) ShowError(err error) {
	if err == nil {
		return
	}
	if apperrors.IsDeclined(err) {
		fmt.Fprintln(m.errOut, DeclinedNotice)
		return
	}
	fmt.Fprintln(m.errOut, formatError(err))
}

// ShowSuccess displays a success message.
func (m *NonInteractiveManager) ShowSuccess(message string) {
	fmt.Fprintln(m.out, message)
}

// ShowSpinner returns a no-op spinner in non-interactive mode.
func (m *NonInteractiveManager) ShowSpinner(text string) Spinner {
	return &noopSpinner{}
}

func (m *NonInteractiveManager) DisplayRelease(tagName, message string) {
	fmt.Fprintln(m.out, strings.TrimRight(message, "\n"))
}

// PromptConfirm echoes the prompt with the unattended answer and returns it.
func (m *NonInteractiveManager) PromptConfirm(prompt string, unattended bool) (bool, error) {
	answer := "N"
	if unattended {
		answer = "y"
	}
	fmt.Fprintln(m.errOut, prompt+answer)
	return unattended, nil
}

// noopSpinner is a no-op implementation of Spinner.
type noopSpinner struct{}

func (s *noopSpinner) Start() {}
func (s *noopSpinner) Stop()  {}
