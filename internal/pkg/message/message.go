// Package message builds release tag names, release messages and changelogs.
package message

import (
	"strings"

	"github.com/Lostmyname/release-tagger/internal/pkg/version"
)

// SubjectPrefix starts the first line of every release message.
const SubjectPrefix = "Release "

// ChangelogBullet prefixes each commit summary in a changelog.
const ChangelogBullet = "* "

// TagKind distinguishes production releases from QA releases.
type TagKind string

const (
	TagKindProduction TagKind = "production"
	TagKindQA         TagKind = "qa"
)

// Suffixes maps each tag kind to the fixed string appended to the version.
type Suffixes struct {
	Production string
	QA         string
}

// For returns the suffix of the given kind.
func (s Suffixes) For(kind TagKind) string {
	if kind == TagKindProduction {
		return s.Production
	}
	return s.QA
}

// KindForBranch returns production for the primary branch and qa otherwise.
func KindForBranch(branch, primaryBranch string) TagKind {
	if branch == primaryBranch {
		return TagKindProduction
	}
	return TagKindQA
}

// TagName returns "{version}{suffix}".
func TagName(v version.Version, suffix string) string {
	return v.String() + suffix
}

// Subject returns the first line of the release message.
func Subject(v version.Version, suffix string) string {
	return SubjectPrefix + TagName(v, suffix)
}

// Build returns the full release message used for both the commit and the tag.
// The subject and changelog are separated by a blank line.
func Build(v version.Version, suffix, changelog string) string {
	return Subject(v, suffix) + "\n\n" + changelog
}

// FormatChangelog renders commit summaries as a bullet list, one per line.
// Blank summaries are dropped.
func FormatChangelog(summaries []string) string {
	lines := make([]string, 0, len(summaries))
	for _, s := range summaries {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		lines = append(lines, ChangelogBullet+s)
	}
	return strings.Join(lines, "\n")
}

// FirstLine returns the first line of a message.
func FirstLine(msg string) string {
	if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
		return msg[:idx]
	}
	return msg
}
