package text

import (
	"regexp"
	"strings"
)

var (
	blankLines  = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)*`)
	pageNumbers = regexp.MustCompile(`\n[ \t]*\d+[ \t]*\n`)
	spaceRuns   = regexp.MustCompile(`[ \t\f\v]+`)
	lineEdges   = regexp.MustCompile(` ?\n ?`)
)

// Clean normalizes novel or backstory text before chunking:
// line endings, page-number lines, blank-line runs and space runs.
func Clean(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = pageNumbers.ReplaceAllString(s, "\n")
	s = spaceRuns.ReplaceAllString(s, " ")
	s = lineEdges.ReplaceAllString(s, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// CollapseSpace folds every whitespace run into a single space
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StripGutenberg removes Project Gutenberg license front and back matter.
// Text without the markers is returned unchanged.
func StripGutenberg(s string) string {
	const startMarker = "*** START OF"
	const endMarker = "*** END OF"

	if i := strings.Index(s, startMarker); i >= 0 {
		if nl := strings.IndexByte(s[i:], '\n'); nl >= 0 {
			s = s[i+nl+1:]
		}
	}
	if i := strings.Index(s, endMarker); i >= 0 {
		s = s[:i]
	}
	return s
}

// Snippet shortens s to at most max bytes on a word boundary
func Snippet(s string, max int) string {
	s = CollapseSpace(s)
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if i := strings.LastIndexByte(cut, ' '); i > max/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:") + "..."
}
