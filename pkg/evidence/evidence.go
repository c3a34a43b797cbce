// Package evidence cleans and filters raw report snippets before they may be
// stored on a fact, shown on a fit card, or cited in a chat answer. Everything
// that would otherwise surface raw PDF text goes through this filter.
package evidence

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MinReadableLen is the floor below which a snippet reads as a fragment,
	// unless it is a Do:/Don't: construct.
	MinReadableLen = 25

	// MinCompleteSentenceForMask: "mask some of" boilerplate is allowed only
	// when the snippet is long enough to read as a complete sentence.
	MinCompleteSentenceForMask = 80

	// MaxSnippetLen is the default truncation bound.
	MaxSnippetLen = 200
)

var (
	reWhitespace       = regexp.MustCompile(`\s+`)
	reSectionLeadIn    = regexp.MustCompile(`(?i)^(?:Behavioral\s+Characteristics\s+)?Based\s+on\s+[\w\s]+'s\s+responses[.,]?\s*`)
	reBasedOnResponses = regexp.MustCompile(`(?i)Based\s+on\s+[\w\s]+'s\s+responses`)
	reMaskSomeOf       = regexp.MustCompile(`(?i)mask\s+some\s+of`)
	reDoDont           = regexp.MustCompile(`(?i)^(?:Do|Don't|Dont)\s*:\s*.+`)
)

// NormalizeWhitespace collapses runs of whitespace into single spaces and trims.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}

// IsDoDont reports whether s is a recognized Do:/Don't: construct.
func IsDoDont(s string) bool {
	return reDoDont.MatchString(strings.TrimSpace(s))
}

// StripSectionLeadIn removes leading "Behavioral Characteristics Based on X's
// responses" boilerplate. Stripping, not rejecting, because the remainder is
// often a usable sentence.
func StripSectionLeadIn(s string) string {
	if s == "" {
		return ""
	}
	s = NormalizeWhitespace(s)
	return strings.TrimSpace(reSectionLeadIn.ReplaceAllString(s, ""))
}

// EnsureEnding makes a snippet end with terminal punctuation unless it is a
// Do:/Don't: line or already truncated.
func EnsureEnding(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 3 {
		return s
	}
	if IsDoDont(s) {
		return s
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return s
	}
	if len(s) >= MaxSnippetLen || strings.HasSuffix(s, "...") {
		return s
	}
	return s + "."
}

// Truncate shortens s to at most maxLen characters on a word boundary,
// appending "..." when anything was cut.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	cut := s[:maxLen-3]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	// The byte cut can land inside a multibyte rune; back off to a boundary.
	for len(cut) > 0 {
		r, size := utf8.DecodeLastRuneInString(cut)
		if r != utf8.RuneError || size != 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}
	return cut + "..."
}

// CleanSnippet strips boilerplate, normalizes whitespace, truncates on a word
// boundary, and fixes the ending. It never rejects; see IsAcceptable for that.
func CleanSnippet(s string, maxLen int) string {
	if s == "" {
		return ""
	}
	s = StripSectionLeadIn(s)
	s = NormalizeWhitespace(s)
	s = Truncate(s, maxLen)
	return EnsureEnding(s)
}

// IsAcceptable reports whether a snippet may be shown or stored.
//
// Rejects: empty after normalization; shorter than MinReadableLen unless a
// Do:/Don't: construct; starts with a lowercase letter (mid-sentence fragment)
// unless Do:/Don't:; "Based on X's responses" boilerplate; "mask some of"
// unless long enough to read as a complete sentence.
func IsAcceptable(snippet string) bool {
	s := NormalizeWhitespace(snippet)
	if s == "" {
		return false
	}
	doDont := IsDoDont(s)
	if len(s) < MinReadableLen && !doDont {
		return false
	}
	first := rune(s[0])
	if first >= 'a' && first <= 'z' && !doDont {
		return false
	}
	if reBasedOnResponses.MatchString(s) {
		return false
	}
	if reMaskSomeOf.MatchString(s) && len(s) < MinCompleteSentenceForMask {
		return false
	}
	return true
}

// PrepareForDisplay cleans and validates a snippet. It returns the cleaned
// string and true, or "" and false when the snippet is not acceptable.
func PrepareForDisplay(snippet string, maxLen int) (string, bool) {
	cleaned := CleanSnippet(snippet, maxLen)
	if !IsAcceptable(cleaned) {
		return "", false
	}
	return cleaned, true
}
