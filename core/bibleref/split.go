package bibleref

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Candidate is one book/chapters pair cut out of a compound query.
type Candidate struct {
	Book           string // normalized book name, possibly empty
	ChaptersVerses string // chapters-and-verses text, empty for whole-book queries
}

var (
	reOrSeparator    = regexp.MustCompile(`(?i) OR `)
	reLeadingOrdinal = regexp.MustCompile(`^([0-9]+)(\.?)[ \t]+`)
)

// SplitQuery splits a compound query on the literal separator " OR "
// (case-insensitive) into independent reference candidates.
func SplitQuery(query string) []string {
	parts := reOrSeparator.Split(query, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SplitCandidate cuts one reference candidate into its book name and its
// chapters-and-verses part. The candidate is lower-cased, a leading ordinal
// is glued to the book name ("1. Kor" becomes "1.kor"), a separating space
// is inserted at the first letter-to-digit transition when the candidate has
// none, and interior whitespace is stripped from both halves. Candidates not
// ending in a digit (or digit plus annotation letter), and candidates of
// three or fewer characters, are book-only.
func SplitCandidate(candidate string) Candidate {
	s := strings.ToLower(strings.TrimSpace(candidate))
	s = strings.ReplaceAll(s, "\t", " ")
	s = reLeadingOrdinal.ReplaceAllString(s, "$1$2")

	// Short strings never carry a numeric suffix, measured before the
	// artificial separator below widens them.
	short := utf8.RuneCountInString(s) <= 3

	if !strings.ContainsRune(s, ' ') {
		if i := letterDigitBoundary(s); i > 0 {
			s = s[:i] + " " + s[i:]
		}
	}

	if short || !endsNumeric(s) {
		return Candidate{Book: stripSpaces(s)}
	}
	sep := strings.LastIndexByte(s, ' ')
	if sep < 0 {
		return Candidate{Book: stripSpaces(s)}
	}
	return Candidate{
		Book:           stripSpaces(s[:sep]),
		ChaptersVerses: stripSpaces(s[sep+1:]),
	}
}

// SplitIntoBooksAndChaptersAndVerses applies SplitCandidate to every
// OR-separated candidate of a compound query.
func SplitIntoBooksAndChaptersAndVerses(query string) []Candidate {
	parts := SplitQuery(query)
	out := make([]Candidate, 0, len(parts))
	for _, p := range parts {
		out = append(out, SplitCandidate(p))
	}
	return out
}

// letterDigitBoundary returns the byte index of the first digit that
// directly follows a letter, or -1.
func letterDigitBoundary(s string) int {
	prevLetter := false
	for i, r := range s {
		if prevLetter && unicode.IsDigit(r) {
			return i
		}
		prevLetter = unicode.IsLetter(r)
	}
	return -1
}

// endsNumeric reports whether s ends in a digit or in a digit followed by a
// single annotation letter ("...5" or "...5a").
func endsNumeric(s string) bool {
	runes := []rune(s)
	n := len(runes)
	if n == 0 {
		return false
	}
	if unicode.IsDigit(runes[n-1]) {
		return true
	}
	return n >= 2 && unicode.IsLetter(runes[n-1]) && unicode.IsDigit(runes[n-2])
}
