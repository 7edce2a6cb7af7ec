// Package rangecode defines the fixed-width numeric range codes shared by the
// bible, canon-law and time grammars, together with the lexical helpers used
// to build them. Codes are all-digit strings of a fixed width so that plain
// string comparison yields the intended ordering.
package rangecode

import (
	"fmt"
	"sort"
	"strings"
)

// Range is an ordered pair of equal-width digit codes with Start <= End.
type Range struct {
	Start string
	End   string
}

// NewRange returns a Range for the given endpoints.
func NewRange(start, end string) Range {
	return Range{Start: start, End: end}
}

// Valid reports whether the range endpoints are in order.
func (r Range) Valid() bool {
	return r.Start <= r.End
}

// Overlaps reports whether r and other share at least one code.
func (r Range) Overlaps(other Range) bool {
	return r.Start <= other.End && other.Start <= r.End
}

// String renders the range as "start_end", the numeric-range query form.
func (r Range) String() string {
	return r.Start + "_" + r.End
}

// IsDigit reports whether ch is an ASCII decimal digit.
func IsDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// IsLower reports whether ch is an ASCII lowercase letter.
func IsLower(ch byte) bool {
	return ch >= 'a' && ch <= 'z'
}

// AllDigits reports whether s is non-empty and consists of decimal digits only.
func AllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !IsDigit(s[i]) {
			return false
		}
	}
	return true
}

// PadLeading left-pads s with '0' to the requested width. Strings already at
// or beyond the width are returned unchanged.
func PadLeading(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// IsWellFormed reports whether code is an all-digit string of exactly the
// given width.
func IsWellFormed(code string, width int) bool {
	return len(code) == width && AllDigits(code)
}

// MustBeWellFormed panics when either endpoint of r is not an all-digit code
// of the given width. Ranges are produced by the parsers themselves, so a
// malformed one is a defect rather than bad input.
func MustBeWellFormed(r Range, width int) {
	if !IsWellFormed(r.Start, width) || !IsWellFormed(r.End, width) {
		panic(fmt.Sprintf("rangecode: malformed range %q-%q (want %d digit chars)", r.Start, r.End, width))
	}
}

// Set is an ordered collection of unique ranges, sorted by Start then End.
type Set struct {
	ranges []Range
}

// Len returns the number of ranges in the set.
func (s *Set) Len() int {
	return len(s.ranges)
}

// Ranges returns the members in sorted order. The returned slice is owned by
// the set and must not be modified.
func (s *Set) Ranges() []Range {
	return s.ranges
}

// Add inserts r keeping the set sorted; duplicates are dropped.
func (s *Set) Add(r Range) {
	i := sort.Search(len(s.ranges), func(i int) bool {
		if s.ranges[i].Start != r.Start {
			return s.ranges[i].Start >= r.Start
		}
		return s.ranges[i].End >= r.End
	})
	if i < len(s.ranges) && s.ranges[i] == r {
		return
	}
	s.ranges = append(s.ranges, Range{})
	copy(s.ranges[i+1:], s.ranges[i:])
	s.ranges[i] = r
}

// AddOrdered inserts r only if its start lies strictly after the end of every
// range already in the set. This is the incremental-parse invariant: sub-
// references of one citation must arrive in increasing order and must not
// overlap. It returns false, leaving the set unchanged, on violation.
func (s *Set) AddOrdered(r Range) bool {
	for _, existing := range s.ranges {
		if r.Start <= existing.End {
			return false
		}
	}
	s.ranges = append(s.ranges, r)
	return true
}

// Clear removes all members.
func (s *Set) Clear() {
	s.ranges = s.ranges[:0]
}

// Strings renders all members as "start_end" fragments in order.
func (s *Set) Strings() []string {
	out := make([]string, len(s.ranges))
	for i, r := range s.ranges {
		out[i] = r.String()
	}
	return out
}
