// Package bibleref parses chapter-and-verse citation candidates into
// fixed-width range codes. Two grammars are supported: a verse-list grammar
// chosen when the candidate contains a period ("3,16.18.21-24") and a
// five-state machine for everything else ("1-3", "3,16", "1,5-2,10"). Both
// emit ranges of the form bookCode+chapter+verse with three digits per
// component, so an eight-digit code covers the usual two-character book
// codes.
package bibleref

import (
	"strconv"
	"strings"

	"github.com/scrinium/bibrange/core/rangecode"
)

// Component widths within a range code.
const (
	ChapterWidth = 3
	VerseWidth   = 3
)

// dummyBookCode backs the validity probe; its value never leaves CanParse.
const dummyBookCode = "00"

// Parser parses citation candidates. It carries no per-call state, so one
// instance may serve concurrent goroutines; the zero value is ready to use.
type Parser struct{}

// parser state for the non-dot grammar
type machineState int

const (
	stateInitial machineState = iota
	stateChapter1
	stateChapter2
	stateVerse1
	stateVerse2
)

// ParseReference parses candidate against the given book code and appends
// the resulting ranges to set. It reports false when the text matches no
// supported grammar, when a committed range is out of order with an earlier
// one, or when a range would run backwards; set is then left with whatever
// had been committed before the failure and the caller discards it.
//
// An empty candidate (after whitespace stripping) is the whole-book case and
// yields the single range bookCode+"000000" to bookCode+"999999".
//
// The book code must be two to four digit characters. Violations panic:
// codes come from the code mapper, not from user input, so a bad one is a
// defect in the calling tool.
func (p *Parser) ParseReference(candidate, bookCode string, set *rangecode.Set) bool {
	if len(bookCode) < 2 || len(bookCode) > 4 || !rangecode.AllDigits(bookCode) {
		panic("bibleref: invalid book code " + strconv.Quote(bookCode))
	}

	cleaned := stripSpaces(candidate)
	width := len(bookCode) + ChapterWidth + VerseWidth
	emit := func(start, end string) bool {
		r := rangecode.Range{Start: start, End: end}
		rangecode.MustBeWellFormed(r, width)
		return set.AddOrdered(r)
	}

	if cleaned == "" {
		return emit(
			bookCode+strings.Repeat("0", ChapterWidth)+strings.Repeat("0", VerseWidth),
			bookCode+strings.Repeat("9", ChapterWidth)+strings.Repeat("9", VerseWidth),
		)
	}
	if strings.ContainsRune(cleaned, '.') {
		return parseVerseList(cleaned, bookCode, emit)
	}
	return parseMachine(cleaned, bookCode, emit)
}

// CanParse probes whether candidate would parse, using a dummy book code and
// discarding the output.
func (p *Parser) CanParse(candidate string) bool {
	var set rangecode.Set
	return p.ParseReference(candidate, dummyBookCode, &set)
}

var defaultParser Parser

// ParseReference parses candidate with the default parser.
func ParseReference(candidate, bookCode string, set *rangecode.Set) bool {
	return defaultParser.ParseReference(candidate, bookCode, set)
}

// CanParseReference probes candidate with the default parser.
func CanParseReference(candidate string) bool {
	return defaultParser.CanParse(candidate)
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
}

// parseMachine runs the five-state grammar over candidates without periods.
//
//	INITIAL --digit--> CHAPTER1 --'-'--> CHAPTER2
//	                   CHAPTER1 --','/':'-> VERSE1 --'-'--> VERSE2 or CHAPTER2
//	                   CHAPTER2 --','/':'-> VERSE2
//
// The hyphen seen in VERSE1 is ambiguous: "1,5-9" continues with verses but
// "1,5-2,10" continues with a chapter. The unparsed remainder decides: a
// following ',' or ':' means a second chapter is still to come.
func parseMachine(cleaned, bookCode string, emit func(start, end string) bool) bool {
	var chapter1, chapter2, verse1, verse2, acc string
	st := stateInitial

	for i := 0; i < len(cleaned); i++ {
		ch := cleaned[i]
		switch st {
		case stateInitial:
			if !rangecode.IsDigit(ch) {
				return false
			}
			acc = string(ch)
			st = stateChapter1

		case stateChapter1:
			switch {
			case rangecode.IsDigit(ch):
				if len(acc) >= ChapterWidth {
					return false
				}
				acc += string(ch)
			case ch == '-':
				chapter1 = rangecode.PadLeading(acc, ChapterWidth)
				acc = ""
				st = stateChapter2
			case ch == ',' || ch == ':':
				chapter1 = rangecode.PadLeading(acc, ChapterWidth)
				acc = ""
				st = stateVerse1
			default:
				return false
			}

		case stateVerse1:
			switch {
			case rangecode.IsDigit(ch):
				if len(acc) >= VerseWidth {
					return false
				}
				acc += string(ch)
			case rangecode.IsLower(ch):
				// Annotation marker such as "12a"; needs at least one digit.
				if acc == "" {
					return false
				}
			case ch == '-':
				verse1 = rangecode.PadLeading(acc, VerseWidth)
				acc = ""
				if strings.ContainsAny(cleaned[i+1:], ",:") {
					st = stateChapter2
				} else {
					st = stateVerse2
				}
			default:
				return false
			}

		case stateChapter2:
			switch {
			case rangecode.IsDigit(ch):
				if len(acc) >= ChapterWidth {
					return false
				}
				acc += string(ch)
			case ch == ',' || ch == ':':
				chapter2 = rangecode.PadLeading(acc, ChapterWidth)
				acc = ""
				st = stateVerse2
			default:
				return false
			}

		case stateVerse2:
			switch {
			case rangecode.IsDigit(ch):
				if len(acc) >= VerseWidth {
					return false
				}
				acc += string(ch)
			case rangecode.IsLower(ch):
				if acc == "" {
					return false
				}
			default:
				return false
			}
		}
	}

	switch st {
	case stateChapter1:
		chapter := rangecode.PadLeading(acc, ChapterWidth)
		return emit(
			bookCode+chapter+strings.Repeat("0", VerseWidth),
			bookCode+chapter+strings.Repeat("9", VerseWidth),
		)

	case stateChapter2:
		if acc == "" {
			return false
		}
		chapter2 = rangecode.PadLeading(acc, ChapterWidth)
		if verse1 == "" {
			verse1 = strings.Repeat("0", VerseWidth)
		}
		start := bookCode + chapter1 + verse1
		end := bookCode + chapter2 + strings.Repeat("9", VerseWidth)
		if end <= start {
			return false
		}
		return emit(start, end)

	case stateVerse1:
		verse := rangecode.PadLeading(acc, VerseWidth)
		point := bookCode + chapter1 + verse
		return emit(point, point)

	case stateVerse2:
		if acc == "" {
			return false
		}
		verse2 = rangecode.PadLeading(acc, VerseWidth)
		if verse1 == "" {
			// Reached via a bare chapter range ("1-3,16"): the start
			// chapter is cited whole.
			verse1 = strings.Repeat("0", VerseWidth)
		}
		endChapter := chapter2
		if endChapter == "" {
			endChapter = chapter1
		}
		start := bookCode + chapter1 + verse1
		end := bookCode + endChapter + verse2
		if end <= start {
			return false
		}
		return emit(start, end)

	default:
		return false
	}
}

// parseVerseList handles the period grammar: one chapter followed by a
// period-separated list of verses and verse ranges, "3,16.18.21-24". Every
// list entry must start strictly after the previous one ends.
func parseVerseList(cleaned, bookCode string, emit func(start, end string) bool) bool {
	sep := strings.IndexAny(cleaned, ",:")
	if sep < 0 {
		return false
	}
	chapterDigits := cleaned[:sep]
	if len(chapterDigits) == 0 || len(chapterDigits) > ChapterWidth || !rangecode.AllDigits(chapterDigits) {
		return false
	}
	chapter := rangecode.PadLeading(chapterDigits, ChapterWidth)
	rest := cleaned[sep+1:]

	var verse1, verse2 string
	inRange := false

	commit := func() bool {
		start := bookCode + chapter + rangecode.PadLeading(verse1, VerseWidth)
		if inRange {
			end := bookCode + chapter + rangecode.PadLeading(verse2, VerseWidth)
			if end <= start {
				return false
			}
			return emit(start, end)
		}
		return emit(start, start)
	}

	for i := 0; i < len(rest); i++ {
		ch := rest[i]
		switch {
		case rangecode.IsDigit(ch):
			if inRange {
				if len(verse2) >= VerseWidth {
					return false
				}
				verse2 += string(ch)
			} else {
				if len(verse1) >= VerseWidth {
					return false
				}
				verse1 += string(ch)
			}
		case rangecode.IsLower(ch):
			if inRange && verse2 == "" || !inRange && verse1 == "" {
				return false
			}
		case ch == '.':
			if !commit() {
				return false
			}
			verse1, verse2, inRange = "", "", false
		case ch == '-':
			if inRange {
				return false
			}
			inRange = true
		default:
			return false
		}
	}
	return commit()
}
