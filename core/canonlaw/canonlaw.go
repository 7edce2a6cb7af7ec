// Package canonlaw parses canon-law citations ("1983,4,5", "747-755") into
// nine-digit range codes. A canon locus is encoded as
// canon*10000 + part*100 + subpart; the leading digit carries the codex
// (1 CIC/1917, 2 CIC/1983, 3 CCEO), keeping the three numbering systems
// disjoint and string-sortable.
package canonlaw

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/scrinium/bibrange/core/rangecode"
)

// CodeWidth is the number of digits in a canon-law range code.
const CodeWidth = 9

// Encoding factors and component bounds.
const (
	canonFactor = 10000
	partFactor  = 100

	maxCanon = 9999
	maxPart  = 99
)

// grammar is one citation form: a pattern plus the extraction of its start
// and end encodings. Grammars are tried in order, first match wins; an
// extractor may still decline (out-of-range component, backwards range),
// which falls through to the next grammar.
type grammar struct {
	re      *regexp.Regexp
	extract func(m []string) (start, end int, ok bool)
}

var grammars = []grammar{
	// Whole canon: "747"
	{
		re: regexp.MustCompile(`^([0-9]+)$`),
		extract: func(m []string) (int, int, bool) {
			canon, ok := component(m[1], maxCanon)
			if !ok {
				return 0, 0, false
			}
			return canon * canonFactor, canon*canonFactor + canonFactor - 1, true
		},
	},
	// Exact locus: "1983,4,5"
	{
		re: regexp.MustCompile(`^([0-9]+),([0-9]+),([0-9]+)$`),
		extract: func(m []string) (int, int, bool) {
			canon, okC := component(m[1], maxCanon)
			part, okP := component(m[2], maxPart)
			sub, okS := component(m[3], maxPart)
			if !okC || !okP || !okS {
				return 0, 0, false
			}
			point := canon*canonFactor + part*partFactor + sub
			return point, point, true
		},
	},
	// Canon range: "747-755"
	{
		re: regexp.MustCompile(`^([0-9]+)-([0-9]+)$`),
		extract: func(m []string) (int, int, bool) {
			first, okF := component(m[1], maxCanon)
			second, okS := component(m[2], maxCanon)
			if !okF || !okS || second < first {
				return 0, 0, false
			}
			return first * canonFactor, second*canonFactor + canonFactor - 1, true
		},
	},
	// Canon with part: "1983,4" covers subparts 00-99
	{
		re: regexp.MustCompile(`^([0-9]+),([0-9]+)$`),
		extract: func(m []string) (int, int, bool) {
			canon, okC := component(m[1], maxCanon)
			part, okP := component(m[2], maxPart)
			if !okC || !okP {
				return 0, 0, false
			}
			start := canon*canonFactor + part*partFactor
			return start, start + partFactor - 1, true
		},
	},
	// Part range within one canon: "1983,4-6"
	{
		re: regexp.MustCompile(`^([0-9]+),([0-9]+)-([0-9]+)$`),
		extract: func(m []string) (int, int, bool) {
			canon, okC := component(m[1], maxCanon)
			first, okF := component(m[2], maxPart)
			second, okS := component(m[3], maxPart)
			if !okC || !okF || !okS || second < first {
				return 0, 0, false
			}
			start := canon*canonFactor + first*partFactor
			end := canon*canonFactor + second*partFactor + partFactor - 1
			return start, end, true
		},
	},
}

// component parses a bounded citation component; all components start at 1.
func component(digits string, max int) (int, bool) {
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 || n > max {
		return 0, false
	}
	return n, true
}

// ParseRanges parses a canon-law citation into its start and end encodings,
// before any codex offset. It reports false when no grammar accepts the
// text.
func ParseRanges(citation string) (start, end int, ok bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, citation)
	if cleaned == "" {
		return 0, 0, false
	}
	for _, g := range grammars {
		m := g.re.FindStringSubmatch(cleaned)
		if m == nil {
			continue
		}
		if start, end, ok = g.extract(m); ok {
			return start, end, true
		}
	}
	return 0, 0, false
}

// Codex identifies one of the three canon-law numbering systems.
type Codex int

const (
	CodexNone Codex = iota
	CIC1917
	CIC1983
	CCEO
)

// codexOffsets keep the three numbering systems in disjoint code blocks.
var codexOffsets = map[Codex]int{
	CIC1917: 100000000,
	CIC1983: 200000000,
	CCEO:    300000000,
}

// Offset returns the numeric block offset for the codex.
func (c Codex) Offset() int {
	return codexOffsets[c]
}

func (c Codex) String() string {
	switch c {
	case CIC1917:
		return "CIC/1917"
	case CIC1983:
		return "CIC/1983"
	case CCEO:
		return "CCEO"
	default:
		return "none"
	}
}

// ParseCodex recognizes a codex designation. A bare "CIC" names the current
// Latin code, CIC/1983.
func ParseCodex(s string) (Codex, bool) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "/", "")) {
	case "cic1917":
		return CIC1917, true
	case "cic", "cic1983":
		return CIC1983, true
	case "cceo":
		return CCEO, true
	default:
		return CodexNone, false
	}
}

var reCitationPrefix = regexp.MustCompile(`^(?i)\s*(cic\s*/?\s*1917|cic\s*/?\s*1983|cceo|cic)\s*`)
var reCanonMarker = regexp.MustCompile(`^(?i)(cann?\.|can\b|c\.)\s*`)

// SplitCitation cuts a leading codex designation and an optional canon
// marker ("can.", "c.") off a free-text citation, returning the codex and
// the remaining numeric citation text. Citations without a designation
// return CodexNone and the input unchanged apart from trimming.
func SplitCitation(text string) (Codex, string) {
	trimmed := strings.TrimSpace(text)
	m := reCitationPrefix.FindString(trimmed)
	if m == "" {
		return CodexNone, trimmed
	}
	codex, ok := ParseCodex(m)
	if !ok {
		return CodexNone, trimmed
	}
	rest := strings.TrimSpace(trimmed[len(m):])
	rest = reCanonMarker.ReplaceAllString(rest, "")
	return codex, strings.TrimSpace(rest)
}

// EncodeRange applies the codex offset and renders the fixed-width range.
// Encodings come from ParseRanges, so a result that does not fit the code
// width is a defect and panics.
func EncodeRange(start, end int, codex Codex) rangecode.Range {
	r := rangecode.Range{
		Start: fmt.Sprintf("%0*d", CodeWidth, start+codex.Offset()),
		End:   fmt.Sprintf("%0*d", CodeWidth, end+codex.Offset()),
	}
	rangecode.MustBeWellFormed(r, CodeWidth)
	return r
}

// ParseCitation parses a full free-text citation, codex designation
// included. Citations without a designation stay in the unprefixed code
// block.
func ParseCitation(text string) (rangecode.Range, Codex, bool) {
	codex, rest := SplitCitation(text)
	start, end, ok := ParseRanges(rest)
	if !ok {
		return rangecode.Range{}, codex, false
	}
	return EncodeRange(start, end, codex), codex, true
}
