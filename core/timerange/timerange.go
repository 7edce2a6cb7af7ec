// Package timerange converts year and year-range expressions ("1800-1900",
// "v300-v200") into fixed-width date range codes. Each endpoint is encoded
// as an eight-digit offset year plus month and day (twelve digits total);
// the offset keeps BC dates sorting before AD dates under plain string
// comparison. BC years are written with a "v" marker, prefix or suffix.
package timerange

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/scrinium/bibrange/core/rangecode"
)

// Offset added to AD years and subtracted for BC years.
const Offset = 10_000_000

// CodeWidth is the number of digits in one date code: eight for the offset
// year, two each for month and day.
const CodeWidth = 12

// Endpoint defaults: a bare year starts at January 1st and ends at
// December 31st.
const (
	startMonthDay = "0101"
	endMonthDay   = "1231"
)

// yearGrammar is one textual form of a year range. Grammars are tried in
// order, first match wins. The extractor returns signed years, negative for
// BC.
type yearGrammar struct {
	re      *regexp.Regexp
	extract func(m []string) (startYear, endYear int, ok bool)
}

var yearGrammars = []yearGrammar{
	// Plain year range: "1800-1900"
	{
		re: regexp.MustCompile(`^([0-9]{1,4})-([0-9]{1,4})$`),
		extract: func(m []string) (int, int, bool) {
			return atoi(m[1]), atoi(m[2]), true
		},
	},
	// Open-ended range: "1800-"
	{
		re: regexp.MustCompile(`^([0-9]{1,4})-$`),
		extract: func(m []string) (int, int, bool) {
			return atoi(m[1]), 9999, true
		},
	},
	// BC-to-BC range, suffix marker: "300v-200v"
	{
		re: regexp.MustCompile(`^([0-9]{1,4})v-([0-9]{1,4})v$`),
		extract: func(m []string) (int, int, bool) {
			return -atoi(m[1]), -atoi(m[2]), true
		},
	},
	// BC-to-AD range, suffix marker: "44v-14"
	{
		re: regexp.MustCompile(`^([0-9]{1,4})v-([0-9]{1,4})$`),
		extract: func(m []string) (int, int, bool) {
			return -atoi(m[1]), atoi(m[2]), true
		},
	},
	// Prefix-marked BC range, pure or mixed: "v300-v200", "v44-14"
	{
		re: regexp.MustCompile(`^v([0-9]{1,4})-(v?)([0-9]{1,4})$`),
		extract: func(m []string) (int, int, bool) {
			end := atoi(m[3])
			if m[2] == "v" {
				end = -end
			}
			return -atoi(m[1]), end, true
		},
	},
	// Single year: "1800"
	{
		re: regexp.MustCompile(`^([0-9]{1,4})$`),
		extract: func(m []string) (int, int, bool) {
			y := atoi(m[1])
			return y, y, true
		},
	},
	// Single BC year: "v300" or "300v"
	{
		re: regexp.MustCompile(`^(?:v([0-9]{1,4})|([0-9]{1,4})v)$`),
		extract: func(m []string) (int, int, bool) {
			digits := m[1]
			if digits == "" {
				digits = m[2]
			}
			y := -atoi(digits)
			return y, y, true
		},
	},
}

func atoi(digits string) int {
	n, _ := strconv.Atoi(digits)
	return n
}

// ConvertTextToTimeRange parses a year or year-range expression and encodes
// it as "start_end" date codes. With specialCaseCenturies set, a plain range
// between two exact century boundaries excludes the closing century year:
// "1800-1900" covers 1800 through 1899. It reports false when no grammar
// matches or the range runs backwards.
func ConvertTextToTimeRange(text string, specialCaseCenturies bool) (string, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, strings.ToLower(text))
	if cleaned == "" {
		return "", false
	}

	for i, g := range yearGrammars {
		m := g.re.FindStringSubmatch(cleaned)
		if m == nil {
			continue
		}
		startYear, endYear, ok := g.extract(m)
		if !ok {
			continue
		}
		// The century rule applies to the plain range grammar only.
		if i == 0 && specialCaseCenturies && startYear%100 == 0 && endYear%100 == 0 {
			endYear--
		}
		start := encodeYear(startYear) + startMonthDay
		end := encodeYear(endYear) + endMonthDay
		if end <= start {
			return "", false
		}
		return start + "_" + end, true
	}
	return "", false
}

// encodeYear renders the eight-digit offset year. Signed years come from
// the bounded grammar digits, so the result always fits.
func encodeYear(year int) string {
	return fmt.Sprintf("%08d", Offset+year)
}

// ConvertTimeRangeToText is the best-effort inverse: it renders a
// "start_end" date-code pair back into a year expression. Non-default
// months and days are kept as "YYYY-MM-DD"; BC years carry the "v" prefix.
// The round trip loses the distinction between marker spellings and the
// century rule.
func ConvertTimeRangeToText(rangeStr string) (string, bool) {
	parts := strings.Split(rangeStr, "_")
	if len(parts) != 2 {
		return "", false
	}
	startText, ok := decodeSide(parts[0], startMonthDay)
	if !ok {
		return "", false
	}
	endText, ok := decodeSide(parts[1], endMonthDay)
	if !ok {
		return "", false
	}
	if startText == endText {
		return startText, true
	}
	return startText + "-" + endText, true
}

// decodeSide renders one endpoint, dropping the month and day when they
// equal the side's default.
func decodeSide(code, defaultMonthDay string) (string, bool) {
	if !rangecode.IsWellFormed(code, CodeWidth) {
		return "", false
	}
	offsetYear, err := strconv.Atoi(code[:8])
	if err != nil {
		return "", false
	}
	year := offsetYear - Offset
	text := ""
	if year < 0 {
		text = "v" + strconv.Itoa(-year)
	} else {
		text = strconv.Itoa(year)
	}
	monthDay := code[8:]
	if monthDay == defaultMonthDay {
		return text, true
	}
	return text + "-" + monthDay[:2] + "-" + monthDay[2:], true
}
