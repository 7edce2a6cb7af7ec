// Package query renders encoded ranges as fragments of the downstream
// search-index query language. Two forms exist: the numeric form, an
// underscore-joined pair of range codes compared as plain numbers by the
// index, and the date form, a bracketed inclusive ISO 8601 interval built
// from Unix timestamps.
package query

import (
	"strconv"
	"strings"
	"time"

	"github.com/scrinium/bibrange/core/errors"
	"github.com/scrinium/bibrange/core/rangecode"
)

// OrSeparator joins alternative clauses in the query language.
const OrSeparator = " OR "

// RangeFragment renders r as the numeric-range fragment "SSSS_EEEE".
func RangeFragment(r rangecode.Range) string {
	return r.String()
}

// SetFragment renders every range in s as a numeric fragment and joins the
// alternatives with OR. An empty set yields the empty string.
func SetFragment(s *rangecode.Set) string {
	return strings.Join(s.Strings(), OrSeparator)
}

// ConvertToDatesQuery converts a space-separated list of "start:end" pairs
// into a date-range query. Each side is an unsigned integer Unix timestamp;
// a pair becomes a bracketed inclusive clause "[start TO end]" with both
// endpoints rendered as UTC ISO 8601, and multiple pairs are joined with OR.
//
// A pair without a colon, or with a side that is not an unsigned integer,
// is a caller defect rather than bad citation text, so the whole conversion
// fails with an error instead of a soft false.
func ConvertToDatesQuery(rangesStr string) (string, error) {
	pairs := strings.Fields(rangesStr)
	clauses := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		startStr, endStr, found := strings.Cut(pair, ":")
		if !found {
			return "", errors.NewParse("dates query", pair, "missing ':' separator")
		}
		start, err := parseTimestamp(pair, startStr)
		if err != nil {
			return "", err
		}
		end, err := parseTimestamp(pair, endStr)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, "["+formatTimestamp(start)+" TO "+formatTimestamp(end)+"]")
	}
	return strings.Join(clauses, OrSeparator), nil
}

func parseTimestamp(pair, side string) (uint64, error) {
	v, err := strconv.ParseUint(side, 10, 64)
	if err != nil {
		return 0, errors.NewParse("dates query", pair, "side "+strconv.Quote(side)+" is not an unsigned integer")
	}
	return v, nil
}

func formatTimestamp(v uint64) string {
	return time.Unix(int64(v), 0).UTC().Format(time.RFC3339)
}
