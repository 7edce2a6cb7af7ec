package source

import (
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/scrinium/bibrange/core/errors"
	"github.com/scrinium/bibrange/core/rangecode"
)

// Selector names a MARCXML datafield/subfield pair, written "tag$code",
// e.g. "630$a".
type Selector struct {
	Tag  string
	Code string
}

// ParseSelector validates and splits a "tag$code" selector.
func ParseSelector(s string) (Selector, error) {
	tag, code, found := strings.Cut(s, "$")
	if !found {
		return Selector{}, errors.NewConfig("", 0, fmt.Sprintf("selector %q: want tag$subfield", s))
	}
	if len(tag) != 3 || !rangecode.AllDigits(tag) {
		return Selector{}, errors.NewConfig("", 0, fmt.Sprintf("selector %q: tag must be 3 digits", s))
	}
	if len(code) != 1 {
		return Selector{}, errors.NewConfig("", 0, fmt.Sprintf("selector %q: subfield must be 1 character", s))
	}
	return Selector{Tag: tag, Code: code}, nil
}

// String renders the selector back in "tag$code" form.
func (s Selector) String() string {
	return s.Tag + "$" + s.Code
}

// xpathExpr is the per-record query for this selector.
func (s Selector) xpathExpr() string {
	return fmt.Sprintf("datafield[@tag='%s']/subfield[@code='%s']", s.Tag, s.Code)
}

// MARCXMLSource extracts candidate field values from a MARCXML document.
// The document is parsed up front; Next then walks the extracted values.
type MARCXMLSource struct {
	records []Record
	pos     int
}

// OpenMARCXML parses a MARCXML file and extracts one candidate per selector
// match. The record ID comes from controlfield 001; records without one get
// a positional ID.
func OpenMARCXML(path string, selectorStrs []string) (*MARCXMLSource, error) {
	selectors := make([]Selector, 0, len(selectorStrs))
	for _, s := range selectorStrs {
		sel, err := ParseSelector(s)
		if err != nil {
			return nil, err
		}
		// Compile the expression to check for errors
		if _, cerr := xpath.Compile(sel.xpathExpr()); cerr != nil {
			return nil, errors.NewConfig("", 0, fmt.Sprintf("selector %q: %v", s, cerr))
		}
		selectors = append(selectors, sel)
	}
	if len(selectors) == 0 {
		return nil, errors.NewConfig("", 0, "marcxml input needs at least one field selector")
	}

	r, closer, err := openReader(path)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		defer closer.Close()
	}

	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, &errors.ConfigError{Path: path, Message: "not well-formed MARCXML", Err: err}
	}

	recordNodes, err := xmlquery.QueryAll(doc, "//record")
	if err != nil {
		return nil, &errors.ConfigError{Path: path, Message: "record query failed", Err: err}
	}

	src := &MARCXMLSource{}
	for i, rec := range recordNodes {
		id := recordID(rec, i)
		for _, sel := range selectors {
			values, err := xmlquery.QueryAll(rec, sel.xpathExpr())
			if err != nil {
				return nil, &errors.ConfigError{Path: path, Message: "field query failed", Err: err}
			}
			for _, v := range values {
				text := strings.TrimSpace(v.InnerText())
				if text == "" {
					continue
				}
				src.records = append(src.records, Record{ID: id, Field: sel.String(), Text: text})
			}
		}
	}
	return src, nil
}

func recordID(rec *xmlquery.Node, index int) string {
	node, err := xmlquery.Query(rec, "controlfield[@tag='001']")
	if err == nil && node != nil {
		if id := strings.TrimSpace(node.InnerText()); id != "" {
			return id
		}
	}
	return fmt.Sprintf("record-%d", index+1)
}

// Next returns the next extracted candidate.
func (s *MARCXMLSource) Next() (Record, error) {
	if s.pos >= len(s.records) {
		return Record{}, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, nil
}

// Close is a no-op; the file is consumed during Open.
func (s *MARCXMLSource) Close() error {
	return nil
}
