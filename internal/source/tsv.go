package source

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/scrinium/bibrange/core/errors"
)

// maxLineBytes caps a single input row. Catalog field dumps stay far below
// this; anything larger is corrupt input.
const maxLineBytes = 1 << 20

// TSVSource reads candidate rows of the form
//
//	record-id <TAB> field-text
//	record-id <TAB> field-name <TAB> field-text
//
// Blank lines and lines starting with '#' are skipped.
type TSVSource struct {
	path    string
	closer  io.Closer
	scanner *bufio.Scanner
	line    int
}

// OpenTSV opens a TSV candidate file. "-" reads stdin; a .xz suffix
// decompresses transparently.
func OpenTSV(path string) (*TSVSource, error) {
	r, closer, err := openReader(path)
	if err != nil {
		return nil, err
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &TSVSource{path: path, closer: closer, scanner: scanner}, nil
}

// Next returns the next candidate row. Malformed rows yield a ParseError;
// the caller may log it and call Next again.
func (s *TSVSource) Next() (Record, error) {
	for s.scanner.Scan() {
		s.line++
		line := s.scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		parts := strings.Split(line, "\t")
		switch len(parts) {
		case 2:
			return Record{ID: parts[0], Text: parts[1]}, nil
		case 3:
			return Record{ID: parts[0], Field: parts[1], Text: parts[2]}, nil
		default:
			return Record{}, errors.NewParse("tsv row", line,
				fmt.Sprintf("%s line %d: want 2 or 3 tab-separated columns", s.path, s.line))
		}
	}
	if err := s.scanner.Err(); err != nil {
		return Record{}, errors.NewIO("read", s.path, err)
	}
	return Record{}, io.EOF
}

// Close releases the underlying file.
func (s *TSVSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
