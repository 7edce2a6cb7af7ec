package sink

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/scrinium/bibrange/core/errors"
)

// TSVSink writes one row per range:
//
//	record-id <TAB> field <TAB> input <TAB> start <TAB> end
type TSVSink struct {
	w       *bufio.Writer
	closers []io.Closer
}

// OpenTSV opens the TSV sink. "-" writes to stdout; a .xz suffix compresses
// the stream.
func OpenTSV(path string) (*TSVSink, error) {
	if path == "-" {
		return &TSVSink{w: bufio.NewWriter(os.Stdout)}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, errors.NewIO("create", path, err)
	}
	if !strings.HasSuffix(path, ".xz") {
		return &TSVSink{w: bufio.NewWriter(f), closers: []io.Closer{f}}, nil
	}

	xzw, err := xz.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, errors.NewIO("write xz header of", path, err)
	}
	// Close order matters: the xz writer must flush before the file closes.
	return &TSVSink{w: bufio.NewWriter(xzw), closers: []io.Closer{xzw, f}}, nil
}

// Write emits one row. Tabs and newlines inside fields are replaced by
// spaces so the row structure survives.
func (s *TSVSink) Write(e Entry) error {
	row := strings.Join([]string{
		clean(e.RecordID),
		clean(e.Field),
		clean(e.Input),
		e.Range.Start,
		e.Range.End,
	}, "\t")
	if _, err := s.w.WriteString(row + "\n"); err != nil {
		return errors.NewIO("write", "tsv sink", err)
	}
	return nil
}

// Close flushes buffered rows and closes the stream.
func (s *TSVSink) Close() error {
	if err := s.w.Flush(); err != nil {
		return errors.NewIO("flush", "tsv sink", err)
	}
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			return errors.NewIO("close", "tsv sink", err)
		}
	}
	return nil
}

func clean(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
