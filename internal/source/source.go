// Package source reads citation candidates from batch inputs. Two input
// shapes are supported: tab-separated field dumps and MARCXML files. Both
// may be xz-compressed; compression is detected from the file name.
package source

import (
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/scrinium/bibrange/core/errors"
)

// Record is one citation candidate pulled from the input.
type Record struct {
	// ID identifies the originating record.
	ID string
	// Field names where in the record the text came from, e.g. a MARCXML
	// selector like "630$a". Plain TSV rows leave it empty.
	Field string
	// Text is the candidate citation text.
	Text string
}

// Source yields records one at a time. Next returns io.EOF after the last
// record. A non-EOF error reports a skippable defect in the current row;
// iteration may continue.
type Source interface {
	Next() (Record, error)
	Close() error
}

// Open returns a Source for path. Files ending in .xml or .marcxml (with an
// optional .xz suffix) are read as MARCXML using the given field selectors;
// everything else is read as TSV. "-" reads TSV from stdin.
func Open(path string, selectors []string) (Source, error) {
	base := strings.TrimSuffix(path, ".xz")
	if strings.HasSuffix(base, ".xml") || strings.HasSuffix(base, ".marcxml") {
		return OpenMARCXML(path, selectors)
	}
	return OpenTSV(path)
}

// openReader opens path for reading, transparently decompressing .xz files.
// "-" yields stdin.
func openReader(path string) (io.Reader, io.Closer, error) {
	if path == "-" {
		return os.Stdin, nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.NewIO("open", path, err)
	}
	if !strings.HasSuffix(path, ".xz") {
		return f, f, nil
	}
	xzr, err := xz.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, errors.NewIO("read xz header of", path, err)
	}
	// The xz reader itself needs no closing, only the file underneath.
	return xzr, f, nil
}
