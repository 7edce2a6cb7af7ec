// Package sink writes parsed ranges to their destination. Two sinks exist:
// a TSV writer (stdout, file or .xz stream) and a SQLite store. Sinks are
// not safe for concurrent use; the pipeline serializes writes through a
// single goroutine.
package sink

import (
	"github.com/scrinium/bibrange/core/errors"
	"github.com/scrinium/bibrange/core/rangecode"
)

// Formats accepted by Open.
const (
	FormatTSV    = "tsv"
	FormatSQLite = "sqlite"
)

// Entry is one encoded range together with its provenance.
type Entry struct {
	RunID    string
	RecordID string
	Field    string
	Input    string
	Range    rangecode.Range
}

// Sink receives entries one at a time. Close flushes and releases the
// destination; entries written after Close are lost.
type Sink interface {
	Write(e Entry) error
	Close() error
}

// Open returns the sink for the given format. The TSV sink treats path "-"
// as stdout and compresses when path ends in .xz; the SQLite sink requires
// a database file path and a table name.
func Open(format, path, table string) (Sink, error) {
	switch format {
	case FormatTSV:
		return OpenTSV(path)
	case FormatSQLite:
		return OpenSQLite(path, table)
	default:
		return nil, errors.NewConfig("", 0, "unknown sink format "+format)
	}
}
