// Package pipeline runs the batch record-processing loop: records come in
// from a source, workers resolve their citation text into ranges, and a
// single collector writes results to the sink. Records whose text no
// grammar accepts are logged and skipped; only configuration and I/O
// problems abort a run.
package pipeline

import (
	"context"
	"encoding/hex"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/scrinium/bibrange/core/errors"
	"github.com/scrinium/bibrange/core/rangecode"
	"github.com/scrinium/bibrange/internal/logging"
	"github.com/scrinium/bibrange/internal/sink"
	"github.com/scrinium/bibrange/internal/source"
)

// Options configures one batch run.
type Options struct {
	// Workers is the number of concurrent resolvers.
	Workers int
	// InputPath names the input in the report; when it points at a regular
	// file its BLAKE3 digest is recorded too.
	InputPath string
	// ProgressEvery fires OnProgress after every N records. Zero disables
	// intermediate events; the final event always fires.
	ProgressEvery int
	// OnProgress receives progress events when non-nil.
	OnProgress func(ProgressEvent)
}

// ProgressEvent is a point-in-time snapshot of a running batch.
type ProgressEvent struct {
	RunID   string `json:"run_id"`
	Records int    `json:"records"`
	Ranges  int    `json:"ranges"`
	Skipped int    `json:"skipped"`
	Done    bool   `json:"done"`
}

// Report summarizes a finished batch run.
type Report struct {
	RunID       string    `json:"run_id"`
	Input       string    `json:"input,omitempty"`
	InputDigest string    `json:"input_digest,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
	Records     int       `json:"records"`
	Parsed      int       `json:"parsed"`
	Skipped     int       `json:"skipped"`
	Ranges      int       `json:"ranges"`
}

type job struct {
	record source.Record
}

type result struct {
	record source.Record
	ranges []rangecode.Range
	ok     bool
}

// Run drains src through the resolver into out. It returns the run report
// and the first fatal error, if any. Parse failures are not fatal.
func Run(ctx context.Context, src source.Source, out sink.Sink, resolver *Resolver, opts Options) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		Input:     opts.InputPath,
		StartedAt: time.Now().UTC(),
	}
	if digest, err := InputDigest(opts.InputPath); err == nil {
		report.InputDigest = digest
	}

	logging.RunEvent(report.RunID, "started", "input", opts.InputPath)

	pool := NewWorkerPool[job, result](opts.Workers)
	pool.Start(func(j job) result {
		ranges, ok := resolver.Resolve(j.record.Text)
		return result{record: j.record, ranges: ranges, ok: ok}
	})

	// Producer. Its counters are read by the main goroutine only after the
	// results channel closes, which happens after this goroutine returns.
	var (
		sourceSkipped int
		sourceErr     error
		canceled      bool
	)
	go func() {
		defer pool.Close()
		for {
			if ctx.Err() != nil {
				canceled = true
				return
			}
			rec, err := src.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				if errors.Is(err, errors.ErrInvalidInput) {
					// Malformed row; keep reading.
					logging.Warn("row_skipped", "error", err.Error())
					sourceSkipped++
					continue
				}
				sourceErr = err
				return
			}
			pool.Submit(job{record: rec})
		}
	}()

	var sinkErr error
	for res := range pool.Results() {
		report.Records++
		resolver.Metrics().RecordProcessed()

		if !res.ok {
			report.Skipped++
			logging.RecordSkipped(res.record.ID, res.record.Field, res.record.Text)
		} else {
			report.Parsed++
			written := 0
			for _, rng := range res.ranges {
				if sinkErr != nil {
					continue
				}
				err := out.Write(sink.Entry{
					RunID:    report.RunID,
					RecordID: res.record.ID,
					Field:    res.record.Field,
					Input:    res.record.Text,
					Range:    rng,
				})
				if err != nil {
					sinkErr = err
					continue
				}
				written++
			}
			report.Ranges += written
			resolver.Metrics().RangesEmitted(written)
		}

		if opts.OnProgress != nil && opts.ProgressEvery > 0 && report.Records%opts.ProgressEvery == 0 {
			opts.OnProgress(ProgressEvent{
				RunID:   report.RunID,
				Records: report.Records,
				Ranges:  report.Ranges,
				Skipped: report.Skipped,
			})
		}
	}

	report.Skipped += sourceSkipped
	report.DurationMS = time.Since(report.StartedAt).Milliseconds()

	if opts.OnProgress != nil {
		opts.OnProgress(ProgressEvent{
			RunID:   report.RunID,
			Records: report.Records,
			Ranges:  report.Ranges,
			Skipped: report.Skipped,
			Done:    true,
		})
	}

	logging.RunEvent(report.RunID, "finished",
		"records", report.Records,
		"parsed", report.Parsed,
		"skipped", report.Skipped,
		"ranges", report.Ranges,
		"duration_ms", report.DurationMS,
	)

	switch {
	case sourceErr != nil:
		return report, sourceErr
	case sinkErr != nil:
		return report, sinkErr
	case canceled:
		return report, ctx.Err()
	default:
		return report, nil
	}
}

// InputDigest returns the hex BLAKE3 digest of the file at path. Streams
// ("-", pipes) and unreadable paths yield an error.
func InputDigest(path string) (string, error) {
	if path == "" || path == "-" {
		return "", errors.NewUnsupported("digest of stream input", "no file to hash")
	}
	f, err := os.Open(path)
	if err != nil {
		return "", errors.NewIO("open", path, err)
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.NewIO("read", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
