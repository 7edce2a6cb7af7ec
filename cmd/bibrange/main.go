// Command bibrange resolves bible, canon law and time references into
// sortable numeric range codes. It provides commands for single lookups,
// batch runs over record dumps, map-table tooling and an HTTP API server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/scrinium/bibrange/core/bibleref"
	"github.com/scrinium/bibrange/core/books"
	"github.com/scrinium/bibrange/core/canonlaw"
	"github.com/scrinium/bibrange/core/mapfile"
	"github.com/scrinium/bibrange/core/query"
	"github.com/scrinium/bibrange/core/timerange"
	"github.com/scrinium/bibrange/internal/config"
	"github.com/scrinium/bibrange/internal/logging"
	"github.com/scrinium/bibrange/internal/metrics"
	"github.com/scrinium/bibrange/internal/pipeline"
	"github.com/scrinium/bibrange/internal/server"
	"github.com/scrinium/bibrange/internal/sink"
	"github.com/scrinium/bibrange/internal/source"
)

const version = "0.3.0"

// CLI defines the command-line interface for bibrange.
var CLI struct {
	// Global flags
	Config  string `name:"config" short:"c" help:"Configuration file path" type:"path"`
	Verbose bool   `name:"verbose" short:"v" help:"Enable debug logging"`

	Parse   ParseCmd    `cmd:"" help:"Resolve a bible reference to range codes"`
	Canon   CanonCmd    `cmd:"" help:"Resolve a canon law citation to a range code"`
	Time    TimeGroup   `cmd:"" help:"Encode and decode time references"`
	Query   QueryCmd    `cmd:"" help:"Convert start:end second pairs to a dates query"`
	Batch   BatchCmd    `cmd:"" help:"Resolve references for a whole record dump"`
	Maps    MapsGroup   `cmd:"" help:"Map table tooling (check, lookup, fingerprint)"`
	Cfg     ConfigGroup `cmd:"" name:"config" help:"Configuration file tooling"`
	Serve   ServeCmd    `cmd:"" help:"Start the HTTP API server"`
	Version VersionCmd  `cmd:"" help:"Print version information"`
}

// TimeGroup contains the two directions of the time codec.
type TimeGroup struct {
	Encode TimeEncodeCmd `cmd:"" help:"Encode a written time reference as a range code"`
	Decode TimeDecodeCmd `cmd:"" help:"Decode a range code back to text"`
}

// MapsGroup contains map table operations.
type MapsGroup struct {
	Check       MapsCheckCmd       `cmd:"" help:"Validate the configured map files"`
	Lookup      MapsLookupCmd      `cmd:"" help:"Resolve a book name through the mappers"`
	Fingerprint MapsFingerprintCmd `cmd:"" help:"Print BLAKE3 fingerprints of map files"`
}

// ConfigGroup contains configuration file operations.
type ConfigGroup struct {
	Init ConfigInitCmd `cmd:"" help:"Write a default configuration file"`
}

// loadConfig loads the configuration named by the global flag and
// initializes logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return nil, err
	}
	if CLI.Verbose {
		cfg.Logging.Level = "debug"
	}
	logging.InitLogger(logging.ParseLevel(cfg.Logging.Level), logging.ParseFormat(cfg.Logging.Format))
	return cfg, nil
}

// loadMappers builds the mapper bundle from the configured paths. Unset
// paths use the embedded default tables.
func loadMappers(cfg *config.Config) (*books.Mappers, error) {
	m, err := books.LoadMappers(cfg.Maps.Canonical, cfg.Maps.Codes, cfg.Maps.Aliases)
	if err != nil {
		return nil, fmt.Errorf("failed to load map tables: %w", err)
	}
	return m, nil
}

func printJSON(v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(output))
	return nil
}

type rangeOutput struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ParseCmd resolves a bible reference.
type ParseCmd struct {
	Text       []string `arg:"" help:"Reference text, e.g. 'Johannes 3,16'"`
	OSIS       bool     `name:"osis" help:"Parse an OSIS identifier (Book.Chapter.Verse) instead"`
	NoFallback bool     `name:"no-fallback" help:"Disable the whole-book fallback"`
	JSON       bool     `help:"Output as JSON"`
}

type parseOutput struct {
	Input  string        `json:"input"`
	Ranges []rangeOutput `json:"ranges"`
	Query  string        `json:"query"`
}

func (c *ParseCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mappers, err := loadMappers(cfg)
	if err != nil {
		return err
	}

	text := strings.Join(c.Text, " ")
	out := parseOutput{Input: text}

	if c.OSIS {
		rng, err := bibleref.ParseOSIS(text, mappers.Codes)
		if err != nil {
			return err
		}
		out.Ranges = []rangeOutput{{Start: rng.Start, End: rng.End}}
		out.Query = query.RangeFragment(rng)
	} else {
		batch := cfg.Batch
		batch.Mode = config.ModeBible
		if c.NoFallback {
			batch.WholeBookFallback = false
		}
		resolver := pipeline.NewResolver(mappers, nil, batch)

		ranges, ok := resolver.ResolveBible(text)
		if !ok {
			return fmt.Errorf("no reference grammar matched %q", text)
		}
		fragments := make([]string, 0, len(ranges))
		for _, rng := range ranges {
			out.Ranges = append(out.Ranges, rangeOutput{Start: rng.Start, End: rng.End})
			fragments = append(fragments, query.RangeFragment(rng))
		}
		out.Query = strings.Join(fragments, query.OrSeparator)
	}

	if c.JSON {
		return printJSON(out)
	}
	fmt.Printf("Resolved: %s\n", text)
	for _, rng := range out.Ranges {
		fmt.Printf("  Range: %s_%s\n", rng.Start, rng.End)
	}
	fmt.Printf("  Query: %s\n", out.Query)
	return nil
}

// CanonCmd resolves a canon law citation.
type CanonCmd struct {
	Text []string `arg:"" help:"Citation text, e.g. 'CIC/1983 can. 915'"`
	JSON bool     `help:"Output as JSON"`
}

type canonOutput struct {
	Input string      `json:"input"`
	Codex string      `json:"codex"`
	Range rangeOutput `json:"range"`
}

func (c *CanonCmd) Run() error {
	if _, err := loadConfig(); err != nil {
		return err
	}

	text := strings.Join(c.Text, " ")
	rng, codex, ok := canonlaw.ParseCitation(text)
	if !ok {
		return fmt.Errorf("no canon citation grammar matched %q", text)
	}

	out := canonOutput{
		Input: text,
		Codex: codex.String(),
		Range: rangeOutput{Start: rng.Start, End: rng.End},
	}
	if c.JSON {
		return printJSON(out)
	}
	fmt.Printf("Resolved: %s\n", text)
	fmt.Printf("  Codex: %s\n", out.Codex)
	fmt.Printf("  Range: %s_%s\n", rng.Start, rng.End)
	return nil
}

// TimeEncodeCmd encodes a written time reference.
type TimeEncodeCmd struct {
	Text      []string `arg:"" help:"Time reference, e.g. '1800-1914' or '19. Jahrhundert'"`
	NoCentury bool     `name:"no-century" help:"Read centuries literally instead of snapping to boundaries"`
	JSON      bool     `help:"Output as JSON"`
}

func (c *TimeEncodeCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	centuries := cfg.Batch.CenturyBoundaries
	if c.NoCentury {
		centuries = false
	}

	text := strings.Join(c.Text, " ")
	encoded, ok := timerange.ConvertTextToTimeRange(text, centuries)
	if !ok {
		return fmt.Errorf("no time grammar matched %q", text)
	}
	start, end, _ := strings.Cut(encoded, "_")

	if c.JSON {
		return printJSON(struct {
			Input string      `json:"input"`
			Range rangeOutput `json:"range"`
		}{text, rangeOutput{Start: start, End: end}})
	}
	fmt.Printf("Resolved: %s\n", text)
	fmt.Printf("  Range: %s\n", encoded)
	return nil
}

// TimeDecodeCmd decodes a range code back to text.
type TimeDecodeCmd struct {
	Code string `arg:"" help:"Encoded range, e.g. 100018000101_100019141231"`
	JSON bool   `help:"Output as JSON"`
}

func (c *TimeDecodeCmd) Run() error {
	if _, err := loadConfig(); err != nil {
		return err
	}

	text, ok := timerange.ConvertTimeRangeToText(c.Code)
	if !ok {
		return fmt.Errorf("not a decodable time range code: %q", c.Code)
	}

	if c.JSON {
		return printJSON(struct {
			Input string `json:"input"`
			Text  string `json:"text"`
		}{c.Code, text})
	}
	fmt.Printf("Decoded: %s\n", c.Code)
	fmt.Printf("  Text: %s\n", text)
	return nil
}

// QueryCmd converts numeric second ranges into a dates query.
type QueryCmd struct {
	Ranges []string `arg:"" help:"start:end Unix second pairs"`
}

func (c *QueryCmd) Run() error {
	if _, err := loadConfig(); err != nil {
		return err
	}

	datesQuery, err := query.ConvertToDatesQuery(strings.Join(c.Ranges, " "))
	if err != nil {
		return err
	}
	fmt.Println(datesQuery)
	return nil
}

// BatchCmd resolves references for a whole record dump.
type BatchCmd struct {
	Input      string   `arg:"" help:"Input records (TSV, TSV.xz or MARCXML), - for stdin"`
	Output     string   `short:"o" help:"Output destination, - for stdout" default:"-"`
	Mode       string   `help:"Reference grammar: bible, canonlaw or time"`
	Format     string   `help:"Sink format: tsv or sqlite"`
	Table      string   `help:"SQLite table name"`
	Workers    int      `help:"Worker goroutines"`
	Selector   []string `help:"MARCXML field selectors (tag$code)"`
	NoFallback bool     `name:"no-fallback" help:"Disable the whole-book fallback"`
	Progress   int      `help:"Emit a progress JSON line to stderr every N records"`
	Report     string   `help:"Write the run report JSON to this path" type:"path"`
}

func (c *BatchCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if c.Mode != "" {
		cfg.Batch.Mode = c.Mode
	}
	if c.Workers > 0 {
		cfg.Batch.Workers = c.Workers
	}
	if len(c.Selector) > 0 {
		cfg.Batch.Selectors = c.Selector
	}
	if c.NoFallback {
		cfg.Batch.WholeBookFallback = false
	}
	if c.Format != "" {
		cfg.Sink.Format = c.Format
	}
	if c.Table != "" {
		cfg.Sink.Table = c.Table
	}
	cfg.Sink.Path = c.Output
	if err := cfg.Validate(); err != nil {
		return err
	}

	mappers, err := loadMappers(cfg)
	if err != nil {
		return err
	}

	src, err := source.Open(c.Input, cfg.Batch.Selectors)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := sink.Open(cfg.Sink.Format, cfg.Sink.Path, cfg.Sink.Table)
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		Workers:   cfg.Batch.Workers,
		InputPath: c.Input,
	}
	if c.Progress > 0 {
		opts.ProgressEvery = c.Progress
		opts.OnProgress = func(ev pipeline.ProgressEvent) {
			data, _ := json.Marshal(ev)
			fmt.Fprintln(os.Stderr, string(data))
		}
	}

	resolver := pipeline.NewResolver(mappers, metrics.New(), cfg.Batch)
	report, err := pipeline.Run(context.Background(), src, out, resolver, opts)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Processed %d records: %d parsed, %d skipped, %d ranges in %d ms\n",
		report.Records, report.Parsed, report.Skipped, report.Ranges, report.DurationMS)

	if c.Report != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(c.Report, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	return nil
}

// MapsCheckCmd validates the configured map files.
type MapsCheckCmd struct{}

func (c *MapsCheckCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	defaults := books.DefaultMappers()
	tables := []struct {
		kind     string
		path     string
		embedded int
	}{
		{"canonical", cfg.Maps.Canonical, defaults.Canonical.Len()},
		{"codes", cfg.Maps.Codes, defaults.Codes.Len()},
		{"aliases", cfg.Maps.Aliases, defaults.Aliases.Len()},
	}

	failures := 0
	for _, table := range tables {
		if table.path == "" {
			fmt.Printf("[OK] %s: embedded (%d entries)\n", table.kind, table.embedded)
			continue
		}
		entries, err := mapfile.Load(table.path)
		if err != nil {
			fmt.Printf("[FAIL] %s: %v\n", table.kind, err)
			failures++
			continue
		}
		fmt.Printf("[OK] %s: %s (%d entries) blake3=%s\n",
			table.kind, table.path, len(entries), mapfile.Fingerprint(entries))
	}

	if failures > 0 {
		return fmt.Errorf("map check failed: %d broken table(s)", failures)
	}
	return nil
}

// MapsLookupCmd resolves a book name through the mappers.
type MapsLookupCmd struct {
	Name []string `arg:"" help:"Book name or alias to resolve"`
	JSON bool     `help:"Output as JSON"`
}

func (c *MapsLookupCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mappers, err := loadMappers(cfg)
	if err != nil {
		return err
	}

	name := strings.Join(c.Name, " ")
	expanded := mappers.Aliases.Map(name)
	cand := bibleref.SplitCandidate(expanded)
	canonical, code := mappers.Resolve(cand.Book)
	if code == "" && expanded == name {
		return fmt.Errorf("unknown book name %q", name)
	}

	out := struct {
		Input     string `json:"input"`
		Alias     string `json:"alias,omitempty"`
		Canonical string `json:"canonical,omitempty"`
		Code      string `json:"code,omitempty"`
	}{Input: name, Canonical: canonical, Code: code}
	if expanded != name {
		out.Alias = expanded
	}

	if c.JSON {
		return printJSON(out)
	}
	fmt.Printf("Input: %s\n", name)
	if out.Alias != "" {
		fmt.Printf("  Alias: %s\n", out.Alias)
	}
	if out.Code != "" {
		fmt.Printf("  Canonical: %s\n", out.Canonical)
		fmt.Printf("  Code: %s\n", out.Code)
	}
	return nil
}

// MapsFingerprintCmd prints BLAKE3 fingerprints of map files.
type MapsFingerprintCmd struct {
	Files []string `arg:"" help:"Map files to fingerprint" type:"existingfile"`
}

func (c *MapsFingerprintCmd) Run() error {
	for _, path := range c.Files {
		fp, err := mapfile.FingerprintFile(path)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s\n", fp, path)
	}
	return nil
}

// ConfigInitCmd writes a default configuration file.
type ConfigInitCmd struct {
	Out   string `help:"Output path" default:"bibrange.yaml" type:"path"`
	Force bool   `help:"Overwrite an existing file"`
}

func (c *ConfigInitCmd) Run() error {
	if !c.Force {
		if _, err := os.Stat(c.Out); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", c.Out)
		}
	}
	if err := config.DefaultConfig().SaveToFile(c.Out); err != nil {
		return err
	}
	fmt.Printf("Created: %s\n", c.Out)
	return nil
}

// ServeCmd starts the HTTP API server.
type ServeCmd struct {
	Host string `help:"Bind address"`
	Port int    `help:"HTTP server port"`
}

func (c *ServeCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if c.Host != "" {
		cfg.Server.Host = c.Host
	}
	if c.Port > 0 {
		cfg.Server.Port = c.Port
	}

	mappers, err := loadMappers(cfg)
	if err != nil {
		return err
	}

	return server.New(cfg, mappers, metrics.New()).Start()
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	info := sink.GetDriverInfo()
	fmt.Printf("bibrange version %s\n", version)
	fmt.Printf("  SQLite driver: %s (%s, %s)\n", info.DriverName, info.DriverType, info.Package)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("bibrange"),
		kong.Description("bibrange - reference range codes for library catalogs"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
