package pipeline

import (
	"strings"

	"github.com/scrinium/bibrange/core/bibleref"
	"github.com/scrinium/bibrange/core/books"
	"github.com/scrinium/bibrange/core/canonlaw"
	"github.com/scrinium/bibrange/core/rangecode"
	"github.com/scrinium/bibrange/core/timerange"
	"github.com/scrinium/bibrange/internal/cache"
	"github.com/scrinium/bibrange/internal/config"
	"github.com/scrinium/bibrange/internal/logging"
	"github.com/scrinium/bibrange/internal/metrics"
)

// resolution is a memoized Resolve outcome. Failed parses are cached too,
// since unresolvable field texts repeat just as often as resolvable ones.
type resolution struct {
	ranges []rangecode.Range
	ok     bool
}

// Resolver turns one candidate field text into encoded ranges. It holds the
// loaded lookup tables and the shared counters; the parsing itself is
// stateless, so one Resolver serves all workers of a run.
type Resolver struct {
	mappers *books.Mappers
	metrics *metrics.Metrics
	parser  bibleref.Parser
	cache   *cache.LRU[string, resolution]

	mode              string
	centuryBoundaries bool
	wholeBookFallback bool
}

// NewResolver builds a Resolver for the given batch settings. A nil Metrics
// gets a private instance.
func NewResolver(m *books.Mappers, met *metrics.Metrics, cfg config.BatchConfig) *Resolver {
	if met == nil {
		met = metrics.New()
	}
	r := &Resolver{
		mappers:           m,
		metrics:           met,
		mode:              cfg.Mode,
		centuryBoundaries: cfg.CenturyBoundaries,
		wholeBookFallback: cfg.WholeBookFallback,
	}
	if cfg.CacheSize > 0 {
		r.cache = cache.NewLRU[string, resolution](cache.Config{MaxSize: cfg.CacheSize})
	}
	return r
}

// Metrics returns the counters this resolver reports into.
func (r *Resolver) Metrics() *metrics.Metrics {
	return r.metrics
}

// Resolve parses text according to the configured mode. ok is false when no
// grammar accepted any part of the text; the caller logs and skips. Repeated
// texts are answered from the cache without touching the grammar counters.
func (r *Resolver) Resolve(text string) ([]rangecode.Range, bool) {
	if r.cache != nil {
		if res, found := r.cache.Get(text); found {
			r.metrics.CacheHit()
			return res.ranges, res.ok
		}
		r.metrics.CacheMiss()
	}

	ranges, ok := r.resolve(text)
	if r.cache != nil {
		r.cache.Put(text, resolution{ranges: ranges, ok: ok})
	}
	return ranges, ok
}

func (r *Resolver) resolve(text string) ([]rangecode.Range, bool) {
	switch r.mode {
	case config.ModeCanonLaw:
		return r.resolveCanonLaw(text)
	case config.ModeTime:
		return r.resolveTime(text)
	default:
		return r.ResolveBible(text)
	}
}

// ResolveBible splits text on " OR ", maps aliases, resolves the book of
// each candidate and parses its chapter/verse part. Candidates resolve
// independently; the result is the union of all ranges that parsed.
func (r *Resolver) ResolveBible(text string) ([]rangecode.Range, bool) {
	var merged rangecode.Set
	any := false
	for _, candidate := range bibleref.SplitQuery(text) {
		for _, rng := range r.resolveCandidate(candidate) {
			merged.Add(rng)
			any = true
		}
	}
	if !any {
		return nil, false
	}
	return merged.Ranges(), true
}

// resolveCandidate handles one OR-branch of a bible citation.
func (r *Resolver) resolveCandidate(candidate string) []rangecode.Range {
	mapped := r.mappers.Aliases.Map(candidate)
	cand := bibleref.SplitCandidate(mapped)

	_, code := r.mappers.Resolve(cand.Book)
	if code == "" {
		r.metrics.UnknownBook()
		r.metrics.Candidate(metrics.GrammarBible, false)
		return nil
	}

	var set rangecode.Set
	ok := r.parser.ParseReference(cand.ChaptersVerses, code, &set)
	r.metrics.Candidate(metrics.GrammarBible, ok)
	if ok {
		return set.Ranges()
	}

	if r.wholeBookFallback && cand.ChaptersVerses != "" {
		set.Clear()
		if r.parser.ParseReference("", code, &set) {
			r.metrics.WholeBookFallback()
			logging.Warn("whole_book_fallback",
				"candidate", candidate,
				"book", cand.Book,
				"unparsed", cand.ChaptersVerses)
			return set.Ranges()
		}
	}
	return nil
}

func (r *Resolver) resolveCanonLaw(text string) ([]rangecode.Range, bool) {
	rng, _, ok := canonlaw.ParseCitation(text)
	r.metrics.Candidate(metrics.GrammarCanonLaw, ok)
	if !ok {
		return nil, false
	}
	return []rangecode.Range{rng}, true
}

func (r *Resolver) resolveTime(text string) ([]rangecode.Range, bool) {
	encoded, ok := timerange.ConvertTextToTimeRange(text, r.centuryBoundaries)
	r.metrics.Candidate(metrics.GrammarTime, ok)
	if !ok {
		return nil, false
	}
	start, end, found := strings.Cut(encoded, "_")
	if !found {
		return nil, false
	}
	return []rangecode.Range{rangecode.NewRange(start, end)}, true
}
