// Package metrics collects counters for the parsing pipeline. Each Metrics
// value owns its own registry, so concurrent batch runs and tests observe
// independent counts instead of sharing process-wide state.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Grammar label values.
const (
	GrammarBible    = "bible"
	GrammarCanonLaw = "canonlaw"
	GrammarTime     = "time"
	GrammarOSIS     = "osis"
)

// Metrics bundles the pipeline counters around a private registry.
type Metrics struct {
	registry *prometheus.Registry

	recordsProcessed   prometheus.Counter
	candidates         *prometheus.CounterVec
	parseFailures      *prometheus.CounterVec
	unknownBooks       prometheus.Counter
	rangesEmitted      prometheus.Counter
	wholeBookFallbacks prometheus.Counter
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
}

// New returns a Metrics with all collectors registered on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		recordsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "bibrange_records_total",
			Help: "Records read from the batch source.",
		}),
		candidates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bibrange_candidates_total",
			Help: "Citation candidates fed into a grammar.",
		}, []string{"grammar"}),
		parseFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bibrange_parse_failures_total",
			Help: "Candidates rejected by their grammar.",
		}, []string{"grammar"}),
		unknownBooks: factory.NewCounter(prometheus.CounterOpts{
			Name: "bibrange_unknown_books_total",
			Help: "Candidates whose book name resolved to no code.",
		}),
		rangesEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "bibrange_ranges_total",
			Help: "Encoded ranges written to the sink.",
		}),
		wholeBookFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "bibrange_whole_book_fallbacks_total",
			Help: "Candidates downgraded to the whole-book range.",
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "bibrange_resolve_cache_hits_total",
			Help: "Field texts answered from the resolution cache.",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "bibrange_resolve_cache_misses_total",
			Help: "Field texts that missed the resolution cache.",
		}),
	}
}

// RecordProcessed counts one record read from the source.
func (m *Metrics) RecordProcessed() {
	m.recordsProcessed.Inc()
}

// Candidate counts one parse attempt and its outcome for the given grammar.
func (m *Metrics) Candidate(grammar string, ok bool) {
	m.candidates.WithLabelValues(grammar).Inc()
	if !ok {
		m.parseFailures.WithLabelValues(grammar).Inc()
	}
}

// UnknownBook counts a candidate whose book name had no code mapping.
func (m *Metrics) UnknownBook() {
	m.unknownBooks.Inc()
}

// RangesEmitted counts n ranges written to the sink.
func (m *Metrics) RangesEmitted(n int) {
	m.rangesEmitted.Add(float64(n))
}

// WholeBookFallback counts a candidate downgraded to its whole-book range.
func (m *Metrics) WholeBookFallback() {
	m.wholeBookFallbacks.Inc()
}

// CacheHit counts a field text answered from the resolution cache.
func (m *Metrics) CacheHit() {
	m.cacheHits.Inc()
}

// CacheMiss counts a field text that had to be parsed afresh.
func (m *Metrics) CacheMiss() {
	m.cacheMisses.Inc()
}

// Registry exposes the underlying registry for testing and custom gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
