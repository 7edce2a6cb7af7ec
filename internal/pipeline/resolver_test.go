package pipeline

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/scrinium/bibrange/core/books"
	"github.com/scrinium/bibrange/internal/config"
	"github.com/scrinium/bibrange/internal/metrics"
)

func bibleResolver(t *testing.T, fallback bool) *Resolver {
	t.Helper()
	cfg := config.DefaultConfig().Batch
	cfg.WholeBookFallback = fallback
	return NewResolver(books.DefaultMappers(), nil, cfg)
}

func TestResolveBible(t *testing.T) {
	r := bibleResolver(t, false)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "verse citation",
			text: "Johannes 3,16",
			want: []string{"43003016_43003016"},
		},
		{
			name: "pericope alias",
			text: "Bergpredigt",
			want: []string{"40005000_40007999"},
		},
		{
			name: "or query merges branches",
			text: "Johannes 3,16 OR Psalm 23",
			want: []string{"19023000_19023999", "43003016_43003016"},
		},
		{
			name: "one failing branch does not sink the other",
			text: "Kein Buch 1,1 OR Johannes 1,1",
			want: []string{"43001001_43001001"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranges, ok := r.Resolve(tt.text)
			if !ok {
				t.Fatalf("Resolve(%q) = not ok", tt.text)
			}
			if len(ranges) != len(tt.want) {
				t.Fatalf("Resolve(%q) = %v, want %d ranges", tt.text, ranges, len(tt.want))
			}
			for i, rng := range ranges {
				if rng.String() != tt.want[i] {
					t.Errorf("range %d = %s, want %s", i, rng, tt.want[i])
				}
			}
		})
	}
}

func TestResolveBibleFailures(t *testing.T) {
	r := bibleResolver(t, false)

	for _, text := range []string{
		"Atlantisbuch 7,3",
		"Johannes 99$",
		"",
	} {
		if ranges, ok := r.Resolve(text); ok {
			t.Errorf("Resolve(%q) = %v, want not ok", text, ranges)
		}
	}
}

func TestWholeBookFallback(t *testing.T) {
	withFallback := bibleResolver(t, true)
	withoutFallback := bibleResolver(t, false)

	// The book resolves but the chapter/verse part is garbage.
	text := "Johannes 3,16-12"

	if ranges, ok := withoutFallback.Resolve(text); ok {
		t.Errorf("without fallback: Resolve(%q) = %v, want not ok", text, ranges)
	}

	ranges, ok := withFallback.Resolve(text)
	if !ok {
		t.Fatalf("with fallback: Resolve(%q) = not ok", text)
	}
	if len(ranges) != 1 || ranges[0].String() != "43000000_43999999" {
		t.Errorf("fallback ranges = %v, want whole book 43", ranges)
	}
}

func TestResolveCanonLawMode(t *testing.T) {
	cfg := config.DefaultConfig().Batch
	cfg.Mode = config.ModeCanonLaw
	r := NewResolver(books.DefaultMappers(), nil, cfg)

	ranges, ok := r.Resolve("CIC/1983 can. 915")
	if !ok {
		t.Fatal("Resolve(canon citation) = not ok")
	}
	if len(ranges) != 1 || ranges[0].String() != "209150000_209159999" {
		t.Errorf("ranges = %v", ranges)
	}

	if _, ok := r.Resolve("keine Norm"); ok {
		t.Error("Resolve(garbage) = ok, want not ok")
	}
}

func scrapeMetrics(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	return rec.Body.String()
}

func TestResolveCachesRepeatedTexts(t *testing.T) {
	met := metrics.New()
	r := NewResolver(books.DefaultMappers(), met, config.DefaultConfig().Batch)

	first, ok := r.Resolve("Johannes 3,16")
	if !ok {
		t.Fatal("Resolve(Johannes 3,16) = not ok")
	}
	second, ok := r.Resolve("Johannes 3,16")
	if !ok {
		t.Fatal("cached Resolve(Johannes 3,16) = not ok")
	}
	if len(second) != 1 || second[0].String() != first[0].String() {
		t.Errorf("cached result = %v, want %v", second, first)
	}

	// Failures are memoized too.
	if _, ok := r.Resolve("Atlantisbuch 7,3"); ok {
		t.Error("Resolve(unknown book) = ok")
	}
	if _, ok := r.Resolve("Atlantisbuch 7,3"); ok {
		t.Error("cached Resolve(unknown book) = ok")
	}

	body := scrapeMetrics(t, met)
	if !strings.Contains(body, "bibrange_resolve_cache_hits_total 2") {
		t.Errorf("want 2 cache hits, exposition:\n%s", body)
	}
	if !strings.Contains(body, "bibrange_resolve_cache_misses_total 2") {
		t.Errorf("want 2 cache misses, exposition:\n%s", body)
	}
	// Hits never reach the grammar, so only the two misses count as candidates.
	if !strings.Contains(body, `bibrange_candidates_total{grammar="bible"} 2`) {
		t.Errorf("want 2 bible candidates, exposition:\n%s", body)
	}
}

func TestResolveCacheDisabled(t *testing.T) {
	met := metrics.New()
	cfg := config.DefaultConfig().Batch
	cfg.CacheSize = 0
	r := NewResolver(books.DefaultMappers(), met, cfg)

	r.Resolve("Johannes 3,16")
	r.Resolve("Johannes 3,16")

	body := scrapeMetrics(t, met)
	if !strings.Contains(body, "bibrange_resolve_cache_hits_total 0") {
		t.Errorf("disabled cache should record no hits, exposition:\n%s", body)
	}
	if !strings.Contains(body, `bibrange_candidates_total{grammar="bible"} 2`) {
		t.Errorf("both calls should hit the grammar, exposition:\n%s", body)
	}
}

func TestResolveTimeMode(t *testing.T) {
	cfg := config.DefaultConfig().Batch
	cfg.Mode = config.ModeTime
	r := NewResolver(books.DefaultMappers(), nil, cfg)

	ranges, ok := r.Resolve("1800-1914")
	if !ok {
		t.Fatal("Resolve(year range) = not ok")
	}
	if len(ranges) != 1 || ranges[0].String() != "100018000101_100019141231" {
		t.Errorf("ranges = %v", ranges)
	}

	// Century boundaries come from the batch config.
	ranges, ok = r.Resolve("1800-1900")
	if !ok {
		t.Fatal("Resolve(century range) = not ok")
	}
	if ranges[0].End != "100018991231" {
		t.Errorf("century end = %s, want 100018991231", ranges[0].End)
	}
}
