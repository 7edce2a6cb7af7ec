package mapfile

import (
	"strings"
	"testing"

	"github.com/scrinium/bibrange/core/errors"
)

func TestParse(t *testing.T) {
	input := strings.Join([]string{
		"# canonical names",
		"",
		"1. korinther=1kor",
		"johannes=john   # gospel",
		`gen\=esis=gen`,
		`back\\slash=bs`,
		`semi\;colon=sc`,
		"trailing=value; rest is ignored",
	}, "\n")

	m, err := Parse(strings.NewReader(input), "test.txt")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	tests := []struct {
		key  string
		want string
	}{
		{"1. korinther", "1kor"},
		{"johannes", "john"},
		{"gen=esis", "gen"},
		{`back\slash`, "bs"},
		{"semi;colon", "sc"},
		{"trailing", "value"},
	}
	for _, tt := range tests {
		if got := m[tt.key]; got != tt.want {
			t.Errorf("m[%q] = %q, want %q", tt.key, got, tt.want)
		}
	}
	if len(m) != len(tests) {
		t.Errorf("len(m) = %d, want %d", len(m), len(tests))
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing separator", "just a token"},
		{"missing key", "=value"},
		{"double separator", "a=b=c"},
		{"dangling escape", `key=value\`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input), "bad.txt")
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tt.input)
			}
			var cfgErr *errors.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Parse(%q) error = %T, want *ConfigError", tt.input, err)
			}
			if cfgErr.Line != 1 {
				t.Errorf("ConfigError.Line = %d, want 1", cfgErr.Line)
			}
		})
	}
}

func TestParseReportsLineNumber(t *testing.T) {
	input := "a=1\nb=2\nbroken line\n"
	_, err := Parse(strings.NewReader(input), "maps.txt")
	var cfgErr *errors.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Parse() error = %v, want *ConfigError", err)
	}
	if cfgErr.Line != 3 {
		t.Errorf("ConfigError.Line = %d, want 3", cfgErr.Line)
	}
	if cfgErr.Path != "maps.txt" {
		t.Errorf("ConfigError.Path = %q, want %q", cfgErr.Path, "maps.txt")
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	tests := []string{
		"plain",
		"with=equals",
		`with\backslash`,
		"with;semicolon",
		`all\=three\;at=once`,
	}
	for _, s := range tests {
		line := Escape(s) + "=v"
		key, value, ok, err := parseLine(line)
		if err != nil || !ok {
			t.Errorf("parseLine(Escape(%q)) failed: ok=%v err=%v", s, ok, err)
			continue
		}
		if key != s || value != "v" {
			t.Errorf("parseLine(Escape(%q)) = (%q, %q), want (%q, %q)", s, key, value, s, "v")
		}
	}
}

func TestWriteThenParse(t *testing.T) {
	m := map[string]string{
		"1. korinther": "1kor",
		"gen=esis":     "gen",
		"z;key":        `va\lue`,
	}
	var buf strings.Builder
	if err := Write(&buf, m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := Parse(strings.NewReader(buf.String()), "roundtrip")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(got) != len(m) {
		t.Fatalf("round trip lost entries: got %d, want %d", len(got), len(m))
	}
	for k, v := range m {
		if got[k] != v {
			t.Errorf("round trip m[%q] = %q, want %q", k, got[k], v)
		}
	}
}

func TestFingerprint(t *testing.T) {
	a := map[string]string{"x": "1", "y": "2"}
	b := map[string]string{"y": "2", "x": "1"}
	c := map[string]string{"x": "1", "y": "3"}

	if Fingerprint(a) != Fingerprint(b) {
		t.Error("Fingerprint() differs for identical maps")
	}
	if Fingerprint(a) == Fingerprint(c) {
		t.Error("Fingerprint() identical for different maps")
	}
	if len(Fingerprint(a)) != 64 {
		t.Errorf("Fingerprint() length = %d, want 64 hex chars", len(Fingerprint(a)))
	}
}
