package bibleref

import (
	"reflect"
	"testing"

	"github.com/scrinium/bibrange/core/rangecode"
)

func TestParseReference(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		bookCode  string
		want      []rangecode.Range
	}{
		{
			name:      "whole book",
			candidate: "",
			bookCode:  "42",
			want:      []rangecode.Range{{Start: "42000000", End: "42999999"}},
		},
		{
			name:      "whole book after space stripping",
			candidate: "  \t ",
			bookCode:  "42",
			want:      []rangecode.Range{{Start: "42000000", End: "42999999"}},
		},
		{
			name:      "single verse",
			candidate: "3,16",
			bookCode:  "43",
			want:      []rangecode.Range{{Start: "43003016", End: "43003016"}},
		},
		{
			name:      "single verse with colon",
			candidate: "3:16",
			bookCode:  "43",
			want:      []rangecode.Range{{Start: "43003016", End: "43003016"}},
		},
		{
			name:      "single verse with embedded spaces",
			candidate: " 3 , 16 ",
			bookCode:  "43",
			want:      []rangecode.Range{{Start: "43003016", End: "43003016"}},
		},
		{
			name:      "annotation letter ignored",
			candidate: "3,16a",
			bookCode:  "43",
			want:      []rangecode.Range{{Start: "43003016", End: "43003016"}},
		},
		{
			name:      "whole chapter",
			candidate: "12",
			bookCode:  "02",
			want:      []rangecode.Range{{Start: "02012000", End: "02012999"}},
		},
		{
			name:      "three digit chapter",
			candidate: "117",
			bookCode:  "19",
			want:      []rangecode.Range{{Start: "19117000", End: "19117999"}},
		},
		{
			name:      "verse range within chapter",
			candidate: "1,1-5",
			bookCode:  "01",
			want:      []rangecode.Range{{Start: "01001001", End: "01001005"}},
		},
		{
			name:      "verse range with annotation letters",
			candidate: "1,5a-9b",
			bookCode:  "01",
			want:      []rangecode.Range{{Start: "01001005", End: "01001009"}},
		},
		{
			name:      "chapter range",
			candidate: "1-3",
			bookCode:  "01",
			want:      []rangecode.Range{{Start: "01001000", End: "01003999"}},
		},
		{
			name:      "chapter range with verse on end chapter",
			candidate: "1-3,16",
			bookCode:  "01",
			want:      []rangecode.Range{{Start: "01001000", End: "01003016"}},
		},
		{
			name:      "cross chapter verse range",
			candidate: "1,5-2,10",
			bookCode:  "01",
			want:      []rangecode.Range{{Start: "01001005", End: "01002010"}},
		},
		{
			name:      "cross chapter range with colon",
			candidate: "2-4:11",
			bookCode:  "44",
			want:      []rangecode.Range{{Start: "44002000", End: "44004011"}},
		},
		{
			name:      "verse list",
			candidate: "3,16.18",
			bookCode:  "43",
			want: []rangecode.Range{
				{Start: "43003016", End: "43003016"},
				{Start: "43003018", End: "43003018"},
			},
		},
		{
			name:      "verse list with range",
			candidate: "3,16.18.21-24",
			bookCode:  "43",
			want: []rangecode.Range{
				{Start: "43003016", End: "43003016"},
				{Start: "43003018", End: "43003018"},
				{Start: "43003021", End: "43003024"},
			},
		},
		{
			name:      "verse list with annotation letters",
			candidate: "5,3a.7-9c",
			bookCode:  "40",
			want: []rangecode.Range{
				{Start: "40005003", End: "40005003"},
				{Start: "40005007", End: "40005009"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var set rangecode.Set
			if !ParseReference(tt.candidate, tt.bookCode, &set) {
				t.Fatalf("ParseReference(%q, %q) = false, want true", tt.candidate, tt.bookCode)
			}
			if got := set.Ranges(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseReference(%q, %q) ranges = %v, want %v", tt.candidate, tt.bookCode, got, tt.want)
			}
		})
	}
}

func TestParseReferenceFailures(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
	}{
		{"letters only", "abc"},
		{"leading hyphen", "-3"},
		{"chapter range backwards", "5-3"},
		{"chapter overflow", "1234"},
		{"verse overflow", "1,1234"},
		{"dangling chapter range", "1-"},
		{"dangling verse range", "1,1-"},
		{"verse range to itself", "1,1-1"},
		{"verse range backwards", "3,16-12"},
		{"second comma", "1,2,3"},
		{"semicolon", "3;16"},
		{"double hyphen", "1,5--9"},
		{"annotation before digits", "3,a16"},
		{"verse list out of order", "3,16.12"},
		{"verse list duplicate", "3,16.16"},
		{"verse list range backwards", "3,16.21-18"},
		{"period without chapter separator", "12.14"},
		{"verse list trailing period", "3,16."},
		{"verse list bad chapter", "3a,16.18"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var set rangecode.Set
			if ParseReference(tt.candidate, "01", &set) {
				t.Errorf("ParseReference(%q, %q) = true, want false (got %v)", tt.candidate, "01", set.Ranges())
			}
		})
	}
}

func TestParseReferenceOrderingAcrossCalls(t *testing.T) {
	var set rangecode.Set
	if !ParseReference("1,2", "01", &set) {
		t.Fatal("first parse failed")
	}
	if !ParseReference("3,1", "01", &set) {
		t.Fatal("increasing second parse failed")
	}
	// A range at or before the collected end must be rejected.
	if ParseReference("1,1", "01", &set) {
		t.Error("out-of-order parse into shared set succeeded")
	}
	if set.Len() != 2 {
		t.Errorf("set.Len() = %d, want 2", set.Len())
	}
}

func TestParseReferenceNoOverlap(t *testing.T) {
	var set rangecode.Set
	if !ParseReference("3,1-4.7.9-12.16", "43", &set) {
		t.Fatal("parse failed")
	}
	ranges := set.Ranges()
	for i := range ranges {
		for j := i + 1; j < len(ranges); j++ {
			if ranges[i].Overlaps(ranges[j]) {
				t.Errorf("ranges %v and %v overlap", ranges[i], ranges[j])
			}
		}
	}
}

func TestParseReferenceWidth(t *testing.T) {
	candidates := []string{"", "3,16", "1-3", "1,5-2,10", "3,16.18.21-24", "117"}
	for _, candidate := range candidates {
		var set rangecode.Set
		if !ParseReference(candidate, "43", &set) {
			t.Fatalf("ParseReference(%q) failed", candidate)
		}
		for _, r := range set.Ranges() {
			if len(r.Start) != 8 || len(r.End) != 8 {
				t.Errorf("ParseReference(%q) emitted %v, want 8-digit endpoints", candidate, r)
			}
			if !rangecode.AllDigits(r.Start) || !rangecode.AllDigits(r.End) {
				t.Errorf("ParseReference(%q) emitted non-digit endpoints %v", candidate, r)
			}
		}
	}
}

func TestParseReferenceBadBookCodePanics(t *testing.T) {
	tests := []string{"", "4", "4x", "12345"}
	for _, code := range tests {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("ParseReference with book code %q did not panic", code)
				}
			}()
			var set rangecode.Set
			ParseReference("1,1", code, &set)
		}()
	}
}

func TestParseReferenceLongerBookCode(t *testing.T) {
	// Codex codes are up to four digits; the emitted width follows the code.
	var set rangecode.Set
	if !ParseReference("3,16", "1043", &set) {
		t.Fatal("parse with four-digit code failed")
	}
	want := []rangecode.Range{{Start: "1043003016", End: "1043003016"}}
	if got := set.Ranges(); !reflect.DeepEqual(got, want) {
		t.Errorf("ranges = %v, want %v", got, want)
	}
}

func TestCanParseReference(t *testing.T) {
	tests := []struct {
		candidate string
		want      bool
	}{
		{"3,16", true},
		{"1-3", true},
		{"3,16.18.21-24", true},
		{"", true},
		{"5-3", false},
		{"abc", false},
		{"3,16.12", false},
	}
	for _, tt := range tests {
		if got := CanParseReference(tt.candidate); got != tt.want {
			t.Errorf("CanParseReference(%q) = %v, want %v", tt.candidate, got, tt.want)
		}
	}
}
