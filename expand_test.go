package placeresolver

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExpand(t *testing.T) {
	tests := []struct {
		name   string
		parsed ParsedQuery
		want   TokenSet
	}{
		{
			name:   "no qualifiers",
			parsed: ParsedQuery{PrimaryName: "New York"},
			want:   TokenSet{"new", "york"},
		},
		{
			name:   "state code expands",
			parsed: ParsedQuery{PrimaryName: "Miami", Qualifiers: []string{"FL"}},
			want:   TokenSet{"miami", "fl", "florida"},
		},
		{
			name:   "multi-word state name",
			parsed: ParsedQuery{PrimaryName: "Charlotte", Qualifiers: []string{"nc"}},
			want:   TokenSet{"charlotte", "nc", "north carolina"},
		},
		{
			name:   "usa expands to cluster",
			parsed: ParsedQuery{PrimaryName: "Paris", Qualifiers: []string{"USA"}},
			want:   TokenSet{"paris", "usa", "united", "states", "united states", "usa", "us"},
		},
		{
			name:   "united states expands once per word",
			parsed: ParsedQuery{PrimaryName: "Paris", Qualifiers: []string{"United States"}},
			want: TokenSet{
				"paris", "united", "states",
				"united", "states", "united states", "usa", "us",
				"united", "states", "united states", "usa", "us",
			},
		},
		{
			name:   "state code and country",
			parsed: ParsedQuery{PrimaryName: "Paris", Qualifiers: []string{"TX", "US"}},
			want:   TokenSet{"paris", "tx", "us", "texas", "united", "states", "united states", "usa", "us"},
		},
		{
			name:   "non-state two letter code",
			parsed: ParsedQuery{PrimaryName: "Toronto", Qualifiers: []string{"ON"}},
			want:   TokenSet{"toronto", "on"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Expand(tt.parsed)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Expand(%+v) mismatch (-want +got):\n%s", tt.parsed, diff)
			}
		})
	}
}

func TestExpandStateAbbreviation(t *testing.T) {
	tokens := Expand(ParsedQuery{PrimaryName: "Miami", Qualifiers: []string{"FL"}})
	for _, want := range []string{"fl", "florida"} {
		if !slices.Contains(tokens, want) {
			t.Errorf("tokens %v missing %q", tokens, want)
		}
	}
}

func TestExpandDeterministic(t *testing.T) {
	parsed := ParsedQuery{PrimaryName: "Kansas City", Qualifiers: []string{"MO", "KS", "USA"}}
	first := Expand(parsed)
	for i := 0; i < 20; i++ {
		if diff := cmp.Diff(first, Expand(parsed)); diff != "" {
			t.Fatalf("Expand is not deterministic (-first +got):\n%s", diff)
		}
	}
}

func TestStateName(t *testing.T) {
	if name, ok := StateName("tx"); !ok || name != "Texas" {
		t.Errorf("StateName(tx) = %q, %v, want Texas, true", name, ok)
	}
	if _, ok := StateName("PR"); ok {
		t.Errorf("StateName(PR) found, territories are not states")
	}
	if n := len(StateCodes()); n != 50 {
		t.Errorf("len(StateCodes()) = %d, want 50", n)
	}
	codes := StateCodes()
	if !slices.IsSorted(codes) {
		t.Errorf("StateCodes() not sorted: %v", codes)
	}
}
