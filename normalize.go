package placeresolver

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// maxQueryLen limits query length in runes. 256 runes fits the longest real
// place name plus qualifiers.
const maxQueryLen = 256

// quoteCutset is trimmed from both ends of a query together with spaces, so
// `" 'Paris' "` and `Paris` normalize the same way.
const quoteCutset = ` "'`

// ParsedQuery is a query split into the place being searched for and the
// qualifiers (state, country) that disambiguate it.
type ParsedQuery struct {
	PrimaryName string   `json:"primary_name"`
	Qualifiers  []string `json:"qualifiers,omitempty"`
}

// String returns the cleaned query with segments joined by ", ".
func (q ParsedQuery) String() string {
	if len(q.Qualifiers) == 0 {
		return q.PrimaryName
	}
	return q.PrimaryName + ", " + strings.Join(q.Qualifiers, ", ")
}

// Normalize cleans a raw query and splits it on commas. The first non-empty
// segment becomes the primary name; the rest are qualifiers in input order.
// A query that is blank once cleaned returns ErrEmptyQuery.
func Normalize(raw string) (ParsedQuery, error) {
	// Cut after NFKC; folding can lengthen the string.
	s := norm.NFKC.String(raw)
	s = strings.Join(strings.Fields(s), " ")
	if runes := []rune(s); len(runes) > maxQueryLen {
		s = string(runes[:maxQueryLen])
	}
	s = strings.Trim(s, quoteCutset)

	var segments []string
	for _, seg := range strings.Split(s, ",") {
		seg = strings.TrimSpace(seg)
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) == 0 {
		return ParsedQuery{}, ErrEmptyQuery
	}

	pq := ParsedQuery{PrimaryName: segments[0]}
	if len(segments) > 1 {
		pq.Qualifiers = segments[1:]
	}
	return pq, nil
}
