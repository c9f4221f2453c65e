package placeresolver

import (
	"sort"
	"strings"
	"sync"
)

// usStateNames maps the 50 US state codes to their names. Read only.
var usStateNames = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
	"FL": "Florida", "GA": "Georgia", "HI": "Hawaii", "ID": "Idaho",
	"IL": "Illinois", "IN": "Indiana", "IA": "Iowa", "KS": "Kansas",
	"KY": "Kentucky", "LA": "Louisiana", "ME": "Maine", "MD": "Maryland",
	"MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota", "MS": "Mississippi",
	"MO": "Missouri", "MT": "Montana", "NE": "Nebraska", "NV": "Nevada",
	"NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico", "NY": "New York",
	"NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio", "OK": "Oklahoma",
	"OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island", "SC": "South Carolina",
	"SD": "South Dakota", "TN": "Tennessee", "TX": "Texas", "UT": "Utah",
	"VT": "Vermont", "VA": "Virginia", "WA": "Washington", "WV": "West Virginia",
	"WI": "Wisconsin", "WY": "Wyoming",
}

// lowerStateNames is usStateNames with lowercase values, built once.
var lowerStateNames = sync.OnceValue(func() map[string]string {
	m := make(map[string]string, len(usStateNames))
	for code, name := range usStateNames {
		m[code] = strings.ToLower(name)
	}
	return m
})

// StateName returns the full name for a two-letter US state code.
// The code is matched case-insensitively.
func StateName(code string) (string, bool) {
	name, ok := usStateNames[strings.ToUpper(code)]
	return name, ok
}

// StateCodes returns the US state codes sorted alphabetically.
func StateCodes() []string {
	codes := make([]string, 0, len(usStateNames))
	for sc := range usStateNames {
		codes = append(codes, sc)
	}
	sort.Strings(codes)
	return codes
}
