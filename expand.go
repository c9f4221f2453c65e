package placeresolver

import "strings"

// TokenSet is the lowercase token list a candidate is scored against.
// Order is insertion order and duplicates are kept: a repeated token scores
// every time it appears.
type TokenSet []string

// usSynonyms are the tokens that mark a query as being about the US.
var usSynonyms = map[string]bool{"usa": true, "us": true, "united": true, "states": true}

// usExpansion is added once for every base token found in usSynonyms.
var usExpansion = []string{"united", "states", "united states", "usa", "us"}

// Expand builds the token set for a parsed query: the lowercase words of the
// primary name and every qualifier, followed by state names for US state
// codes and the US synonym cluster for any US synonym.
func Expand(parsed ParsedQuery) TokenSet {
	var base []string
	for _, seg := range append([]string{parsed.PrimaryName}, parsed.Qualifiers...) {
		base = append(base, strings.Fields(strings.ToLower(seg))...)
	}

	tokens := make(TokenSet, 0, len(base)*2)
	tokens = append(tokens, base...)

	states := lowerStateNames()
	for _, tok := range base {
		if name, ok := states[strings.ToUpper(tok)]; ok && len(tok) == 2 {
			tokens = append(tokens, name)
		}
		if usSynonyms[tok] {
			tokens = append(tokens, usExpansion...)
		}
	}
	return tokens
}
