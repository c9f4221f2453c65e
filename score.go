package placeresolver

import (
	"math"
	"strings"
)

// Scoring weights.
const (
	exactNameBonus = 10.0 // Candidate name equals the primary name
	tokenHitBonus  = 3.0  // Per token found in the candidate's fields
	maxPopBoost    = 5.0  // Cap on the population boost
	minTokenLen    = 2    // Shorter tokens are ignored
)

// Score rates how well a candidate matches a query. It adds an exact-name
// bonus, a bonus for every token (length >= 2) found anywhere in the
// candidate's name, admin areas, country and country code, and a
// log10 population boost capped at 5. The total is unbounded.
func Score(c Candidate, primaryName string, tokens TokenSet) float64 {
	haystack := c.haystack()

	var score float64
	if strings.ToLower(c.Name) == strings.ToLower(primaryName) {
		score += exactNameBonus
	}

	for _, tok := range tokens {
		if len(tok) < minTokenLen {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(tok)) {
			score += tokenHitBonus
		}
	}

	if c.Population != nil {
		score += populationBoost(*c.Population)
	}
	return score
}

// populationBoost returns min(5, log10(pop+1)). Negative populations count
// as zero.
func populationBoost(pop int64) float64 {
	if pop < 0 {
		pop = 0
	}
	return math.Min(maxPopBoost, math.Log10(float64(pop)+1))
}
