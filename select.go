package placeresolver

import "sort"

// Rank scores every candidate and sorts them by score, highest first.
// The sort is stable: equal scores keep the lookup's own order.
func Rank(candidates []Candidate, primaryName string, tokens TokenSet) []ScoredCandidate {
	scored := make([]ScoredCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = ScoredCandidate{Candidate: c, Score: Score(c, primaryName, tokens)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// Select returns the best candidate as a ResolvedPlace. An empty candidate
// list returns ErrNoCandidates without scoring anything.
func Select(candidates []Candidate, primaryName string, tokens TokenSet) (ResolvedPlace, error) {
	if len(candidates) == 0 {
		return ResolvedPlace{}, ErrNoCandidates
	}
	return Rank(candidates, primaryName, tokens)[0].Candidate.Place(), nil
}
