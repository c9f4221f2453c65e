package placeresolver

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Lookup is a geocoding source. Results are ordered by the source's own
// relevance ranking and may be empty.
type Lookup interface {
	Lookup(ctx context.Context, name string) ([]Candidate, error)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(ctx context.Context, name string) ([]Candidate, error)

// Lookup calls f(ctx, name).
func (f LookupFunc) Lookup(ctx context.Context, name string) ([]Candidate, error) {
	return f(ctx, name)
}

// Option is a functional option for configuring a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for lookup decisions.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// Resolver runs the full search: normalize, look up the full query, fall
// back to the primary name, then select the best candidate.
// Safe for concurrent use.
type Resolver struct {
	lookup Lookup
	logger *zap.Logger
}

// NewResolver creates a Resolver backed by the given lookup.
func NewResolver(lookup Lookup, opts ...Option) *Resolver {
	r := &Resolver{lookup: lookup, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolution is the full trace of one resolved query.
type Resolution struct {
	Query        ParsedQuery       `json:"query"`
	Tokens       TokenSet          `json:"tokens"`
	LookupName   string            `json:"lookup_name"` // Name that returned the candidates
	UsedFallback bool              `json:"used_fallback"`
	Ranked       []ScoredCandidate `json:"ranked"`
	Place        ResolvedPlace     `json:"place"`
}

// Resolve returns the best place for a raw query.
func (r *Resolver) Resolve(ctx context.Context, raw string) (ResolvedPlace, error) {
	res, err := r.Explain(ctx, raw)
	if err != nil {
		return ResolvedPlace{}, err
	}
	return res.Place, nil
}

// Explain resolves a raw query and returns every intermediate step.
//
// The full cleaned query is looked up first. If it returns nothing, the
// primary name alone is looked up. If that is empty too, a *NotFoundError is
// returned and no selection happens. Lookup errors are returned as-is,
// wrapped with the name that failed.
func (r *Resolver) Explain(ctx context.Context, raw string) (Resolution, error) {
	parsed, err := Normalize(raw)
	if err != nil {
		return Resolution{}, err
	}
	res := Resolution{Query: parsed, Tokens: Expand(parsed)}

	full := parsed.String()
	candidates, err := r.lookup.Lookup(ctx, full)
	if err != nil {
		return Resolution{}, fmt.Errorf("looking up %q: %w", full, err)
	}
	res.LookupName = full

	if len(candidates) == 0 && parsed.PrimaryName != full {
		r.logger.Debug("full query returned nothing, falling back to primary name",
			zap.String("query", full),
			zap.String("primary", parsed.PrimaryName))
		candidates, err = r.lookup.Lookup(ctx, parsed.PrimaryName)
		if err != nil {
			return Resolution{}, fmt.Errorf("looking up %q: %w", parsed.PrimaryName, err)
		}
		res.LookupName = parsed.PrimaryName
		res.UsedFallback = true
	}

	if len(candidates) == 0 {
		return Resolution{}, &NotFoundError{Query: full}
	}

	res.Ranked = Rank(candidates, parsed.PrimaryName, res.Tokens)
	res.Place = res.Ranked[0].Candidate.Place()

	r.logger.Debug("resolved place",
		zap.String("query", full),
		zap.String("place", res.Place.Label()),
		zap.Float64("score", res.Ranked[0].Score),
		zap.Int("candidates", len(candidates)),
		zap.Bool("fallback", res.UsedFallback))
	return res, nil
}

// Search resolves raw and returns the session updated the way a search box
// would: LastQuery is always set to the trimmed input, LastPlace only on
// success. A blank query leaves the session untouched.
func (r *Resolver) Search(ctx context.Context, s Session, raw string) (Session, ResolvedPlace, error) {
	if _, err := Normalize(raw); err != nil {
		return s, ResolvedPlace{}, err
	}
	s.LastQuery = strings.TrimSpace(raw)
	place, err := r.Resolve(ctx, raw)
	if err != nil {
		return s, ResolvedPlace{}, err
	}
	s.LastPlace = &place
	return s, place, nil
}

// Retry runs the session's last query again.
func (r *Resolver) Retry(ctx context.Context, s Session) (Session, ResolvedPlace, error) {
	if s.LastQuery == "" {
		return s, ResolvedPlace{}, ErrNothingToRetry
	}
	return r.Search(ctx, s, s.LastQuery)
}
