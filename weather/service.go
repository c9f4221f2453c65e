package weather

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/andreiashu/placeresolver"
	"github.com/andreiashu/placeresolver/history"
)

// Recorder stores searches. *history.Store satisfies it.
type Recorder interface {
	Add(ctx context.Context, e history.Entry) (history.Entry, error)
}

// ServiceOption is a functional option for configuring a Service.
type ServiceOption func(*Service)

// WithRecorder records every search that got past query validation,
// including ones that failed to resolve or fetch.
func WithRecorder(rec Recorder) ServiceOption {
	return func(s *Service) { s.recorder = rec }
}

// WithServiceLogger sets the service logger.
func WithServiceLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// Service resolves a query, fetches the weather for the place and publishes
// the report on its Board. Safe for concurrent use.
type Service struct {
	resolver *placeresolver.Resolver
	fetcher  Fetcher
	recorder Recorder
	board    Board
	logger   *zap.Logger
}

// NewService creates a Service.
func NewService(r *placeresolver.Resolver, f Fetcher, opts ...ServiceOption) *Service {
	s := &Service{resolver: r, fetcher: f, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search resolves query and fetches its weather. The returned session has
// LastQuery set even when the search fails, so it can be retried.
func (s *Service) Search(ctx context.Context, sess placeresolver.Session, query string, units Units) (placeresolver.Session, Report, error) {
	ticket := s.board.Begin()
	sess, place, err := s.resolver.Search(ctx, sess, query)
	if err != nil {
		if !errors.Is(err, placeresolver.ErrEmptyQuery) {
			s.record(ctx, history.Entry{Query: sess.LastQuery, Units: string(units), Failed: true})
		}
		return sess, Report{}, err
	}
	entry := history.Entry{Query: sess.LastQuery, Place: place, Units: string(units)}
	report, err := s.fetch(ctx, ticket, place, units)
	if err != nil {
		entry.Failed = true
		s.record(ctx, entry)
		return sess, Report{}, err
	}
	s.record(ctx, entry)
	return sess, report, nil
}

// Retry repeats the session's last search.
func (s *Service) Retry(ctx context.Context, sess placeresolver.Session, units Units) (placeresolver.Session, Report, error) {
	if sess.LastQuery == "" {
		return sess, Report{}, placeresolver.ErrNothingToRetry
	}
	return s.Search(ctx, sess, sess.LastQuery, units)
}

// Refresh fetches the weather again for the session's last place, for
// example after the units changed. No lookup is made.
func (s *Service) Refresh(ctx context.Context, sess placeresolver.Session, units Units) (Report, error) {
	if sess.LastPlace == nil {
		return Report{}, ErrNoPlace
	}
	return s.fetch(ctx, s.board.Begin(), *sess.LastPlace, units)
}

// Latest returns the newest published report.
func (s *Service) Latest() (Report, bool) {
	return s.board.Latest()
}

func (s *Service) fetch(ctx context.Context, ticket Ticket, place placeresolver.ResolvedPlace, units Units) (Report, error) {
	cur, err := s.fetcher.Current(ctx, place.Lat, place.Lon, units)
	if err != nil {
		return Report{}, &FetchError{Place: place.Label(), Err: err}
	}
	report := NewReport(place, cur, units)
	if !s.board.Publish(ticket, report) {
		s.logger.Debug("dropping stale report", zap.String("place", report.PlaceLabel))
	}
	return report, nil
}

func (s *Service) record(ctx context.Context, e history.Entry) {
	if s.recorder == nil {
		return
	}
	// A canceled search still leaves its query behind for Retry.
	ctx = context.WithoutCancel(ctx)
	if _, err := s.recorder.Add(ctx, e); err != nil {
		s.logger.Warn("failed to record search",
			zap.String("query", e.Query), zap.Bool("failed", e.Failed), zap.Error(err))
	}
}
