// Package board talks to the external job board. The real board is not
// integrated; Simulated stands in for it and Guarded wraps any publisher with
// a circuit breaker.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/DaniilOrchikov/blps-l1/internal/vacancy/models"
	"github.com/DaniilOrchikov/blps-l1/pkg/platform/circuit"
	"github.com/DaniilOrchikov/blps-l1/pkg/platform/sentinel"
)

// Publisher pushes a vacancy to an external board. false means rejected.
type Publisher interface {
	Publish(ctx context.Context, v *models.Vacancy) (bool, error)
}

// Simulated accepts every vacancy unless configured otherwise, logging each
// call the way the real board client would.
type Simulated struct {
	logger *slog.Logger

	mu            sync.Mutex
	rejectTitles  []string
	failWith      error
	publishedByID map[string]struct{}
}

type SimulatedOption func(*Simulated)

func WithLogger(logger *slog.Logger) SimulatedOption {
	return func(s *Simulated) {
		s.logger = logger
	}
}

// WithRejectedTitles makes the board reject vacancies whose title contains
// any of the given substrings (case-insensitive).
func WithRejectedTitles(substrings ...string) SimulatedOption {
	return func(s *Simulated) {
		for _, sub := range substrings {
			s.rejectTitles = append(s.rejectTitles, strings.ToLower(sub))
		}
	}
}

// WithFailure makes every call return err.
func WithFailure(err error) SimulatedOption {
	return func(s *Simulated) {
		s.failWith = err
	}
}

func NewSimulated(opts ...SimulatedOption) *Simulated {
	s := &Simulated{publishedByID: make(map[string]struct{})}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *Simulated) Publish(ctx context.Context, v *models.Vacancy) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return false, s.failWith
	}
	title := strings.ToLower(v.Title)
	for _, sub := range s.rejectTitles {
		if strings.Contains(title, sub) {
			s.logger.InfoContext(ctx, "external board rejected vacancy",
				"vacancy_id", v.ID,
				"title", v.Title,
			)
			return false, nil
		}
	}
	s.publishedByID[v.ID.String()] = struct{}{}
	s.logger.InfoContext(ctx, "vacancy sent to external board",
		"vacancy_id", v.ID,
		"publication_type", v.PublicationType,
		"cities", v.Cities,
	)
	return true, nil
}

// Published reports whether the vacancy was accepted by this board.
func (s *Simulated) Published(vacancyID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.publishedByID[vacancyID]
	return ok
}

// Guarded stops calling the board after repeated errors and fails fast with
// sentinel.ErrUnavailable until the breaker's cooldown passes. Rejections are
// answers, not failures, and do not trip the breaker.
type Guarded struct {
	next    Publisher
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuarded(next Publisher, breaker *circuit.Breaker, logger *slog.Logger) (*Guarded, error) {
	if next == nil {
		return nil, errors.New("board publisher is required")
	}
	if breaker == nil {
		return nil, errors.New("circuit breaker is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guarded{next: next, breaker: breaker, logger: logger}, nil
}

func (g *Guarded) Publish(ctx context.Context, v *models.Vacancy) (bool, error) {
	if !g.breaker.Allow() {
		return false, fmt.Errorf("external board circuit %s open: %w", g.breaker.Name(), sentinel.ErrUnavailable)
	}
	ok, err := g.next.Publish(ctx, v)
	if err != nil {
		if g.breaker.RecordFailure() {
			g.logger.WarnContext(ctx, "external board circuit opened",
				"breaker", g.breaker.Name(),
				"error", err,
			)
		}
		return false, err
	}
	if g.breaker.RecordSuccess() {
		g.logger.InfoContext(ctx, "external board circuit closed", "breaker", g.breaker.Name())
	}
	return ok, nil
}
