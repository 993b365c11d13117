package board

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaniilOrchikov/blps-l1/internal/vacancy/models"
	id "github.com/DaniilOrchikov/blps-l1/pkg/domain"
	"github.com/DaniilOrchikov/blps-l1/pkg/platform/circuit"
	"github.com/DaniilOrchikov/blps-l1/pkg/platform/sentinel"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func vacancy(title string) *models.Vacancy {
	return &models.Vacancy{
		ID:              id.NewVacancyID(),
		Title:           title,
		Status:          models.StatusPaid,
		PublicationType: models.PublicationStandard,
		Cities:          []string{"Moscow"},
	}
}

type scripted struct {
	calls int
	err   error
}

func (s *scripted) Publish(context.Context, *models.Vacancy) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	return true, nil
}

func TestSimulated(t *testing.T) {
	ctx := context.Background()

	t.Run("accepts by default", func(t *testing.T) {
		b := NewSimulated(WithLogger(quiet()))
		v := vacancy("Go engineer")
		ok, err := b.Publish(ctx, v)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, b.Published(v.ID.String()))
	})

	t.Run("rejects matching titles", func(t *testing.T) {
		b := NewSimulated(WithLogger(quiet()), WithRejectedTitles("Crypto"))
		v := vacancy("crypto trader")
		ok, err := b.Publish(ctx, v)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.False(t, b.Published(v.ID.String()))
	})

	t.Run("configured failure", func(t *testing.T) {
		boom := errors.New("board down")
		b := NewSimulated(WithLogger(quiet()), WithFailure(boom))
		_, err := b.Publish(ctx, vacancy("Go engineer"))
		assert.ErrorIs(t, err, boom)
	})
}

func TestGuarded(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("requires dependencies", func(t *testing.T) {
		_, err := NewGuarded(nil, circuit.New("board"), quiet())
		assert.Error(t, err)
		_, err = NewGuarded(&scripted{}, nil, quiet())
		assert.Error(t, err)
	})

	t.Run("opens after repeated errors and fails fast", func(t *testing.T) {
		next := &scripted{err: errors.New("timeout")}
		breaker := circuit.New("board", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Minute), circuit.WithClock(clock))
		g, err := NewGuarded(next, breaker, quiet())
		require.NoError(t, err)

		for range 2 {
			_, err := g.Publish(ctx, vacancy("x"))
			require.Error(t, err)
		}
		assert.True(t, breaker.IsOpen())

		_, err = g.Publish(ctx, vacancy("x"))
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
		assert.Equal(t, 2, next.calls)
	})

	t.Run("half-open probe closes on success", func(t *testing.T) {
		current := now
		next := &scripted{err: errors.New("timeout")}
		breaker := circuit.New("board",
			circuit.WithFailureThreshold(1),
			circuit.WithCooldown(time.Minute),
			circuit.WithClock(func() time.Time { return current }),
		)
		g, err := NewGuarded(next, breaker, quiet())
		require.NoError(t, err)

		_, err = g.Publish(ctx, vacancy("x"))
		require.Error(t, err)
		require.True(t, breaker.IsOpen())

		current = current.Add(2 * time.Minute)
		next.err = nil
		ok, err := g.Publish(ctx, vacancy("x"))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, circuit.StateClosed, breaker.State())
	})

	t.Run("rejections do not trip the breaker", func(t *testing.T) {
		sim := NewSimulated(WithLogger(quiet()), WithRejectedTitles("spam"))
		breaker := circuit.New("board", circuit.WithFailureThreshold(1), circuit.WithClock(clock))
		g, err := NewGuarded(sim, breaker, quiet())
		require.NoError(t, err)

		for range 3 {
			ok, err := g.Publish(ctx, vacancy("spam offer"))
			require.NoError(t, err)
			assert.False(t, ok)
		}
		assert.False(t, breaker.IsOpen())
	})
}
