package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "github.com/DaniilOrchikov/blps-l1/pkg/domain"
	dErrors "github.com/DaniilOrchikov/blps-l1/pkg/domain-errors"
	"github.com/DaniilOrchikov/blps-l1/pkg/platform/sentinel"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func TestNewPayment(t *testing.T) {
	p, err := NewPayment(id.NewVacancyID(), "employer", decimal.NewFromInt(2716), MethodBalance, now)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, p.Status)
	assert.Nil(t, p.ProcessedAt)
	assert.False(t, p.ID.IsNil())

	_, err = NewPayment(id.NewVacancyID(), "employer", decimal.Zero, MethodCard, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = NewPayment(id.NewVacancyID(), "employer", decimal.NewFromInt(1), "CASH", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestPaymentTransitions(t *testing.T) {
	s := func() *Payment {
		p, err := NewPayment(id.NewVacancyID(), "employer", decimal.NewFromInt(100), MethodCard, now)
		require.NoError(t, err)
		return p
	}

	t.Run("complete then refund", func(t *testing.T) {
		p := s()
		require.NoError(t, p.Settle(true, now))
		assert.Equal(t, StatusCompleted, p.Status)
		require.NotNil(t, p.ProcessedAt)

		later := now.Add(time.Minute)
		require.NoError(t, p.MarkRefunded(later))
		assert.Equal(t, StatusRefunded, p.Status)
		assert.Equal(t, later, *p.ProcessedAt)
	})
	t.Run("failed cannot be refunded", func(t *testing.T) {
		p := s()
		require.NoError(t, p.Settle(false, now))
		assert.Equal(t, StatusFailed, p.Status)
		assert.ErrorIs(t, p.MarkRefunded(now), sentinel.ErrInvalidState)
	})
	t.Run("settle only once", func(t *testing.T) {
		p := s()
		require.NoError(t, p.Settle(true, now))
		assert.ErrorIs(t, p.Settle(true, now), sentinel.ErrInvalidState)
	})
	t.Run("refund twice", func(t *testing.T) {
		p := s()
		require.NoError(t, p.Settle(true, now))
		require.NoError(t, p.MarkRefunded(now))
		assert.ErrorIs(t, p.MarkRefunded(now), sentinel.ErrInvalidState)
	})
}
