package models

import (
	"errors"
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

func newDraft(t *testing.T) *Vacancy {
	t.Helper()
	v, err := NewVacancy(id.NewVacancyID(), "employer", Draft{Title: "Go developer"}, now)
	require.NoError(t, err)
	return v
}

func params(tier PublicationType, cities ...string) PublishParams {
	return PublishParams{PublicationType: tier, Cities: cities}
}

func TestCost(t *testing.T) {
	cases := []struct {
		name     string
		tier     PublicationType
		external bool
		cities   int
		want     int64
	}{
		{"standard two cities", PublicationStandard, false, 2, 2716},
		{"standard plus one city", PublicationStandardPlus, false, 1, 4277},
		{"premium external", PublicationPremium, true, 1, 14642},
		{"standard external three cities", PublicationStandard, true, 3, 10374},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Cost(tc.tier, tc.external, tc.cities)
			assert.True(t, decimal.NewFromInt(tc.want).Equal(got), "got %s", got)
		})
	}
}

func TestNewVacancy(t *testing.T) {
	t.Run("forces draft", func(t *testing.T) {
		v := newDraft(t)
		assert.Equal(t, StatusDraft, v.Status)
		assert.Equal(t, now, v.CreatedAt)
		assert.Nil(t, v.PublishedAt)
		assert.Zero(t, v.PromotionScore)
	})
	t.Run("requires title", func(t *testing.T) {
		_, err := NewVacancy(id.NewVacancyID(), "employer", Draft{Title: "  "}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
	t.Run("rejects inverted salary range", func(t *testing.T) {
		from, to := 300, 100
		_, err := NewVacancy(id.NewVacancyID(), "employer", Draft{Title: "x", SalaryFrom: &from, SalaryTo: &to}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestPublishParams_Validate(t *testing.T) {
	assert.NoError(t, params(PublicationPremium, "Moscow").Validate())
	assert.Error(t, params(PublicationPremium).Validate())
	assert.Error(t, params("GOLD", "Moscow").Validate())
	assert.Error(t, params(PublicationStandard, "").Validate())
}

func TestLifecycle(t *testing.T) {
	v := newDraft(t)

	require.NoError(t, v.StartPayment(params(PublicationStandard, "Moscow", "Kazan")))
	assert.Equal(t, StatusPendingPayment, v.Status)
	assert.Equal(t, []string{"Moscow", "Kazan"}, v.Cities)

	require.NoError(t, v.MarkPaid())
	assert.True(t, v.IsDue(now), "no requested time means due now")

	require.NoError(t, v.Publish(now, 100))
	assert.Equal(t, StatusPublished, v.Status)
	require.NotNil(t, v.PublishedAt)
	require.NotNil(t, v.ExpiresAt)
	assert.Equal(t, now.Add(30*24*time.Hour), *v.ExpiresAt)
	assert.Equal(t, *v.PublishedAt, *v.LastPromotionUpdate)
	assert.Equal(t, 100.0, v.PromotionScore)

	assert.False(t, v.IsExpired(now.Add(29*24*time.Hour)))
	assert.True(t, v.IsExpired(now.Add(31*24*time.Hour)))
	require.NoError(t, v.Expire())
	assert.Equal(t, StatusExpired, v.Status)
}

func TestPublish_UsesRequestedTime(t *testing.T) {
	v := newDraft(t)
	requested := now.Add(-time.Hour)
	p := params(PublicationPremium, "Moscow")
	p.RequestedPublishTime = &requested
	require.NoError(t, v.StartPayment(p))
	require.NoError(t, v.MarkPaid())

	require.NoError(t, v.Publish(now, 200))
	assert.Equal(t, requested, *v.PublishedAt)
}

func TestIsDue_FutureRequest(t *testing.T) {
	v := newDraft(t)
	later := now.Add(time.Hour)
	p := params(PublicationStandard, "Moscow")
	p.RequestedPublishTime = &later
	require.NoError(t, v.StartPayment(p))
	require.NoError(t, v.MarkPaid())

	assert.False(t, v.IsDue(now))
	assert.True(t, v.IsDue(later))
}

func TestResetToDraft(t *testing.T) {
	v := newDraft(t)
	later := now.Add(time.Hour)
	p := PublishParams{RequestedPublishTime: &later, PublicationType: PublicationStandard, PublishOnExternalBoard: true, Cities: []string{"Moscow"}}
	require.NoError(t, v.StartPayment(p))
	require.NoError(t, v.MarkPaid())

	require.NoError(t, v.ResetToDraft())
	assert.Equal(t, StatusDraft, v.Status)
	assert.Nil(t, v.RequestedPublishTime)
	assert.False(t, v.PublishOnExternalBoard)
	assert.Empty(t, v.Cities)
}

func TestIllegalTransitions(t *testing.T) {
	t.Run("publish from draft", func(t *testing.T) {
		v := newDraft(t)
		err := v.Publish(now, 100)
		assert.True(t, errors.Is(err, sentinel.ErrInvalidState))
		assert.Equal(t, StatusDraft, v.Status)
		assert.Nil(t, v.PublishedAt)
	})
	t.Run("reset published", func(t *testing.T) {
		v := newDraft(t)
		require.NoError(t, v.StartPayment(params(PublicationStandard, "Moscow")))
		require.NoError(t, v.MarkPaid())
		require.NoError(t, v.Publish(now, 100))

		assert.ErrorIs(t, v.ResetToDraft(), sentinel.ErrInvalidState)
		assert.Equal(t, StatusPublished, v.Status)
	})
	t.Run("start payment twice", func(t *testing.T) {
		v := newDraft(t)
		require.NoError(t, v.StartPayment(params(PublicationStandard, "Moscow")))
		assert.ErrorIs(t, v.StartPayment(params(PublicationStandard, "Moscow")), sentinel.ErrInvalidState)
	})
	t.Run("expired is terminal", func(t *testing.T) {
		for _, next := range []Status{StatusDraft, StatusPendingPayment, StatusPaid, StatusPublished} {
			assert.False(t, StatusExpired.CanTransitionTo(next))
		}
	})
}

func TestClone_IsDeep(t *testing.T) {
	v := newDraft(t)
	require.NoError(t, v.StartPayment(params(PublicationStandard, "Moscow")))

	c := v.Clone()
	c.Cities[0] = "Omsk"
	assert.Equal(t, "Moscow", v.Cities[0])
}
