package promotion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaniilOrchikov/blps-l1/internal/vacancy/models"
	id "github.com/DaniilOrchikov/blps-l1/pkg/domain"
)

var publishedAt = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func published(t *testing.T, tier models.PublicationType) *models.Vacancy {
	t.Helper()
	e := New()
	v, err := models.NewVacancy(id.NewVacancyID(), "employer", models.Draft{Title: "Go developer"}, publishedAt)
	require.NoError(t, err)
	require.NoError(t, v.StartPayment(models.PublishParams{PublicationType: tier, Cities: []string{"Moscow"}}))
	require.NoError(t, v.MarkPaid())
	require.NoError(t, v.Publish(publishedAt, e.InitialScore(tier)))
	return v
}

func after(days int) time.Time {
	return publishedAt.Add(time.Duration(days)*day + time.Hour)
}

func TestInitialScore(t *testing.T) {
	e := New()
	assert.Equal(t, 100.0, e.InitialScore(models.PublicationStandard))
	assert.Equal(t, 200.0, e.InitialScore(models.PublicationStandardPlus))
	assert.Equal(t, 200.0, e.InitialScore(models.PublicationPremium))
}

func TestRecompute_Standard(t *testing.T) {
	e := New()

	cases := []struct {
		days int
		want float64
	}{
		{0, 100},
		{1, 95},
		{10, 50},
		{20, 0},
		{29, 0},
	}
	for _, tc := range cases {
		v := published(t, models.PublicationStandard)
		e.Recompute(v, after(tc.days))
		assert.Equal(t, tc.want, v.PromotionScore, "day %d", tc.days)
	}
}

func TestRecompute_StandardTruncatesPartialDays(t *testing.T) {
	e := New()
	v := published(t, models.PublicationStandard)

	changed := e.Recompute(v, publishedAt.Add(23*time.Hour+59*time.Minute))
	assert.False(t, changed)
	assert.Equal(t, 100.0, v.PromotionScore)
}

func TestRecompute_Premium(t *testing.T) {
	e := New()

	t.Run("unchanged through grace period", func(t *testing.T) {
		v := published(t, models.PublicationPremium)
		assert.False(t, e.Recompute(v, after(7)))
		assert.Equal(t, 200.0, v.PromotionScore)
	})
	t.Run("ten days", func(t *testing.T) {
		v := published(t, models.PublicationPremium)
		assert.True(t, e.Recompute(v, after(10)))
		assert.Equal(t, 185.0, v.PromotionScore)
	})
	t.Run("keeps decaying after grace period", func(t *testing.T) {
		v := published(t, models.PublicationPremium)
		e.Recompute(v, after(29))
		assert.Equal(t, 90.0, v.PromotionScore)
	})
}

func TestRecompute_StandardPlus(t *testing.T) {
	e := New()

	t.Run("off-period day is ignored", func(t *testing.T) {
		v := published(t, models.PublicationStandardPlus)
		assert.False(t, e.Recompute(v, after(4)))
		assert.Equal(t, 200.0, v.PromotionScore)
	})

	t.Run("period day with stale update decays", func(t *testing.T) {
		v := published(t, models.PublicationStandardPlus)
		now := after(6)
		assert.True(t, e.Recompute(v, now))
		assert.Equal(t, 190.0, v.PromotionScore)
		assert.Equal(t, now, *v.LastPromotionUpdate)
	})

	t.Run("recent update blocks decay", func(t *testing.T) {
		v := published(t, models.PublicationStandardPlus)
		recent := after(4)
		v.LastPromotionUpdate = &recent
		assert.False(t, e.Recompute(v, after(6)))
		assert.Equal(t, 200.0, v.PromotionScore)
	})

	t.Run("second hourly run on the same day is a no-op", func(t *testing.T) {
		v := published(t, models.PublicationStandardPlus)
		require.True(t, e.Recompute(v, after(3)))
		assert.False(t, e.Recompute(v, after(3).Add(time.Hour)))
		assert.Equal(t, 195.0, v.PromotionScore)
	})
}

func TestRecompute_IgnoresUnpublished(t *testing.T) {
	e := New()
	v, err := models.NewVacancy(id.NewVacancyID(), "employer", models.Draft{Title: "x"}, publishedAt)
	require.NoError(t, err)

	assert.False(t, e.Recompute(v, after(5)))
	assert.Zero(t, v.PromotionScore)
}

func TestPromoteStandardPlus(t *testing.T) {
	e := New()

	t.Run("restores old vacancy", func(t *testing.T) {
		v := published(t, models.PublicationStandardPlus)
		v.PromotionScore = 150
		stale := after(1)
		v.LastPromotionUpdate = &stale

		now := after(5)
		assert.True(t, e.PromoteStandardPlus(v, now))
		assert.Equal(t, 200.0, v.PromotionScore)
		assert.Equal(t, now, *v.LastPromotionUpdate)
	})

	t.Run("too young", func(t *testing.T) {
		v := published(t, models.PublicationStandardPlus)
		v.PromotionScore = 150
		assert.False(t, e.PromoteStandardPlus(v, after(2)))
		assert.Equal(t, 150.0, v.PromotionScore)
	})

	t.Run("recently updated", func(t *testing.T) {
		v := published(t, models.PublicationStandardPlus)
		v.PromotionScore = 150
		recent := after(4)
		v.LastPromotionUpdate = &recent
		assert.False(t, e.PromoteStandardPlus(v, after(5)))
	})

	t.Run("other tiers untouched", func(t *testing.T) {
		v := published(t, models.PublicationPremium)
		v.PromotionScore = 150
		assert.False(t, e.PromoteStandardPlus(v, after(10)))
		assert.Equal(t, 150.0, v.PromotionScore)
	})
}
