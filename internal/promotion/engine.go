// Package promotion computes the decaying promotion score that orders
// published vacancies. Scores start at a tier-specific value and lose five
// points per elapsed period, never dropping below zero.
package promotion

import (
	"math"
	"time"

	"github.com/DaniilOrchikov/blps-l1/internal/vacancy/models"
)

const (
	standardInitial     = 100.0
	standardPlusInitial = 200.0
	premiumInitial      = 200.0

	decayStep = 5.0

	// standardPlusPeriod is both the decay period and the promotion boost interval.
	standardPlusPeriod = 3
	premiumGraceDays   = 7
)

const day = 24 * time.Hour

// Engine is stateless; the zero value is ready to use.
type Engine struct{}

func New() *Engine { return &Engine{} }

// InitialScore is the score a vacancy receives at publication.
func (e *Engine) InitialScore(tier models.PublicationType) float64 {
	switch tier {
	case models.PublicationStandardPlus:
		return standardPlusInitial
	case models.PublicationPremium:
		return premiumInitial
	default:
		return standardInitial
	}
}

// Recompute applies the tier's decay rule to a PUBLISHED vacancy and reports
// whether the vacancy changed.
func (e *Engine) Recompute(v *models.Vacancy, now time.Time) bool {
	if v.Status != models.StatusPublished || v.PublishedAt == nil {
		return false
	}
	days := wholeDays(*v.PublishedAt, now)

	switch v.PublicationType {
	case models.PublicationStandard:
		return setScore(v, decay(standardInitial, days))

	case models.PublicationStandardPlus:
		if days%standardPlusPeriod != 0 {
			return false
		}
		if v.LastPromotionUpdate != nil && wholeDays(*v.LastPromotionUpdate, now) < standardPlusPeriod {
			return false
		}
		setScore(v, decay(standardPlusInitial, days/standardPlusPeriod))
		v.LastPromotionUpdate = &now
		return true

	case models.PublicationPremium:
		if days <= premiumGraceDays {
			return false
		}
		return setScore(v, decay(premiumInitial, days-premiumGraceDays))
	}
	return false
}

// PromoteStandardPlus restores a STANDARD_PLUS vacancy to its initial score
// when it was published more than three days ago and has not been touched
// for three days.
func (e *Engine) PromoteStandardPlus(v *models.Vacancy, now time.Time) bool {
	if v.Status != models.StatusPublished || v.PublicationType != models.PublicationStandardPlus || v.PublishedAt == nil {
		return false
	}
	cutoff := now.Add(-standardPlusPeriod * day)
	if !v.PublishedAt.Before(cutoff) {
		return false
	}
	if v.LastPromotionUpdate != nil && !v.LastPromotionUpdate.Before(cutoff) {
		return false
	}
	v.PromotionScore = standardPlusInitial
	v.LastPromotionUpdate = &now
	return true
}

// wholeDays truncates the elapsed time to full days. Negative spans count as zero.
func wholeDays(from, to time.Time) int {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return int(d / day)
}

func decay(initial float64, periods int) float64 {
	return math.Max(0, initial-decayStep*float64(periods))
}

func setScore(v *models.Vacancy, score float64) bool {
	if v.PromotionScore == score {
		return false
	}
	v.PromotionScore = score
	return true
}
