package service

import (
	"context"
	"fmt"

	"github.com/DaniilOrchikov/blps-l1/internal/vacancy/models"
	id "github.com/DaniilOrchikov/blps-l1/pkg/domain"
	dErrors "github.com/DaniilOrchikov/blps-l1/pkg/domain-errors"
	"github.com/DaniilOrchikov/blps-l1/pkg/platform/audit"
	"github.com/DaniilOrchikov/blps-l1/pkg/requestcontext"
)

// BatchResult summarizes one batch run. Processed counts vacancies the job
// changed; Failed counts per-item errors that were logged and skipped.
type BatchResult struct {
	Processed int
	Failed    int
}

// PublishDue finalizes every PAID vacancy whose requested time has passed.
// A vacancy that fails to publish is rolled back and refunded; one that was
// finalized concurrently by the synchronous path is skipped.
func (s *Service) PublishDue(ctx context.Context) (res BatchResult, err error) {
	ctx, span := s.startSpan(ctx, "vacancy.PublishDue", id.VacancyID{})
	defer func() { endSpan(span, err) }()

	now := requestcontext.Now(ctx)
	ctx = requestcontext.WithTime(ctx, now)

	paid, err := s.vacancies.FindByStatus(ctx, models.StatusPaid)
	if err != nil {
		return res, fmt.Errorf("list paid vacancies: %w", err)
	}

	for _, v := range paid {
		if !v.IsDue(now) {
			continue
		}
		if _, err := s.FinalizePublish(ctx, v.ID); err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvalidState) {
				s.logger.DebugContext(ctx, "vacancy no longer PAID, skipping", "vacancy_id", v.ID)
				continue
			}
			res.Failed++
			s.logger.WarnContext(ctx, "scheduled publish failed, rolling back",
				"vacancy_id", v.ID,
				"error", err,
			)
			if rbErr := s.Rollback(ctx, v.ID); rbErr != nil {
				s.logger.ErrorContext(ctx, "rollback after scheduled publish failed",
					"vacancy_id", v.ID,
					"error", rbErr,
				)
			}
			continue
		}
		res.Processed++
	}
	return res, nil
}

// ExpireOld moves PUBLISHED vacancies past their expiry to EXPIRED.
func (s *Service) ExpireOld(ctx context.Context) (res BatchResult, err error) {
	ctx, span := s.startSpan(ctx, "vacancy.ExpireOld", id.VacancyID{})
	defer func() { endSpan(span, err) }()

	now := requestcontext.Now(ctx)
	ctx = requestcontext.WithTime(ctx, now)

	published, err := s.vacancies.FindByStatus(ctx, models.StatusPublished)
	if err != nil {
		return res, fmt.Errorf("list published vacancies: %w", err)
	}
	for _, candidate := range published {
		if !candidate.IsExpired(now) {
			continue
		}
		changed, err := s.mutate(ctx, candidate.ID, func(v *models.Vacancy) (bool, error) {
			if !v.IsExpired(now) {
				return false, nil
			}
			return true, v.Expire()
		})
		s.tally(ctx, &res, "expire", candidate.ID, changed, err)
		if changed && err == nil {
			s.emit(ctx, audit.EventVacancyExpired, candidate.ID.String())
		}
	}
	s.metrics.AddExpired(res.Processed)
	return res, nil
}

// UpdatePromotionScores reapplies the decay rules to every PUBLISHED vacancy.
func (s *Service) UpdatePromotionScores(ctx context.Context) (res BatchResult, err error) {
	ctx, span := s.startSpan(ctx, "vacancy.UpdatePromotionScores", id.VacancyID{})
	defer func() { endSpan(span, err) }()

	now := requestcontext.Now(ctx)
	ctx = requestcontext.WithTime(ctx, now)

	published, err := s.vacancies.FindByStatus(ctx, models.StatusPublished)
	if err != nil {
		return res, fmt.Errorf("list published vacancies: %w", err)
	}
	for _, candidate := range published {
		changed, err := s.mutate(ctx, candidate.ID, func(v *models.Vacancy) (bool, error) {
			if v.Status != models.StatusPublished {
				return false, nil
			}
			return s.engine.Recompute(v, now), nil
		})
		s.tally(ctx, &res, "recompute score", candidate.ID, changed, err)
	}
	s.metrics.AddScoresUpdated(res.Processed)
	return res, nil
}

// PromoteStandardPlus periodically restores eligible STANDARD_PLUS vacancies
// to their initial score.
func (s *Service) PromoteStandardPlus(ctx context.Context) (res BatchResult, err error) {
	ctx, span := s.startSpan(ctx, "vacancy.PromoteStandardPlus", id.VacancyID{})
	defer func() { endSpan(span, err) }()

	now := requestcontext.Now(ctx)
	ctx = requestcontext.WithTime(ctx, now)

	candidates, err := s.vacancies.FindByTierAndStatus(ctx, models.PublicationStandardPlus, models.StatusPublished)
	if err != nil {
		return res, fmt.Errorf("list standard plus vacancies: %w", err)
	}
	for _, candidate := range candidates {
		changed, err := s.mutate(ctx, candidate.ID, func(v *models.Vacancy) (bool, error) {
			return s.engine.PromoteStandardPlus(v, now), nil
		})
		s.tally(ctx, &res, "promote", candidate.ID, changed, err)
	}
	s.metrics.AddScoresUpdated(res.Processed)
	return res, nil
}

// mutate reloads the vacancy inside its boundary, applies fn and saves when fn
// reports a change. Reloading means a concurrent workflow step always wins
// over the batch snapshot.
func (s *Service) mutate(ctx context.Context, vacancyID id.VacancyID, fn func(v *models.Vacancy) (bool, error)) (bool, error) {
	var changed bool
	err := s.tx.RunInTx(WithVacancyKey(ctx, vacancyID), func(ctx context.Context) error {
		v, err := s.vacancies.FindByID(ctx, vacancyID)
		if err != nil {
			return translateFind(err)
		}
		changed, err = fn(v)
		if err != nil {
			return invalidState(err, "batch transition rejected")
		}
		if !changed {
			return nil
		}
		if err := s.vacancies.Save(ctx, v); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save vacancy")
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

func (s *Service) tally(ctx context.Context, res *BatchResult, op string, vacancyID id.VacancyID, changed bool, err error) {
	switch {
	case err != nil:
		res.Failed++
		s.logger.WarnContext(ctx, "batch item failed",
			"op", op,
			"vacancy_id", vacancyID,
			"error", err,
		)
	case changed:
		res.Processed++
	}
}

// RunHourly expires old vacancies and then recomputes scores, in that order,
// so freshly expired vacancies are not rescored.
func (s *Service) RunHourly(ctx context.Context) (BatchResult, error) {
	ctx = requestcontext.WithTime(ctx, requestcontext.Now(ctx))

	expired, err := s.ExpireOld(ctx)
	if err != nil {
		return expired, err
	}
	scored, err := s.UpdatePromotionScores(ctx)
	return BatchResult{
		Processed: expired.Processed + scored.Processed,
		Failed:    expired.Failed + scored.Failed,
	}, err
}

