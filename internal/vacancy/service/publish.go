package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	paymentmodels "github.com/DaniilOrchikov/blps-l1/internal/payment/models"
	"github.com/DaniilOrchikov/blps-l1/internal/vacancy/models"
	id "github.com/DaniilOrchikov/blps-l1/pkg/domain"
	dErrors "github.com/DaniilOrchikov/blps-l1/pkg/domain-errors"
	"github.com/DaniilOrchikov/blps-l1/pkg/platform/audit"
	"github.com/DaniilOrchikov/blps-l1/pkg/platform/sentinel"
	"github.com/DaniilOrchikov/blps-l1/pkg/requestcontext"
)

// PublishRequest asks for a DRAFT vacancy to be paid for and published.
type PublishRequest struct {
	// Payer defaults to the username carried by ctx.
	Payer                  string
	RequestedPublishTime   *time.Time
	PublicationType        models.PublicationType
	PublishOnExternalBoard bool
	Cities                 []string
	Method                 paymentmodels.Method
}

func (r PublishRequest) params() models.PublishParams {
	return models.PublishParams{
		RequestedPublishTime:   r.RequestedPublishTime,
		PublicationType:        r.PublicationType,
		PublishOnExternalBoard: r.PublishOnExternalBoard,
		Cities:                 r.Cities,
	}
}

// PublishWithPayment charges for the publication and, when the requested time
// has already arrived, publishes right away. A failure after the charge
// succeeded resets the vacancy to DRAFT and refunds the payment; the returned
// error then carries both the cause and any compensation failure.
func (s *Service) PublishWithPayment(ctx context.Context, vacancyID id.VacancyID, req PublishRequest) (_ *models.Vacancy, err error) {
	ctx, span := s.startSpan(ctx, "vacancy.PublishWithPayment", vacancyID)
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObservePublish(time.Now())

	payer := req.Payer
	if payer == "" {
		payer = requestcontext.Username(ctx)
	}
	if payer == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "payer is required")
	}
	if !req.Method.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown payment method")
	}
	params := req.params()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("vacancy.publication_type", string(req.PublicationType)),
		attribute.String("payment.method", string(req.Method)),
	)

	now := requestcontext.Now(ctx)
	ctx = WithVacancyKey(ctx, vacancyID)

	var (
		paid    *models.Vacancy
		payment *paymentmodels.Payment
		charged bool
	)
	txErr := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		v, err := s.vacancies.FindByID(ctx, vacancyID)
		if err != nil {
			return translateFind(err)
		}
		if err := v.StartPayment(params); err != nil {
			return invalidState(err, "vacancy must be DRAFT to publish")
		}

		payment, err = paymentmodels.NewPayment(v.ID, payer, v.Cost(), req.Method, now)
		if err != nil {
			return err
		}
		if err := s.payments.Save(ctx, payment); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record payment")
		}

		ok, err := s.gateway.Charge(ctx, req.Method, payer, payment.ID, payment.Amount)
		if err != nil {
			return dErrors.Wrap(errors.Join(ErrPaymentFailed, err), dErrors.CodePaymentFailed, "payment failed")
		}
		if !ok {
			return dErrors.Wrap(ErrPaymentFailed, dErrors.CodePaymentFailed, "payment declined")
		}
		charged = true

		if err := v.MarkPaid(); err != nil {
			return invalidState(err, "vacancy left PENDING_PAYMENT unexpectedly")
		}
		if err := s.vacancies.Save(ctx, v); err != nil {
			saveErr := dErrors.Wrap(err, dErrors.CodeInternal, "failed to save paid vacancy")
			// in-memory stores cannot roll back the withdrawal, so refund here
			if _, refundErr := s.gateway.Refund(ctx, payment.ID); refundErr != nil {
				return errors.Join(saveErr, dErrors.Wrap(refundErr, dErrors.CodeRefundFailed, "refund after failed save"))
			}
			return saveErr
		}
		paid = v
		return nil
	})
	if txErr != nil {
		if payment != nil && !charged && dErrors.HasCode(txErr, dErrors.CodePaymentFailed) {
			s.recordFailedPayment(ctx, payment, txErr)
		}
		return nil, txErr
	}

	s.emit(ctx, audit.EventVacancyPaid, vacancyID.String(),
		"payment_id", payment.ID.String(),
		"amount", payment.Amount.String(),
		"method", string(payment.Method),
	)

	if !paid.IsDue(now) {
		return paid, nil
	}

	published, finalizeErr := s.FinalizePublish(ctx, vacancyID)
	if finalizeErr == nil {
		return published, nil
	}
	if dErrors.HasCode(finalizeErr, dErrors.CodeInvalidState) {
		// the scheduler finalized (or rolled back) it between our two steps
		s.logger.InfoContext(ctx, "finalize lost race",
			"vacancy_id", vacancyID,
			"error", finalizeErr,
		)
		current, err := s.GetVacancy(ctx, vacancyID)
		if err != nil {
			return nil, err
		}
		if current.Status == models.StatusPublished {
			return current, nil
		}
		return nil, finalizeErr
	}

	s.logger.WarnContext(ctx, "finalize failed after payment, compensating",
		"vacancy_id", vacancyID,
		"error", finalizeErr,
	)
	if rollbackErr := s.Rollback(ctx, vacancyID); rollbackErr != nil {
		return nil, errors.Join(finalizeErr, rollbackErr)
	}
	return nil, finalizeErr
}

// recordFailedPayment re-saves the FAILED payment outside the aborted
// boundary so the ledger keeps it even when the boundary rolled back.
func (s *Service) recordFailedPayment(ctx context.Context, payment *paymentmodels.Payment, cause error) {
	if payment.Status == paymentmodels.StatusPending {
		_ = payment.Settle(false, requestcontext.Now(ctx))
	}
	if err := s.payments.Save(ctx, payment); err != nil {
		s.logger.ErrorContext(ctx, "failed to record failed payment",
			"payment_id", payment.ID,
			"vacancy_id", payment.VacancyID,
			"error", err,
		)
	}
	s.metrics.IncrementPaymentFailed(string(payment.Method))
	s.emit(ctx, audit.EventPaymentFailed, payment.VacancyID.String(),
		"payment_id", payment.ID.String(),
		"method", string(payment.Method),
		"reason", cause.Error(),
	)
}

// FinalizePublish moves a PAID vacancy to PUBLISHED, pushing it to the
// external board first when requested. It is the single publication path for
// both the synchronous flow and the scheduler. Nothing is persisted unless
// every step succeeds.
func (s *Service) FinalizePublish(ctx context.Context, vacancyID id.VacancyID) (_ *models.Vacancy, err error) {
	ctx, span := s.startSpan(ctx, "vacancy.FinalizePublish", vacancyID)
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveFinalize(time.Now())

	now := requestcontext.Now(ctx)
	ctx = WithVacancyKey(ctx, vacancyID)

	var published *models.Vacancy
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		v, err := s.vacancies.FindByID(ctx, vacancyID)
		if err != nil {
			return translateFind(err)
		}
		if v.Status != models.StatusPaid {
			return invalidState(nil, "vacancy must be PAID to finalize, is "+string(v.Status))
		}
		if err := v.Publish(now, s.engine.InitialScore(v.PublicationType)); err != nil {
			return invalidState(err, "vacancy cannot be published")
		}

		if v.PublishOnExternalBoard {
			ok, err := s.board.Publish(ctx, v)
			if err != nil {
				return dErrors.Wrap(errors.Join(ErrExternalPublishFailed, err), dErrors.CodeExternalPublishFailed, "external board publish failed")
			}
			if !ok {
				return dErrors.Wrap(ErrExternalPublishFailed, dErrors.CodeExternalPublishFailed, "external board rejected vacancy")
			}
		}

		if err := s.vacancies.Save(ctx, v); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save published vacancy")
		}
		published = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementPublished(string(published.PublicationType))
	s.emit(ctx, audit.EventVacancyPublished, vacancyID.String(),
		"publication_type", string(published.PublicationType),
		"expires_at", published.ExpiresAt.Format(time.RFC3339),
	)
	return published, nil
}

// Rollback resets a PENDING_PAYMENT or PAID vacancy to DRAFT and refunds the
// payment that was COMPLETED at the time of the reset. The payment is picked
// inside the reset boundary and refunded by id afterwards, so a publication
// started once the vacancy is DRAFT again never has its payment refunded. A
// failed refund is reported as CodeRefundFailed and not retried.
func (s *Service) Rollback(ctx context.Context, vacancyID id.VacancyID) (err error) {
	ctx, span := s.startSpan(ctx, "vacancy.Rollback", vacancyID)
	defer func() { endSpan(span, err) }()

	ctx = WithVacancyKey(ctx, vacancyID)

	var toRefund *paymentmodels.Payment
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		v, err := s.vacancies.FindByID(ctx, vacancyID)
		if err != nil {
			return translateFind(err)
		}
		if err := v.ResetToDraft(); err != nil {
			return invalidState(err, "only PENDING_PAYMENT or PAID vacancies can be rolled back")
		}
		p, err := s.payments.FindLatestForVacancy(ctx, vacancyID)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
		case err != nil:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payment")
		case p.Status == paymentmodels.StatusCompleted:
			toRefund = p
		}
		if err := s.vacancies.Save(ctx, v); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save rolled back vacancy")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.IncrementRollback()
	s.emit(ctx, audit.EventVacancyRolledBack, vacancyID.String())

	if toRefund == nil {
		return nil
	}

	var refunded bool
	refundErr := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		ok, err := s.gateway.Refund(ctx, toRefund.ID)
		refunded = ok
		return err
	})
	if refundErr != nil {
		s.metrics.IncrementRefundFailure()
		s.logger.ErrorContext(ctx, "refund failed after rollback",
			"vacancy_id", vacancyID,
			"payment_id", toRefund.ID,
			"error", refundErr,
		)
		s.emit(ctx, audit.EventRefundFailed, vacancyID.String(),
			"payment_id", toRefund.ID.String(),
			"reason", refundErr.Error(),
		)
		return dErrors.Wrap(refundErr, dErrors.CodeRefundFailed, "refund failed")
	}
	if refunded {
		s.emit(ctx, audit.EventPaymentRefunded, vacancyID.String(),
			"payment_id", toRefund.ID.String(),
			"amount", toRefund.Amount.String(),
		)
	}
	return nil
}
