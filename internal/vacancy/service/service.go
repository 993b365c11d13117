// Package service runs the vacancy publication workflow: payment, publication,
// compensation and the time-driven batch jobs. It owns every Status change.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	paymentmodels "github.com/DaniilOrchikov/blps-l1/internal/payment/models"
	"github.com/DaniilOrchikov/blps-l1/internal/vacancy/metrics"
	"github.com/DaniilOrchikov/blps-l1/internal/vacancy/models"
	id "github.com/DaniilOrchikov/blps-l1/pkg/domain"
	dErrors "github.com/DaniilOrchikov/blps-l1/pkg/domain-errors"
	"github.com/DaniilOrchikov/blps-l1/pkg/platform/audit"
	"github.com/DaniilOrchikov/blps-l1/pkg/platform/sentinel"
	"github.com/DaniilOrchikov/blps-l1/pkg/requestcontext"
)

var (
	// ErrPaymentFailed marks a declined or errored charge.
	ErrPaymentFailed = errors.New("payment failed")
	// ErrExternalPublishFailed marks a rejection or error from the external board.
	ErrExternalPublishFailed = errors.New("external publish failed")
)

const tracerName = "github.com/DaniilOrchikov/blps-l1/internal/vacancy/service"

// Service orchestrates the vacancy lifecycle.
type Service struct {
	vacancies VacancyStore
	payments  PaymentStore
	gateway   PaymentGateway
	board     BoardPublisher
	engine    PromotionEngine
	tx        VacancyTx

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTx replaces the default in-memory boundary, e.g. with a postgres one.
func WithTx(tx VacancyTx) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func New(
	vacancies VacancyStore,
	payments PaymentStore,
	gateway PaymentGateway,
	board BoardPublisher,
	engine PromotionEngine,
	opts ...Option,
) (*Service, error) {
	switch {
	case vacancies == nil:
		return nil, errors.New("vacancy store is required")
	case payments == nil:
		return nil, errors.New("payment store is required")
	case gateway == nil:
		return nil, errors.New("payment gateway is required")
	case board == nil:
		return nil, errors.New("board publisher is required")
	case engine == nil:
		return nil, errors.New("promotion engine is required")
	}

	s := &Service{
		vacancies: vacancies,
		payments:  payments,
		gateway:   gateway,
		board:     board,
		engine:    engine,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = NewShardedTx()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s, nil
}

// CreateVacancy stores a new DRAFT vacancy owned by the caller.
func (s *Service) CreateVacancy(ctx context.Context, draft models.Draft) (*models.Vacancy, error) {
	owner := requestcontext.Username(ctx)
	v, err := models.NewVacancy(id.NewVacancyID(), owner, draft, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.vacancies.Save(ctx, v); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save vacancy")
	}
	s.emit(ctx, audit.EventVacancyCreated, v.ID.String(), "title", v.Title)
	return v, nil
}

func (s *Service) GetVacancy(ctx context.Context, vacancyID id.VacancyID) (*models.Vacancy, error) {
	v, err := s.vacancies.FindByID(ctx, vacancyID)
	if err != nil {
		return nil, translateFind(err)
	}
	return v, nil
}

// CalculateCost prices a prospective publication of the vacancy without
// changing it.
func (s *Service) CalculateCost(ctx context.Context, vacancyID id.VacancyID, tier models.PublicationType, external bool, cities []string) (decimal.Decimal, error) {
	if _, err := s.GetVacancy(ctx, vacancyID); err != nil {
		return decimal.Zero, err
	}
	params := models.PublishParams{PublicationType: tier, PublishOnExternalBoard: external, Cities: cities}
	if err := params.Validate(); err != nil {
		return decimal.Zero, err
	}
	return models.Cost(tier, external, len(cities)), nil
}

func (s *Service) ListPublished(ctx context.Context) ([]*models.Vacancy, error) {
	list, err := s.vacancies.FindByStatus(ctx, models.StatusPublished)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list published vacancies")
	}
	return list, nil
}

// ListRanked returns every vacancy ordered by promotion score, highest first.
func (s *Service) ListRanked(ctx context.Context) ([]*models.Vacancy, error) {
	list, err := s.vacancies.ListOrderedByScore(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list vacancies")
	}
	return list, nil
}

func (s *Service) ListByOwner(ctx context.Context, owner string) ([]*models.Vacancy, error) {
	if owner == "" {
		owner = requestcontext.Username(ctx)
	}
	if owner == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "owner is required")
	}
	list, err := s.vacancies.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list vacancies")
	}
	return list, nil
}

func (s *Service) GetPayment(ctx context.Context, paymentID id.PaymentID) (*paymentmodels.Payment, error) {
	p, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "payment not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payment")
	}
	return p, nil
}

func translateFind(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "vacancy not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load vacancy")
}

// invalidState wraps the model's transition error (or a bare sentinel) as CodeInvalidState.
func invalidState(err error, msg string) error {
	if err == nil {
		err = sentinel.ErrInvalidState
	}
	return dErrors.Wrap(err, dErrors.CodeInvalidState, msg)
}

// emit publishes an audit event; failures are logged and never surface.
func (s *Service) emit(ctx context.Context, action audit.AuditEvent, subject string, kv ...string) {
	if s.auditPublisher == nil {
		return
	}
	attrs := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs[kv[i]] = kv[i+1]
	}
	actor := requestcontext.Username(ctx)
	if actor == "" {
		actor = "scheduler"
	}
	event := audit.Event{
		Action:     string(action),
		Subject:    subject,
		Actor:      actor,
		RequestID:  requestcontext.RequestID(ctx),
		Timestamp:  requestcontext.Now(ctx),
		Attributes: attrs,
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", action,
			"subject", subject,
			"error", err,
		)
	}
}

func (s *Service) startSpan(ctx context.Context, name string, vacancyID id.VacancyID) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, name)
	if !vacancyID.IsNil() {
		span.SetAttributes(attribute.String("vacancy.id", vacancyID.String()))
	}
	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
