package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	paymentmodels "github.com/DaniilOrchikov/blps-l1/internal/payment/models"
	"github.com/DaniilOrchikov/blps-l1/internal/vacancy/models"
	id "github.com/DaniilOrchikov/blps-l1/pkg/domain"
	"github.com/DaniilOrchikov/blps-l1/pkg/platform/audit"
)

type VacancyStore interface {
	FindByID(ctx context.Context, vacancyID id.VacancyID) (*models.Vacancy, error)
	Save(ctx context.Context, v *models.Vacancy) error
	FindByStatus(ctx context.Context, status models.Status) ([]*models.Vacancy, error)
	FindByTierAndStatus(ctx context.Context, tier models.PublicationType, status models.Status) ([]*models.Vacancy, error)
	ListOrderedByScore(ctx context.Context) ([]*models.Vacancy, error)
	ListByOwner(ctx context.Context, owner string) ([]*models.Vacancy, error)
}

type PaymentStore interface {
	FindByID(ctx context.Context, paymentID id.PaymentID) (*paymentmodels.Payment, error)
	Save(ctx context.Context, p *paymentmodels.Payment) error
	FindLatestForVacancy(ctx context.Context, vacancyID id.VacancyID) (*paymentmodels.Payment, error)
}

// PaymentGateway charges and refunds payments recorded in the ledger.
type PaymentGateway interface {
	Charge(ctx context.Context, method paymentmodels.Method, payer string, paymentID id.PaymentID, amount decimal.Decimal) (bool, error)
	Refund(ctx context.Context, paymentID id.PaymentID) (bool, error)
}

// BoardPublisher pushes a vacancy to the external job board. false means the
// board rejected it.
type BoardPublisher interface {
	Publish(ctx context.Context, v *models.Vacancy) (bool, error)
}

type PromotionEngine interface {
	InitialScore(tier models.PublicationType) float64
	Recompute(v *models.Vacancy, now time.Time) bool
	PromoteStandardPlus(v *models.Vacancy, now time.Time) bool
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
