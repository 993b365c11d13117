package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID
	Timestamp time.Time
	Action    string
	// Subject identifies the aggregate the action applied to (vacancy or payment id).
	Subject string
	// Actor is the account that triggered the action; "scheduler" for batch jobs.
	Actor      string
	Reason     string
	RequestID  string
	Attributes map[string]string
}

type AuditEvent string

const (
	// Vacancy lifecycle
	EventVacancyCreated    AuditEvent = "vacancy_created"
	EventVacancyPaid       AuditEvent = "vacancy_paid"
	EventVacancyPublished  AuditEvent = "vacancy_published"
	EventVacancyRolledBack AuditEvent = "vacancy_rolled_back"
	EventVacancyExpired    AuditEvent = "vacancy_expired"

	// Payments
	EventPaymentFailed   AuditEvent = "payment_failed"
	EventPaymentRefunded AuditEvent = "payment_refunded"
	EventRefundFailed    AuditEvent = "refund_failed"
	EventAccountTopUp    AuditEvent = "account_topped_up"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Lister is implemented by stores that can be queried back.
type Lister interface {
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}
