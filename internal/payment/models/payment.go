package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	id "github.com/DaniilOrchikov/blps-l1/pkg/domain"
	dErrors "github.com/DaniilOrchikov/blps-l1/pkg/domain-errors"
	"github.com/DaniilOrchikov/blps-l1/pkg/platform/sentinel"
)

type Method string

const (
	MethodCard    Method = "CARD"
	MethodBalance Method = "BALANCE"
)

func (m Method) IsValid() bool {
	return m == MethodCard || m == MethodBalance
}

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusRefunded  Status = "REFUNDED"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusCompleted, StatusFailed},
	StatusCompleted: {StatusRefunded},
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Payment is one charge attempt for a vacancy publication. VacancyID is a weak
// reference: the payment outlives any state the vacancy goes through.
type Payment struct {
	ID          id.PaymentID
	VacancyID   id.VacancyID
	Payer       string
	Amount      decimal.Decimal
	Method      Method
	Status      Status
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

func NewPayment(vacancyID id.VacancyID, payer string, amount decimal.Decimal, method Method, now time.Time) (*Payment, error) {
	if !method.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown payment method")
	}
	if !amount.IsPositive() {
		return nil, dErrors.New(dErrors.CodeValidation, "payment amount must be positive")
	}
	if payer == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "payer is required")
	}
	return &Payment{
		ID:        id.NewPaymentID(),
		VacancyID: vacancyID,
		Payer:     payer,
		Amount:    amount,
		Method:    method,
		Status:    StatusPending,
		CreatedAt: now,
	}, nil
}

// Settle records the outcome of a charge attempt.
func (p *Payment) Settle(ok bool, now time.Time) error {
	next := StatusFailed
	if ok {
		next = StatusCompleted
	}
	return p.moveTo(next, now)
}

func (p *Payment) MarkRefunded(now time.Time) error {
	return p.moveTo(StatusRefunded, now)
}

func (p *Payment) moveTo(next Status, now time.Time) error {
	if !p.Status.CanTransitionTo(next) {
		return fmt.Errorf("payment %s -> %s: %w", p.Status, next, sentinel.ErrInvalidState)
	}
	p.Status = next
	p.ProcessedAt = &now
	return nil
}

func (p *Payment) Clone() *Payment {
	if p == nil {
		return nil
	}
	c := *p
	if p.ProcessedAt != nil {
		t := *p.ProcessedAt
		c.ProcessedAt = &t
	}
	return &c
}
