package domain

import (
	"github.com/google/uuid"

	dErrors "github.com/DaniilOrchikov/blps-l1/pkg/domain-errors"
)

// Typed identifiers keep vacancy and payment ids from being swapped at call sites.
type (
	VacancyID uuid.UUID
	PaymentID uuid.UUID
)

func NewVacancyID() VacancyID { return VacancyID(uuid.New()) }
func NewPaymentID() PaymentID { return PaymentID(uuid.New()) }

func (id VacancyID) String() string { return uuid.UUID(id).String() }
func (id VacancyID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id PaymentID) String() string { return uuid.UUID(id).String() }
func (id PaymentID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// ParseVacancyID parses a non-nil UUID into a VacancyID.
func ParseVacancyID(s string) (VacancyID, error) {
	u, err := parseUUID(s, "vacancy_id")
	return VacancyID(u), err
}

// ParsePaymentID parses a non-nil UUID into a PaymentID.
func ParsePaymentID(s string) (PaymentID, error) {
	u, err := parseUUID(s, "payment_id")
	return PaymentID(u), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be nil")
	}
	return u, nil
}
