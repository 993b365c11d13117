package models

import (
	"fmt"

	"github.com/DaniilOrchikov/blps-l1/pkg/platform/sentinel"
)

// Status is the lifecycle position of a vacancy.
type Status string

const (
	StatusDraft          Status = "DRAFT"
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusPaid           Status = "PAID"
	StatusPublished      Status = "PUBLISHED"
	StatusExpired        Status = "EXPIRED"
)

var transitions = map[Status][]Status{
	StatusDraft:          {StatusPendingPayment},
	StatusPendingPayment: {StatusPaid, StatusDraft},
	StatusPaid:           {StatusPublished, StatusDraft},
	StatusPublished:      {StatusExpired},
}

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPendingPayment, StatusPaid, StatusPublished, StatusExpired:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition validates the edge from -> to.
func Transition(from, to Status) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("vacancy %s -> %s: %w", from, to, sentinel.ErrInvalidState)
	}
	return nil
}

// PublicationType is the paid tier a vacancy is published under.
type PublicationType string

const (
	PublicationStandard     PublicationType = "STANDARD"
	PublicationStandardPlus PublicationType = "STANDARD_PLUS"
	PublicationPremium      PublicationType = "PREMIUM"
)

func (t PublicationType) IsValid() bool {
	switch t {
	case PublicationStandard, PublicationStandardPlus, PublicationPremium:
		return true
	}
	return false
}
