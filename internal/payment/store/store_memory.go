package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/DaniilOrchikov/blps-l1/internal/payment/models"
	id "github.com/DaniilOrchikov/blps-l1/pkg/domain"
	"github.com/DaniilOrchikov/blps-l1/pkg/platform/sentinel"
)

// InMemory is the payment ledger for single-process deployments and tests.
type InMemory struct {
	mu       sync.RWMutex
	payments map[id.PaymentID]*entry
	seq      uint64
}

// entry remembers insertion order so payments created within the same clock
// tick still have a well-defined latest.
type entry struct {
	payment *models.Payment
	seq     uint64
}

func NewInMemory() *InMemory {
	return &InMemory{payments: make(map[id.PaymentID]*entry)}
}

func (s *InMemory) Save(_ context.Context, p *models.Payment) error {
	if p == nil {
		return fmt.Errorf("save payment: nil payment")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.payments[p.ID]; ok {
		existing.payment = p.Clone()
		return nil
	}
	s.seq++
	s.payments[p.ID] = &entry{payment: p.Clone(), seq: s.seq}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, paymentID id.PaymentID) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.payments[paymentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return e.payment.Clone(), nil
}

// FindLatestForVacancy returns the most recently created payment for the vacancy.
func (s *InMemory) FindLatestForVacancy(_ context.Context, vacancyID id.VacancyID) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *entry
	for _, e := range s.payments {
		if e.payment.VacancyID != vacancyID {
			continue
		}
		if latest == nil || newer(e, latest) {
			latest = e
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return latest.payment.Clone(), nil
}

func newer(a, b *entry) bool {
	if !a.payment.CreatedAt.Equal(b.payment.CreatedAt) {
		return a.payment.CreatedAt.After(b.payment.CreatedAt)
	}
	return a.seq > b.seq
}
