package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/DaniilOrchikov/blps-l1/internal/vacancy/models"
	id "github.com/DaniilOrchikov/blps-l1/pkg/domain"
	"github.com/DaniilOrchikov/blps-l1/pkg/platform/sentinel"
)

// InMemory stores vacancies in process. It hands out copies so callers can
// mutate freely until they Save.
type InMemory struct {
	mu        sync.RWMutex
	vacancies map[id.VacancyID]*models.Vacancy
}

func NewInMemory() *InMemory {
	return &InMemory{vacancies: make(map[id.VacancyID]*models.Vacancy)}
}

func (s *InMemory) Save(_ context.Context, v *models.Vacancy) error {
	if v == nil {
		return fmt.Errorf("save vacancy: nil vacancy")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vacancies[v.ID] = v.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, vacancyID id.VacancyID) (*models.Vacancy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vacancies[vacancyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return v.Clone(), nil
}

func (s *InMemory) FindByStatus(_ context.Context, status models.Status) ([]*models.Vacancy, error) {
	return s.filter(func(v *models.Vacancy) bool {
		return v.Status == status
	}, byCreatedAt), nil
}

func (s *InMemory) FindByTierAndStatus(_ context.Context, tier models.PublicationType, status models.Status) ([]*models.Vacancy, error) {
	return s.filter(func(v *models.Vacancy) bool {
		return v.Status == status && v.PublicationType == tier
	}, byCreatedAt), nil
}

// ListOrderedByScore returns every vacancy, highest promotion score first.
func (s *InMemory) ListOrderedByScore(_ context.Context) ([]*models.Vacancy, error) {
	return s.filter(func(*models.Vacancy) bool { return true }, byScore), nil
}

func (s *InMemory) ListByOwner(_ context.Context, owner string) ([]*models.Vacancy, error) {
	return s.filter(func(v *models.Vacancy) bool {
		return v.Owner == owner
	}, byCreatedAt), nil
}

func (s *InMemory) filter(keep func(*models.Vacancy) bool, less func(a, b *models.Vacancy) bool) []*models.Vacancy {
	s.mu.RLock()
	out := make([]*models.Vacancy, 0, len(s.vacancies))
	for _, v := range s.vacancies {
		if keep(v) {
			out = append(out, v.Clone())
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byCreatedAt(a, b *models.Vacancy) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

func byScore(a, b *models.Vacancy) bool {
	if a.PromotionScore != b.PromotionScore {
		return a.PromotionScore > b.PromotionScore
	}
	return byCreatedAt(a, b)
}
