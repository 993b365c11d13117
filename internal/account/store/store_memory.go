package store

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/DaniilOrchikov/blps-l1/internal/account"
)

// InMemory keeps balances in process. Each account has its own lock so
// withdrawals for different users never contend.
type InMemory struct {
	mu       sync.Mutex
	accounts map[string]*balance
}

type balance struct {
	mu     sync.Mutex
	amount decimal.Decimal
}

func NewInMemory() *InMemory {
	return &InMemory{accounts: make(map[string]*balance)}
}

func (s *InMemory) account(username string) *balance {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.accounts[username]
	if !ok {
		b = &balance{amount: decimal.Zero}
		s.accounts[username] = b
	}
	return b
}

// Balance returns zero for accounts that were never credited.
func (s *InMemory) Balance(_ context.Context, username string) (decimal.Decimal, error) {
	b := s.account(username)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.amount, nil
}

func (s *InMemory) Deposit(_ context.Context, username string, amount decimal.Decimal) error {
	if err := account.ValidateAmount(amount); err != nil {
		return err
	}
	b := s.account(username)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.amount = b.amount.Add(amount)
	return nil
}

func (s *InMemory) Withdraw(_ context.Context, username string, amount decimal.Decimal) error {
	if err := account.ValidateAmount(amount); err != nil {
		return err
	}
	b := s.account(username)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.amount.LessThan(amount) {
		return account.ErrInsufficientFunds
	}
	b.amount = b.amount.Sub(amount)
	return nil
}
