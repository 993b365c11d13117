package gateway

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// StubCardProcessor approves every charge unless told otherwise.
type StubCardProcessor struct {
	declineAll bool

	mu       sync.Mutex
	declined []decimal.Decimal
	charged  []decimal.Decimal
}

type StubOption func(*StubCardProcessor)

func WithDeclineAll() StubOption {
	return func(p *StubCardProcessor) {
		p.declineAll = true
	}
}

// WithDeclinedAmounts declines charges for exactly these amounts.
func WithDeclinedAmounts(amounts ...decimal.Decimal) StubOption {
	return func(p *StubCardProcessor) {
		p.declined = append(p.declined, amounts...)
	}
}

func NewStubCardProcessor(opts ...StubOption) *StubCardProcessor {
	p := &StubCardProcessor{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *StubCardProcessor) Charge(ctx context.Context, amount decimal.Decimal) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if p.declineAll {
		return false, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, d := range p.declined {
		if d.Equal(amount) {
			return false, nil
		}
	}
	p.charged = append(p.charged, amount)
	return true, nil
}

// Charged lists the approved amounts in order.
func (p *StubCardProcessor) Charged() []decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]decimal.Decimal(nil), p.charged...)
}
