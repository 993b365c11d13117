// Package gateway executes charges and refunds against one of two backends:
// the payer's personal balance or an external card processor. Every attempt
// is settled on the payment record so the ledger always shows the outcome.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/DaniilOrchikov/blps-l1/internal/account"
	"github.com/DaniilOrchikov/blps-l1/internal/payment/models"
	id "github.com/DaniilOrchikov/blps-l1/pkg/domain"
	dErrors "github.com/DaniilOrchikov/blps-l1/pkg/domain-errors"
	"github.com/DaniilOrchikov/blps-l1/pkg/platform/sentinel"
	"github.com/DaniilOrchikov/blps-l1/pkg/requestcontext"
)

type PaymentStore interface {
	Save(ctx context.Context, p *models.Payment) error
	FindByID(ctx context.Context, paymentID id.PaymentID) (*models.Payment, error)
}

type BalanceStore interface {
	Balance(ctx context.Context, username string) (decimal.Decimal, error)
	Deposit(ctx context.Context, username string, amount decimal.Decimal) error
	Withdraw(ctx context.Context, username string, amount decimal.Decimal) error
}

// CardProcessor is the external card acquirer. false means declined.
type CardProcessor interface {
	Charge(ctx context.Context, amount decimal.Decimal) (bool, error)
}

type Gateway struct {
	payments PaymentStore
	balances BalanceStore
	cards    CardProcessor
	logger   *slog.Logger
}

type Option func(*Gateway)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

func New(payments PaymentStore, balances BalanceStore, cards CardProcessor, opts ...Option) (*Gateway, error) {
	if payments == nil {
		return nil, errors.New("payment store is required")
	}
	if balances == nil {
		return nil, errors.New("balance store is required")
	}
	if cards == nil {
		return nil, errors.New("card processor is required")
	}
	g := &Gateway{payments: payments, balances: balances, cards: cards}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g, nil
}

// Charge takes amount from payer through method and settles the PENDING
// payment paymentID. A decline or insufficient balance yields false with no
// error; infrastructure failures are returned after the payment is marked FAILED.
func (g *Gateway) Charge(ctx context.Context, method models.Method, payer string, paymentID id.PaymentID, amount decimal.Decimal) (bool, error) {
	payment, err := g.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, dErrors.Wrap(err, dErrors.CodeNotFound, "payment not found")
		}
		return false, fmt.Errorf("load payment: %w", err)
	}

	if payment.Status != models.StatusPending {
		return false, dErrors.Wrap(sentinel.ErrInvalidState, dErrors.CodeInvalidState, "payment already settled")
	}

	ok, chargeErr := g.charge(ctx, method, payer, amount)

	if err := payment.Settle(ok, requestcontext.Now(ctx)); err != nil {
		return false, err
	}
	if err := g.payments.Save(ctx, payment); err != nil {
		saveErr := errors.Join(chargeErr, fmt.Errorf("save settled payment: %w", err))
		if ok {
			// the ledger cannot show COMPLETED, so the money goes back
			if reverseErr := g.reverse(ctx, method, payer, amount); reverseErr != nil {
				g.logger.ErrorContext(ctx, "charge reversal failed",
					"payment_id", paymentID,
					"method", method,
					"error", reverseErr,
				)
				return false, errors.Join(saveErr, reverseErr)
			}
		}
		return false, saveErr
	}

	if chargeErr != nil {
		g.logger.ErrorContext(ctx, "charge failed",
			"payment_id", paymentID,
			"method", method,
			"error", chargeErr,
		)
		return false, chargeErr
	}
	g.logger.InfoContext(ctx, "charge settled",
		"payment_id", paymentID,
		"method", method,
		"amount", amount.String(),
		"approved", ok,
	)
	return ok, nil
}

func (g *Gateway) charge(ctx context.Context, method models.Method, payer string, amount decimal.Decimal) (bool, error) {
	switch method {
	case models.MethodBalance:
		err := g.balances.Withdraw(ctx, payer, amount)
		if errors.Is(err, account.ErrInsufficientFunds) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("withdraw balance: %w", err)
		}
		return true, nil
	case models.MethodCard:
		ok, err := g.cards.Charge(ctx, amount)
		if err != nil {
			return false, fmt.Errorf("card charge: %w", err)
		}
		return ok, nil
	default:
		return false, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unsupported payment method %q", method))
	}
}

// reverse undoes a charge that never reached the ledger. Card captures are
// not held by this system, so only balance withdrawals are credited back.
func (g *Gateway) reverse(ctx context.Context, method models.Method, payer string, amount decimal.Decimal) error {
	if method != models.MethodBalance {
		g.logger.WarnContext(ctx, "card capture not recorded in ledger",
			"payer", payer,
			"amount", amount.String(),
		)
		return nil
	}
	if err := g.balances.Deposit(ctx, payer, amount); err != nil {
		return fmt.Errorf("reverse withdrawal: %w", err)
	}
	return nil
}

// Refund returns a COMPLETED payment to the payer and marks it REFUNDED.
// Payments in any other status are left alone and false is returned.
func (g *Gateway) Refund(ctx context.Context, paymentID id.PaymentID) (bool, error) {
	payment, err := g.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, dErrors.Wrap(err, dErrors.CodeNotFound, "payment not found")
		}
		return false, fmt.Errorf("load payment: %w", err)
	}
	if payment.Status != models.StatusCompleted {
		return false, nil
	}

	if payment.Method == models.MethodBalance {
		if err := g.balances.Deposit(ctx, payment.Payer, payment.Amount); err != nil {
			return false, fmt.Errorf("credit balance: %w", err)
		}
	}
	if err := payment.MarkRefunded(requestcontext.Now(ctx)); err != nil {
		return false, err
	}
	if err := g.payments.Save(ctx, payment); err != nil {
		return false, fmt.Errorf("save refunded payment: %w", err)
	}

	g.logger.InfoContext(ctx, "payment refunded",
		"payment_id", paymentID,
		"method", payment.Method,
		"amount", payment.Amount.String(),
	)
	return true, nil
}

// TopUp credits the personal account. The top-up source is a stub that always succeeds.
func (g *Gateway) TopUp(ctx context.Context, username string, amount decimal.Decimal) (decimal.Decimal, error) {
	if username == "" {
		return decimal.Zero, dErrors.New(dErrors.CodeValidation, "username is required")
	}
	if err := g.balances.Deposit(ctx, username, amount); err != nil {
		return decimal.Zero, err
	}
	return g.balances.Balance(ctx, username)
}

func (g *Gateway) Balance(ctx context.Context, username string) (decimal.Decimal, error) {
	if username == "" {
		return decimal.Zero, dErrors.New(dErrors.CodeValidation, "username is required")
	}
	return g.balances.Balance(ctx, username)
}
