// Package account holds per-user prepaid balances used by the BALANCE payment
// method. Balances never go negative: a withdrawal larger than the balance
// fails with ErrInsufficientFunds and changes nothing.
package account

import (
	"errors"

	"github.com/shopspring/decimal"

	dErrors "github.com/DaniilOrchikov/blps-l1/pkg/domain-errors"
)

// ErrInsufficientFunds is returned by Withdraw when the balance is too low.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ValidateAmount rejects zero and negative amounts.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	return nil
}
