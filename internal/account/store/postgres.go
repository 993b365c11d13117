package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/DaniilOrchikov/blps-l1/internal/account"
	txcontext "github.com/DaniilOrchikov/blps-l1/pkg/platform/tx"
)

// PostgresStore keeps balances in personal_accounts. Withdraw is a single
// conditional UPDATE, so concurrent withdrawals serialize on the row lock.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Balance(ctx context.Context, username string) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT balance FROM personal_accounts WHERE username = $1`, username).Scan(&amount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("read balance: %w", err)
	}
	return amount, nil
}

func (s *PostgresStore) Deposit(ctx context.Context, username string, amount decimal.Decimal) error {
	if err := account.ValidateAmount(amount); err != nil {
		return err
	}
	query := `
		INSERT INTO personal_accounts (username, balance)
		VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET
			balance = personal_accounts.balance + EXCLUDED.balance
	`
	if _, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query, username, amount); err != nil {
		return fmt.Errorf("deposit: %w", err)
	}
	return nil
}

func (s *PostgresStore) Withdraw(ctx context.Context, username string, amount decimal.Decimal) error {
	if err := account.ValidateAmount(amount); err != nil {
		return err
	}
	query := `
		UPDATE personal_accounts
		SET balance = balance - $2
		WHERE username = $1 AND balance >= $2
	`
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query, username, amount)
	if err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("withdraw rows affected: %w", err)
	}
	if n == 0 {
		return account.ErrInsufficientFunds
	}
	return nil
}
