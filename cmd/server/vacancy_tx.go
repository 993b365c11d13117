package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	vacancyservice "github.com/DaniilOrchikov/blps-l1/internal/vacancy/service"
	dErrors "github.com/DaniilOrchikov/blps-l1/pkg/domain-errors"
	txcontext "github.com/DaniilOrchikov/blps-l1/pkg/platform/tx"
)

var _ vacancyservice.VacancyTx = (*vacancyPostgresTx)(nil)

// vacancyPostgresTx runs a workflow step in one sql.Tx. Stores pick the tx up
// from ctx, so vacancy, payment and balance writes commit or roll back together.
type vacancyPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newVacancyPostgresTx(db *sql.DB) *vacancyPostgresTx {
	return &vacancyPostgresTx{db: db}
}

func (t *vacancyPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	// nested boundaries join the outer tx
	if _, ok := txcontext.From(ctx); ok {
		return fn(ctx)
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = vacancyservice.DefaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
