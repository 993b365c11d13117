package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/DaniilOrchikov/blps-l1/internal/payment/models"
	id "github.com/DaniilOrchikov/blps-l1/pkg/domain"
	"github.com/DaniilOrchikov/blps-l1/pkg/platform/sentinel"
	txcontext "github.com/DaniilOrchikov/blps-l1/pkg/platform/tx"
)

// PostgresStore persists payments. Writes join the transaction carried by ctx.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const paymentColumns = `id, vacancy_id, payer, amount, method, status, created_at, processed_at`

func (s *PostgresStore) Save(ctx context.Context, p *models.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			processed_at = EXCLUDED.processed_at
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(p.ID),
		uuid.UUID(p.VacancyID),
		p.Payer,
		p.Amount,
		string(p.Method),
		string(p.Status),
		p.CreatedAt,
		p.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("save payment: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, paymentID id.PaymentID) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(paymentID))
	p, err := scanPayment(row)
	if err != nil {
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return p, nil
}

// FindLatestForVacancy orders by creation time, then insertion order, so
// payments stamped with the same request time still have a single latest.
func (s *PostgresStore) FindLatestForVacancy(ctx context.Context, vacancyID id.VacancyID) (*models.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE vacancy_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
	`
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(vacancyID))
	p, err := scanPayment(row)
	if err != nil {
		return nil, fmt.Errorf("find latest payment: %w", err)
	}
	return p, nil
}

func scanPayment(row *sql.Row) (*models.Payment, error) {
	var (
		p                    models.Payment
		paymentID, vacancyID uuid.UUID
		method, status       string
		processedAt          sql.NullTime
	)
	err := row.Scan(&paymentID, &vacancyID, &p.Payer, &p.Amount, &method, &status, &p.CreatedAt, &processedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	p.ID = id.PaymentID(paymentID)
	p.VacancyID = id.VacancyID(vacancyID)
	p.Method = models.Method(method)
	p.Status = models.Status(status)
	if processedAt.Valid {
		t := processedAt.Time
		p.ProcessedAt = &t
	}
	return &p, nil
}
