package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/DaniilOrchikov/blps-l1/internal/vacancy/models"
	id "github.com/DaniilOrchikov/blps-l1/pkg/domain"
	"github.com/DaniilOrchikov/blps-l1/pkg/platform/sentinel"
	txcontext "github.com/DaniilOrchikov/blps-l1/pkg/platform/tx"
)

// PostgresStore persists vacancies. Inside a transaction FindByID locks the
// row (SELECT ... FOR UPDATE) so concurrent workflow steps on one vacancy
// serialize on the database.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const vacancyColumns = `
	id, owner, title, code, specialization, description, skills,
	employment_type, work_format, experience, salary_from, salary_to,
	contact_name, contact_email, contact_phone,
	status, publication_type, publish_on_external_board, cities, requested_publish_time,
	published_at, expires_at, promotion_score, last_promotion_update, created_at`

func (s *PostgresStore) Save(ctx context.Context, v *models.Vacancy) error {
	query := `
		INSERT INTO vacancies (` + vacancyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			code = EXCLUDED.code,
			specialization = EXCLUDED.specialization,
			description = EXCLUDED.description,
			skills = EXCLUDED.skills,
			employment_type = EXCLUDED.employment_type,
			work_format = EXCLUDED.work_format,
			experience = EXCLUDED.experience,
			salary_from = EXCLUDED.salary_from,
			salary_to = EXCLUDED.salary_to,
			contact_name = EXCLUDED.contact_name,
			contact_email = EXCLUDED.contact_email,
			contact_phone = EXCLUDED.contact_phone,
			status = EXCLUDED.status,
			publication_type = EXCLUDED.publication_type,
			publish_on_external_board = EXCLUDED.publish_on_external_board,
			cities = EXCLUDED.cities,
			requested_publish_time = EXCLUDED.requested_publish_time,
			published_at = EXCLUDED.published_at,
			expires_at = EXCLUDED.expires_at,
			promotion_score = EXCLUDED.promotion_score,
			last_promotion_update = EXCLUDED.last_promotion_update
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(v.ID),
		v.Owner,
		v.Title,
		v.Code,
		v.Specialization,
		v.Description,
		pq.StringArray(nonNil(v.Skills)),
		v.EmploymentType,
		v.WorkFormat,
		v.Experience,
		v.SalaryFrom,
		v.SalaryTo,
		v.ContactName,
		v.ContactEmail,
		v.ContactPhone,
		string(v.Status),
		string(v.PublicationType),
		v.PublishOnExternalBoard,
		pq.StringArray(nonNil(v.Cities)),
		v.RequestedPublishTime,
		v.PublishedAt,
		v.ExpiresAt,
		v.PromotionScore,
		v.LastPromotionUpdate,
		v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save vacancy: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, vacancyID id.VacancyID) (*models.Vacancy, error) {
	query := `SELECT ` + vacancyColumns + ` FROM vacancies WHERE id = $1`
	if _, inTx := txcontext.From(ctx); inTx {
		query += ` FOR UPDATE`
	}
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, uuid.UUID(vacancyID))
	if err != nil {
		return nil, fmt.Errorf("find vacancy: %w", err)
	}
	list, err := scanVacancies(rows)
	if err != nil {
		return nil, fmt.Errorf("find vacancy: %w", err)
	}
	if len(list) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return list[0], nil
}

func (s *PostgresStore) FindByStatus(ctx context.Context, status models.Status) ([]*models.Vacancy, error) {
	return s.list(ctx, "find vacancies by status",
		`WHERE status = $1 ORDER BY created_at, id`, string(status))
}

func (s *PostgresStore) FindByTierAndStatus(ctx context.Context, tier models.PublicationType, status models.Status) ([]*models.Vacancy, error) {
	return s.list(ctx, "find vacancies by tier",
		`WHERE publication_type = $1 AND status = $2 ORDER BY created_at, id`, string(tier), string(status))
}

func (s *PostgresStore) ListOrderedByScore(ctx context.Context) ([]*models.Vacancy, error) {
	return s.list(ctx, "list vacancies by score",
		`ORDER BY promotion_score DESC, created_at, id`)
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner string) ([]*models.Vacancy, error) {
	return s.list(ctx, "list vacancies by owner",
		`WHERE owner = $1 ORDER BY created_at, id`, owner)
}

func (s *PostgresStore) list(ctx context.Context, op, clause string, args ...any) ([]*models.Vacancy, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, `SELECT `+vacancyColumns+` FROM vacancies `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	list, err := scanVacancies(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

func scanVacancies(rows *sql.Rows) ([]*models.Vacancy, error) {
	defer rows.Close()

	var out []*models.Vacancy
	for rows.Next() {
		var (
			v                     models.Vacancy
			vacancyID             uuid.UUID
			skills, cities        pq.StringArray
			status, tier          string
			salaryFrom, salaryTo  sql.NullInt64
			requested, published  sql.NullTime
			expires, lastPromoted sql.NullTime
		)
		err := rows.Scan(
			&vacancyID, &v.Owner, &v.Title, &v.Code, &v.Specialization, &v.Description, &skills,
			&v.EmploymentType, &v.WorkFormat, &v.Experience, &salaryFrom, &salaryTo,
			&v.ContactName, &v.ContactEmail, &v.ContactPhone,
			&status, &tier, &v.PublishOnExternalBoard, &cities, &requested,
			&published, &expires, &v.PromotionScore, &lastPromoted, &v.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		v.ID = id.VacancyID(vacancyID)
		v.Status = models.Status(status)
		v.PublicationType = models.PublicationType(tier)
		v.Skills = emptyToNil(skills)
		v.Cities = emptyToNil(cities)
		v.SalaryFrom = intPtr(salaryFrom)
		v.SalaryTo = intPtr(salaryTo)
		v.RequestedPublishTime = timePtr(requested)
		v.PublishedAt = timePtr(published)
		v.ExpiresAt = timePtr(expires)
		v.LastPromotionUpdate = timePtr(lastPromoted)
		out = append(out, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func emptyToNil(s pq.StringArray) []string {
	if len(s) == 0 {
		return nil
	}
	return []string(s)
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
