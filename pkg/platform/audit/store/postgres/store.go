package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	audit "github.com/DaniilOrchikov/blps-l1/pkg/platform/audit"
	txcontext "github.com/DaniilOrchikov/blps-l1/pkg/platform/tx"
)

// Store persists audit events in the audit_events table. Appends join the
// transaction carried by ctx, so an event written inside a workflow step
// disappears with it on rollback.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	attrs, err := json.Marshal(event.Attributes)
	if err != nil {
		return fmt.Errorf("marshal audit attributes: %w", err)
	}

	query := `
		INSERT INTO audit_events (id, occurred_at, action, subject, actor, reason, request_id, attributes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		event.Timestamp,
		event.Action,
		event.Subject,
		event.Actor,
		event.Reason,
		event.RequestID,
		attrs,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) ListBySubject(ctx context.Context, subject string) ([]audit.Event, error) {
	query := `
		SELECT id, occurred_at, action, subject, actor, reason, request_id, attributes
		FROM audit_events
		WHERE subject = $1
		ORDER BY occurred_at ASC
	`
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, subject)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			event audit.Event
			attrs []byte
		)
		if err := rows.Scan(&event.ID, &event.Timestamp, &event.Action, &event.Subject,
			&event.Actor, &event.Reason, &event.RequestID, &attrs); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if len(attrs) > 0 {
			if err := json.Unmarshal(attrs, &event.Attributes); err != nil {
				return nil, fmt.Errorf("unmarshal audit attributes: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
