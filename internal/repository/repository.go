package repository

import (
	"context"
	"database/sql"

	"payment-bridge-service/internal/entity"
)

// WebhookEventRepository persists the audit trail of inbound events. Writes
// are best-effort; the request pipeline never depends on them.
type WebhookEventRepository struct {
	db *sql.DB
}

func NewWebhookEventRepository(db *sql.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

func (r *WebhookEventRepository) Record(ctx context.Context, ev *entity.WebhookEvent) error {
	query := `INSERT INTO webhook_events (provider, event_id, event_type, payload, signature_valid, outcome_code, processing_error) VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, ev.Provider, ev.EventID, ev.EventType, ev.Payload, ev.SignatureValid, ev.OutcomeCode, ev.ProcessingError)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = id
	return nil
}

// RecentByEventID returns the most recent audit rows for one event id,
// newest first.
func (r *WebhookEventRepository) RecentByEventID(ctx context.Context, eventID string, limit int) ([]entity.WebhookEvent, error) {
	query := `SELECT id, provider, event_id, event_type, payload, signature_valid, outcome_code, processing_error, created_at FROM webhook_events WHERE event_id = ? ORDER BY id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, eventID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.WebhookEvent
	for rows.Next() {
		ev := entity.WebhookEvent{}
		err := rows.Scan(&ev.ID, &ev.Provider, &ev.EventID, &ev.EventType, &ev.Payload, &ev.SignatureValid, &ev.OutcomeCode, &ev.ProcessingError, &ev.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
