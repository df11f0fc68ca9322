package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
)

// PostgresStore persists audit events durably. Append-only: there is no
// update or delete path.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id        UUID PRIMARY KEY,
	type      TEXT NOT NULL,
	actor     TEXT NOT NULL,
	record_id BIGINT NOT NULL DEFAULT 0,
	detail    TEXT NOT NULL DEFAULT '',
	ts        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_events_record ON audit_events (record_id, ts);
`

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, auditSchema); err != nil {
		return fmt.Errorf("ensure audit_events schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, type, actor, record_id, detail, ts)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.ID, string(event.Type), event.Actor.String(), uint64(event.RecordID), event.Detail, event.Timestamp)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByRecord(ctx context.Context, id domain.RecordID) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, actor, record_id, detail, ts
		FROM audit_events WHERE record_id = $1 ORDER BY ts
	`, uint64(id))
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event      Event
			eventID    uuid.UUID
			typ, actor string
			recordID   uint64
		)
		if err := rows.Scan(&eventID, &typ, &actor, &recordID, &event.Detail, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.ID = eventID
		event.Type = EventType(typ)
		event.Actor = domain.Principal(actor)
		event.RecordID = domain.RecordID(recordID)
		events = append(events, event)
	}
	return events, rows.Err()
}
