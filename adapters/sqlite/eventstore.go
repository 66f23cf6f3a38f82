package sqlite

import (
	"context"
	"encoding/json"

	"github.com/mixwave/quotagate/domain/usage"
	"github.com/mixwave/quotagate/ports"
)

// UsageEventStore implements ports.UsageEventStore using SQLite.
type UsageEventStore struct {
	db *DB
}

// NewUsageEventStore creates a new SQLite usage event store.
func NewUsageEventStore(db *DB) *UsageEventStore {
	return &UsageEventStore{db: db}
}

// Insert stores a new usage event.
func (s *UsageEventStore) Insert(ctx context.Context, e usage.Event) error {
	meta := "{}"
	if len(e.Meta) > 0 {
		b, err := json.Marshal(e.Meta)
		if err != nil {
			return err
		}
		meta = string(b)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_events (id, account_id, action, meta, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.ID, e.AccountID, e.Action, meta, e.CreatedAt)

	if err != nil && isUniqueConstraintError(err) {
		return ports.ErrDuplicate
	}
	return err
}

// Delete removes an event by ID.
func (s *UsageEventStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM usage_events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// ListByAccount returns recent events for an account, newest first.
func (s *UsageEventStore) ListByAccount(ctx context.Context, accountID string, limit int) ([]usage.Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, action, meta, created_at
		FROM usage_events
		WHERE account_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []usage.Event
	for rows.Next() {
		var e usage.Event
		var meta string
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Action, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		if meta != "" && meta != "{}" {
			if err := json.Unmarshal([]byte(meta), &e.Meta); err != nil {
				return nil, err
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Ensure interface compliance.
var _ ports.UsageEventStore = (*UsageEventStore)(nil)
