package models

import "time"

// AuditEvent is the persisted form of one append-only audit record. The table
// has inserts only; no update or delete path exists in the repository.
type AuditEvent struct {
	EventID   string    `db:"event_id"`
	UserID    string    `db:"user_id"`
	Action    string    `db:"action"`
	Timestamp time.Time `db:"event_timestamp"`
	Entity    string    `db:"entity"`
	EntityID  string    `db:"entity_id"`
	OldValue  *string   `db:"old_value"`
	NewValue  *string   `db:"new_value"`
}
