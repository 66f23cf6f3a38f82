// Package usage provides usage event types.
// Events are immutable value types; all functions are pure.
package usage

import "time"

// Event represents a single successful consumption (immutable value type).
// Events are only ever inserted or deleted (on refund), never mutated.
type Event struct {
	ID        string
	AccountID string
	Action    string
	Meta      map[string]string
	CreatedAt time.Time
}

// DefaultAction is used when callers do not name the billable action.
const DefaultAction = "playlist.generate"

// NewEvent creates a usage event for a consumption.
func NewEvent(id, accountID, action string, meta map[string]string, at time.Time) Event {
	if action == "" {
		action = DefaultAction
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return Event{
		ID:        id,
		AccountID: accountID,
		Action:    action,
		Meta:      meta,
		CreatedAt: at,
	}
}
