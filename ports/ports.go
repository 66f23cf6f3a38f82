// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/mixwave/quotagate/domain/usage"
)

// -----------------------------------------------------------------------------
// Store Errors
// -----------------------------------------------------------------------------

// ErrNotFound is returned when an entity is not found.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique constraint is violated.
var ErrDuplicate = errors.New("already exists")

// ErrStale is returned by a conditional update when the row's observed
// state changed since it was read (a concurrent writer won the race).
var ErrStale = errors.New("stale usage count")

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// Hasher provides token hashing for the admin surface.
type Hasher interface {
	// Hash generates a hash from a plaintext value.
	Hash(plaintext string) ([]byte, error)

	// Compare checks if plaintext matches hash.
	Compare(hash []byte, plaintext string) bool
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// Account is the single authoritative record for an identity.
type Account struct {
	ID         string
	Email      string
	Plan       string
	UsageCount int64
	// MaxUses is an explicit quota override. nil means "use the plan's
	// default or unlimited"; a positive value caps even unlimited plans.
	MaxUses          *int64
	Handle           string
	FounderCandidate bool
	MarketingOptIn   bool
	LastActionAt     *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PlanUpdate describes a plan transition applied by UpdatePlan.
// Nil flag pointers leave the stored flag untouched.
type PlanUpdate struct {
	Plan             string
	MaxUses          *int64
	ClearMaxUses     bool
	FounderCandidate *bool
	MarketingOptIn   *bool
}

// AccountStore persists accounts. It is the only writer of usage_count.
type AccountStore interface {
	// Get retrieves an account by ID.
	Get(ctx context.Context, id string) (Account, error)

	// GetByEmail retrieves an account by normalized email.
	GetByEmail(ctx context.Context, email string) (Account, error)

	// Create stores a new account. Returns ErrDuplicate when the id or
	// email already exists, so callers can re-read the row that won.
	Create(ctx context.Context, a Account) error

	// Update modifies mutable metadata (handle, flags). Does not touch
	// usage_count.
	Update(ctx context.Context, a Account) error

	// IncrementUsage conditionally bumps usage_count by one: the update
	// only applies while the stored count still equals expected. Returns
	// ErrStale when zero rows were affected. Stamps last_action_at.
	IncrementUsage(ctx context.Context, id string, expected int64, at time.Time) error

	// DecrementUsage unconditionally lowers usage_count by one, floored
	// at zero, and returns the new count.
	DecrementUsage(ctx context.Context, id string) (int64, error)

	// UpdatePlan applies a plan transition.
	UpdatePlan(ctx context.Context, id string, upd PlanUpdate, at time.Time) error
}

// UsageEventStore persists the append-only consumption audit trail.
type UsageEventStore interface {
	// Insert stores a new usage event.
	Insert(ctx context.Context, e usage.Event) error

	// Delete removes an event by ID (refund). Returns ErrNotFound when
	// the event does not exist.
	Delete(ctx context.Context, id string) error

	// ListByAccount returns recent events for an account, newest first.
	ListByAccount(ctx context.Context, accountID string, limit int) ([]usage.Event, error)
}
