// Package memory provides in-memory implementations of storage ports,
// used by tests and local single-process runs. Semantics mirror the
// sqlite adapter, including conditional-update behavior.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mixwave/quotagate/ports"
)

// AccountStore is an in-memory implementation of ports.AccountStore.
type AccountStore struct {
	mu       sync.RWMutex
	byID     map[string]ports.Account
	idByMail map[string]string // normalized email -> id
}

// NewAccountStore creates a new in-memory account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		byID:     make(map[string]ports.Account),
		idByMail: make(map[string]string),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Get retrieves an account by ID.
func (s *AccountStore) Get(ctx context.Context, id string) (ports.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[id]
	if !ok {
		return ports.Account{}, ports.ErrNotFound
	}
	return a, nil
}

// GetByEmail retrieves an account by email (case-insensitive).
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (ports.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.idByMail[normalizeEmail(email)]
	if !ok {
		return ports.Account{}, ports.ErrNotFound
	}
	return s.byID[id], nil
}

// Create stores a new account.
func (s *AccountStore) Create(ctx context.Context, a ports.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mail := normalizeEmail(a.Email)
	if _, ok := s.byID[a.ID]; ok {
		return ports.ErrDuplicate
	}
	if _, ok := s.idByMail[mail]; ok {
		return ports.ErrDuplicate
	}

	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}

	s.byID[a.ID] = a
	s.idByMail[mail] = a.ID
	return nil
}

// Update modifies mutable account metadata.
func (s *AccountStore) Update(ctx context.Context, a ports.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byID[a.ID]
	if !ok {
		return ports.ErrNotFound
	}

	mail := normalizeEmail(a.Email)
	if id, taken := s.idByMail[mail]; taken && id != a.ID {
		return ports.ErrDuplicate
	}
	delete(s.idByMail, normalizeEmail(cur.Email))
	s.idByMail[mail] = a.ID

	cur.Email = a.Email
	cur.Handle = a.Handle
	cur.FounderCandidate = a.FounderCandidate
	cur.MarketingOptIn = a.MarketingOptIn
	cur.UpdatedAt = time.Now().UTC()
	s.byID[a.ID] = cur
	return nil
}

// IncrementUsage conditionally bumps usage_count by one.
func (s *AccountStore) IncrementUsage(ctx context.Context, id string, expected int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return ports.ErrNotFound
	}
	if a.UsageCount != expected {
		return ports.ErrStale
	}

	a.UsageCount++
	t := at
	a.LastActionAt = &t
	a.UpdatedAt = at
	s.byID[id] = a
	return nil
}

// DecrementUsage lowers usage_count by one, floored at zero.
func (s *AccountStore) DecrementUsage(ctx context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return 0, ports.ErrNotFound
	}
	if a.UsageCount > 0 {
		a.UsageCount--
	}
	a.UpdatedAt = time.Now().UTC()
	s.byID[id] = a
	return a.UsageCount, nil
}

// UpdatePlan applies a plan transition.
func (s *AccountStore) UpdatePlan(ctx context.Context, id string, upd ports.PlanUpdate, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return ports.ErrNotFound
	}

	a.Plan = upd.Plan
	if upd.ClearMaxUses {
		a.MaxUses = nil
	} else if upd.MaxUses != nil {
		v := *upd.MaxUses
		a.MaxUses = &v
	}
	if upd.FounderCandidate != nil {
		a.FounderCandidate = *upd.FounderCandidate
	}
	if upd.MarketingOptIn != nil {
		a.MarketingOptIn = *upd.MarketingOptIn
	}
	a.UpdatedAt = at
	s.byID[id] = a
	return nil
}

// Len returns the number of stored accounts (for testing).
func (s *AccountStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Ensure interface compliance.
var _ ports.AccountStore = (*AccountStore)(nil)
