package app_test

import (
	"context"
	"errors"
	"time"

	"github.com/mixwave/quotagate/adapters/memory"
	"github.com/mixwave/quotagate/ports"
)

var errStoreDown = errors.New("store down")

// failingAccountStore wraps the memory store and fails selected
// operations on demand.
type failingAccountStore struct {
	*memory.AccountStore
	failIncrement bool
	failGet       bool
}

func (s *failingAccountStore) Get(ctx context.Context, id string) (ports.Account, error) {
	if s.failGet {
		return ports.Account{}, errStoreDown
	}
	return s.AccountStore.Get(ctx, id)
}

func (s *failingAccountStore) IncrementUsage(ctx context.Context, id string, expected int64, at time.Time) error {
	if s.failIncrement {
		return errStoreDown
	}
	return s.AccountStore.IncrementUsage(ctx, id, expected, at)
}

// staleAccountStore loses the first staleWrites conditional updates, as
// if a concurrent writer kept winning.
type staleAccountStore struct {
	*memory.AccountStore
	staleWrites int
}

func (s *staleAccountStore) IncrementUsage(ctx context.Context, id string, expected int64, at time.Time) error {
	if s.staleWrites > 0 {
		s.staleWrites--
		return ports.ErrStale
	}
	return s.AccountStore.IncrementUsage(ctx, id, expected, at)
}

// countingAccountStore counts usage increments, for charge-once checks.
type countingAccountStore struct {
	*memory.AccountStore
	increments int
}

func (s *countingAccountStore) IncrementUsage(ctx context.Context, id string, expected int64, at time.Time) error {
	s.increments++
	return s.AccountStore.IncrementUsage(ctx, id, expected, at)
}
