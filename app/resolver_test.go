package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mixwave/quotagate/adapters/clock"
	"github.com/mixwave/quotagate/adapters/idgen"
	"github.com/mixwave/quotagate/adapters/memory"
	"github.com/mixwave/quotagate/app"
	"github.com/mixwave/quotagate/domain/plan"
	"github.com/mixwave/quotagate/ports"
)

func newResolver(accounts ports.AccountStore) *app.Resolver {
	return app.NewResolver(app.ResolverConfig{
		Accounts: accounts,
		IDs:      idgen.NewSequential("acc-"),
		Clock:    clock.NewFake(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)),
		Logger:   zerolog.Nop(),
	})
}

func TestResolveCreatesOnFirstSight(t *testing.T) {
	store := memory.NewAccountStore()
	r := newResolver(store)
	ctx := context.Background()

	a, err := r.Resolve(ctx, app.Identity{Email: "New.Fan@Example.com"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if a.Email != "new.fan@example.com" {
		t.Errorf("Email = %s, want normalized", a.Email)
	}
	if a.Plan != plan.Free || a.UsageCount != 0 || a.MaxUses != nil {
		t.Errorf("new account = %+v", a)
	}
	if a.Handle != "new.fan" {
		t.Errorf("Handle = %s, want new.fan", a.Handle)
	}
}

func TestResolveIDTakesPrecedence(t *testing.T) {
	store := memory.NewAccountStore()
	ctx := context.Background()

	store.Create(ctx, ports.Account{ID: "acc-a", Email: "a@example.com", Plan: "free", Handle: "a"})
	store.Create(ctx, ports.Account{ID: "acc-b", Email: "b@example.com", Plan: "free", Handle: "b"})

	r := newResolver(store)
	a, err := r.Resolve(ctx, app.Identity{ID: "acc-a", Email: "b@example.com"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if a.ID != "acc-a" {
		t.Errorf("resolved %s, want acc-a (id precedence)", a.ID)
	}
}

func TestResolveIdentityMissing(t *testing.T) {
	r := newResolver(memory.NewAccountStore())

	_, err := r.Resolve(context.Background(), app.Identity{Email: "   "})
	if err == nil || app.ReasonOf(err) != app.ReasonIdentityMissing {
		t.Errorf("err = %v, want identity_missing", err)
	}
}

func TestResolveIDOnlyUnknown(t *testing.T) {
	r := newResolver(memory.NewAccountStore())

	// The caller did supply an id; a well-formed request for an account
	// that does not exist must not look like a malformed one.
	_, err := r.Resolve(context.Background(), app.Identity{ID: "ghost"})
	if err == nil {
		t.Fatal("expected error for unknown id-only identity")
	}
	if got := app.ReasonOf(err); got != app.ReasonAccountNotFound {
		t.Errorf("reason = %s, want account_not_found", got)
	}
}

func TestResolveReturnsBackfilledHandle(t *testing.T) {
	store := memory.NewAccountStore()
	ctx := context.Background()

	store.Create(ctx, ports.Account{ID: "acc-old", Email: "early.bird@example.com", Plan: "free"})

	r := newResolver(store)
	a, err := r.Resolve(ctx, app.Identity{ID: "acc-old"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// The resolving request must see the derived handle, not just the
	// async store write.
	if a.Handle != "early.bird" {
		t.Errorf("Handle = %q, want early.bird", a.Handle)
	}
}

// raceCreateStore simulates losing a first-request race: Create always
// reports a duplicate, and the "winning" row appears on the re-read.
type raceCreateStore struct {
	*memory.AccountStore
	winner ports.Account
	raced  bool
}

func (s *raceCreateStore) Create(ctx context.Context, a ports.Account) error {
	if !s.raced {
		s.raced = true
		s.AccountStore.Create(ctx, s.winner)
		return ports.ErrDuplicate
	}
	return s.AccountStore.Create(ctx, a)
}

func TestResolveDuplicateRaceReturnsWinner(t *testing.T) {
	store := &raceCreateStore{
		AccountStore: memory.NewAccountStore(),
		winner: ports.Account{
			ID:    "acc-winner",
			Email: "race@example.com",
			Plan:  "free",
		},
	}
	r := newResolver(store)

	a, err := r.Resolve(context.Background(), app.Identity{Email: "race@example.com"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if a.ID != "acc-winner" {
		t.Errorf("resolved %s, want the row that won the race", a.ID)
	}
}
