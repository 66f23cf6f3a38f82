package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mixwave/quotagate/domain/plan"
	"github.com/mixwave/quotagate/ports"
)

// Resolver finds or lazily creates the authoritative account for an
// identity. Every other service goes through it.
type Resolver struct {
	accounts ports.AccountStore
	ids      ports.IDGenerator
	clock    ports.Clock
	logger   zerolog.Logger
}

// ResolverConfig contains dependencies for the resolver.
type ResolverConfig struct {
	Accounts ports.AccountStore
	IDs      ports.IDGenerator
	Clock    ports.Clock
	Logger   zerolog.Logger
}

// NewResolver creates a new account resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	return &Resolver{
		accounts: cfg.Accounts,
		ids:      cfg.IDs,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
	}
}

// Resolve looks up an account by id first, then by normalized email,
// creating it on first sight when an email is available. A duplicate-key
// race on creation is resolved by re-reading the row that won.
func (r *Resolver) Resolve(ctx context.Context, identity Identity) (ports.Account, error) {
	if identity.Empty() {
		return ports.Account{}, &Error{Reason: ReasonIdentityMissing}
	}

	if identity.ID != "" {
		a, err := r.accounts.Get(ctx, identity.ID)
		if err == nil {
			return r.backfillHandle(a), nil
		}
		if !errors.Is(err, ports.ErrNotFound) {
			return ports.Account{}, &Error{Reason: ReasonStoreUnavailable, Err: err}
		}
	}

	email := identity.NormalizedEmail()
	if email == "" {
		// ID-only identity with no row: there is no email to create an
		// account from, so the identity cannot be resolved.
		return ports.Account{}, &Error{Reason: ReasonAccountNotFound, Err: ports.ErrNotFound}
	}

	a, err := r.accounts.GetByEmail(ctx, email)
	if err == nil {
		return r.backfillHandle(a), nil
	}
	if !errors.Is(err, ports.ErrNotFound) {
		return ports.Account{}, &Error{Reason: ReasonStoreUnavailable, Err: err}
	}

	return r.create(ctx, identity, email)
}

func (r *Resolver) create(ctx context.Context, identity Identity, email string) (ports.Account, error) {
	id := identity.ID
	if id == "" {
		id = r.ids.New()
	}
	now := r.clock.Now()

	a := ports.Account{
		ID:        id,
		Email:     email,
		Plan:      plan.Free,
		Handle:    handleFromEmail(email),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.accounts.Create(ctx, a)
	if err == nil {
		r.logger.Info().Str("account_id", a.ID).Str("plan", a.Plan).Msg("account created")
		return a, nil
	}
	if !errors.Is(err, ports.ErrDuplicate) {
		return ports.Account{}, &Error{Reason: ReasonStoreUnavailable, Err: err}
	}

	// Lost a first-request race: the row that won is authoritative.
	won, err := r.accounts.GetByEmail(ctx, email)
	if err == nil {
		return won, nil
	}
	if identity.ID != "" {
		if won, err = r.accounts.Get(ctx, identity.ID); err == nil {
			return won, nil
		}
	}
	return ports.Account{}, &Error{Reason: ReasonStoreUnavailable, Err: err}
}

// backfillHandle fills a missing display handle and returns the patched
// account so the resolving request sees it. The store write happens
// best-effort off the request path; resolution never fails because of it.
func (r *Resolver) backfillHandle(a ports.Account) ports.Account {
	if a.Handle != "" || a.Email == "" {
		return a
	}
	a.Handle = handleFromEmail(a.Email)

	go func(a ports.Account) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.accounts.Update(ctx, a); err != nil {
			r.logger.Debug().Err(err).Str("account_id", a.ID).Msg("handle backfill skipped")
		}
	}(a)
	return a
}

func handleFromEmail(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
