package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mixwave/quotagate/adapters/metrics"
	"github.com/mixwave/quotagate/domain/plan"
	"github.com/mixwave/quotagate/domain/quota"
	"github.com/mixwave/quotagate/domain/usage"
	"github.com/mixwave/quotagate/ports"
)

// Ledger owns all reads and writes of an account's usage counter. The
// account row is mutated exclusively through Consume, Refund, and
// SetPlan; no usage count is cached across requests.
type Ledger struct {
	resolver *Resolver
	accounts ports.AccountStore
	events   ports.UsageEventStore
	ids      ports.IDGenerator
	clock    ports.Clock
	metrics  *metrics.Collector
	logger   zerolog.Logger

	mu      sync.RWMutex
	catalog plan.Catalog
}

// LedgerConfig contains dependencies for the ledger.
type LedgerConfig struct {
	Resolver *Resolver
	Accounts ports.AccountStore
	Events   ports.UsageEventStore
	IDs      ports.IDGenerator
	Clock    ports.Clock
	Catalog  plan.Catalog
	Metrics  *metrics.Collector // optional
	Logger   zerolog.Logger
}

// NewLedger creates a new quota ledger.
func NewLedger(cfg LedgerConfig) *Ledger {
	return &Ledger{
		resolver: cfg.Resolver,
		accounts: cfg.Accounts,
		events:   cfg.Events,
		ids:      cfg.IDs,
		clock:    cfg.Clock,
		catalog:  cfg.Catalog,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
}

// SetCatalog swaps the plan catalog. Registered as a config on-change
// hook so quota changes in the config file take effect without a restart.
func (l *Ledger) SetCatalog(c plan.Catalog) {
	l.mu.Lock()
	l.catalog = c
	l.mu.Unlock()
}

func (l *Ledger) planCatalog() plan.Catalog {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.catalog
}

// Summary resolves the account (creating it on first sight) and reports
// its current allowance. No side effects beyond the lazy creation.
func (l *Ledger) Summary(ctx context.Context, identity Identity) (Summary, error) {
	a, err := l.resolver.Resolve(ctx, identity)
	if err != nil {
		return Summary{}, err
	}
	return l.summarize(a), nil
}

func (l *Ledger) summarize(a ports.Account) Summary {
	limit := l.planCatalog().EffectiveQuota(a.Plan, a.MaxUses)
	q := quota.Compute(a.UsageCount, limit)
	return Summary{
		AccountID: a.ID,
		Plan:      a.Plan,
		Used:      q.Used,
		Limit:     q.Limit,
		Remaining: q.Remaining,
		Unlimited: q.Unlimited,
		Allowed:   q.Allowed,
	}
}

// Consume charges one unit of quota. The counter update is conditioned on
// the usage count read at the start of this call; a concurrent consume
// that wins the race surfaces as limit_exhausted rather than a silent
// retry, so retry policy stays with the caller. Unlimited plans still
// record usage for observability but never gate.
func (l *Ledger) Consume(ctx context.Context, identity Identity, meta map[string]string) (ConsumeResult, error) {
	a, err := l.resolver.Resolve(ctx, identity)
	if err != nil {
		return ConsumeResult{}, err
	}

	catalog := l.planCatalog()
	limit := catalog.EffectiveQuota(a.Plan, a.MaxUses)
	if catalog.IsUnlimited(a.Plan, limit) {
		return l.consumeUnlimited(ctx, a, meta)
	}

	q := quota.Compute(a.UsageCount, limit)
	if !q.Allowed {
		l.countConsume("limit_exhausted", a.Plan)
		return ConsumeResult{
			Reason:  ReasonLimitExhausted,
			Summary: l.summarize(a),
		}, nil
	}

	now := l.clock.Now()
	err = l.accounts.IncrementUsage(ctx, a.ID, a.UsageCount, now)
	if errors.Is(err, ports.ErrStale) {
		// Lost the optimistic-concurrency race. Treated as exhaustion;
		// the whole-request coordinator makes a caller-level retry safe.
		l.countConsume("contention", a.Plan)
		l.logger.Info().Str("account_id", a.ID).Int64("expected", a.UsageCount).
			Msg("consume lost concurrent race")
		return ConsumeResult{
			Reason:  ReasonLimitExhausted,
			Summary: l.summarize(a),
		}, nil
	}
	if err != nil {
		l.countStoreError("increment_usage")
		return ConsumeResult{}, &Error{Reason: ReasonStoreUnavailable, Err: err}
	}

	a.UsageCount++
	a.LastActionAt = &now
	eventID := l.recordEvent(ctx, a.ID, meta, now)
	l.countConsume("success", a.Plan)

	return ConsumeResult{
		OK:      true,
		EventID: eventID,
		Summary: l.summarize(a),
	}, nil
}

// unlimitedConsumeAttempts bounds the re-read loop on unlimited plans.
const unlimitedConsumeAttempts = 4

// consumeUnlimited increments the counter with the same conditional
// update as finite plans. A lost race here can never mean exhaustion, so
// it is the one place the ledger re-reads and retries, up to a small
// bound; the counter only grows, so each retry starts from a fresh read.
func (l *Ledger) consumeUnlimited(ctx context.Context, a ports.Account, meta map[string]string) (ConsumeResult, error) {
	now := l.clock.Now()

	var err error
	for attempt := 0; attempt < unlimitedConsumeAttempts; attempt++ {
		err = l.accounts.IncrementUsage(ctx, a.ID, a.UsageCount, now)
		if !errors.Is(err, ports.ErrStale) {
			break
		}
		l.countConsume("contention", a.Plan)
		fresh, rerr := l.accounts.Get(ctx, a.ID)
		if rerr != nil {
			l.countStoreError("get")
			return ConsumeResult{}, &Error{Reason: ReasonStoreUnavailable, Err: rerr}
		}
		a = fresh
	}
	if errors.Is(err, ports.ErrStale) {
		// The store is healthy; the writes just kept losing. Surfaced as
		// a failed update, not an outage.
		l.logger.Warn().Str("account_id", a.ID).Msg("unlimited consume kept losing write races")
		return ConsumeResult{}, &Error{Reason: ReasonUpdateFailed, Err: err}
	}
	if err != nil {
		l.countStoreError("increment_usage")
		return ConsumeResult{}, &Error{Reason: ReasonStoreUnavailable, Err: err}
	}

	a.UsageCount++
	a.LastActionAt = &now
	eventID := l.recordEvent(ctx, a.ID, meta, now)
	l.countConsume("success", a.Plan)

	return ConsumeResult{
		OK:      true,
		EventID: eventID,
		Summary: l.summarize(a),
	}, nil
}

// recordEvent appends the audit row for a consumption. The counter is
// authoritative for quota math; a failed audit write is logged, not
// propagated, so a charge is never reported as failed after it applied.
func (l *Ledger) recordEvent(ctx context.Context, accountID string, meta map[string]string, at time.Time) string {
	e := usage.NewEvent(l.ids.New(), accountID, usage.DefaultAction, meta, at)
	if err := l.events.Insert(ctx, e); err != nil {
		l.countStoreError("insert_event")
		l.logger.Error().Err(err).Str("account_id", accountID).Msg("usage event write failed")
		return ""
	}
	return e.ID
}

// Refund reverses one consumption: deletes the audit row when an event id
// is given (best-effort) and lowers the counter, floored at zero. The
// decrement is deliberately not optimistic-locked; a lost race can only
// under-refund, which never loosens access control.
func (l *Ledger) Refund(ctx context.Context, identity Identity, usageEventID string) (Summary, error) {
	a, err := l.resolver.Resolve(ctx, identity)
	if err != nil {
		return Summary{}, err
	}

	if usageEventID != "" {
		if err := l.events.Delete(ctx, usageEventID); err != nil && !errors.Is(err, ports.ErrNotFound) {
			l.countStoreError("delete_event")
			l.logger.Error().Err(err).Str("event_id", usageEventID).Msg("usage event delete failed")
		}
	}

	count, err := l.accounts.DecrementUsage(ctx, a.ID)
	if err != nil {
		l.countStoreError("decrement_usage")
		return Summary{}, &Error{Reason: ReasonUpdateFailed, Err: err}
	}
	if l.metrics != nil {
		l.metrics.RefundsTotal.Inc()
	}
	l.logger.Info().Str("account_id", a.ID).Int64("usage_count", count).Msg("consumption refunded")

	a.UsageCount = count
	return l.summarize(a), nil
}

// SetPlanOptions carries optional flag stamps for a plan transition.
type SetPlanOptions struct {
	MaxUses          *int64 // explicit cap; nil leaves the plan default
	FounderCandidate *bool
	MarketingOptIn   *bool
}

// SetPlan transitions an account to a new plan and recomputes its stored
// quota override. Idempotent: the same target plan yields the same state.
func (l *Ledger) SetPlan(ctx context.Context, identity Identity, planName string, opts SetPlanOptions) (PlanResult, error) {
	a, err := l.resolver.Resolve(ctx, identity)
	if err != nil {
		return PlanResult{}, err
	}

	upd := ports.PlanUpdate{
		Plan:             planName,
		FounderCandidate: opts.FounderCandidate,
		MarketingOptIn:   opts.MarketingOptIn,
	}
	catalog := l.planCatalog()
	if opts.MaxUses != nil && *opts.MaxUses > 0 {
		upd.MaxUses = opts.MaxUses
	} else {
		maxUses := catalog.DefaultMaxUses(planName)
		if maxUses == nil {
			upd.ClearMaxUses = true
		} else {
			upd.MaxUses = maxUses
		}
	}

	if err := l.accounts.UpdatePlan(ctx, a.ID, upd, l.clock.Now()); err != nil {
		l.countStoreError("update_plan")
		return PlanResult{}, &Error{Reason: ReasonUpdateFailed, Err: err}
	}
	if l.metrics != nil {
		l.metrics.PlanChanges.WithLabelValues(planName).Inc()
	}

	var maxUses *int64
	if !upd.ClearMaxUses {
		maxUses = upd.MaxUses
	}
	effective := catalog.EffectiveQuota(planName, maxUses)
	l.logger.Info().Str("account_id", a.ID).Str("plan", planName).
		Bool("unlimited", catalog.IsUnlimited(planName, effective)).Msg("plan updated")

	return PlanResult{
		AccountID: a.ID,
		Plan:      planName,
		MaxUses:   maxUses,
		Unlimited: catalog.IsUnlimited(planName, effective),
	}, nil
}

func (l *Ledger) countConsume(result, planName string) {
	if l.metrics != nil {
		l.metrics.ConsumeTotal.WithLabelValues(result, planName).Inc()
	}
}

func (l *Ledger) countStoreError(op string) {
	if l.metrics != nil {
		l.metrics.StoreErrors.WithLabelValues(op).Inc()
	}
}
