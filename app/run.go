package app

import (
	"context"
	"sync"
)

// RunState is the coordinator's lifecycle state.
type RunState int

const (
	// RunNotStarted means no consumption has been attempted yet.
	RunNotStarted RunState = iota
	// RunConsumed means the run has been charged; further attempts no-op.
	RunConsumed
	// RunLimitReached means consumption was denied; further attempts no-op.
	RunLimitReached
)

// String returns the string representation of a run state.
func (s RunState) String() string {
	switch s {
	case RunNotStarted:
		return "not_started"
	case RunConsumed:
		return "consumed"
	case RunLimitReached:
		return "limit_reached"
	default:
		return "unknown"
	}
}

// UsageRun coordinates consumption for one logical request. A generation
// pipeline that emits tracks in many batches calls ConsumeOnFirstUnit per
// batch, and the run guarantees the ledger is charged at most once.
// Terminal states are sticky for the lifetime of the run.
type UsageRun struct {
	ledger   *Ledger
	identity Identity

	mu       sync.Mutex
	state    RunState
	snapshot Summary
	eventID  string
	last     ConsumeResult
}

// NewRun constructs a coordinator for one request, capturing an allowance
// snapshot up front so callers can short-circuit expensive work. The
// snapshot is never trusted for the later write; Consume re-reads.
func (l *Ledger) NewRun(ctx context.Context, identity Identity) (*UsageRun, error) {
	snapshot, err := l.Summary(ctx, identity)
	if err != nil {
		return nil, err
	}
	return &UsageRun{
		ledger:   l,
		identity: identity,
		snapshot: snapshot,
	}, nil
}

// HasAllowance is a cheap read-only pre-check against the snapshot taken
// at construction.
func (r *UsageRun) HasAllowance() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == RunLimitReached {
		return false
	}
	return r.snapshot.Allowed
}

// Snapshot returns the allowance summary captured at construction.
func (r *UsageRun) Snapshot() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot
}

// ConsumeOnFirstUnit charges the run on the first call that carries real
// work (unitCount > 0). Later calls, and calls with nothing to charge
// for, return the recorded outcome without touching the ledger. An
// infrastructure error is returned as-is and leaves the state unchanged,
// so the caller can retry the whole request.
func (r *UsageRun) ConsumeOnFirstUnit(ctx context.Context, unitCount int, meta map[string]string) (ConsumeResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if unitCount <= 0 || r.state != RunNotStarted {
		return r.last, nil
	}

	res, err := r.ledger.Consume(ctx, r.identity, meta)
	if err != nil {
		return ConsumeResult{}, err
	}

	if res.OK {
		r.state = RunConsumed
		r.eventID = res.EventID
	} else {
		r.state = RunLimitReached
	}
	r.last = res
	r.snapshot = res.Summary
	return res, nil
}

// State returns the current run state.
func (r *UsageRun) State() RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// EventID returns the audit row id of this run's consumption, if any.
// Callers use it to refund when the downstream action ultimately fails.
func (r *UsageRun) EventID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eventID
}

// Refund reverses this run's consumption. It does not reset the run:
// terminal states stay sticky, a refunded request is retried with a
// fresh coordinator.
func (r *UsageRun) Refund(ctx context.Context) (Summary, error) {
	r.mu.Lock()
	if r.state != RunConsumed {
		snapshot := r.snapshot
		r.mu.Unlock()
		return snapshot, nil
	}
	eventID := r.eventID
	r.mu.Unlock()

	return r.ledger.Refund(ctx, r.identity, eventID)
}
