// Package app contains the metering services: account resolution, the
// quota ledger, and the per-request consumption coordinator.
package app

import (
	"fmt"
	"strings"
)

// Reason is a machine-readable failure code surfaced to collaborators.
type Reason string

const (
	// ReasonIdentityMissing means the caller supplied neither id nor email.
	ReasonIdentityMissing Reason = "identity_missing"
	// ReasonAccountNotFound means the caller supplied an id (and no
	// email to lazily create from) that matches no account.
	ReasonAccountNotFound Reason = "account_not_found"
	// ReasonStoreUnavailable means the backing store could not be reached.
	// Consume fails closed on this; read-only callers may degrade.
	ReasonStoreUnavailable Reason = "store_unavailable"
	// ReasonLimitExhausted means the finite quota is at zero, or a
	// concurrent consume won the optimistic-concurrency race.
	ReasonLimitExhausted Reason = "limit_exhausted"
	// ReasonUpdateFailed means an update that could not be applied: an
	// unexpected store-level failure on a refund or plan change, or
	// persistent write contention on an unlimited-plan consume.
	ReasonUpdateFailed Reason = "update_failed"
)

// Error carries a failure reason alongside the underlying cause.
type Error struct {
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ReasonOf extracts the Reason from an error, or ReasonUpdateFailed for
// unrecognized errors.
func ReasonOf(err error) Reason {
	if e, ok := err.(*Error); ok {
		return e.Reason
	}
	return ReasonUpdateFailed
}

// Identity is the caller-supplied handle for an account: an opaque id
// and/or an email. When both are present the id takes precedence.
type Identity struct {
	ID    string
	Email string
}

// Empty reports whether the identity carries neither id nor email.
func (id Identity) Empty() bool {
	return id.ID == "" && strings.TrimSpace(id.Email) == ""
}

// NormalizedEmail returns the email lowered and trimmed, the form used
// for lookups and storage.
func (id Identity) NormalizedEmail() string {
	return strings.ToLower(strings.TrimSpace(id.Email))
}

// Summary describes an account's allowance at a point in time.
type Summary struct {
	AccountID string
	Plan      string
	Used      int64
	Limit     *int64 // nil = unlimited
	Remaining int64  // 0 when Unlimited
	Unlimited bool
	Allowed   bool
}

// ConsumeResult is the discriminated outcome of a Consume call. OK false
// with ReasonLimitExhausted is an expected business outcome, not an error;
// infrastructure failures are returned as errors instead.
type ConsumeResult struct {
	OK      bool
	Reason  Reason // set when !OK
	EventID string // audit row for refund; set on success
	Summary Summary
}

// PlanResult is the outcome of a SetPlan call.
type PlanResult struct {
	AccountID string
	Plan      string
	MaxUses   *int64
	Unlimited bool
}
