// Package quota provides pure functions for quota math.
// All functions are deterministic with no side effects.
package quota

// Summary represents an account's allowance at a point in time (value type).
type Summary struct {
	Used      int64
	Limit     *int64 // nil = unlimited
	Remaining int64  // 0 when Unlimited; not meaningful then
	Unlimited bool
	Allowed   bool
}

// Compute derives a Summary from a usage counter and an effective quota.
// A nil limit means unlimited. Remaining is floored at zero so transient
// external overrides of the counter never produce a negative allowance.
// This is a PURE function.
func Compute(used int64, limit *int64) Summary {
	if limit == nil {
		return Summary{
			Used:      used,
			Unlimited: true,
			Allowed:   true,
		}
	}

	remaining := *limit - used
	if remaining < 0 {
		remaining = 0
	}

	return Summary{
		Used:      used,
		Limit:     limit,
		Remaining: remaining,
		Allowed:   remaining > 0,
	}
}
