// Package plan provides plan policy value types and pure functions.
// All functions are deterministic with no side effects.
package plan

// Known plan names. The set is open-ended: unknown names degrade to a
// finite quota using the catalog's free default.
const (
	Free    = "free"
	Founder = "founder"
	Monthly = "monthly"
)

// Catalog maps plan names to quota policy (immutable value type).
type Catalog struct {
	// Defaults holds the default finite quota per plan name.
	Defaults map[string]int64
	// Unlimited holds the set of plans that are unlimited when no
	// explicit override is present.
	Unlimited map[string]bool
	// FreeDefault is the global fallback quota for unknown plans.
	FreeDefault int64
}

// DefaultCatalog returns the built-in plan catalog.
func DefaultCatalog() Catalog {
	return Catalog{
		Defaults: map[string]int64{
			Free: 5,
		},
		Unlimited: map[string]bool{
			Founder: true,
			Monthly: true,
		},
		FreeDefault: 5,
	}
}

// EffectiveQuota resolves the quota actually enforced for an account.
// A positive explicit override always wins, even over an otherwise
// unlimited plan. nil means unlimited. This is a PURE function.
func (c Catalog) EffectiveQuota(planName string, explicitMax *int64) *int64 {
	if explicitMax != nil && *explicitMax > 0 {
		v := *explicitMax
		return &v
	}
	if c.Unlimited[planName] {
		return nil
	}
	if d, ok := c.Defaults[planName]; ok {
		v := d
		return &v
	}
	v := c.FreeDefault
	return &v
}

// IsUnlimited reports whether an account with the given plan and
// resolved effective quota has unlimited allowance. This is a PURE function.
func (c Catalog) IsUnlimited(planName string, effectiveQuota *int64) bool {
	return effectiveQuota == nil && c.Unlimited[planName]
}

// DefaultMaxUses returns the max_uses value to persist when an account
// transitions to planName: nil for unlimited plans, the plan's finite
// default otherwise. This is a PURE function.
func (c Catalog) DefaultMaxUses(planName string) *int64 {
	if c.Unlimited[planName] {
		return nil
	}
	if d, ok := c.Defaults[planName]; ok {
		v := d
		return &v
	}
	v := c.FreeDefault
	return &v
}
