package plan_test

import (
	"testing"

	"github.com/mixwave/quotagate/domain/plan"
)

func ptr(v int64) *int64 { return &v }

func TestEffectiveQuota(t *testing.T) {
	c := plan.DefaultCatalog()

	tests := []struct {
		name        string
		plan        string
		explicitMax *int64
		want        *int64
	}{
		{"free default", plan.Free, nil, ptr(5)},
		{"founder unlimited", plan.Founder, nil, nil},
		{"monthly unlimited", plan.Monthly, nil, nil},
		{"explicit override wins", plan.Free, ptr(20), ptr(20)},
		{"override caps unlimited plan", plan.Founder, ptr(100), ptr(100)},
		{"zero override ignored", plan.Free, ptr(0), ptr(5)},
		{"negative override ignored", plan.Free, ptr(-3), ptr(5)},
		{"unknown plan falls back", "enterprise-beta", nil, ptr(5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.EffectiveQuota(tt.plan, tt.explicitMax)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("EffectiveQuota(%q) = %v, want %v", tt.plan, got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("EffectiveQuota(%q) = %d, want %d", tt.plan, *got, *tt.want)
			}
		})
	}
}

func TestEffectiveQuotaCopiesOverride(t *testing.T) {
	c := plan.DefaultCatalog()
	override := int64(10)
	got := c.EffectiveQuota(plan.Free, &override)
	override = 99
	if *got != 10 {
		t.Errorf("EffectiveQuota aliased the override pointer: got %d", *got)
	}
}

func TestIsUnlimited(t *testing.T) {
	c := plan.DefaultCatalog()

	if !c.IsUnlimited(plan.Founder, nil) {
		t.Error("founder with nil quota should be unlimited")
	}
	if c.IsUnlimited(plan.Free, nil) {
		t.Error("free plan is never unlimited, even with nil quota")
	}
	if c.IsUnlimited(plan.Founder, ptr(100)) {
		t.Error("explicit cap makes an unlimited plan finite")
	}
}

func TestDefaultMaxUses(t *testing.T) {
	c := plan.DefaultCatalog()

	if got := c.DefaultMaxUses(plan.Founder); got != nil {
		t.Errorf("founder DefaultMaxUses = %d, want nil", *got)
	}
	if got := c.DefaultMaxUses(plan.Free); got == nil || *got != 5 {
		t.Errorf("free DefaultMaxUses = %v, want 5", got)
	}
	if got := c.DefaultMaxUses("mystery"); got == nil || *got != 5 {
		t.Errorf("unknown plan DefaultMaxUses = %v, want free default 5", got)
	}
}
