package quota_test

import (
	"testing"

	"github.com/mixwave/quotagate/domain/quota"
)

func ptr(v int64) *int64 { return &v }

func TestCompute(t *testing.T) {
	tests := []struct {
		name          string
		used          int64
		limit         *int64
		wantRemaining int64
		wantUnlimited bool
		wantAllowed   bool
	}{
		{"fresh account", 0, ptr(5), 5, false, true},
		{"partially used", 4, ptr(5), 1, false, true},
		{"at limit", 5, ptr(5), 0, false, false},
		{"over limit floors at zero", 7, ptr(5), 0, false, false},
		{"unlimited", 9000, nil, 0, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := quota.Compute(tt.used, tt.limit)
			if s.Remaining != tt.wantRemaining {
				t.Errorf("Remaining = %d, want %d", s.Remaining, tt.wantRemaining)
			}
			if s.Unlimited != tt.wantUnlimited {
				t.Errorf("Unlimited = %v, want %v", s.Unlimited, tt.wantUnlimited)
			}
			if s.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", s.Allowed, tt.wantAllowed)
			}
			if s.Used != tt.used {
				t.Errorf("Used = %d, want %d", s.Used, tt.used)
			}
		})
	}
}
