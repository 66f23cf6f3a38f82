package usage_test

import (
	"testing"
	"time"

	"github.com/mixwave/quotagate/domain/usage"
)

func TestNewEventDefaults(t *testing.T) {
	e := usage.NewEvent("ev-1", "acc-1", "", nil, time.Time{})

	if e.Action != usage.DefaultAction {
		t.Errorf("Action = %q, want %q", e.Action, usage.DefaultAction)
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt should be stamped when zero")
	}
}

func TestNewEventExplicit(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	meta := map[string]string{"source": "generation-pipeline"}

	e := usage.NewEvent("ev-2", "acc-1", "playlist.generate", meta, at)

	if e.ID != "ev-2" || e.AccountID != "acc-1" {
		t.Errorf("identity fields = (%q, %q)", e.ID, e.AccountID)
	}
	if !e.CreatedAt.Equal(at) {
		t.Errorf("CreatedAt = %v, want %v", e.CreatedAt, at)
	}
	if e.Meta["source"] != "generation-pipeline" {
		t.Errorf("Meta = %v", e.Meta)
	}
}
