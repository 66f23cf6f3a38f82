package idgen_test

import (
	"testing"

	"github.com/mixwave/quotagate/adapters/idgen"
)

func TestUUIDUnique(t *testing.T) {
	g := idgen.UUID{}
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := g.New()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestSequential(t *testing.T) {
	g := idgen.NewSequential("ev-")

	if got := g.New(); got != "ev-1" {
		t.Errorf("first id = %s, want ev-1", got)
	}
	if got := g.New(); got != "ev-2" {
		t.Errorf("second id = %s, want ev-2", got)
	}

	g.Reset()
	if got := g.New(); got != "ev-1" {
		t.Errorf("id after Reset = %s, want ev-1", got)
	}
}
