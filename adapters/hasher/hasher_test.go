package hasher_test

import (
	"testing"

	"github.com/mixwave/quotagate/adapters/hasher"
)

func TestBcryptRoundTrip(t *testing.T) {
	h := hasher.NewBcrypt(4) // min cost for test speed

	hash, err := h.Hash("admin-token-secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if !h.Compare(hash, "admin-token-secret") {
		t.Error("Compare should match the original plaintext")
	}
	if h.Compare(hash, "wrong-token") {
		t.Error("Compare should reject a different plaintext")
	}
}

func TestBcryptInvalidCostFallsBack(t *testing.T) {
	h := hasher.NewBcrypt(99)
	if _, err := h.Hash("x"); err != nil {
		t.Fatalf("hash with clamped cost: %v", err)
	}
}

func TestFake(t *testing.T) {
	h := hasher.Fake{}
	hash, _ := h.Hash("plain")
	if !h.Compare(hash, "plain") || h.Compare(hash, "other") {
		t.Error("Fake hasher equality is broken")
	}
}
