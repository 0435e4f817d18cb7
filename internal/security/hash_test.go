package security

import "testing"

func TestHashTokenDeterministic(t *testing.T) {
	a := HashToken("raw-token", "pepper")
	b := HashToken("raw-token", "pepper")
	if a != b {
		t.Fatalf("same input should hash identically: %q vs %q", a, b)
	}
	if a == "raw-token" {
		t.Fatal("hash must not equal the raw token")
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}

func TestHashTokenPepperChangesDigest(t *testing.T) {
	if HashToken("raw-token", "pepper-a") == HashToken("raw-token", "pepper-b") {
		t.Fatal("different peppers must produce different digests")
	}
}
