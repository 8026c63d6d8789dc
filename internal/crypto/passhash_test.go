package crypto

import "testing"

func TestHashPassword_Deterministic(t *testing.T) {
	t.Parallel()

	h1 := HashPassword("admin123")
	h2 := HashPassword("admin123")
	if h1 != h2 {
		t.Fatalf("hash not deterministic for same input")
	}
	if len(h1) != 64 {
		t.Fatalf("digest length = %d, want 64 hex chars", len(h1))
	}
	if HashPassword("admin124") == h1 {
		t.Fatalf("hash should differ when password differs")
	}
}

func TestVerifyPassword(t *testing.T) {
	t.Parallel()

	hash := HashPassword("correct horse battery staple")

	if !VerifyPassword("correct horse battery staple", hash) {
		t.Fatalf("expected true for correct password")
	}
	if VerifyPassword("wrong", hash) {
		t.Fatalf("expected false for wrong password")
	}
	if VerifyPassword("", hash) {
		t.Fatalf("expected false for empty password")
	}
}
