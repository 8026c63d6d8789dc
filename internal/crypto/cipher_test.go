package crypto

import (
	"errors"
	"testing"

	"github.com/clinisafe/patientvault/internal/errs"
)

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	key, err := RandBytes(KeyLen)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}
	c, err := NewCipher(key)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	return c
}

func TestCipher_RoundTrip(t *testing.T) {
	t.Parallel()

	c := newTestCipher(t)
	for _, plain := range []string{"Jane Doe", "555-000-1234", "Flu", "", "unicode: зрение"} {
		token, err := c.Obscure(plain)
		if err != nil {
			t.Fatalf("Obscure(%q): %v", plain, err)
		}
		if token == plain && plain != "" {
			t.Fatalf("token equals plaintext for %q", plain)
		}
		got, err := c.Restore(token)
		if err != nil {
			t.Fatalf("Restore(%q): %v", plain, err)
		}
		if got != plain {
			t.Fatalf("round trip: got %q, want %q", got, plain)
		}
	}
}

func TestCipher_ObscureIsNonDeterministic(t *testing.T) {
	t.Parallel()

	c := newTestCipher(t)
	a, err := c.Obscure("same input")
	if err != nil {
		t.Fatalf("Obscure: %v", err)
	}
	b, err := c.Obscure("same input")
	if err != nil {
		t.Fatalf("Obscure: %v", err)
	}
	if a == b {
		t.Fatalf("two tokens of the same plaintext are identical, nonce reuse?")
	}
}

func TestCipher_RestoreUnderDifferentKeyFails(t *testing.T) {
	t.Parallel()

	c1 := newTestCipher(t)
	c2 := newTestCipher(t)

	token, err := c1.Obscure("secret")
	if err != nil {
		t.Fatalf("Obscure: %v", err)
	}
	if _, err := c2.Restore(token); !errors.Is(err, errs.ErrDecryption) {
		t.Fatalf("restore under rotated key: got %v, want ErrDecryption", err)
	}
}

func TestCipher_RestoreRejectsGarbage(t *testing.T) {
	t.Parallel()

	c := newTestCipher(t)
	for _, token := range []string{"", "AAAA", "%%% not base64 %%%"} {
		if _, err := c.Restore(token); !errors.Is(err, errs.ErrDecryption) {
			t.Fatalf("Restore(%q): got %v, want ErrDecryption", token, err)
		}
	}
}
