// Package crypto implements the reversible field-obscuring cipher and
// password digest verification.
package crypto

import (
	stdcipher "crypto/cipher"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/clinisafe/patientvault/internal/errs"
)

// Cipher wraps authenticated encryption under the single active key. It is
// constructed once at startup and shared by reference; it holds no mutable
// state and is safe for concurrent use.
type Cipher struct {
	aead stdcipher.AEAD
}

// NewCipher builds a Cipher over a KeyLen-byte key (XChaCha20-Poly1305).
func NewCipher(key []byte) (*Cipher, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// Obscure encrypts plaintext with a random nonce and returns an opaque token
// (base64 of nonce||ciphertext) suitable for text storage.
func (c *Cipher) Obscure(plaintext string) (string, error) {
	nonce, err := RandBytes(chacha20poly1305.NonceSizeX)
	if err != nil {
		return "", err
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+chacha20poly1305.Overhead)
	out = append(out, nonce...)
	out = append(out, c.aead.Seal(nil, nonce, []byte(plaintext), nil)...)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Restore decrypts a token produced by Obscure. A token sealed under a
// different key, or tampered with, fails with errs.ErrDecryption; it is never
// silently returned as garbage.
func (c *Cipher) Restore(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: malformed token", errs.ErrDecryption)
	}
	if len(raw) < chacha20poly1305.NonceSizeX {
		return "", fmt.Errorf("%w: token too short", errs.ErrDecryption)
	}
	nonce := raw[:chacha20poly1305.NonceSizeX]
	ct := raw[chacha20poly1305.NonceSizeX:]
	plain, err := c.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("%w: key mismatch or corrupt ciphertext", errs.ErrDecryption)
	}
	return string(plain), nil
}
