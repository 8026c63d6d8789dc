package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// KeyLen is the size of the process-wide obscuring key.
const KeyLen = 32

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// LoadOrCreateKey returns the symmetric key persisted at path. If no key file
// exists yet, a fresh key is generated and written before first use. There is
// exactly one active key at a time; replacing the file invalidates everything
// obscured under the previous key.
func LoadOrCreateKey(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		key, derr := hex.DecodeString(strings.TrimSpace(string(raw)))
		if derr != nil {
			return nil, fmt.Errorf("key file %s: %w", path, derr)
		}
		if len(key) != KeyLen {
			return nil, fmt.Errorf("key file %s: want %d key bytes, got %d", path, KeyLen, len(key))
		}
		return key, nil
	case os.IsNotExist(err):
		key, gerr := RandBytes(KeyLen)
		if gerr != nil {
			return nil, gerr
		}
		if werr := os.WriteFile(path, []byte(hex.EncodeToString(key)+"\n"), 0o600); werr != nil {
			return nil, fmt.Errorf("persist key file %s: %w", path, werr)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("read key file %s: %w", path, err)
	}
}
