package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashPassword returns the hex SHA-256 digest of password. The digest is
// deterministic and unsalted: it must keep verifying against the credential
// format already stored for provisioned users.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// VerifyPassword compares password against an expected hex digest in constant
// time.
func VerifyPassword(password, expectedHex string) bool {
	got := HashPassword(password)
	return subtle.ConstantTimeCompare([]byte(got), []byte(expectedHex)) == 1
}
