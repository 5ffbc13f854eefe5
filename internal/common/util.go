package common

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// offlineAuthSalt is a fixed application salt mixed into cached password
// digests. The digest only gates the local cache slot, it is never sent to
// the server, so a per-record salt buys nothing here.
const offlineAuthSalt = "lingua-ai-offline-salt"

// HashPassword returns the hex SHA-256 digest of password+salt, the format
// stored in the offline auth record. Not reversible.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password + offlineAuthSalt))
	return hex.EncodeToString(sum[:])
}

// GenerateRandByteArray returns size cryptographically random bytes.
// Panics if the system RNG fails, which is not a recoverable condition.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// WipeByteArray zeroes b in place. Used for password buffers after use.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
