package listing

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns the BLAKE2b-256 digest of an allocated listing as hex.
// Two runs over the same input on the same target print the same fingerprint.
func Fingerprint(text string) string {
	sum := blake2b.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
