// Package sha256 derives stable hex digests used to fingerprint published records.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// separator cannot appear in CSV text fields, so distinct part lists never collide.
const separator = 0x1f

// Hash returns the hex SHA-256 of parts joined by the ASCII unit separator. A single part
// hashes to the plain digest of its bytes.
func Hash(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{separator})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
