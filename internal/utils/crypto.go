package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex fingerprints a submitted file so duplicate uploads can be spotted
// in the submission log.
func SHA256Hex(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
