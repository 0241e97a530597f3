package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key derives a fixed-length cache key from a namespace and payload.
func Key(namespace string, payload []byte) string {
	sum := sha256.Sum256(payload)
	return namespace + ":" + hex.EncodeToString(sum[:])
}
