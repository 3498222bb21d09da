package ingest

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash returns the deterministic fingerprint used for per-tenant
// deduplication of submitted bytes.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
