package ingest

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent computes the SHA-256 digest of the raw upload. The digest is
// the dedup identity of a document: same bytes, same batch.
func HashContent(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// HashHex is the lowercase hex form of HashContent, used in storage paths
// and log lines.
func HashHex(data []byte) string {
	return hex.EncodeToString(HashContent(data))
}
