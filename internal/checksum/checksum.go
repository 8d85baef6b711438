// Package checksum fingerprints protocol sources so unchanged sources are not re-parsed.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Source returns the digest of a protocol source with line endings
// normalised, so a CRLF round trip through an editor is not a change.
func Source(source string) string {
	return Sum([]byte(strings.ReplaceAll(source, "\r\n", "\n")))
}
