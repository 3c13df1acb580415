// Package digest computes blake3 content digests. Every commit stores
// the digest of its full logical payload so corruption anywhere in the
// chunk/reassemble/cache pipeline is detectable.
package digest

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// Size is the digest length in bytes (hex strings are twice this).
const Size = 32

// Sum returns the lowercase hex blake3-256 digest of content.
func Sum(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Verify reports whether content hashes to expected.
func Verify(content []byte, expected string) bool {
	return Sum(content) == expected
}
