// Package cache implements the two-tier completion cache: a bounded
// process-local tier-1 backed by a network tier-2, fronted by a
// Manager that does read-through promotion and write-through. Both
// tiers share a single Get/Set/Stats/Close contract over string
// values, keyed by the hash BuildKey computes.
package cache

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

const keyHashLength = 12

// BuildKey computes the cache key for a completion request: prefix,
// then the first 12 URL-safe base64 characters of
// SHA-256(prompt|modelId[|paramString]).
func BuildKey(prefix, prompt, modelID, paramString string) string {
	parts := []string{prompt, modelID}
	if paramString != "" {
		parts = append(parts, paramString)
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	encoded := base64.RawURLEncoding.EncodeToString(sum[:])
	if len(encoded) > keyHashLength {
		encoded = encoded[:keyHashLength]
	}
	return fmt.Sprintf("%s:%s", prefix, encoded)
}
