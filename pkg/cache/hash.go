package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return fmt.Sprintf("%s:%s", prefix, Hash(data))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// KeyType returns the kind of entry a key names ("figure" or "artifact"),
// skipping any scope prefix. It labels cache events.
func KeyType(key string) string {
	parts := strings.Split(key, ":")
	for _, p := range parts {
		if p == "figure" || p == "artifact" {
			return p
		}
	}
	return parts[0]
}
