// Package cache stores rendered figures and exported artifacts between runs.
//
// The figure pipeline is pure: equal datasets and veneers always yield equal
// figures. That makes content digests safe cache keys. A [Keyer] derives keys
// from those digests and a [Cache] backend stores the bytes:
//
//   - [NullCache]: caching disabled
//   - [MemoryCache]: in-process LRU, for the HTTP server and tests
//   - [FileCache]: one file per entry, for the CLI
//   - [RedisCache]: shared across server instances
//
// [Instrument] wraps any backend so hits, misses and writes reach the
// registered observability hooks.
package cache

import (
	"context"
	"time"
)

// Default entry lifetimes.
const (
	// FigureTTL is how long a rendered figure description is kept.
	FigureTTL = 7 * 24 * time.Hour

	// ArtifactTTL is how long an exported artifact (SVG, PNG...) is kept.
	ArtifactTTL = 7 * 24 * time.Hour
)

// Cache is a byte store with per-entry expiration.
type Cache interface {
	// Get returns the entry for key. A missing or expired entry is a miss,
	// not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 keeps the entry until evicted.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend's resources.
	Close() error
}

// Keyer derives cache keys.
type Keyer interface {
	// FigureKey identifies the figure rendered from a dataset and a veneer.
	FigureKey(datasetDigest, veneerDigest string) string

	// ArtifactKey identifies a figure exported in one format.
	ArtifactKey(figureKey string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts holds the export settings that change an artifact's bytes.
type ArtifactKeyOpts struct {
	Format string  `json:"format"`
	Scale  float64 `json:"scale,omitempty"`
}

// DefaultKeyer is the standard [Keyer].
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// FigureKey returns "figure:<hash>".
func (DefaultKeyer) FigureKey(datasetDigest, veneerDigest string) string {
	return hashKey("figure", datasetDigest, veneerDigest)
}

// ArtifactKey returns "artifact:<format>:<hash>".
func (DefaultKeyer) ArtifactKey(figureKey string, opts ArtifactKeyOpts) string {
	return hashKey("artifact:"+opts.Format, figureKey, opts)
}
