package cache

// ScopedKeyer wraps a Keyer with a prefix, so that several data
// repositories can share one cache backend without mixing entries.
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "pbmc:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// FigureKey generates a prefixed figure key.
func (k *ScopedKeyer) FigureKey(datasetDigest, veneerDigest string) string {
	return k.prefix + k.inner.FigureKey(datasetDigest, veneerDigest)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(figureKey string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(figureKey, opts)
}
