package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation.
// This is useful when several checkouts or CI jobs share one Redis cache
// and must not see each other's reports.
//
// Example usage:
//
//	// Per-repository keys on a shared cache
//	repoKeyer := NewScopedKeyer(NewDefaultKeyer(), "repo:ultimate:")
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
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ReportKey generates a prefixed key for report caching.
func (k *ScopedKeyer) ReportKey(fingerprint string, opts ReportKeyOpts) string {
	return k.prefix + k.inner.ReportKey(fingerprint, opts)
}
