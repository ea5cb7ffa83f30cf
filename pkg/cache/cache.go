package cache

import (
	"context"
	"strings"
	"time"

	"github.com/matzehuels/modgraph/pkg/observability"
)

// DefaultTTL is how long a cached validation report stays valid.
const DefaultTTL = 7 * 24 * time.Hour

// Cache stores opaque byte values under string keys.
//
// A miss is reported as (nil, false, nil); errors are reserved for backend
// failures. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) error
}

// =============================================================================
// Keys
// =============================================================================

// Keyer derives cache keys.
type Keyer interface {
	// ReportKey returns the key of a validation report for a graph
	// fingerprint and the options that influence the report.
	ReportKey(fingerprint string, opts ReportKeyOpts) string
}

// ReportKeyOpts holds every option that changes the content of a report.
type ReportKeyOpts struct {
	Rules               []string `json:"rules"`
	AutoAddedPolicy     string   `json:"auto_added_policy"`
	TestLibraries       []string `json:"test_libraries,omitempty"`
	LibraryModulePrefix string   `json:"library_module_prefix,omitempty"`
	// Suppressions is the hash of the normalized suppression config.
	Suppressions string `json:"suppressions"`
	// Sources is a caller-supplied digest of the files patches are computed
	// from, so edited descriptors invalidate the report.
	Sources string `json:"sources,omitempty"`
	Version string `json:"version"`
}

// DefaultKeyer generates unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ReportKey hashes the fingerprint together with the options.
func (DefaultKeyer) ReportKey(fingerprint string, opts ReportKeyOpts) string {
	return hashKey("report", fingerprint, opts)
}

// keyType extracts the key namespace ("report" for "user:1:report:ab12...").
func keyType(key string) string {
	parts := strings.Split(key, ":")
	if len(parts) < 2 {
		return "unknown"
	}
	return parts[len(parts)-2]
}

// =============================================================================
// Instrumentation
// =============================================================================

// instrumented reports cache traffic to the registered observability hooks.
type instrumented struct {
	Cache
}

// Instrument wraps c so hits, misses and writes are reported to
// [observability.Cache].
func Instrument(c Cache) Cache {
	return &instrumented{Cache: c}
}

func (c *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, hit, err := c.Cache.Get(ctx, key)
	if err == nil {
		if hit {
			observability.Cache().OnCacheHit(ctx, keyType(key))
		} else {
			observability.Cache().OnCacheMiss(ctx, keyType(key))
		}
	}
	return data, hit, err
}

func (c *instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := c.Cache.Set(ctx, key, data, ttl)
	if err == nil {
		observability.Cache().OnCacheSet(ctx, keyType(key), len(data))
	}
	return err
}

// Clear forwards to the wrapped cache when it supports clearing.
func (c *instrumented) Clear(ctx context.Context) error {
	if cl, ok := c.Cache.(Clearer); ok {
		return cl.Clear(ctx)
	}
	return nil
}

var _ Cache = (*instrumented)(nil)
