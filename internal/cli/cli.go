// Package cli implements the modgraph command-line interface.
package cli

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/modgraph/pkg/cache"
	"github.com/matzehuels/modgraph/pkg/graph"
	"github.com/matzehuels/modgraph/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "modgraph"

	// redisAddrEnv names the environment variable holding the shared report
	// cache address.
	redisAddrEnv = "MODGRAPH_REDIS_ADDR"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// =============================================================================
// Runner Factory
// =============================================================================

// cacheFlags selects the report cache backend.
type cacheFlags struct {
	noCache   bool
	redisAddr string
}

// redis returns the Redis address from the flag or the environment.
func (f cacheFlags) redis() string {
	if f.redisAddr != "" {
		return f.redisAddr
	}
	return os.Getenv(redisAddrEnv)
}

// newRunner creates a pipeline runner for CLI use. Reports from a shared
// Redis cache are scoped to the workspace root so checkouts of different
// branches never see each other's entries.
func (c *CLI) newRunner(ctx context.Context, flags cacheFlags, root string) (*pipeline.Runner, func(), error) {
	backend, err := c.newCache(ctx, flags)
	if err != nil {
		return nil, nil, err
	}
	var keyer cache.Keyer
	if flags.redis() != "" && !flags.noCache {
		abs, _ := filepath.Abs(root)
		keyer = cache.NewScopedKeyer(nil, "ws:"+cache.Hash([]byte(abs))[:12]+":")
	}
	return pipeline.NewRunner(cache.Instrument(backend), keyer, c.Logger), func() { backend.Close() }, nil
}

// newCache picks the report cache: none with --no-cache, Redis when an
// address is configured, the XDG file cache otherwise. An unreachable Redis
// degrades to the file cache with a warning.
func (c *CLI) newCache(ctx context.Context, flags cacheFlags) (cache.Cache, error) {
	if flags.noCache {
		return cache.NewNullCache(), nil
	}
	if addr := flags.redis(); addr != "" {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		rc, err := cache.NewRedisCache(ctx, addr)
		if err == nil {
			c.Logger.Debug("using redis report cache", "addr", addr)
			return rc, nil
		}
		c.Logger.Warn("redis cache unavailable, falling back to file cache", "err", err)
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/modgraph/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// sourcesDigest summarizes the files patches are computed from: every
// descriptor, build file and source path the graph records, by size and
// modification time. Missing files contribute their path only.
func sourcesDigest(g *graph.Graph, root string) string {
	var paths []string
	for m := range g.Modules() {
		paths = append(paths, m.Descriptor)
	}
	for t := range g.Targets() {
		paths = append(paths, t.BuildFile)
	}
	for p := range g.Plugins() {
		paths = append(paths, p.Descriptor)
	}
	for p := range g.Products() {
		paths = append(paths, p.Source)
	}
	for s := range g.ModuleSets() {
		paths = append(paths, s.Source)
	}
	slices.Sort(paths)
	paths = slices.Compact(paths)

	h := sha256.New()
	for _, p := range paths {
		if p == "" {
			continue
		}
		full := p
		if root != "" && !filepath.IsAbs(p) {
			full = filepath.Join(root, p)
		}
		if info, err := os.Stat(full); err == nil {
			fmt.Fprintf(h, "%s %d %d\n", p, info.Size(), info.ModTime().UnixNano())
		} else {
			fmt.Fprintf(h, "%s\n", p)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
