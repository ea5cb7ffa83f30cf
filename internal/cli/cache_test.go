package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/modgraph/pkg/cache"
)

func TestClearFileCache(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), appName)

	fc, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"report:a", "report:b", "report:c"} {
		if err := fc.Set(ctx, key, []byte("{}"), time.Hour); err != nil {
			t.Fatal(err)
		}
	}

	n, err := clearFileCache(ctx, dir)
	if err != nil {
		t.Fatalf("clearFileCache() error = %v", err)
	}
	if n != 3 {
		t.Errorf("cleared %d entries, want 3", n)
	}
	if _, ok, _ := fc.Get(ctx, "report:a"); ok {
		t.Error("entry survived clear")
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("cache dir removed: %v", err)
	}
}

func TestClearFileCacheMissingDir(t *testing.T) {
	n, err := clearFileCache(context.Background(), filepath.Join(t.TempDir(), "absent"))
	if err != nil || n != 0 {
		t.Errorf("clearFileCache() = %d, %v; want 0, nil", n, err)
	}
}

func TestCacheCommands(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv(redisAddrEnv, "")

	out, err := runCLI(t, "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), appName) {
		t.Errorf("cache path = %q", out)
	}

	out, err = runCLI(t, "cache", "clear")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "File cache is empty") {
		t.Errorf("cache clear output = %q", out)
	}
}
