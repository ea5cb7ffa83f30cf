package patch

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	merrors "github.com/matzehuels/modgraph/pkg/errors"
)

// Edit rewrites the content of one file. It returns the new content and
// whether anything changed.
type Edit func(content string) (string, bool, error)

// Fix is an in-place file rewrite proposed by a rule.
type Fix struct {
	Path  string `json:"path"`
	Title string `json:"title"`
	Edit  Edit   `json:"-"`
}

// Fixer applies fixes to the file system. Fixes for the same file run in
// order on a single goroutine; different files are rewritten concurrently.
type Fixer struct {
	// Workers bounds the number of files rewritten at once (default 4).
	Workers int
	// Logger receives one line per rewritten file (default: discard).
	Logger *log.Logger
}

// Result summarizes a [Fixer.Apply] run.
type Result struct {
	Changed []string // rewritten files, sorted
	Applied int      // edits that changed content
}

// Apply runs all fixes. A failing file does not stop the others; all
// failures are returned joined.
func (f *Fixer) Apply(ctx context.Context, fixes []Fix) (Result, error) {
	logger := f.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	workers := f.Workers
	if workers <= 0 {
		workers = 4
	}

	byPath := map[string][]Fix{}
	var order []string
	for _, fx := range fixes {
		if _, ok := byPath[fx.Path]; !ok {
			order = append(order, fx.Path)
		}
		byPath[fx.Path] = append(byPath[fx.Path], fx)
	}

	var (
		mu     sync.Mutex
		res    Result
		failed []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range order {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			applied, err := applyFile(path, byPath[path])
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, err)
				logger.Warn("fix failed", "path", path, "error", err)
				return nil
			}
			if applied > 0 {
				res.Changed = append(res.Changed, path)
				res.Applied += applied
				logger.Info("rewrote file", "path", path, "edits", applied)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		failed = append(failed, err)
	}
	slices.Sort(res.Changed)
	return res, errors.Join(failed...)
}

func applyFile(path string, fixes []Fix) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, merrors.Wrap(merrors.ErrCodeFileNotFound, err, "fix %s", path)
		}
		return 0, merrors.Wrap(merrors.ErrCodePatchFailed, err, "stat %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, merrors.Wrap(merrors.ErrCodePatchFailed, err, "read %s", path)
	}
	content := string(data)
	applied := 0
	for _, fx := range fixes {
		next, changed, err := fx.Edit(content)
		if err != nil {
			return 0, merrors.Wrap(merrors.ErrCodePatchFailed, err, "%s: %s", path, fx.Title)
		}
		if changed {
			content = next
			applied++
		}
	}
	if applied == 0 {
		return 0, nil
	}
	if err := writeFile(path, []byte(content), info.Mode().Perm()); err != nil {
		return 0, merrors.Wrap(merrors.ErrCodePatchFailed, err, "write %s", path)
	}
	return applied, nil
}

// writeFile replaces path through a temporary sibling and a rename, so
// readers see either the old or the new content.
func writeFile(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".fix-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
