package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/modgraph/pkg/suppress"
)

const cleanGraph = `
modules:
  - name: core.util
    targets: [core.util]
targets:
  - name: core.util
plugins:
  - name: core
    id: com.example.core
    content:
      - {module: core.util, loading: required}
`

// brokenGraph adds a content module without a backing target.
const brokenGraph = `
modules:
  - name: core.util
    targets: [core.util]
  - name: orphan
targets:
  - name: core.util
plugins:
  - name: core
    id: com.example.core
    content:
      - {module: core.util, loading: required}
  - name: extras
    id: com.example.extras
    content:
      - {module: orphan}
`

func writeGraph(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCheckClean(t *testing.T) {
	path := writeGraph(t, cleanGraph)
	out, err := runCLI(t, "check", path, "--no-cache")
	if err != nil {
		t.Fatalf("check error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "modgraph check") {
		t.Errorf("output missing title:\n%s", out)
	}
}

func TestCheckFailsOnErrors(t *testing.T) {
	path := writeGraph(t, brokenGraph)
	out, err := runCLI(t, "check", path, "--no-cache")
	if !errors.Is(err, ErrCheckFailed) {
		t.Fatalf("check error = %v, want ErrCheckFailed", err)
	}
	if !strings.Contains(out, "orphan") {
		t.Errorf("output does not name the orphan module:\n%s", out)
	}
}

func TestCheckJSON(t *testing.T) {
	path := writeGraph(t, brokenGraph)
	out, err := runCLI(t, "check", path, "--no-cache", "--json")
	if !errors.Is(err, ErrCheckFailed) {
		t.Fatalf("check error = %v, want ErrCheckFailed", err)
	}

	var rep struct {
		Violations []struct {
			Rule    string `json:"rule"`
			Context string `json:"context"`
			Kind    string `json:"kind"`
		} `json:"violations"`
	}
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	found := false
	for _, v := range rep.Violations {
		if v.Context == "orphan" && v.Kind == "no-backing-target" {
			found = true
		}
	}
	if !found {
		t.Errorf("violations = %+v, want no-backing-target for orphan", rep.Violations)
	}
}

func TestCheckSuppressed(t *testing.T) {
	path := writeGraph(t, brokenGraph)
	supp := filepath.Join(filepath.Dir(path), "suppressions.toml")
	if err := suppress.Save(supp, suppress.Config{"orphan": {"no-backing-target"}}); err != nil {
		t.Fatal(err)
	}

	if out, err := runCLI(t, "check", path, "--no-cache", "--suppressions", supp); err != nil {
		t.Fatalf("check error = %v\n%s", err, out)
	}
}

func TestCheckUpdateSuppressions(t *testing.T) {
	path := writeGraph(t, brokenGraph)
	supp := filepath.Join(filepath.Dir(path), "suppressions.toml")
	stale := suppress.Config{
		"orphan":    {"no-backing-target"},
		"core.util": {"gone"},
	}
	if err := suppress.Save(supp, stale); err != nil {
		t.Fatal(err)
	}

	_, err := runCLI(t, "check", path, "--no-cache", "--suppressions", supp, "--update-suppressions")
	if !errors.Is(err, ErrCheckFailed) {
		t.Fatalf("check error = %v, want ErrCheckFailed", err)
	}

	got, err := suppress.Load(supp)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Has("orphan", "no-backing-target") {
		t.Errorf("regenerated config %v lost the used entry", got)
	}
	if got.Has("core.util", "gone") {
		t.Errorf("regenerated config %v kept the unused entry", got)
	}
}

func TestCheckUpdateRequiresSuppressions(t *testing.T) {
	path := writeGraph(t, cleanGraph)
	if _, err := runCLI(t, "check", path, "--update-suppressions"); err == nil {
		t.Fatal("expected error without --suppressions")
	}
}

func TestCheckMissingGraph(t *testing.T) {
	_, err := runCLI(t, "check", filepath.Join(t.TempDir(), "nope.yaml"), "--no-cache")
	if err == nil || errors.Is(err, ErrCheckFailed) {
		t.Fatalf("check error = %v, want an import error", err)
	}
}
