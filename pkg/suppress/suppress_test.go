package suppress

import (
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/matzehuels/modgraph/pkg/errors"
)

func TestMatcherNormalMode(t *testing.T) {
	m := NewMatcher(Config{"intellij.git": {"lib.guava"}}, false)
	if !m.Suppressed("library-modules", "intellij.git", "lib.guava") {
		t.Error("Suppressed(match) = false, want true")
	}
	if m.Suppressed("library-modules", "intellij.git", "lib.jna") {
		t.Error("Suppressed(other key) = true, want false")
	}
	if m.Suppressed("library-modules", "intellij.svn", "lib.guava") {
		t.Error("Suppressed(other owner) = true, want false")
	}
	want := []Usage{{Rule: "library-modules", Owner: "intellij.git", Key: "lib.guava"}}
	if got := m.Usages(); !reflect.DeepEqual(got, want) {
		t.Errorf("Usages() = %v, want %v", got, want)
	}
}

func TestMatcherUpdateMode(t *testing.T) {
	cfg := Config{"intellij.git": {"lib.guava", "stale"}}
	m := NewMatcher(cfg, true)
	if m.Suppressed("library-modules", "intellij.git", "lib.guava") {
		t.Error("Suppressed() in update mode = true, want false")
	}
	if len(m.Usages()) != 1 {
		t.Errorf("Usages() = %v, want one usage", m.Usages())
	}
	if got, want := m.Regenerate(), (Config{"intellij.git": {"lib.guava"}}); !reflect.DeepEqual(got, want) {
		t.Errorf("Regenerate() = %v, want %v", got, want)
	}
	if got, want := m.Unused(), (Config{"intellij.git": {"stale"}}); !reflect.DeepEqual(got, want) {
		t.Errorf("Unused() = %v, want %v", got, want)
	}
}

func TestMatcherConcurrent(t *testing.T) {
	m := NewMatcher(Config{"a": {"k"}}, false)
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Suppressed("r", "a", "k")
		}()
	}
	wg.Wait()
	if len(m.Usages()) != 1 {
		t.Errorf("Usages() = %v, want one deduplicated usage", m.Usages())
	}
}

func TestParseFormats(t *testing.T) {
	want := Config{"intellij.git": {"a", "b"}, "com.example": {"x"}}
	tests := []struct {
		name   string
		format Format
		data   string
	}{
		{"toml", FormatTOML, "[suppressions]\n\"intellij.git\" = [\"b\", \"a\", \"a\"]\n\"com.example\" = [\"x\"]\n"},
		{"yaml", FormatYAML, "suppressions:\n  intellij.git: [b, a]\n  com.example:\n    - x\n"},
		{"json", FormatJSON, `{"suppressions": {"intellij.git": ["a", "b"], "com.example": ["x"], "empty": []}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.data), tt.format)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Parse() = %v, want %v", got, want)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte("suppressions = 3"), FormatTOML)
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Parse() error = %v, want %s", err, errors.ErrCodeInvalidFormat)
	}
}

func TestSaveLoad(t *testing.T) {
	cfg := Config{"intellij.git": {"lib.guava"}, "com.example": {"x", "y"}}
	for _, ext := range []string{".toml", ".yaml", ".json"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "suppressions"+ext)
			if err := Save(path, cfg); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !reflect.DeepEqual(got, cfg) {
				t.Errorf("Load() = %v, want %v", got, cfg)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil || len(got) != 0 {
		t.Errorf("Load(missing) = %v, %v, want empty config", got, err)
	}
}

func TestFormatOf(t *testing.T) {
	if _, err := FormatOf("x.ini"); err == nil {
		t.Error("FormatOf(x.ini) error = nil")
	}
	if f, _ := FormatOf("X.YML"); f != FormatYAML {
		t.Errorf("FormatOf(X.YML) = %q", f)
	}
}
