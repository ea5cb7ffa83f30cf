package suppress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/modgraph/pkg/errors"
)

// Config maps a module name or plugin identifier to the violation keys
// suppressed for it, such as a library name or a missing dependency.
type Config map[string][]string

// file is the on-disk layout shared by every format.
type file struct {
	Suppressions Config `toml:"suppressions" yaml:"suppressions" json:"suppressions"`
}

// Format is a suppression file format.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf infers the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported suppression file %q (want .toml, .yaml or .json)", path)
}

// Has reports whether key is suppressed for owner.
func (c Config) Has(owner, key string) bool {
	return slices.Contains(c[owner], key)
}

// Owners returns the configured owners in sorted order.
func (c Config) Owners() []string {
	return slices.Sorted(maps.Keys(c))
}

// Normalize sorts and deduplicates every key list and drops empty owners.
func (c Config) Normalize() Config {
	out := make(Config, len(c))
	for owner, keys := range c {
		keys = slices.Clone(keys)
		slices.Sort(keys)
		keys = slices.Compact(keys)
		if len(keys) > 0 {
			out[owner] = keys
		}
	}
	return out
}

// Load reads a suppression file. A missing file yields an empty config.
func Load(path string) (Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Config{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", path)
	}
	return Parse(data, format)
}

// Parse decodes suppression file content.
func Parse(data []byte, format Format) (Config, error) {
	var f file
	var err error
	switch format {
	case FormatTOML:
		err = toml.Unmarshal(data, &f)
	case FormatYAML, FormatJSON:
		// JSON is a subset of YAML
		err = yaml.Unmarshal(data, &f)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported suppression format %q", format)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse %s suppressions", format)
	}
	if f.Suppressions == nil {
		return Config{}, nil
	}
	return f.Suppressions.Normalize(), nil
}

// Marshal encodes a config in the given format with sorted owners and keys.
func Marshal(c Config, format Format) ([]byte, error) {
	f := file{Suppressions: c.Normalize()}
	switch format {
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(f); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatYAML:
		return yaml.Marshal(f)
	case FormatJSON:
		data, err := json.MarshalIndent(f, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported suppression format %q", format)
}

// Save writes a config to path in the format implied by its extension.
func Save(path string, c Config) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := Marshal(c, format)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0o644)
}
