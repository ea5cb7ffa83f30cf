package io

import (
	"path/filepath"
	"strings"

	"github.com/matzehuels/modgraph/pkg/errors"
)

// Format is a graph document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatOf infers the document format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported graph document %q (want .yaml, .toml or .json)", path)
}

// Document is the decoded form of a composition-graph file.
type Document struct {
	Modules    []ModuleDoc    `yaml:"modules,omitempty" toml:"modules,omitempty" json:"modules,omitempty"`
	Targets    []TargetDoc    `yaml:"targets,omitempty" toml:"targets,omitempty" json:"targets,omitempty"`
	Plugins    []PluginDoc    `yaml:"plugins,omitempty" toml:"plugins,omitempty" json:"plugins,omitempty"`
	Products   []ProductDoc   `yaml:"products,omitempty" toml:"products,omitempty" json:"products,omitempty"`
	ModuleSets []ModuleSetDoc `yaml:"module_sets,omitempty" toml:"module_sets,omitempty" json:"module_sets,omitempty"`
}

type ModuleDoc struct {
	Name         string   `yaml:"name" toml:"name" json:"name"`
	Critical     bool     `yaml:"critical,omitempty" toml:"critical,omitempty" json:"critical,omitempty"`
	Descriptor   string   `yaml:"descriptor,omitempty" toml:"descriptor,omitempty" json:"descriptor,omitempty"`
	Library      string   `yaml:"library,omitempty" toml:"library,omitempty" json:"library,omitempty"`
	Targets      []string `yaml:"targets,omitempty" toml:"targets,omitempty" json:"targets,omitempty"`
	Deps         []string `yaml:"deps,omitempty" toml:"deps,omitempty" json:"deps,omitempty"`
	TestDeps     []string `yaml:"test_deps,omitempty" toml:"test_deps,omitempty" json:"test_deps,omitempty"`
	AllowMissing []string `yaml:"allow_missing,omitempty" toml:"allow_missing,omitempty" json:"allow_missing,omitempty"`
}

type TargetDoc struct {
	Name      string         `yaml:"name" toml:"name" json:"name"`
	Library   bool           `yaml:"library,omitempty" toml:"library,omitempty" json:"library,omitempty"`
	BuildFile string         `yaml:"build_file,omitempty" toml:"build_file,omitempty" json:"build_file,omitempty"`
	Deps      []TargetDepDoc `yaml:"deps,omitempty" toml:"deps,omitempty" json:"deps,omitempty"`
}

// TargetDepDoc is a raw build dependency. An empty scope means compile.
type TargetDepDoc struct {
	Target string `yaml:"target" toml:"target" json:"target"`
	Scope  string `yaml:"scope,omitempty" toml:"scope,omitempty" json:"scope,omitempty"`
}

// ContentDoc declares a content module of a plugin, product or module set.
type ContentDoc struct {
	Module    string `yaml:"module" toml:"module" json:"module"`
	Loading   string `yaml:"loading,omitempty" toml:"loading,omitempty" json:"loading,omitempty"`
	Test      bool   `yaml:"test,omitempty" toml:"test,omitempty" json:"test,omitempty"`
	AutoAdded bool   `yaml:"auto_added,omitempty" toml:"auto_added,omitempty" json:"auto_added,omitempty"`
}

type PluginDoc struct {
	Name       string         `yaml:"name" toml:"name" json:"name"`
	ID         string         `yaml:"id,omitempty" toml:"id,omitempty" json:"id,omitempty"`
	Test       bool           `yaml:"test,omitempty" toml:"test,omitempty" json:"test,omitempty"`
	DSL        bool           `yaml:"dsl,omitempty" toml:"dsl,omitempty" json:"dsl,omitempty"`
	Descriptor string         `yaml:"descriptor,omitempty" toml:"descriptor,omitempty" json:"descriptor,omitempty"`
	Content    []ContentDoc   `yaml:"content,omitempty" toml:"content,omitempty" json:"content,omitempty"`
	Deps       []PluginDepDoc `yaml:"deps,omitempty" toml:"deps,omitempty" json:"deps,omitempty"`
}

type PluginDepDoc struct {
	Plugin   string `yaml:"plugin" toml:"plugin" json:"plugin"`
	Optional bool   `yaml:"optional,omitempty" toml:"optional,omitempty" json:"optional,omitempty"`
}

type ProductDoc struct {
	Name         string       `yaml:"name" toml:"name" json:"name"`
	Source       string       `yaml:"source,omitempty" toml:"source,omitempty" json:"source,omitempty"`
	Plugins      []string     `yaml:"plugins,omitempty" toml:"plugins,omitempty" json:"plugins,omitempty"`
	TestPlugins  []string     `yaml:"test_plugins,omitempty" toml:"test_plugins,omitempty" json:"test_plugins,omitempty"`
	ModuleSets   []string     `yaml:"module_sets,omitempty" toml:"module_sets,omitempty" json:"module_sets,omitempty"`
	Content      []ContentDoc `yaml:"content,omitempty" toml:"content,omitempty" json:"content,omitempty"`
	AllowMissing []string     `yaml:"allow_missing,omitempty" toml:"allow_missing,omitempty" json:"allow_missing,omitempty"`
}

type ModuleSetDoc struct {
	Name          string       `yaml:"name" toml:"name" json:"name"`
	SelfContained bool         `yaml:"self_contained,omitempty" toml:"self_contained,omitempty" json:"self_contained,omitempty"`
	Source        string       `yaml:"source,omitempty" toml:"source,omitempty" json:"source,omitempty"`
	Includes      []string     `yaml:"includes,omitempty" toml:"includes,omitempty" json:"includes,omitempty"`
	Content       []ContentDoc `yaml:"content,omitempty" toml:"content,omitempty" json:"content,omitempty"`
}
