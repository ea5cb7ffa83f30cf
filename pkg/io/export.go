package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/modgraph/pkg/errors"
	"github.com/matzehuels/modgraph/pkg/graph"
)

// FromGraph converts a graph back into a document. Nodes appear sorted by
// name; edges keep declaration order.
func FromGraph(g *graph.Graph) Document {
	var doc Document
	for m := range g.Modules() {
		md := ModuleDoc{Name: m.Name, Critical: m.Critical, Descriptor: m.Descriptor, Library: m.Library}
		for _, t := range g.BackingTargets(m.ID) {
			md.Targets = append(md.Targets, t.Name)
		}
		for _, d := range g.ModuleDeps(m.ID) {
			if d.Test {
				md.TestDeps = append(md.TestDeps, g.Name(d.Module))
			} else {
				md.Deps = append(md.Deps, g.Name(d.Module))
			}
		}
		md.AllowMissing = g.Names(g.AllowedMissing(m.ID))
		doc.Modules = append(doc.Modules, md)
	}
	for t := range g.Targets() {
		td := TargetDoc{Name: t.Name, Library: t.Library, BuildFile: t.BuildFile}
		for _, d := range g.TargetDeps(t.ID) {
			dd := TargetDepDoc{Target: g.Name(d.Target)}
			if d.Scope != graph.ScopeCompile {
				dd.Scope = d.Scope.String()
			}
			td.Deps = append(td.Deps, dd)
		}
		doc.Targets = append(doc.Targets, td)
	}
	for p := range g.Plugins() {
		pd := PluginDoc{
			Name:       p.Name,
			ID:         p.PluginID,
			Test:       p.Test,
			DSL:        p.DSL,
			Descriptor: p.Descriptor,
			Content:    contentDocs(g, g.PluginContent(p.ID)),
		}
		for _, d := range g.PluginDeps(p.ID) {
			pd.Deps = append(pd.Deps, PluginDepDoc{Plugin: g.Name(d.Plugin), Optional: d.Optional})
		}
		doc.Plugins = append(doc.Plugins, pd)
	}
	for p := range g.Products() {
		pd := ProductDoc{
			Name:         p.Name,
			Source:       p.Source,
			ModuleSets:   g.Names(g.ProductModuleSets(p.ID)),
			Content:      contentDocs(g, g.ProductContent(p.ID)),
			AllowMissing: g.Names(g.ProductAllowedMissing(p.ID)),
		}
		for _, b := range g.ProductPlugins(p.ID) {
			if b.Test {
				pd.TestPlugins = append(pd.TestPlugins, g.Name(b.Plugin))
			} else {
				pd.Plugins = append(pd.Plugins, g.Name(b.Plugin))
			}
		}
		doc.Products = append(doc.Products, pd)
	}
	for s := range g.ModuleSets() {
		doc.ModuleSets = append(doc.ModuleSets, ModuleSetDoc{
			Name:          s.Name,
			SelfContained: s.SelfContained,
			Source:        s.Source,
			Includes:      g.Names(g.ModuleSetIncludes(s.ID)),
			Content:       contentDocs(g, g.ModuleSetContent(s.ID)),
		})
	}
	return doc
}

func contentDocs(g *graph.Graph, entries []graph.ContentEntry) []ContentDoc {
	if len(entries) == 0 {
		return nil
	}
	out := make([]ContentDoc, len(entries))
	for i, e := range entries {
		out[i] = ContentDoc{Module: g.Name(e.Module), Loading: e.Mode.String(), Test: e.Test, AutoAdded: e.AutoAdded}
	}
	return out
}

// Encode serializes a document.
func Encode(doc Document, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported graph format %q", format)
}

// Write encodes g as a document and writes it to w.
func Write(g *graph.Graph, w io.Writer, format Format) error {
	data, err := Encode(FromGraph(g), format)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// Export writes g to path in the format implied by its extension.
func Export(g *graph.Graph, path string) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(g, f, format); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
