package io

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/modgraph/pkg/errors"
	"github.com/matzehuels/modgraph/pkg/graph"
)

// Read decodes a graph document from r and builds the graph it describes.
// Read does not close r.
func Read(r io.Reader, format Format) (*graph.Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	doc, err := Decode(data, format)
	if err != nil {
		return nil, err
	}
	return Build(doc)
}

// Import reads the graph document at path, choosing the decoder from the
// file extension.
func Import(path string) (*graph.Graph, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "graph document %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	g, err := Read(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Decode parses document bytes without resolving references.
func Decode(data []byte, format Format) (Document, error) {
	var doc Document
	var err error
	switch format {
	case FormatTOML:
		_, err = toml.NewDecoder(bytes.NewReader(data)).Decode(&doc)
	case FormatYAML, FormatJSON:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&doc)
		if err == io.EOF {
			err = nil
		}
	default:
		return Document{}, errors.New(errors.ErrCodeInvalidFormat, "unsupported graph format %q", format)
	}
	if err != nil {
		return Document{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse %s graph document", format)
	}
	return doc, nil
}

// Build resolves the name references of doc into a graph. Every problem in
// the document is reported, joined into one INVALID_GRAPH error.
func Build(doc Document) (*graph.Graph, error) {
	r := newResolver()
	r.vet(doc)
	r.declare(doc)
	r.link(doc)

	g, err := r.b.Build()
	if err != nil {
		r.errs = append(r.errs, err)
	}
	if len(r.errs) > 0 {
		return nil, errors.Wrap(errors.ErrCodeInvalidGraph, stderrors.Join(r.errs...), "invalid graph document")
	}
	return g, nil
}

// resolver maps document names to builder IDs.
type resolver struct {
	b        *graph.Builder
	modules  map[string]graph.ID
	targets  map[string]graph.ID
	plugins  map[string]graph.ID
	products map[string]graph.ID
	sets     map[string]graph.ID
	pluginID map[string][]graph.ID
	errs     []error
}

func newResolver() *resolver {
	return &resolver{
		b:        graph.NewBuilder(),
		modules:  map[string]graph.ID{},
		targets:  map[string]graph.ID{},
		plugins:  map[string]graph.ID{},
		products: map[string]graph.ID{},
		sets:     map[string]graph.ID{},
		pluginID: map[string][]graph.ID{},
	}
}

func (r *resolver) failf(format string, args ...any) {
	r.errs = append(r.errs, fmt.Errorf(format, args...))
}

// vet checks node names, plugin identifiers and recorded paths.
func (r *resolver) vet(doc Document) {
	name := func(kind, n string) {
		if err := errors.ValidateNodeName(n); err != nil {
			r.failf("%s: %v", kind, err)
		}
	}
	path := func(owner, p string) {
		if p == "" {
			return
		}
		if err := errors.ValidatePath(p); err != nil {
			r.failf("%s: %s: %v", owner, p, err)
		}
	}
	for _, m := range doc.Modules {
		name("module", m.Name)
		path("module "+m.Name, m.Descriptor)
	}
	for _, t := range doc.Targets {
		name("target", t.Name)
		path("target "+t.Name, t.BuildFile)
	}
	for _, p := range doc.Plugins {
		name("plugin", p.Name)
		path("plugin "+p.Name, p.Descriptor)
		if err := errors.ValidatePluginID(p.ID); err != nil {
			r.failf("plugin %s: %v", p.Name, err)
		}
	}
	for _, p := range doc.Products {
		name("product", p.Name)
		path("product "+p.Name, p.Source)
	}
	for _, s := range doc.ModuleSets {
		name("module set", s.Name)
		path("module set "+s.Name, s.Source)
	}
}

// declare registers every node before any edge is resolved, so references
// may point forward in the document.
func (r *resolver) declare(doc Document) {
	for _, m := range doc.Modules {
		remember(r.modules, m.Name, r.b.AddModule(graph.Module{
			Name:       m.Name,
			Critical:   m.Critical,
			Descriptor: m.Descriptor,
			Library:    m.Library,
		}))
	}
	for _, t := range doc.Targets {
		remember(r.targets, t.Name, r.b.AddTarget(graph.Target{Name: t.Name, Library: t.Library, BuildFile: t.BuildFile}))
	}
	for _, p := range doc.Plugins {
		id := r.b.AddPlugin(graph.Plugin{
			Name:       p.Name,
			PluginID:   p.ID,
			Test:       p.Test,
			DSL:        p.DSL,
			Descriptor: p.Descriptor,
		})
		remember(r.plugins, p.Name, id)
		if p.ID != "" && id != graph.NoID {
			r.pluginID[p.ID] = append(r.pluginID[p.ID], id)
		}
	}
	for _, p := range doc.Products {
		remember(r.products, p.Name, r.b.AddProduct(graph.Product{Name: p.Name, Source: p.Source}))
	}
	for _, s := range doc.ModuleSets {
		remember(r.sets, s.Name, r.b.AddModuleSet(graph.ModuleSet{Name: s.Name, SelfContained: s.SelfContained, Source: s.Source}))
	}
}

// remember keeps the first registration of a name; the builder reports
// duplicates.
func remember(index map[string]graph.ID, name string, id graph.ID) {
	if _, ok := index[name]; !ok {
		index[name] = id
	}
}

func (r *resolver) link(doc Document) {
	for _, m := range doc.Modules {
		from := r.modules[m.Name]
		for _, t := range m.Targets {
			if to, ok := r.lookup(r.targets, "module "+m.Name, "target", t); ok {
				r.b.SetBacking(from, to)
			}
		}
		for _, d := range m.Deps {
			if to, ok := r.lookup(r.modules, "module "+m.Name, "dependency", d); ok {
				r.b.AddModuleDep(from, to, false)
			}
		}
		for _, d := range m.TestDeps {
			if to, ok := r.lookup(r.modules, "module "+m.Name, "test dependency", d); ok {
				r.b.AddModuleDep(from, to, true)
			}
		}
		for _, d := range m.AllowMissing {
			if to, ok := r.lookup(r.modules, "module "+m.Name, "allow-missing module", d); ok {
				r.b.AllowMissing(from, to)
			}
		}
	}

	for _, t := range doc.Targets {
		from := r.targets[t.Name]
		for _, d := range t.Deps {
			scope, err := graph.ParseScope(d.Scope)
			if err != nil {
				r.failf("target %s: dependency %s: %w", t.Name, d.Target, err)
				continue
			}
			if to, ok := r.lookup(r.targets, "target "+t.Name, "dependency", d.Target); ok {
				r.b.AddTargetDep(from, to, scope)
			}
		}
	}

	for _, p := range doc.Plugins {
		owner := r.plugins[p.Name]
		r.content(owner, "plugin "+p.Name, p.Content)
		for _, d := range p.Deps {
			if to, ok := r.plugin("plugin "+p.Name, d.Plugin); ok {
				r.b.AddPluginDep(owner, to, d.Optional)
			}
		}
	}

	for _, p := range doc.Products {
		owner := r.products[p.Name]
		where := "product " + p.Name
		for _, name := range p.Plugins {
			if pl, ok := r.lookup(r.plugins, where, "plugin", name); ok {
				r.b.Bundle(owner, pl, false)
			}
		}
		for _, name := range p.TestPlugins {
			if pl, ok := r.lookup(r.plugins, where, "test plugin", name); ok {
				r.b.Bundle(owner, pl, true)
			}
		}
		for _, name := range p.ModuleSets {
			if s, ok := r.lookup(r.sets, where, "module set", name); ok {
				r.b.Include(owner, s)
			}
		}
		r.content(owner, where, p.Content)
		for _, name := range p.AllowMissing {
			if m, ok := r.lookup(r.modules, where, "allow-missing module", name); ok {
				r.b.ProductAllowMissing(owner, m)
			}
		}
	}

	for _, s := range doc.ModuleSets {
		owner := r.sets[s.Name]
		where := "module set " + s.Name
		for _, name := range s.Includes {
			if inc, ok := r.lookup(r.sets, where, "included set", name); ok {
				r.b.Include(owner, inc)
			}
		}
		r.content(owner, where, s.Content)
	}
}

func (r *resolver) content(owner graph.ID, where string, entries []ContentDoc) {
	for _, e := range entries {
		mode, err := graph.ParseLoadingMode(e.Loading)
		if err != nil {
			r.failf("%s: content %s: %w", where, e.Module, err)
			continue
		}
		m, ok := r.lookup(r.modules, where, "content module", e.Module)
		if !ok {
			continue
		}
		r.b.AddContent(owner, graph.ContentEntry{Module: m, Mode: mode, Test: e.Test, AutoAdded: e.AutoAdded})
	}
}

// lookup resolves name in index. Names of nodes whose registration failed
// resolve to graph.NoID and are accepted silently; the builder already
// reported them.
func (r *resolver) lookup(index map[string]graph.ID, where, what, name string) (graph.ID, bool) {
	id, ok := index[name]
	if !ok {
		r.failf("%s: %s %q: %w", where, what, name, graph.ErrUnknownNode)
		return graph.NoID, false
	}
	return id, id != graph.NoID
}

// plugin resolves a plugin dependency by plugin name first, then by
// descriptor identifier.
func (r *resolver) plugin(where, ref string) (graph.ID, bool) {
	if id, ok := r.plugins[ref]; ok {
		return id, id != graph.NoID
	}
	switch ids := r.pluginID[ref]; len(ids) {
	case 1:
		return ids[0], true
	case 0:
		r.failf("%s: plugin dependency %q: %w", where, ref, graph.ErrUnknownNode)
	default:
		r.failf("%s: plugin dependency %q matches %d plugins", where, ref, len(ids))
	}
	return graph.NoID, false
}
