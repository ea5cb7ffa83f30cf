// Package io reads and writes composition-graph documents.
//
// # Overview
//
// A composition graph is normally extracted from a build model by tooling
// outside this module. This package gives that extraction a stable file
// format so the checker can run on a snapshot: a YAML or TOML document
// listing content modules, build targets, plugins, products and module sets
// by name, with every edge expressed as a name reference.
//
// # Document Format
//
// A minimal YAML document:
//
//	modules:
//	  - name: intellij.platform.core
//	    descriptor: platform/core/resources/intellij.platform.core.xml
//	    targets: [intellij.platform.core]
//	    deps: [intellij.platform.util]
//	  - name: intellij.platform.util
//	    targets: [intellij.platform.util]
//	targets:
//	  - name: intellij.platform.core
//	    build_file: platform/core/intellij.platform.core.iml
//	    deps:
//	      - {target: intellij.platform.util}
//	      - {target: junit, scope: test}
//	  - name: intellij.platform.util
//	  - name: junit
//	    library: true
//	plugins:
//	  - name: core
//	    id: com.intellij
//	    content:
//	      - {module: intellij.platform.core, loading: required}
//	products:
//	  - name: IDE
//	    plugins: [core]
//	    module_sets: [essential]
//	module_sets:
//	  - name: essential
//	    content:
//	      - {module: intellij.platform.util}
//
// The same structure is accepted as TOML using arrays of tables
// ([[modules]], [[plugins]], ...). JSON documents are read through the YAML
// decoder.
//
// Plugin dependencies name either a plugin or a descriptor identifier; an
// identifier must resolve to exactly one plugin.
//
// # Import
//
// Use [Import] to read a document from a file path, or [Read] to read from
// any io.Reader:
//
//	g, err := io.Import("graph.yaml")
//
// Reference errors (an edge naming an undeclared node, an unknown loading
// mode or scope) are collected over the whole document and returned
// together with code INVALID_GRAPH.
//
// # Export
//
// [Export] and [Write] go the other way, producing a document that
// re-imports to a graph with the same [graph.Graph.Fingerprint].
package io
