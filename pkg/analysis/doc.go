// Package analysis summarizes how products and module sets of a composition
// graph are put together.
//
// # Overview
//
// Validation answers whether a graph is consistent. Analysis answers how it
// is composed, which is what refactorings of module sets need: which
// products pull in a module and through which sets, how large each product
// really is, and which module sets repeat each other.
//
// [Analyze] computes a [Report] with these sections:
//
//   - products with direct, total and unique module counts
//   - module sets with their direct and flattened membership
//   - duplicate analysis: modules declared by several sets, and pairs of
//     sets sharing many flattened modules
//   - product composition: the module sets each product reaches and the
//     include path it reaches them by
//   - module distribution and usage index, keyed by module name
//   - module-set hierarchy: includes, parents and direct module counts
//   - module-set overlap: pairs of unrelated sets whose direct modules
//     overlap by at least [Options.MinOverlapPercent]
//
// A [Filter] narrows the report to one section, or to a single product or
// module set.
//
// # Usage
//
//	rep, err := analysis.Analyze(g, analysis.Options{Filter: analysis.FilterComposition})
//	if err != nil {
//	    return err
//	}
//	data, err := rep.Encode(mgio.FormatJSON)
package analysis
