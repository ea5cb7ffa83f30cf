// Package validate contains the consistency rules run by modgraph check.
//
// Every rule is a [pipeline.Rule]. [DefaultRules] returns the complete set
// in a stable order; the pipeline derives the execution order from the slots
// the rules exchange:
//
//	content-module-backing    -> Backing           -> library-modules, test-library-scope
//	product-closure           -> ProductModules    -> product-module-dependencies
//	plugin-content-collector  -> PluginContentDeps -> plugin-content-dependencies, structural-loading
//	implicit-deps             -> ImplicitDeps      -> plugin-content-dependencies
//
// The remaining rules (self-contained-module-sets, module-set-cycles,
// duplicate-content, duplicate-plugin-ids, plugin-dependencies and
// suppression-keys) only read the graph and start immediately.
//
// # Suppressions
//
// Rules consult the suppression config with an owner and a key. The owner is
// the dependent module, the product or module set, or the plugin identifier
// (falling back to the plugin name); the key is the name of the dependency,
// library or duplicated module. Backing violations use the violation kind as
// the key.
//
// # Patches and fixes
//
// Where the offending declaration can be located, violations carry unified
// diffs. Structural loading, library reference and test library violations
// also carry in-place fixes that modgraph check --fix applies.
package validate
