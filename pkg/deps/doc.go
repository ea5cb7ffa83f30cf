// Package deps provides the dependency-resolution helpers shared by the
// validator rules, and the interfaces of the build-level collaborators they
// consult.
//
// # Helpers
//
//   - [CollectMissing]: transitive missing-dependency collection for a
//     product's modules, with allow-list and availability rules
//   - [PluginContentDeps]: dependency edges among a plugin's content
//     modules, including test edges for test plugins
//   - [ImplicitDeps]: build-graph dependencies a module's descriptor does
//     not declare
//   - [LibraryDeps]: direct library references of a module's targets
//
// # Collaborators
//
// The build model is out of this module's hands. Validators reach it only
// through three small interfaces:
//
//   - [BuildModel] enumerates raw build dependencies and classifies build
//     units as modules
//   - [ModuleOutputs] resolves build module names and their descriptor files
//   - [SourceLocator] finds the file declaring a product, module set or
//     plugin so patches can be anchored
//
// [GraphModel], [GraphOutputs] and [GraphLocator] implement them over the
// information recorded in a [graph.Graph], which is what the modgraph CLI
// uses when it loads a graph document.
package deps
