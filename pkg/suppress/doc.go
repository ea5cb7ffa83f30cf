// Package suppress loads suppression configurations and matches violations
// against them.
//
// A suppression file maps a module name or plugin identifier to the
// violation keys silenced for it:
//
//	[suppressions]
//	"intellij.git" = ["lib.guava", "intellij.vcs.impl"]
//
// The same layout is accepted as YAML or JSON. [Matcher] consults the
// configuration during a run and records which entries were used, so stale
// entries can be reported ([Matcher.Unused]) or pruned when regenerating the
// file ([Matcher.Regenerate]).
package suppress
