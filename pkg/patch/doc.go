// Package patch turns violations into reviewable unified diffs and applies
// in-place descriptor rewrites.
//
// # Diffs
//
// Two constructors cover every edit the rules propose:
//
//   - [Insertion] adds lines after a known anchor line (for example after
//     the opening brace of a plugin block), keeping the anchor as context.
//   - [Replacement] compares original and modified content of equal length
//     and emits a hunk for each maximal run of differing lines. Identical
//     content yields no diff at all; a line-count change is refused with
//     [ErrLineCountMismatch].
//
// Diffs are rendered and parsed with github.com/sourcegraph/go-diff, and
// [Apply] replays one onto its original content, failing with [ErrConflict]
// rather than guessing when the content has drifted.
//
// # Text Rewrites
//
// [SetAttribute], [ReplaceCall], [FindBlock], [FindTag] and [InsertLines]
// edit descriptor XML and build-script text with narrowly scoped patterns
// instead of a parse and re-serialize round trip, so unrelated formatting
// and comments survive untouched. [SetAttributeIn], [BlockEnd], [TagEnd]
// and [Section] confine a rewrite or a lookup to one element or block.
//
// # Fixing
//
// A [Fixer] applies [Fix] values to disk. Fixes are grouped by file and
// applied serially per file, files in parallel. Each file is replaced
// through a temporary sibling and a rename.
package patch
