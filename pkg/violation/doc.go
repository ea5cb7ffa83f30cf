// Package violation defines the structured findings produced by validator
// rules.
//
// A [Violation] names the rule that raised it, a context (the product,
// plugin, module set or module it concerns), a [Kind] and a [Payload]. The
// payload is a closed sum type: each kind has exactly one payload type, and
// JSON encoding carries the kind as the discriminator so reports can be
// cached and reloaded.
//
// Violations may carry proposed patches (unified diffs for review) and
// fixes (in-place rewrites applied only when auto-fix is enabled).
package violation
