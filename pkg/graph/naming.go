package graph

import "strings"

// ExpectedTargetName returns the canonical build target name for a content
// module name. Module names use "/" to separate a sub-module from its parent
// ("intellij.git/ui"); target names are flat and dot separated
// ("intellij.git.ui").
func ExpectedTargetName(module string) string {
	return strings.ReplaceAll(module, "/", ".")
}
