package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateNodeName validates a module, plugin, product or module set name
// read from a graph document.
//
// The rules are conservative:
//   - No empty names
//   - No whitespace or control characters
//   - No leading, trailing or doubled slashes
//   - Maximum length of 256 characters
func ValidateNodeName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidGraph, "node name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidGraph, "node name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidGraph, "node name %q contains whitespace or control characters", name)
		}
	}

	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") || strings.Contains(name, "//") {
		return New(ErrCodeInvalidGraph, "node name %q has a malformed sub-module separator", name)
	}

	return nil
}

// ValidatePath validates a file path recorded in a graph document for safety.
// Paths are resolved against the project root, so they must stay inside it:
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// pluginIDRegex matches reverse-domain plugin identifiers ("com.example.app").
var pluginIDRegex = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]*$`)

// ValidatePluginID validates a plugin descriptor identifier. The empty
// string is valid: aliases carry no identifier.
func ValidatePluginID(id string) error {
	if id == "" {
		return nil
	}
	if !pluginIDRegex.MatchString(id) {
		return New(ErrCodeInvalidGraph, "invalid plugin identifier %q", id)
	}
	return nil
}

// ruleNameRegex matches kebab-case rule names.
var ruleNameRegex = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

// ValidateRuleName validates a rule name given on the command line.
func ValidateRuleName(name string) error {
	if !ruleNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid rule name %q (want kebab-case)", name)
	}
	return nil
}
