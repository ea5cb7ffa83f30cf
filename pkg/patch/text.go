package patch

import (
	"fmt"
	"regexp"
	"strings"
)

// The rewrite helpers below edit descriptor and build-script text with
// narrowly scoped patterns. Everything outside the matched element or call
// is returned byte for byte, comments and formatting included.

// element matches one start or empty-element tag of the given name whose
// key attribute has the given value.
func element(tag, key, value string) *regexp.Regexp {
	return regexp.MustCompile(`<` + regexp.QuoteMeta(tag) + `\b[^>]*?\b` + regexp.QuoteMeta(key) +
		`\s*=\s*"` + regexp.QuoteMeta(value) + `"[^>]*?(/?)>`)
}

// SetAttribute sets attr="value" on the first <tag> element whose key
// attribute equals keyValue, replacing an existing value or adding the
// attribute before the tag's closing bracket. It reports whether the content
// changed.
func SetAttribute(content, tag, key, keyValue, attr, value string) (string, bool) {
	re := element(tag, key, keyValue)
	loc := re.FindStringSubmatchIndex(content)
	if loc == nil {
		return content, false
	}
	start, end := loc[0], loc[1]
	elem := content[start:end]

	attrRe := regexp.MustCompile(`\b` + regexp.QuoteMeta(attr) + `\s*=\s*"[^"]*"`)
	var updated string
	if attrRe.MatchString(elem) {
		updated = attrRe.ReplaceAllLiteralString(elem, fmt.Sprintf(`%s="%s"`, attr, value))
	} else {
		// insert before "/>" or ">", keeping the whitespace in front of it
		closer := elem[loc[2]-start:]
		inner := elem[:len(elem)-len(closer)]
		head := strings.TrimRight(inner, " \t\r\n")
		updated = head + fmt.Sprintf(` %s="%s"`, attr, value) + inner[len(head):] + closer
	}
	if updated == elem {
		return content, false
	}
	return content[:start] + updated + content[end:], true
}

// SetAttributeIn is [SetAttribute] restricted to the body of the first
// <container> element, so that equally named elements in sibling sections
// are left alone.
func SetAttributeIn(content, container, tag, key, keyValue, attr, value string) (string, bool) {
	start, end, ok := TagBody(content, container)
	if !ok {
		return content, false
	}
	inner, changed := SetAttribute(content[start:end], tag, key, keyValue, attr, value)
	if !changed {
		return content, false
	}
	return content[:start] + inner + content[end:], true
}

// openTag matches an opening <tag>, with or without attributes.
func openTag(tag string) *regexp.Regexp {
	return regexp.MustCompile(`<` + regexp.QuoteMeta(tag) + `(\s[^>]*)?>`)
}

// TagBody returns the byte range between the first non-empty <tag> element's
// opening tag and its closing </tag>.
func TagBody(content, tag string) (start, end int, ok bool) {
	re := openTag(tag)
	for _, loc := range re.FindAllStringIndex(content, -1) {
		if strings.HasSuffix(content[loc[0]:loc[1]], "/>") {
			continue
		}
		closing := strings.Index(content[loc[1]:], "</"+tag+">")
		if closing < 0 {
			return 0, 0, false
		}
		return loc[1], loc[1] + closing, true
	}
	return 0, 0, false
}

// ReplaceCall rewrites the first call fn("arg") to repl("arg") in build
// script text, for example module("a.b") to requiredModule("a.b"). Only a
// call whose sole argument is the quoted literal matches.
func ReplaceCall(content, fn, arg, repl string) (string, bool) {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(fn) + `\(\s*"` + regexp.QuoteMeta(arg) + `"\s*\)`)
	loc := re.FindStringIndex(content)
	if loc == nil {
		return content, false
	}
	return content[:loc[0]] + repl + `("` + arg + `")` + content[loc[1]:], true
}

// FindBlock returns the 1-based number of the first line that mentions the
// quoted name and opens a block with "{", together with the indentation to
// use for statements inside the block.
func FindBlock(content, name string) (line int, indent string, ok bool) {
	quoted := `"` + name + `"`
	lines := splitLines(content)
	for i, l := range lines {
		if strings.Contains(l, quoted) && strings.HasSuffix(strings.TrimSpace(l), "{") {
			return i + 1, innerIndent(lines, i), true
		}
	}
	return 0, "", false
}

// FindTag returns the 1-based number of the first line containing an
// opening <tag> (with or without attributes) and the indentation used for
// its children.
func FindTag(content, tag string) (line int, indent string, ok bool) {
	re := openTag(tag)
	lines := splitLines(content)
	for i, l := range lines {
		if m := re.FindString(l); m != "" && !strings.HasSuffix(m, "/>") {
			return i + 1, innerIndent(lines, i), true
		}
	}
	return 0, "", false
}

// BlockEnd returns the 1-based line closing the "{" block opened on the
// 1-based line, counting braces outside string literals. An unbalanced block
// ends at the last line.
func BlockEnd(content string, line int) int {
	lines := splitLines(content)
	depth := 0
	for i := max(line-1, 0); i < len(lines); i++ {
		quoted := false
		for _, r := range lines[i] {
			switch {
			case r == '"':
				quoted = !quoted
			case quoted:
			case r == '{':
				depth++
			case r == '}':
				depth--
			}
		}
		if depth <= 0 {
			return i + 1
		}
	}
	return len(lines)
}

// TagEnd returns the 1-based line holding the first </tag> at or after the
// 1-based line, or the last line when there is none.
func TagEnd(content, tag string, line int) int {
	lines := splitLines(content)
	for i := max(line-1, 0); i < len(lines); i++ {
		if strings.Contains(lines[i], "</"+tag+">") {
			return i + 1
		}
	}
	return len(lines)
}

// Section returns the 1-based lines from through to of content, joined.
func Section(content string, from, to int) string {
	lines := splitLines(content)
	from = min(max(from, 1), len(lines)+1)
	to = min(max(to, from-1), len(lines))
	return strings.Join(lines[from-1:to], "\n")
}

// innerIndent guesses the indentation of statements nested under line i:
// the next line's indentation when it is deeper, else the line's own
// indentation plus two spaces.
func innerIndent(lines []string, i int) string {
	own := leading(lines[i])
	if i+1 < len(lines) {
		if next := leading(lines[i+1]); len(next) > len(own) {
			return next
		}
	}
	return own + "  "
}

func leading(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t"))]
}

// InsertLines inserts lines after the 1-based line after. It is the content
// counterpart of [Insertion].
func InsertLines(content string, after int, lines []string) (string, error) {
	orig := splitLines(content)
	if after < 0 || after > len(orig) {
		return "", fmt.Errorf("insert after line %d of %d: %w", after, len(orig), ErrLineOutOfRange)
	}
	out := make([]string, 0, len(orig)+len(lines))
	out = append(out, orig[:after]...)
	out = append(out, lines...)
	out = append(out, orig[after:]...)
	return joinLines(out, strings.HasSuffix(content, "\n") || content == ""), nil
}
