package validate

import (
	"strings"

	"github.com/matzehuels/modgraph/pkg/graph"
	"github.com/matzehuels/modgraph/pkg/patch"
	"github.com/matzehuels/modgraph/pkg/pipeline"
)

// anchor is the place new statements go: they are inserted after line and
// belong to the block spanning line through end.
type anchor struct {
	line   int
	end    int
	indent string
}

// scope returns the text of the anchored block.
func (a anchor) scope(content string) string {
	return patch.Section(content, a.line, a.end)
}

// locator finds the anchor of a block in file content.
type locator func(content string) (anchor, bool)

func inBlock(name string) locator {
	return func(content string) (anchor, bool) {
		line, indent, ok := patch.FindBlock(content, name)
		if !ok {
			return anchor{}, false
		}
		return anchor{line: line, end: patch.BlockEnd(content, line), indent: indent}, true
	}
}

func inTag(tag string) locator {
	return func(content string) (anchor, bool) {
		line, indent, ok := patch.FindTag(content, tag)
		if !ok {
			return anchor{}, false
		}
		return anchor{line: line, end: patch.TagEnd(content, tag, line), indent: indent}, true
	}
}

// pending returns the statements of lines not yet present in the anchored
// block, indented. Other blocks of the same file do not count.
func pending(content string, at anchor, lines []string) []string {
	scope := at.scope(content)
	var out []string
	for _, l := range lines {
		if !strings.Contains(scope, l) {
			out = append(out, at.indent+l)
		}
	}
	return out
}

// insertion proposes inserting lines at the position found by at in the
// file declaring (kind, name). Lines already present are left out.
func insertion(c *pipeline.RuleContext, kind graph.Kind, name string, at locator, lines []string, title string) []patch.Patch {
	path, ok := c.Locate(kind, name)
	if !ok {
		return nil
	}
	content, ok := c.ReadFile(path)
	if !ok {
		return nil
	}
	a, ok := at(content)
	if !ok {
		return nil
	}
	add := pending(content, a, lines)
	if len(add) == 0 {
		return nil
	}
	d, err := patch.Insertion(path, content, a.line, add)
	if err != nil {
		c.Logger().Debug("cannot build insertion", "path", path, "err", err)
		return nil
	}
	return []patch.Patch{d.Patch(title)}
}

// insertionFix is [insertion] for a known path, additionally returning the
// equivalent in-place fix. The fix locates its anchor again at apply time.
func insertionFix(c *pipeline.RuleContext, path string, at locator, lines []string, title string) ([]patch.Patch, []patch.Fix) {
	edit := func(content string) (string, bool, error) {
		a, ok := at(content)
		if !ok {
			return content, false, nil
		}
		add := pending(content, a, lines)
		if len(add) == 0 {
			return content, false, nil
		}
		out, err := patch.InsertLines(content, a.line, add)
		return out, err == nil, err
	}
	content, ok := c.ReadFile(path)
	if !ok {
		return nil, nil
	}
	a, ok := at(content)
	if !ok {
		return nil, nil
	}
	add := pending(content, a, lines)
	if len(add) == 0 {
		return nil, nil
	}
	d, err := patch.Insertion(path, content, a.line, add)
	if err != nil {
		c.Logger().Debug("cannot build insertion", "path", path, "err", err)
		return nil, nil
	}
	return []patch.Patch{d.Patch(title)}, []patch.Fix{{Path: path, Title: title, Edit: edit}}
}

// rewrite runs a line-preserving edit on the file at path and returns the
// resulting diff and the fix re-running the edit in place.
func rewrite(c *pipeline.RuleContext, path, title string, edit patch.Edit) ([]patch.Patch, []patch.Fix) {
	content, ok := c.ReadFile(path)
	if !ok {
		return nil, nil
	}
	out, changed, err := edit(content)
	if err != nil || !changed {
		return nil, nil
	}
	d, err := patch.Replacement(path, content, out)
	if err != nil || d == nil {
		c.Logger().Debug("cannot build replacement", "path", path, "err", err)
		return nil, nil
	}
	return []patch.Patch{d.Patch(title)}, []patch.Fix{{Path: path, Title: title, Edit: edit}}
}

// calls renders one DSL call per argument, e.g. module("a").
func calls(fn string, args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = fn + `("` + a + `")`
	}
	return out
}

// moduleElements renders descriptor dependency elements.
func moduleElements(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = `<module name="` + n + `"/>`
	}
	return out
}
