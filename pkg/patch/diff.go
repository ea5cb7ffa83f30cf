package patch

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

var (
	// ErrLineCountMismatch is returned by [Replacement] when the original and
	// modified contents differ in line count. Length-changing edits must be
	// expressed with [Insertion].
	ErrLineCountMismatch = errors.New("original and modified line counts differ")

	// ErrLineOutOfRange is returned by [Insertion] for an anchor line past
	// the end of the content.
	ErrLineOutOfRange = errors.New("line out of range")

	// ErrConflict is returned by [Apply] when a hunk's context or removed
	// lines do not match the content it is applied to.
	ErrConflict = errors.New("hunk does not match content")
)

// Patch is a proposed edit attached to a violation.
type Patch struct {
	Title string `json:"title"`
	Diff  string `json:"diff"`
}

// Diff is a unified diff of a single file.
type Diff struct {
	file *diff.FileDiff
}

// Path returns the file path the diff applies to, without the a/ prefix.
func (d *Diff) Path() string {
	return strings.TrimPrefix(d.file.OrigName, "a/")
}

// Hunks returns the number of hunks.
func (d *Diff) Hunks() int { return len(d.file.Hunks) }

// String renders the diff in unified format.
func (d *Diff) String() string {
	out, err := diff.PrintFileDiff(d.file)
	if err != nil {
		// PrintFileDiff only fails on writer errors, which bytes.Buffer never returns.
		return ""
	}
	return string(out)
}

// Patch wraps the rendered diff with a title.
func (d *Diff) Patch(title string) Patch {
	return Patch{Title: title, Diff: d.String()}
}

// Parse parses a single-file unified diff.
func Parse(text string) (*Diff, error) {
	fd, err := diff.ParseFileDiff([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("parse diff: %w", err)
	}
	return &Diff{file: fd}, nil
}

func newFileDiff(path string) *diff.FileDiff {
	return &diff.FileDiff{OrigName: "a/" + path, NewName: "b/" + path}
}

// splitLines splits content into lines without their terminators. A final
// newline does not start another line.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}

func joinLines(lines []string, trailingNewline bool) string {
	s := strings.Join(lines, "\n")
	if trailingNewline && len(lines) > 0 {
		s += "\n"
	}
	return s
}

func body(prefix byte, lines []string, buf *bytes.Buffer) {
	for _, l := range lines {
		buf.WriteByte(prefix)
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
}

// Insertion returns a diff that inserts lines after the 1-based line after
// of original, using that line as context. An after of 0 inserts at the top
// of the file.
func Insertion(path, original string, after int, lines []string) (*Diff, error) {
	orig := splitLines(original)
	if after < 0 || after > len(orig) {
		return nil, fmt.Errorf("insert after line %d of %d: %w", after, len(orig), ErrLineOutOfRange)
	}
	var buf bytes.Buffer
	h := &diff.Hunk{}
	if after == 0 {
		h.OrigStartLine, h.OrigLines = 0, 0
		h.NewStartLine, h.NewLines = 1, int32(len(lines))
	} else {
		body(' ', orig[after-1:after], &buf)
		h.OrigStartLine, h.OrigLines = int32(after), 1
		h.NewStartLine, h.NewLines = int32(after), int32(1+len(lines))
	}
	body('+', lines, &buf)
	h.Body = buf.Bytes()

	fd := newFileDiff(path)
	fd.Hunks = []*diff.Hunk{h}
	return &Diff{file: fd}, nil
}

// Replacement compares two same-length contents line by line and emits one
// hunk per maximal run of differing lines, without context. A change of the
// trailing newline alone counts as a change of the last line. It returns nil
// and no error when the contents are identical.
func Replacement(path, original, modified string) (*Diff, error) {
	if original == modified {
		return nil, nil
	}
	orig, mod := splitLines(original), splitLines(modified)
	if len(orig) != len(mod) {
		return nil, fmt.Errorf("%s: %d vs %d lines: %w", path, len(orig), len(mod), ErrLineCountMismatch)
	}
	origNL, modNL := strings.HasSuffix(original, "\n"), strings.HasSuffix(modified, "\n")
	last := len(orig) - 1
	differs := func(i int) bool {
		return orig[i] != mod[i] || (i == last && origNL != modNL)
	}
	var hunks []*diff.Hunk
	for i := 0; i < len(orig); {
		if !differs(i) {
			i++
			continue
		}
		start := i
		for i < len(orig) && differs(i) {
			i++
		}
		h := &diff.Hunk{
			OrigStartLine: int32(start + 1),
			OrigLines:     int32(i - start),
			NewStartLine:  int32(start + 1),
			NewLines:      int32(i - start),
		}
		var buf bytes.Buffer
		body('-', orig[start:i], &buf)
		if i == len(orig) && !origNL {
			h.OrigNoNewlineAt = int32(buf.Len())
		}
		body('+', mod[start:i], &buf)
		h.Body = buf.Bytes()
		if i == len(orig) && !modNL {
			h.Body = bytes.TrimSuffix(h.Body, []byte{'\n'})
		}
		hunks = append(hunks, h)
	}
	if len(hunks) == 0 {
		return nil, nil
	}
	fd := newFileDiff(path)
	fd.Hunks = hunks
	return &Diff{file: fd}, nil
}

// Apply applies d to original and returns the patched content. Context and
// removed lines must match exactly. The trailing-newline state of original
// is preserved unless a hunk ending the file marks it otherwise.
func Apply(original string, d *Diff) (string, error) {
	orig := splitLines(original)
	out := make([]string, 0, len(orig))
	trailingNewline := strings.HasSuffix(original, "\n") || original == ""
	pos := 0
	for i, h := range d.file.Hunks {
		start := int(h.OrigStartLine) - 1
		if h.OrigLines == 0 {
			// zero-length hunks anchor after OrigStartLine
			start = int(h.OrigStartLine)
		}
		if start < pos || start > len(orig) {
			return "", fmt.Errorf("hunk %d at line %d: %w", i+1, h.OrigStartLine, ErrConflict)
		}
		out = append(out, orig[pos:start]...)
		pos = start
		for _, l := range splitLines(string(h.Body)) {
			if l == "" {
				l = " "
			}
			text := l[1:]
			switch l[0] {
			case '+':
				out = append(out, text)
			case '-', ' ':
				if pos >= len(orig) || orig[pos] != text {
					return "", fmt.Errorf("hunk %d near line %d: %w", i+1, pos+1, ErrConflict)
				}
				if l[0] == ' ' {
					out = append(out, text)
				}
				pos++
			case '\\':
				// "\ No newline at end of file"
			default:
				return "", fmt.Errorf("hunk %d: unexpected line %q: %w", i+1, l, ErrConflict)
			}
		}
		if pos == len(orig) && len(h.Body) > 0 {
			switch {
			case !bytes.HasSuffix(h.Body, []byte{'\n'}):
				trailingNewline = false
			case h.OrigNoNewlineAt > 0:
				trailingNewline = true
			}
		}
	}
	out = append(out, orig[pos:]...)
	return joinLines(out, trailingNewline), nil
}

// ApplyText parses a unified diff and applies it to original.
func ApplyText(original, text string) (string, error) {
	d, err := Parse(text)
	if err != nil {
		return "", err
	}
	return Apply(original, d)
}
