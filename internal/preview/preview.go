// Package preview renders pending file edits as unified diffs for dry runs.
package preview

import (
	"fmt"
	"io"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultContext is the number of unchanged lines shown around each hunk.
const DefaultContext = 3

// Unified returns a unified diff turning before into after, labelled with
// name. Identical inputs produce an empty string.
func Unified(name string, before, after []byte, context int) (string, error) {
	if string(before) == string(after) {
		return "", nil
	}
	if context <= 0 {
		context = DefaultContext
	}
	from := "a/" + name
	if len(before) == 0 {
		from = "/dev/null"
	}
	d := difflib.UnifiedDiff{
		A:        splitLines(before),
		B:        splitLines(after),
		FromFile: from,
		ToFile:   "b/" + name,
		Context:  context,
	}
	s, err := difflib.GetUnifiedDiffString(d)
	if err != nil {
		return "", fmt.Errorf("diffing %s: %w", name, err)
	}
	return s, nil
}

// Write renders the diff for one file onto w. Nothing is written when the
// contents match.
func Write(w io.Writer, name string, before, after []byte) error {
	s, err := Unified(name, before, after, DefaultContext)
	if err != nil || s == "" {
		return err
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, err = io.WriteString(w, s)
	return err
}

// splitLines keeps the newline on every line. A final line without one is
// terminated so hunks stay one entry per line.
func splitLines(b []byte) []string {
	if len(b) == 0 {
		return nil
	}
	lines := strings.SplitAfter(string(b), "\n")
	if last := lines[len(lines)-1]; last == "" {
		lines = lines[:len(lines)-1]
	} else {
		lines[len(lines)-1] = last + "\n"
	}
	return lines
}
