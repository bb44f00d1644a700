// Package tags appends Catch2 tags to the TEST_CASE declarations of a file.
package tags

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/phobologic/classkit/internal/fsutil"
	"github.com/phobologic/classkit/internal/model"
)

// testCaseRe matches TEST_CASE("name") and TEST_CASE("name", "[a][b]").
// Groups: 1 everything up to and including the quoted name, 2 the name,
// 3 the tag list without quotes (empty when absent).
var testCaseRe = regexp.MustCompile(`(TEST_CASE\s*\(\s*"((?:[^"\\]|\\.)*)")\s*(?:,\s*"((?:\[[^\]"]*\])*)"\s*)?\)`)

var tagRe = regexp.MustCompile(`\[([^\]]*)\]`)

// NormalizeTag strips surrounding brackets so "[Foo]" and "Foo" are the same
// tag.
func NormalizeTag(tag string) (string, error) {
	t := strings.TrimSpace(strings.Trim(strings.TrimSpace(tag), "[]"))
	if t == "" {
		return "", fmt.Errorf("%w: empty tag %q", model.ErrInvalidInput, tag)
	}
	if strings.ContainsAny(t, `[]"`) {
		return "", fmt.Errorf("%w: tag %q contains brackets or quotes", model.ErrInvalidInput, tag)
	}
	return t, nil
}

// Annotate appends [tag] to every TEST_CASE in content whose tag list does
// not already contain it. tag must already be normalized. It returns the new
// content and the number of declarations changed.
func Annotate(content, tag string) (string, int) {
	bracketed := "[" + tag + "]"
	modified := 0

	out := testCaseRe.ReplaceAllStringFunc(content, func(match string) string {
		m := testCaseRe.FindStringSubmatch(match)
		prefix, existing := m[1], m[3]
		if strings.Contains(existing, bracketed) {
			return match
		}
		modified++
		return prefix + `, "` + existing + bracketed + `")`
	})
	return out, modified
}

// Parse returns every TEST_CASE declaration found in content.
func Parse(content string) []model.TestDeclaration {
	var decls []model.TestDeclaration
	for _, loc := range testCaseRe.FindAllStringSubmatchIndex(content, -1) {
		d := model.TestDeclaration{
			DisplayName: content[loc[4]:loc[5]],
			Line:        1 + strings.Count(content[:loc[0]], "\n"),
		}
		if loc[6] >= 0 {
			for _, t := range tagRe.FindAllStringSubmatch(content[loc[6]:loc[7]], -1) {
				d.Tags = append(d.Tags, t[1])
			}
		}
		decls = append(decls, d)
	}
	return decls
}

// Result describes the effect of annotating one file.
type Result struct {
	Path     string
	Before   string
	After    string
	Modified int
}

// AnnotateFile annotates the file at path with tag. The file is written back
// only when write is set and at least one declaration changed, so an
// already-tagged file keeps its content and modification time.
func AnnotateFile(path, tag string, write bool) (Result, error) {
	t, err := NormalizeTag(tag)
	if err != nil {
		return Result{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, fmt.Errorf("%w: %s", model.ErrNotFound, path)
		}
		return Result{}, fmt.Errorf("reading %s: %w", path, err)
	}

	before := string(data)
	after, n := Annotate(before, t)
	res := Result{Path: path, Before: before, After: after, Modified: n}
	if n == 0 || !write {
		return res, nil
	}
	if err := fsutil.WriteAtomic(path, []byte(after)); err != nil {
		return res, err
	}
	return res, nil
}
