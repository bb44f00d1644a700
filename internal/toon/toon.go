// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/phobologic/classkit/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Table is one named tabular block.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// String renders the table as a TOON tabular array.
func (t Table) String() string {
	return formatTabular(t.Name, t.Columns, t.Rows)
}

// EncodeClasses renders the class listing for a project.
// Missing implementation or test files are shown as empty cells; methods are
// space-separated names.
func EncodeClasses(project, sourceDir string, classes []model.ClassInfo) string {
	rows := make([][]string, 0, len(classes))
	for _, c := range classes {
		rows = append(rows, []string{
			c.Name,
			string(c.Kind),
			c.Header,
			fmt.Sprintf("%d", c.Line),
			c.Impl,
			c.Test,
			strings.Join(c.MethodNames(), " "),
		})
	}
	return strings.Join([]string{
		fmt.Sprintf("project: %s", encodeValue(project)),
		fmt.Sprintf("source: %s", encodeValue(sourceDir)),
		Table{
			Name:    "classes",
			Columns: []string{"name", "kind", "header", "line", "impl", "test", "methods"},
			Rows:    rows,
		}.String(),
	}, "\n")
}

// EncodeTests renders the test cases declared in one file.
func EncodeTests(file string, decls []model.TestDeclaration) string {
	rows := make([][]string, 0, len(decls))
	for _, d := range decls {
		rows = append(rows, []string{
			fmt.Sprintf("%d", d.Line),
			d.DisplayName,
			strings.Join(d.Tags, " "),
		})
	}
	return strings.Join([]string{
		fmt.Sprintf("file: %s", encodeValue(file)),
		Table{
			Name:    "tests",
			Columns: []string{"line", "name", "tags"},
			Rows:    rows,
		}.String(),
	}, "\n")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
