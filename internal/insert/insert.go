// Package insert adds member function declarations and definitions to the
// files of an existing class.
//
// Headers are not parsed. The class body is found by scanning lines: a line
// naming "class <Name>" opens it and the first following line containing
// "};" closes it. Nested type definitions inside the body and repeated
// definitions of the class make the end ambiguous and are rejected rather
// than guessed at. Comments containing "};", multi-line signatures and
// preprocessor conditionals are not understood.
package insert

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/phobologic/classkit/internal/fsutil"
	"github.com/phobologic/classkit/internal/model"
)

const (
	indent     = "    "
	terminator = "};"
)

var (
	typeKeywordRe = regexp.MustCompile(`\b(?:class|struct|union|enum)\b`)
	accessRe      = regexp.MustCompile(`^(?:public|protected|private)\s*:\s*`)
)

type scanState int

const (
	scanning scanState = iota
	insideClass
	done
)

// Locate returns the index of the line that closes the body of class name.
// lines may keep their line terminators.
func Locate(lines []string, name string) (int, error) {
	state := scanning
	start, end := -1, -1

	for i, raw := range lines {
		line := strings.TrimRight(raw, "\r\n")
		if isComment(line) {
			continue
		}

		switch state {
		case scanning:
			if !opensClass(line, name) {
				continue
			}
			if strings.Contains(line, terminator) {
				return -1, fmt.Errorf("%w: class %s is defined on a single line (line %d)", model.ErrMalformedClass, name, i+1)
			}
			start = i
			state = insideClass

		case insideClass:
			if opensType(line) {
				return -1, fmt.Errorf("%w: class %s contains a nested type at line %d", model.ErrMalformedClass, name, i+1)
			}
			if strings.Contains(line, terminator) {
				end = i
				state = done
			}

		case done:
			if opensClass(line, name) {
				return -1, fmt.Errorf("%w: class %s is defined more than once (lines %d and %d)", model.ErrMalformedClass, name, start+1, i+1)
			}
		}
	}

	switch state {
	case scanning:
		return -1, fmt.Errorf("%w: class %s", model.ErrNotFound, name)
	case insideClass:
		return -1, fmt.Errorf("%w: class %s opened at line %d has no closing %q", model.ErrMalformedClass, name, start+1, terminator)
	}
	return end, nil
}

// opensClass reports whether line holds "class <name>" as whole words and is
// not a forward declaration.
func opensClass(line, name string) bool {
	needle := "class " + name
	for from := 0; ; {
		idx := strings.Index(line[from:], needle)
		if idx < 0 {
			return false
		}
		idx += from
		after := idx + len(needle)
		if (idx == 0 || !isIdentByte(line[idx-1])) && (after == len(line) || !isIdentByte(line[after])) {
			return !isForwardDecl(line[after:])
		}
		from = idx + 1
	}
}

// isForwardDecl reports whether s ends its statement before opening a body.
func isForwardDecl(s string) bool {
	semi := strings.Index(s, ";")
	if semi < 0 {
		return false
	}
	brace := strings.Index(s, "{")
	return brace < 0 || semi < brace
}

// opensType reports whether line begins a type definition. A leading access
// specifier and template header are skipped, and the type keyword may follow
// attributes or export macros. The definition body may open on a later line.
func opensType(line string) bool {
	s := accessRe.ReplaceAllString(strings.TrimSpace(line), "")
	s = stripTemplateHeader(s)
	loc := typeKeywordRe.FindStringIndex(s)
	if loc == nil || strings.ContainsAny(s[:loc[0]], "(<=") {
		return false
	}
	rest := s[loc[1]:]
	end := strings.IndexAny(rest, "{;(")
	return end < 0 || rest[end] == '{'
}

// stripTemplateHeader removes a leading "template <...>". A header left open
// at the end of the line yields "".
func stripTemplateHeader(s string) string {
	if !strings.HasPrefix(s, "template") {
		return s
	}
	rest := strings.TrimSpace(s[len("template"):])
	if !strings.HasPrefix(rest, "<") {
		return s
	}
	depth := 0
	for i, r := range rest {
		switch r {
		case '<':
			depth++
		case '>':
			depth--
			if depth == 0 {
				return strings.TrimSpace(rest[i+1:])
			}
		}
	}
	return ""
}

func isComment(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "//") || strings.HasPrefix(t, "/*") || strings.HasPrefix(t, "*")
}

func isIdentByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

// DeclarationLine returns the indented, semicolon-terminated form of sig.
func DeclarationLine(sig string) string {
	sig = strings.TrimSuffix(strings.TrimSpace(sig), ";")
	return indent + strings.TrimSpace(sig) + ";"
}

// Declaration inserts sig as a declaration line immediately before the line
// that closes class name. If the exact declaration line is already present
// anywhere in content, content is returned unchanged with Duplicate.
func Declaration(content, name, sig string) (string, model.Outcome, error) {
	lines := strings.SplitAfter(content, "\n")
	at, err := Locate(lines, name)
	if err != nil {
		return content, "", err
	}

	decl := DeclarationLine(sig)
	for _, l := range lines {
		if strings.TrimRight(l, "\r\n") == decl {
			return content, model.Duplicate, nil
		}
	}

	nl := "\n"
	if strings.HasSuffix(lines[at], "\r\n") {
		nl = "\r\n"
	}

	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:at]...)
	out = append(out, decl+nl)
	out = append(out, lines[at:]...)
	return strings.Join(out, ""), model.Inserted, nil
}

// DefinitionBlock returns the out-of-class definition stub for sig.
func DefinitionBlock(name string, sig model.FunctionSignature) string {
	nameAndArgs := strings.TrimSuffix(strings.TrimSpace(sig.NameAndArgs), ";")
	return sig.ReturnType + " " + name + "::" + nameAndArgs + "\n{\n    // TODO: Implement\n}\n\n"
}

// Definition appends the definition stub for sig to content unless the
// identical block already appears in it.
func Definition(content, name string, sig model.FunctionSignature) (string, model.Outcome) {
	block := DefinitionBlock(name, sig)
	if strings.Contains(content, block) {
		return content, model.Duplicate
	}
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + block, model.Inserted
}

// Change is a planned edit to one file.
type Change struct {
	Path    string
	Before  string
	After   string
	Outcome model.Outcome
}

// Target names the header and implementation files of a class.
type Target struct {
	Class  string
	Header string
	Impl   string
}

// Plan computes the edits that add sig to the class in t without touching
// the filesystem. Both files must exist; neither is ever created. The
// declaration keeps sig as written; only the definition splits it.
func Plan(t Target, sig string) ([]Change, error) {
	sig = strings.TrimSuffix(strings.TrimSpace(sig), ";")
	parsed, err := model.ParseSignature(sig)
	if err != nil {
		return nil, err
	}

	header, err := readExisting(t.Header)
	if err != nil {
		return nil, err
	}
	impl, err := readExisting(t.Impl)
	if err != nil {
		return nil, err
	}

	newHeader, hOutcome, err := Declaration(header, t.Class, sig)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.Header, err)
	}
	newImpl, cOutcome := Definition(impl, t.Class, parsed)

	return []Change{
		{Path: t.Header, Before: header, After: newHeader, Outcome: hOutcome},
		{Path: t.Impl, Before: impl, After: newImpl, Outcome: cOutcome},
	}, nil
}

// Apply writes every change whose outcome is Inserted.
func Apply(changes []Change) error {
	for _, c := range changes {
		if c.Outcome != model.Inserted {
			continue
		}
		if err := fsutil.WriteAtomic(c.Path, []byte(c.After)); err != nil {
			return err
		}
	}
	return nil
}

// AddFunction plans and applies the edits for sig.
func AddFunction(t Target, sig string) ([]Change, error) {
	changes, err := Plan(t, sig)
	if err != nil {
		return nil, err
	}
	if err := Apply(changes); err != nil {
		return nil, err
	}
	return changes, nil
}

func readExisting(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", model.ErrNotFound, path)
		}
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}
