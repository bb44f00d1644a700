// Package model defines core data structures for classkit.
package model

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	// ErrNotFound reports a missing target class or file.
	ErrNotFound = errors.New("not found")
	// ErrMalformedClass reports a class header whose body end could not be
	// located unambiguously.
	ErrMalformedClass = errors.New("malformed class")
	// ErrInvalidInput reports a bad class name, subdirectory, signature or tag.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAmbiguous reports a class defined in more than one header.
	ErrAmbiguous = errors.New("ambiguous")
)

// Outcome is the result of a single file operation that did not fail.
type Outcome string

const (
	Created   Outcome = "created"
	Skipped   Outcome = "skipped" // file already exists
	Inserted  Outcome = "inserted"
	Duplicate Outcome = "duplicate" // content already present
	Written   Outcome = "written"
	Unchanged Outcome = "unchanged"
)

// FileResult pairs a path with what happened to it.
type FileResult struct {
	Path    string
	Outcome Outcome
}

// ClassSpec names a class to scaffold and the optional subdirectory of the
// source root it lives in.
type ClassSpec struct {
	Name   string
	Subdir string
}

// Guard returns the include-guard token for the class.
func (c ClassSpec) Guard() string {
	if c.Subdir == "" {
		return strings.ToUpper(c.Name) + "_H"
	}
	g := strings.ToUpper(c.Subdir) + "_" + strings.ToUpper(c.Name) + "_H"
	return strings.ReplaceAll(g, "/", "_")
}

// FunctionSignature is a one-line member function signature split into its
// return type and the rest.
type FunctionSignature struct {
	ReturnType  string
	NameAndArgs string
}

// ParseSignature splits sig on its first whitespace run. The return type may
// not contain spaces.
func ParseSignature(sig string) (FunctionSignature, error) {
	sig = strings.TrimSpace(sig)
	i := strings.IndexFunc(sig, unicode.IsSpace)
	if i < 0 {
		return FunctionSignature{}, fmt.Errorf("%w: signature %q needs a return type and a name", ErrInvalidInput, sig)
	}
	rest := strings.TrimLeftFunc(sig[i:], unicode.IsSpace)
	return FunctionSignature{ReturnType: sig[:i], NameAndArgs: rest}, nil
}

// Name returns the function name, the part of NameAndArgs before its
// parameter list.
func (f FunctionSignature) Name() string {
	name, _, _ := strings.Cut(f.NameAndArgs, "(")
	return strings.TrimSpace(name)
}

// TestDeclaration is one TEST_CASE occurrence in a test file.
type TestDeclaration struct {
	DisplayName string
	Tags        []string // without brackets, in source order
	Line        int
}

// Manifest is a named, sorted list of project-relative paths.
type Manifest struct {
	Variable string
	Entries  []string
}

// TagKind indicates what a tag records. Only definitions are extracted.
type TagKind string

const Definition TagKind = "def"

// SymbolKind indicates the syntactic kind of a symbol.
type SymbolKind string

const (
	Class  SymbolKind = "class"
	Struct SymbolKind = "struct"
	Method SymbolKind = "method"
)

// Tag represents a single symbol occurrence extracted from source code.
type Tag struct {
	Name       string
	Kind       TagKind
	SymbolKind SymbolKind
	Line       int
	File       string
	Signature  string
}

// ClassInfo describes where a class lives in the project tree.
type ClassInfo struct {
	Name    string
	Kind    SymbolKind // Class or Struct
	Header  string
	Impl    string // "" if no sibling implementation file exists
	Test    string // "" if no test file exists
	Line    int
	Methods []Tag // member functions declared in the body, in source order
}

// MethodNames returns the distinct method names of c in source order.
func (c ClassInfo) MethodNames() []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range c.Methods {
		_, name, _ := strings.Cut(m.Name, ".")
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// IsIdentifier reports whether s is a valid C++ identifier.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || (r < unicode.MaxASCII && unicode.IsLetter(r)) {
			continue
		}
		if i > 0 && r < unicode.MaxASCII && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}
