// Package parse extracts class and method definitions from C++ sources
// using tree-sitter.
package parse

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/classkit/internal/lang"
	"github.com/phobologic/classkit/internal/model"
)

var captureMap = map[string]model.SymbolKind{
	"definition.class":  model.Class,
	"definition.struct": model.Struct,
	"definition.method": model.Method,
}

// ExtractTags parses a source file and returns definition tags.
// The parser must be created for l.
// filePath is used only for Tag.File and should be the project-relative path.
func ExtractTags(l *lang.Language, parser *sitter.Parser, query *sitter.Query, source []byte, filePath string) []model.Tag {
	if len(source) == 0 {
		return nil
	}

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil
	}
	defer tree.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, tree.RootNode())

	var tags []model.Tag

	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		match = qc.FilterPredicates(match, source)

		var nameNode, defNode *sitter.Node
		var symbolKind model.SymbolKind

		for _, c := range match.Captures {
			cname := query.CaptureNameForId(c.Index)
			if cname == "name" {
				nameNode = c.Node
			} else if kind, ok := captureMap[cname]; ok {
				symbolKind = kind
				defNode = c.Node
			}
		}

		if nameNode == nil || defNode == nil {
			continue
		}

		name := lang.NodeText(nameNode, source)
		signature := name
		if symbolKind == model.Method {
			owner := ""
			if l.EnclosingType != nil {
				owner = l.EnclosingType(defNode, source)
			}
			if owner == "" {
				continue
			}
			name = owner + "." + name
			signature = lang.CollapseWhitespace(lang.NodeText(defNode, source))
		}

		tags = append(tags, model.Tag{
			Name:       name,
			Kind:       model.Definition,
			SymbolKind: symbolKind,
			Line:       int(nameNode.StartPoint().Row) + 1,
			File:       filePath,
			Signature:  signature,
		})
	}

	return tags
}

// MethodsOf returns the method tags among tags whose enclosing type is owner,
// in source order.
func MethodsOf(tags []model.Tag, owner string) []model.Tag {
	var out []model.Tag
	for _, t := range tags {
		if t.SymbolKind != model.Method {
			continue
		}
		if o, _, _ := strings.Cut(t.Name, "."); o == owner {
			out = append(out, t)
		}
	}
	return out
}

// Classes returns only the class and struct definitions among tags.
func Classes(tags []model.Tag) []model.Tag {
	var out []model.Tag
	for _, t := range tags {
		if t.SymbolKind == model.Class || t.SymbolKind == model.Struct {
			out = append(out, t)
		}
	}
	return out
}
