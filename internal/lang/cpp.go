package lang

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
)

func init() {
	Languages["cpp"] = &Language{
		Name:             "cpp",
		HeaderExtensions: []string{".h", ".hpp", ".hh", ".hxx"},
		lang:             cpp.GetLanguage(),
		EnclosingType:    cppEnclosingType,
	}
}

// cppEnclosingType walks up from node to the nearest class or struct body.
// Navigates: ... → field_declaration_list → class_specifier/struct_specifier.
func cppEnclosingType(node *sitter.Node, source []byte) string {
	for current := node.Parent(); current != nil; current = current.Parent() {
		if current.Type() != "field_declaration_list" {
			continue
		}
		owner := current.Parent()
		if owner == nil {
			return ""
		}
		switch owner.Type() {
		case "class_specifier", "struct_specifier":
			if name := owner.ChildByFieldName("name"); name != nil {
				return NodeText(name, source)
			}
		}
		return ""
	}
	return ""
}
