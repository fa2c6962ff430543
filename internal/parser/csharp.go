package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
	csharp "github.com/smacker/go-tree-sitter/csharp"
)

func newCSharpParser() (*sitter.Parser, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(csharp.GetLanguage())
	return parser, nil
}

// CSharpNodeTypes maps C# declaration node types to the declared-element
// kind they produce.
var CSharpNodeTypes = map[string]string{
	"class_declaration":         "class",
	"interface_declaration":     "interface",
	"struct_declaration":        "struct",
	"record_declaration":        "record",
	"record_struct_declaration": "struct",
	"enum_declaration":          "enum",
	"method_declaration":        "method",
	"property_declaration":      "property",
	"event_declaration":         "event",
	"event_field_declaration":   "event",
	"delegate_declaration":      "delegate",
	"constructor_declaration":   "constructor",
	"field_declaration":         "field",
}

// CSharpTypeNodes are the node types that open a type body.
var CSharpTypeNodes = map[string]bool{
	"class_declaration":         true,
	"interface_declaration":     true,
	"struct_declaration":        true,
	"record_declaration":        true,
	"record_struct_declaration": true,
	"enum_declaration":          true,
}

// IsCSharpEntityNode reports whether node declares an element the extractor
// reports.
func IsCSharpEntityNode(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	_, ok := CSharpNodeTypes[node.Type()]
	return ok
}

// GetCSharpEntityType returns the element kind for node, or "".
func GetCSharpEntityType(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return CSharpNodeTypes[node.Type()]
}
