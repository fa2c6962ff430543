package extract

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/maid-docs/maid/internal/parser"
	"github.com/maid-docs/maid/internal/symbol"
)

// CSharpExtractor turns one parsed C# file into a symbol.Unit.
type CSharpExtractor struct {
	result   *parser.ParseResult
	path     string
	assembly string
	unit     symbol.Unit
}

// NewCSharpExtractor creates an extractor for result. path is recorded as the
// unit path and as the location file of every descriptor.
func NewCSharpExtractor(result *parser.ParseResult, path, assembly string) *CSharpExtractor {
	return &CSharpExtractor{result: result, path: path, assembly: assembly}
}

// typeScope is the enclosing type of a member declaration.
type typeScope struct {
	name     string
	arity    int
	kind     symbol.Kind
	baseType string
}

// Extract walks the file and returns its usings and descriptors in source
// order.
func (e *CSharpExtractor) Extract() symbol.Unit {
	e.unit = symbol.Unit{Path: e.path, Descriptors: []symbol.Descriptor{}}
	if e.result.Root != nil {
		e.walkScope(e.result.Root, "")
	}
	return e.unit
}

func (e *CSharpExtractor) walkScope(node *sitter.Node, ns string) {
	current := ns
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "using_directive":
			e.extractUsing(child)
		case "namespace_declaration":
			name := qualify(ns, e.nodeText(findChildByFieldName(child, "name")))
			body := findChildByFieldName(child, "body")
			if body == nil {
				body = findChildByType(child, "declaration_list")
			}
			if body != nil {
				e.walkScope(body, name)
			}
		case "file_scoped_namespace_declaration":
			// Later declarations are siblings in some grammar versions and
			// children in others.
			current = qualify(ns, e.nodeText(findChildByFieldName(child, "name")))
			e.walkScope(child, current)
		default:
			if isTypeDeclaration(child.Type()) {
				e.extractType(child, current, nil)
			}
		}
	}
}

func isTypeDeclaration(nodeType string) bool {
	return parser.CSharpTypeNodes[nodeType] || nodeType == "delegate_declaration"
}

func qualify(ns, name string) string {
	name = strings.TrimSpace(name)
	if ns == "" {
		return name
	}
	if name == "" {
		return ns
	}
	return ns + "." + name
}

func (e *CSharpExtractor) extractUsing(node *sitter.Node) {
	if findChildByType(node, "static") != nil || findChildByType(node, "name_equals") != nil ||
		findChildByType(node, "=") != nil {
		return
	}
	var path string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "qualified_name", "identifier", "identifier_name":
			path = e.nodeText(child)
		}
	}
	if path = symbol.TrimGlobal(strings.TrimSpace(path)); path != "" {
		e.unit.Usings = append(e.unit.Usings, path)
	}
}

func typeKind(node *sitter.Node) symbol.Kind {
	kind := symbol.Kind(parser.GetCSharpEntityType(node))
	if !kind.IsType() {
		return ""
	}
	return kind
}

func (e *CSharpExtractor) extractType(node *sitter.Node, ns string, outer *typeScope) {
	nameNode := findChildByFieldName(node, "name")
	if nameNode == nil {
		return
	}
	kind := typeKind(node)
	// record struct parses as a record with a struct keyword in some grammars.
	if kind == symbol.Record && findChildByType(node, "struct") != nil {
		kind = symbol.Struct
	}

	name := e.nodeText(nameNode)
	if outer != nil {
		outerName := outer.name
		if outer.arity > 0 {
			outerName += "`" + strconv.Itoa(outer.arity)
		}
		name = outerName + "+" + name
	}
	mods := e.extractModifiers(node)

	d := symbol.Descriptor{
		Kind:          kind,
		Name:          name,
		Namespace:     ns,
		Assembly:      e.assembly,
		Arity:         e.typeParameterCount(node),
		Accessibility: accessibility(mods, outer),
		Flags:         flagsOf(mods),
		Attributes:    e.extractAttributes(node),
		Documentation: e.docComment(node),
		Location:      symbol.Location{File: e.path, Line: startLine(node)},
	}

	scope := &typeScope{name: name, arity: d.Arity, kind: kind}
	if baseList := findChildByType(node, "base_list"); baseList != nil {
		bases := e.extractBaseTypes(baseList)
		switch kind {
		case symbol.Class, symbol.Record:
			if len(bases) > 0 && !looksLikeInterface(bases[0]) {
				d.BaseType = &symbol.Ref{Name: bases[0]}
				scope.baseType = bases[0]
				bases = bases[1:]
			}
		}
		for _, b := range bases {
			d.Interfaces = append(d.Interfaces, symbol.Ref{Name: b, Kind: symbol.Interface})
		}
	}
	e.unit.Descriptors = append(e.unit.Descriptors, d)

	switch kind {
	case symbol.Enum:
		e.extractEnumMembers(node, ns, scope)
		return
	case symbol.Delegate:
		return
	}

	if kind == symbol.Record {
		params := findChildByFieldName(node, "parameters")
		if params == nil {
			params = findChildByType(node, "parameter_list")
		}
		if params != nil {
			e.extractPrimaryConstructor(params, ns, scope)
		}
	}

	body := findChildByFieldName(node, "body")
	if body == nil {
		body = findChildByType(node, "declaration_list")
	}
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		switch child.Type() {
		case "method_declaration":
			e.extractMethod(child, ns, scope)
		case "constructor_declaration":
			e.extractConstructor(child, ns, scope)
		case "property_declaration":
			e.extractProperty(child, ns, scope)
		case "field_declaration":
			e.extractFields(child, ns, scope, symbol.Field)
		case "event_field_declaration":
			e.extractFields(child, ns, scope, symbol.Event)
		case "event_declaration":
			e.extractEvent(child, ns, scope)
		default:
			if isTypeDeclaration(child.Type()) {
				e.extractType(child, ns, scope)
			}
		}
	}
}

// looksLikeInterface applies the I-prefix naming convention to the first
// entry of a class base list, which syntax alone cannot classify.
func looksLikeInterface(name string) bool {
	_, simple := symbol.SplitQualified(name)
	return len(simple) >= 2 && simple[0] == 'I' && simple[1] >= 'A' && simple[1] <= 'Z'
}

func (e *CSharpExtractor) member(node *sitter.Node, kind symbol.Kind, name, ns string, scope *typeScope) symbol.Descriptor {
	mods := e.extractModifiers(node)
	return symbol.Descriptor{
		Kind:           kind,
		Name:           name,
		Namespace:      ns,
		Assembly:       e.assembly,
		ContainingType: scope.name,
		TypeArity:      scope.arity,
		Accessibility:  memberAccessibility(mods, scope),
		Flags:          flagsOf(mods),
		Attributes:     e.extractAttributes(node),
		Documentation:  e.docComment(node),
		Location:       symbol.Location{File: e.path, Line: startLine(node)},
	}
}

func (e *CSharpExtractor) extractMethod(node *sitter.Node, ns string, scope *typeScope) {
	nameNode := findChildByFieldName(node, "name")
	if nameNode == nil {
		return
	}
	name := e.nodeText(nameNode)
	if spec := findChildByType(node, "explicit_interface_specifier"); spec != nil {
		name = strings.TrimSuffix(strings.TrimSpace(e.nodeText(spec)), ".") + "." + name
	}

	d := e.member(node, symbol.Method, name, ns, scope)
	d.Arity = e.typeParameterCount(node)

	typeNode := findChildByFieldName(node, "type")
	if typeNode == nil {
		typeNode = findChildByFieldName(node, "returns")
	}
	if typeNode != nil {
		d.ValueType = &symbol.Ref{Name: e.nodeText(typeNode)}
	}
	d.Parameters = e.extractParameters(findChildByFieldName(node, "parameters"))
	if d.Flags.Override {
		d.Overrides = overrideRef(symbol.Method, name, d.Arity, d.ParameterTypes(), scope)
	}
	e.unit.Descriptors = append(e.unit.Descriptors, d)
}

func (e *CSharpExtractor) extractConstructor(node *sitter.Node, ns string, scope *typeScope) {
	nameNode := findChildByFieldName(node, "name")
	if nameNode == nil {
		return
	}
	d := e.member(node, symbol.Constructor, e.nodeText(nameNode), ns, scope)
	d.Parameters = e.extractParameters(findChildByFieldName(node, "parameters"))
	e.unit.Descriptors = append(e.unit.Descriptors, d)
}

// extractPrimaryConstructor reports the positional parameters of a record as
// a constructor plus one init-only property per parameter.
func (e *CSharpExtractor) extractPrimaryConstructor(params *sitter.Node, ns string, scope *typeScope) {
	_, simple := symbol.SplitQualified(strings.ReplaceAll(scope.name, "+", "."))
	ctor := symbol.Descriptor{
		Kind:           symbol.Constructor,
		Name:           simple,
		Namespace:      ns,
		Assembly:       e.assembly,
		ContainingType: scope.name,
		TypeArity:      scope.arity,
		Accessibility:  "public",
		Parameters:     e.extractParameters(params),
		Location:       symbol.Location{File: e.path, Line: startLine(params)},
	}
	e.unit.Descriptors = append(e.unit.Descriptors, ctor)

	for _, p := range ctor.Parameters {
		if p.Name == "" {
			continue
		}
		t := p.Type
		e.unit.Descriptors = append(e.unit.Descriptors, symbol.Descriptor{
			Kind:           symbol.Property,
			Name:           p.Name,
			Namespace:      ns,
			Assembly:       e.assembly,
			ContainingType: scope.name,
			TypeArity:      scope.arity,
			Accessibility:  "public",
			ValueType:      &t,
			Accessors:      []string{"get", "init"},
			Location:       ctor.Location,
		})
	}
}

func (e *CSharpExtractor) extractProperty(node *sitter.Node, ns string, scope *typeScope) {
	nameNode := findChildByFieldName(node, "name")
	if nameNode == nil {
		return
	}
	name := e.nodeText(nameNode)
	if spec := findChildByType(node, "explicit_interface_specifier"); spec != nil {
		name = strings.TrimSuffix(strings.TrimSpace(e.nodeText(spec)), ".") + "." + name
	}

	d := e.member(node, symbol.Property, name, ns, scope)
	if typeNode := findChildByFieldName(node, "type"); typeNode != nil {
		d.ValueType = &symbol.Ref{Name: e.nodeText(typeNode)}
	}
	d.Accessors = e.extractAccessors(node)
	if d.Flags.Override {
		d.Overrides = overrideRef(symbol.Property, name, 0, nil, scope)
	}
	e.unit.Descriptors = append(e.unit.Descriptors, d)
}

func (e *CSharpExtractor) extractAccessors(node *sitter.Node) []string {
	list := findChildByFieldName(node, "accessors")
	if list == nil {
		list = findChildByType(node, "accessor_list")
	}
	if list == nil {
		if findChildByType(node, "arrow_expression_clause") != nil {
			return []string{"get"}
		}
		return nil
	}
	var out []string
	for _, acc := range findChildrenByType(list, "accessor_declaration") {
		var name string
		if n := findChildByFieldName(acc, "name"); n != nil {
			name = e.nodeText(n)
		} else {
			for i := uint32(0); i < acc.ChildCount(); i++ {
				switch t := acc.Child(int(i)).Type(); t {
				case "get", "set", "init":
					name = t
				}
			}
		}
		switch name {
		case "get", "set", "init":
			out = append(out, name)
		}
	}
	return out
}

// extractFields reports one descriptor per declarator, so "int a, b;"
// yields two fields.
func (e *CSharpExtractor) extractFields(node *sitter.Node, ns string, scope *typeScope, kind symbol.Kind) {
	decl := findChildByType(node, "variable_declaration")
	if decl == nil {
		return
	}
	var valueType *symbol.Ref
	if typeNode := findChildByFieldName(decl, "type"); typeNode != nil {
		valueType = &symbol.Ref{Name: e.nodeText(typeNode)}
	}
	for _, v := range findChildrenByType(decl, "variable_declarator") {
		nameNode := findChildByFieldName(v, "name")
		if nameNode == nil {
			nameNode = findChildByType(v, "identifier")
		}
		if nameNode == nil {
			continue
		}
		d := e.member(node, kind, e.nodeText(nameNode), ns, scope)
		if valueType != nil {
			t := *valueType
			d.ValueType = &t
		}
		e.unit.Descriptors = append(e.unit.Descriptors, d)
	}
}

func (e *CSharpExtractor) extractEvent(node *sitter.Node, ns string, scope *typeScope) {
	nameNode := findChildByFieldName(node, "name")
	if nameNode == nil {
		return
	}
	d := e.member(node, symbol.Event, e.nodeText(nameNode), ns, scope)
	if typeNode := findChildByFieldName(node, "type"); typeNode != nil {
		d.ValueType = &symbol.Ref{Name: e.nodeText(typeNode)}
	}
	e.unit.Descriptors = append(e.unit.Descriptors, d)
}

func (e *CSharpExtractor) extractEnumMembers(node *sitter.Node, ns string, scope *typeScope) {
	body := findChildByFieldName(node, "body")
	if body == nil {
		body = findChildByType(node, "enum_member_declaration_list")
	}
	if body == nil {
		return
	}
	for _, m := range findChildrenByType(body, "enum_member_declaration") {
		nameNode := findChildByFieldName(m, "name")
		if nameNode == nil {
			nameNode = findChildByType(m, "identifier")
		}
		if nameNode == nil {
			continue
		}
		d := e.member(m, symbol.EnumMember, e.nodeText(nameNode), ns, scope)
		d.Accessibility = "public"
		e.unit.Descriptors = append(e.unit.Descriptors, d)
	}
}

// overrideRef points an override at the same member of the declaring type's
// base class. Without a known base only the name is kept.
func overrideRef(kind symbol.Kind, name string, arity int, params []string, scope *typeScope) *symbol.Ref {
	ref := &symbol.Ref{Kind: kind, Name: name, Arity: arity}
	if kind == symbol.Method {
		ref.Parameters = params
		if ref.Parameters == nil {
			ref.Parameters = []string{}
		}
	}
	if scope.baseType != "" {
		ref.ContainingType = &symbol.Ref{Name: scope.baseType}
	}
	return ref
}

func (e *CSharpExtractor) extractParameters(node *sitter.Node) []symbol.Parameter {
	if node == nil {
		return nil
	}
	var params []symbol.Parameter
	for i := 0; i < int(node.NamedChildCount()); i++ {
		p := node.NamedChild(i)
		if p.Type() != "parameter" && p.Type() != "parameter_array" {
			continue
		}
		var typeName string
		typeNode := findChildByFieldName(p, "type")
		nameNode := findChildByFieldName(p, "name")
		if typeNode == nil || nameNode == nil {
			for j := 0; j < int(p.NamedChildCount()); j++ {
				c := p.NamedChild(j)
				switch c.Type() {
				case "attribute_list", "modifier", "parameter_modifier", "equals_value_clause":
				case "identifier":
					if nameNode == nil {
						nameNode = c
					} else if typeNode == nil {
						typeNode, nameNode = nameNode, c
					}
				default:
					if typeNode == nil {
						typeNode = c
					}
				}
			}
		}
		if typeNode != nil {
			typeName = e.nodeText(typeNode)
		}

		var modifier string
		for _, mod := range e.extractModifiers(p) {
			switch mod {
			case "ref", "out", "in", "params", "this":
				modifier = mod
			}
		}
		params = append(params, symbol.Parameter{
			Name:     e.nodeText(nameNode),
			Type:     symbol.Ref{Name: typeName},
			Modifier: modifier,
		})
	}
	return params
}

func (e *CSharpExtractor) typeParameterCount(node *sitter.Node) int {
	list := findChildByFieldName(node, "type_parameters")
	if list == nil {
		list = findChildByType(node, "type_parameter_list")
	}
	if list == nil {
		return 0
	}
	return len(findChildrenByType(list, "type_parameter"))
}

func (e *CSharpExtractor) extractBaseTypes(node *sitter.Node) []string {
	var bases []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "identifier", "identifier_name", "generic_name", "qualified_name",
			"simple_base_type", "base_type", "primary_constructor_base_type", "predefined_type":
			if child.Type() == "primary_constructor_base_type" {
				if t := child.NamedChild(0); t != nil {
					child = t
				}
			}
			if name := strings.TrimSpace(e.nodeText(child)); name != "" {
				bases = append(bases, name)
			}
		}
	}
	return bases
}

// extractModifiers returns the modifier keywords of a declaration in source
// order.
func (e *CSharpExtractor) extractModifiers(node *sitter.Node) []string {
	var modifiers []string
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		childType := child.Type()
		if childType == "modifier" || childType == "parameter_modifier" {
			modifiers = append(modifiers, strings.TrimSpace(e.nodeText(child)))
		} else if isCSharpModifier(childType) {
			modifiers = append(modifiers, childType)
		}
	}
	return modifiers
}

func (e *CSharpExtractor) extractAttributes(node *sitter.Node) []symbol.Attribute {
	var attrs []symbol.Attribute
	for _, list := range findChildrenByType(node, "attribute_list") {
		// Targeted lists such as [return: X] describe something else.
		if findChildByType(list, "attribute_target_specifier") != nil {
			continue
		}
		for _, attr := range findChildrenByType(list, "attribute") {
			nameNode := findChildByFieldName(attr, "name")
			if nameNode == nil && attr.NamedChildCount() > 0 {
				nameNode = attr.NamedChild(0)
			}
			name := strings.TrimSpace(e.nodeText(nameNode))
			if name == "" {
				continue
			}
			a := symbol.Attribute{Name: name, Type: symbol.Ref{Name: name}}
			if args := findChildByType(attr, "attribute_argument_list"); args != nil {
				for _, arg := range findChildrenByType(args, "attribute_argument") {
					a.Arguments = append(a.Arguments, symbol.Argument{
						Type:  e.argumentType(arg),
						Value: strings.TrimSpace(e.nodeText(arg)),
					})
				}
			}
			attrs = append(attrs, a)
		}
	}
	return attrs
}

// argumentType infers the type of an attribute argument from its syntax.
// Attribute arguments are compile-time constants, so literal kinds cover
// nearly every case.
func (e *CSharpExtractor) argumentType(arg *sitter.Node) string {
	n := int(arg.NamedChildCount())
	if n == 0 {
		return "unknown"
	}
	expr := arg.NamedChild(n - 1)
	switch expr.Type() {
	case "string_literal", "verbatim_string_literal", "raw_string_literal", "interpolated_string_expression":
		return "string"
	case "invocation_expression":
		if strings.HasPrefix(e.nodeText(expr), "nameof") {
			return "string"
		}
	case "integer_literal":
		return "int"
	case "real_literal":
		return "double"
	case "boolean_literal":
		return "bool"
	case "character_literal":
		return "char"
	case "null_literal":
		return "null"
	case "typeof_expression":
		return "System.Type"
	case "member_access_expression", "binary_expression":
		return "enum"
	case "array_creation_expression", "implicit_array_creation_expression":
		return "array"
	}
	return "unknown"
}

// docComment returns the text of the /// comment block directly above node,
// with the comment markers removed.
func (e *CSharpExtractor) docComment(node *sitter.Node) string {
	var lines []string
	next := node
	for prev := node.PrevSibling(); prev != nil && prev.Type() == "comment"; prev = prev.PrevSibling() {
		text := e.nodeText(prev)
		if !strings.HasPrefix(text, "///") {
			break
		}
		if next.StartPoint().Row > prev.EndPoint().Row+1 {
			break
		}
		lines = append(lines, strings.TrimPrefix(strings.TrimPrefix(text, "///"), " "))
		next = prev
	}
	if len(lines) == 0 {
		return ""
	}
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return strings.Join(lines, "\n")
}

func (e *CSharpExtractor) nodeText(node *sitter.Node) string {
	return e.result.NodeText(node)
}

var csharpModifiers = map[string]bool{
	"public":    true,
	"private":   true,
	"protected": true,
	"internal":  true,
	"static":    true,
	"readonly":  true,
	"const":     true,
	"abstract":  true,
	"sealed":    true,
	"virtual":   true,
	"override":  true,
	"new":       true,
	"partial":   true,
	"async":     true,
	"extern":    true,
	"volatile":  true,
	"unsafe":    true,
	"required":  true,
	"ref":       true,
	"out":       true,
	"in":        true,
	"params":    true,
	"this":      true,
}

func isCSharpModifier(nodeType string) bool {
	return csharpModifiers[nodeType]
}

func flagsOf(mods []string) symbol.Flags {
	var f symbol.Flags
	for _, m := range mods {
		switch m {
		case "static":
			f.Static = true
		case "abstract":
			f.Abstract = true
		case "sealed":
			f.Sealed = true
		case "virtual":
			f.Virtual = true
		case "override":
			f.Override = true
		case "partial":
			f.Partial = true
		case "readonly":
			f.Readonly = true
		case "const":
			f.Const = true
		case "async":
			f.Async = true
		}
	}
	return f
}

// explicitAccess combines the access keywords of a declaration, or returns
// "" when none is spelled.
func explicitAccess(mods []string) string {
	var public, protected, internal, private bool
	for _, m := range mods {
		switch m {
		case "public":
			public = true
		case "protected":
			protected = true
		case "internal":
			internal = true
		case "private":
			private = true
		}
	}
	switch {
	case public:
		return "public"
	case protected && internal:
		return "protected internal"
	case private && protected:
		return "private protected"
	case protected:
		return "protected"
	case internal:
		return "internal"
	case private:
		return "private"
	}
	return ""
}

// accessibility applies the C# defaults for types: internal at namespace
// level, private when nested.
func accessibility(mods []string, outer *typeScope) string {
	if a := explicitAccess(mods); a != "" {
		return a
	}
	// Another part of a partial type may declare the access.
	for _, m := range mods {
		if m == "partial" {
			return ""
		}
	}
	if outer != nil {
		if outer.kind == symbol.Interface {
			return "public"
		}
		return "private"
	}
	return "internal"
}

// memberAccessibility applies the C# defaults for members: public in
// interfaces, private elsewhere.
func memberAccessibility(mods []string, scope *typeScope) string {
	if a := explicitAccess(mods); a != "" {
		return a
	}
	if scope.kind == symbol.Interface {
		return "public"
	}
	return "private"
}
