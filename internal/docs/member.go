package docs

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/maid-docs/maid/internal/xmldoc"
)

// Kind discriminates the payload of a Member.
type Kind string

const (
	KindType        Kind = "type"
	KindMethod      Kind = "method"
	KindConstructor Kind = "constructor"
	KindProperty    Kind = "property"
	KindField       Kind = "field"
)

// Kinds lists every member kind.
var Kinds = []Kind{KindType, KindMethod, KindConstructor, KindProperty, KindField}

// ParseKind parses a member kind name (case-insensitive).
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", errors.Newf("invalid kind: %q (expected one of %v)", s, Kinds)
}

// TypeKind is the flavor of a modeled type.
type TypeKind string

const (
	TypeClass     TypeKind = "class"
	TypeInterface TypeKind = "interface"
	TypeRecord    TypeKind = "record"
)

// DocStatus tells undocumented entities apart from entities whose comment
// could not be parsed.
type DocStatus string

const (
	Documented   DocStatus = "documented"
	Undocumented DocStatus = "undocumented"
	// Invalid is the sentinel recorded when the comment failed to parse.
	Invalid DocStatus = "invalid"
)

// Documentation is the parsed documentation comment of an entity.
type Documentation struct {
	Status DocStatus     `json:"status" yaml:"status"`
	Nodes  []xmldoc.Node `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	Error  string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// ParseDocumentation parses raw comment text. It never fails: malformed
// text yields the Invalid sentinel with the parser error attached.
func ParseDocumentation(raw string) Documentation {
	nodes, err := xmldoc.Parse(raw)
	if err != nil {
		return Documentation{Status: Invalid, Error: err.Error()}
	}
	if len(nodes) == 0 {
		return Documentation{Status: Undocumented}
	}
	return Documentation{Status: Documented, Nodes: nodes}
}

// Append merges o into d. Nodes are concatenated; an Invalid status is
// sticky so that a failed fragment stays visible after the merge.
func (d Documentation) Append(o Documentation) Documentation {
	out := Documentation{
		Nodes: append(append([]xmldoc.Node(nil), d.Nodes...), o.Nodes...),
		Error: d.Error,
	}
	if out.Error == "" {
		out.Error = o.Error
	}
	switch {
	case d.Status == Invalid || o.Status == Invalid:
		out.Status = Invalid
	case len(out.Nodes) > 0:
		out.Status = Documented
	default:
		out.Status = Undocumented
	}
	return out
}

// AttributeArg is one attribute argument.
type AttributeArg struct {
	Type  string `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
}

// Attribute is an attribute applied to a declaration. Ref decides whether it
// is one of ours (an internal reference) or an external attribute.
type Attribute struct {
	Name      string         `json:"name" yaml:"name"`
	Arguments []AttributeArg `json:"arguments,omitempty" yaml:"arguments,omitempty"`
	Ref       Ref            `json:"ref" yaml:"ref"`
}

// IsOurs reports whether the attribute type is declared in a tracked set.
func (a Attribute) IsOurs() bool { return a.Ref.IsInternal() }

// Parameter is a method or constructor parameter.
type Parameter struct {
	Name     string `json:"name" yaml:"name"`
	Type     Ref    `json:"type" yaml:"type"`
	Modifier string `json:"modifier,omitempty" yaml:"modifier,omitempty"`
}

// TypeDoc is the payload of a type entity.
type TypeDoc struct {
	TypeKind     TypeKind   `json:"typeKind" yaml:"typeKind"`
	Namespace    NameRef    `json:"namespace" yaml:"namespace"`
	Assembly     string     `json:"assembly" yaml:"assembly"`
	Inherits     *Ref       `json:"inherits,omitempty" yaml:"inherits,omitempty"`
	Interfaces   []Ref      `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	Constructors []MemberID `json:"constructors,omitempty" yaml:"constructors,omitempty"`
	Methods      []MemberID `json:"methods,omitempty" yaml:"methods,omitempty"`
	Properties   []MemberID `json:"properties,omitempty" yaml:"properties,omitempty"`
	Fields       []MemberID `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// MethodDoc is the payload of a method entity.
type MethodDoc struct {
	Returns    Ref         `json:"returns" yaml:"returns"`
	Overrides  *Ref        `json:"overrides,omitempty" yaml:"overrides,omitempty"`
	Parameters []Parameter `json:"parameters" yaml:"parameters"`
}

// ConstructorDoc is the payload of a constructor entity.
type ConstructorDoc struct {
	Parameters []Parameter `json:"parameters" yaml:"parameters"`
}

// PropertyDoc is the payload of a property entity.
type PropertyDoc struct {
	Type      Ref      `json:"type" yaml:"type"`
	Accessors Accessor `json:"accessors" yaml:"accessors"`
	Overrides *Ref     `json:"overrides,omitempty" yaml:"overrides,omitempty"`
}

// FieldDoc is the payload of a field entity.
type FieldDoc struct {
	Type Ref `json:"type" yaml:"type"`
}

// Member is one entity of the documentation graph: the facts common to every
// kind plus exactly one payload matching Kind.
type Member struct {
	DocID         string        `json:"docId" yaml:"docId"`
	ID            MemberID      `json:"id" yaml:"id"`
	Kind          Kind          `json:"kind" yaml:"kind"`
	Name          string        `json:"name" yaml:"name"`
	DeclaringType MemberID      `json:"declaringType,omitempty" yaml:"declaringType,omitempty"`
	Access        Access        `json:"access" yaml:"access"`
	Modifiers     Modifiers     `json:"modifiers" yaml:"modifiers"`
	Attributes    []Attribute   `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Documentation Documentation `json:"documentation" yaml:"documentation"`

	Type        *TypeDoc        `json:"type,omitempty" yaml:"type,omitempty"`
	Method      *MethodDoc      `json:"method,omitempty" yaml:"method,omitempty"`
	Constructor *ConstructorDoc `json:"constructor,omitempty" yaml:"constructor,omitempty"`
	Property    *PropertyDoc    `json:"property,omitempty" yaml:"property,omitempty"`
	Field       *FieldDoc       `json:"field,omitempty" yaml:"field,omitempty"`
}

// NewMember creates a member with its identity and an empty payload for kind.
// Optional facts are attached with Configure before the member is added to a
// DocumentSet.
func NewMember(docID string, id MemberID, kind Kind, name string) *Member {
	m := &Member{
		DocID:         docID,
		ID:            id,
		Kind:          kind,
		Name:          name,
		Access:        AccessUnknown,
		Documentation: Documentation{Status: Undocumented},
	}
	switch kind {
	case KindType:
		m.Type = &TypeDoc{}
	case KindMethod:
		m.Method = &MethodDoc{}
	case KindConstructor:
		m.Constructor = &ConstructorDoc{}
	case KindProperty:
		m.Property = &PropertyDoc{}
	case KindField:
		m.Field = &FieldDoc{}
	}
	return m
}

// Configure applies fn to m and returns m, for chained construction.
func (m *Member) Configure(fn func(*Member)) *Member {
	fn(m)
	return m
}

// Validate checks that exactly the payload matching Kind is present.
func (m *Member) Validate() error {
	if m.ID == "" {
		return invalidIdentity(m.Kind, "")
	}
	want := map[Kind]bool{
		KindType:        m.Type != nil,
		KindMethod:      m.Method != nil,
		KindConstructor: m.Constructor != nil,
		KindProperty:    m.Property != nil,
		KindField:       m.Field != nil,
	}
	present, ok := want[m.Kind]
	if !ok {
		return errUnknownKind(m.Kind)
	}
	if !present {
		return errPayload(m.ID, m.Kind)
	}
	for k, has := range want {
		if k != m.Kind && has {
			return errPayload(m.ID, m.Kind)
		}
	}
	return nil
}

// References returns every reference held by m in a fixed order: attributes,
// then payload references.
func (m *Member) References() []Ref {
	var refs []Ref
	for _, a := range m.Attributes {
		refs = append(refs, a.Ref)
	}
	switch {
	case m.Type != nil:
		if r, ok := m.Type.Namespace.Ref(); ok {
			refs = append(refs, r)
		}
		if m.Type.Inherits != nil {
			refs = append(refs, *m.Type.Inherits)
		}
		refs = append(refs, m.Type.Interfaces...)
	case m.Method != nil:
		refs = append(refs, m.Method.Returns)
		if m.Method.Overrides != nil {
			refs = append(refs, *m.Method.Overrides)
		}
		for _, p := range m.Method.Parameters {
			refs = append(refs, p.Type)
		}
	case m.Constructor != nil:
		for _, p := range m.Constructor.Parameters {
			refs = append(refs, p.Type)
		}
	case m.Property != nil:
		refs = append(refs, m.Property.Type)
		if m.Property.Overrides != nil {
			refs = append(refs, *m.Property.Overrides)
		}
	case m.Field != nil:
		refs = append(refs, m.Field.Type)
	}
	return refs
}
