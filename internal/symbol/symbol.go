// Package symbol defines the input boundary of the extractor: the
// declared-element descriptors a symbol provider yields for a project.
package symbol

import (
	"context"
	"strings"
)

// Kind is the declared-element kind reported by a provider.
type Kind string

const (
	Class       Kind = "class"
	Interface   Kind = "interface"
	Record      Kind = "record"
	Struct      Kind = "struct"
	Enum        Kind = "enum"
	EnumMember  Kind = "enum_member"
	Delegate    Kind = "delegate"
	Event       Kind = "event"
	Method      Kind = "method"
	Constructor Kind = "constructor"
	Property    Kind = "property"
	Field       Kind = "field"
)

// IsType reports whether k declares a type, modeled or not.
func (k Kind) IsType() bool {
	switch k {
	case Class, Interface, Record, Struct, Enum, Delegate:
		return true
	}
	return false
}

// Flags are the boolean modifiers of a declaration.
type Flags struct {
	Static   bool `json:"static,omitempty"`
	Abstract bool `json:"abstract,omitempty"`
	Sealed   bool `json:"sealed,omitempty"`
	Virtual  bool `json:"virtual,omitempty"`
	Override bool `json:"override,omitempty"`
	Partial  bool `json:"partial,omitempty"`
	Readonly bool `json:"readonly,omitempty"`
	Const    bool `json:"const,omitempty"`
	Async    bool `json:"async,omitempty"`
}

// Argument is one attribute argument as (type, value text).
type Argument struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Attribute is an attribute applied to a declaration. Type refers to the
// attribute class.
type Attribute struct {
	Name      string     `json:"name"`
	Type      Ref        `json:"type"`
	Arguments []Argument `json:"arguments,omitempty"`
}

// Ref refers to another symbol by identity only. A provider fills in what it
// knows; Name is always the spelled name as written in source.
type Ref struct {
	Kind      Kind   `json:"kind,omitempty"`
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
	Assembly  string `json:"assembly,omitempty"`
	// ContainingType is set for member references such as override targets.
	ContainingType *Ref     `json:"containingType,omitempty"`
	Parameters     []string `json:"parameters,omitempty"`
	Arity          int      `json:"arity,omitempty"`
}

// Qualified reports whether r names its namespace or assembly explicitly.
func (r Ref) Qualified() bool {
	return r.Namespace != "" || r.Assembly != ""
}

// Display returns the name used when the reference cannot be resolved.
func (r Ref) Display() string {
	if r.ContainingType != nil {
		return r.ContainingType.Display() + "." + r.Name
	}
	return r.Name
}

// Parameter is a declared method or constructor parameter. Modifier is one
// of "ref", "out", "in", "params" or "this", or empty.
type Parameter struct {
	Name     string `json:"name"`
	Type     Ref    `json:"type"`
	Modifier string `json:"modifier,omitempty"`
}

// ByRef reports whether the parameter is passed by reference, which makes it
// part of the overload signature.
func (p Parameter) ByRef() bool {
	switch p.Modifier {
	case "ref", "out", "in":
		return true
	}
	return false
}

// Location is the source position of a declaration.
type Location struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
}

// Descriptor is one declared element.
type Descriptor struct {
	Kind      Kind   `json:"kind"`
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Assembly  string `json:"assembly"`
	// ContainingType is the declaring type name for members.
	ContainingType string `json:"containingType,omitempty"`
	// TypeArity is the generic arity of ContainingType.
	TypeArity     int         `json:"typeArity,omitempty"`
	Arity         int         `json:"arity,omitempty"`
	Accessibility string      `json:"accessibility"`
	Flags         Flags       `json:"flags"`
	Attributes    []Attribute `json:"attributes,omitempty"`
	// Documentation is the raw comment text; empty means absent.
	Documentation string      `json:"documentation,omitempty"`
	BaseType      *Ref        `json:"baseType,omitempty"`
	Interfaces    []Ref       `json:"interfaces,omitempty"`
	ValueType     *Ref        `json:"valueType,omitempty"`
	Overrides     *Ref        `json:"overrides,omitempty"`
	Parameters    []Parameter `json:"parameters,omitempty"`
	Accessors     []string    `json:"accessors,omitempty"`
	// CanonicalID is an optional provider-assigned documentation id such as
	// "M:Ns.Type.Method(System.String)".
	CanonicalID string   `json:"canonicalId,omitempty"`
	Location    Location `json:"location"`
}

// ParameterTypes returns the spelled parameter type names in order, as used
// in member identifiers. By-reference parameters carry a trailing "@".
func (d *Descriptor) ParameterTypes() []string {
	out := make([]string, len(d.Parameters))
	for i, p := range d.Parameters {
		out[i] = p.Type.Name
		if p.ByRef() {
			out[i] += "@"
		}
	}
	return out
}

// QualifiedName returns namespace.name, or name in the global namespace.
func QualifiedName(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// Unit is one source unit of a project, typically a file.
type Unit struct {
	Path string `json:"path"`
	// Usings are the namespaces imported by the unit.
	Usings      []string     `json:"usings,omitempty"`
	Descriptors []Descriptor `json:"descriptors"`
}

// Project is everything a provider yields for one project.
type Project struct {
	Path     string `json:"-"`
	Assembly string `json:"assembly"`
	Units    []Unit `json:"units"`
}

// Provider yields the declared elements of a project.
type Provider interface {
	Load(ctx context.Context, projectPath string) (*Project, error)
}

// SplitQualified splits "A.B.C" into ("A.B", "C"), ignoring dots inside
// generic argument lists.
func SplitQualified(name string) (namespace, simple string) {
	depth := 0
	for i := len(name) - 1; i >= 0; i-- {
		switch name[i] {
		case '>':
			depth++
		case '<':
			depth--
		case '.':
			if depth == 0 {
				return name[:i], name[i+1:]
			}
		}
	}
	return "", name
}

// TrimGlobal strips a leading "global::" alias qualifier.
func TrimGlobal(name string) string {
	return strings.TrimPrefix(name, "global::")
}
