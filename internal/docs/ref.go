package docs

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// RefKind discriminates the variants of Ref.
type RefKind string

const (
	// RefInternal points at an entity of a tracked document set.
	RefInternal RefKind = "internal"
	// RefExternal points outside every tracked document set.
	RefExternal RefKind = "external"
	// RefUnresolved carries only the spelled name of an unknown target.
	RefUnresolved RefKind = "unresolved"
)

// Ref is a reference to another entity. It never holds the referenced
// entity, only enough to find or display it, which keeps every document set
// acyclic when serialized.
//
// Which fields are meaningful depends on Kind:
//
//	internal:   DocID, MemberID
//	external:   Name, Link (optional)
//	unresolved: Name
//
// Refs are comparable; == is structural equality and never holds across
// variants because Kind is part of the value.
type Ref struct {
	Kind     RefKind  `json:"kind" yaml:"kind"`
	DocID    string   `json:"docId,omitempty" yaml:"docId,omitempty"`
	MemberID MemberID `json:"memberId,omitempty" yaml:"memberId,omitempty"`
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`
	Link     string   `json:"link,omitempty" yaml:"link,omitempty"`
}

// Internal returns a reference to member id of document set docID.
func Internal(docID string, id MemberID) Ref {
	return Ref{Kind: RefInternal, DocID: docID, MemberID: id}
}

// External returns a reference to a target outside all tracked sets.
func External(name, link string) Ref {
	return Ref{Kind: RefExternal, Name: name, Link: link}
}

// Unresolved returns a reference that only preserves the spelled name.
func Unresolved(name string) Ref {
	return Ref{Kind: RefUnresolved, Name: name}
}

// IsInternal reports whether r points into a tracked document set.
func (r Ref) IsInternal() bool { return r.Kind == RefInternal }

// Display returns a human readable label for r.
func (r Ref) Display() string {
	if r.Kind == RefInternal {
		return string(r.MemberID)
	}
	return r.Name
}

// Validate checks that the fields of r match its variant.
func (r Ref) Validate() error {
	switch r.Kind {
	case RefInternal:
		if r.DocID == "" || r.MemberID == "" {
			return errors.Newf("internal reference requires doc id and member id")
		}
		if r.Name != "" || r.Link != "" {
			return errors.Newf("internal reference %s carries display fields", r.MemberID)
		}
	case RefExternal:
		if r.Name == "" {
			return errors.New("external reference requires a name")
		}
		if r.DocID != "" || r.MemberID != "" {
			return errors.Newf("external reference %q carries internal fields", r.Name)
		}
	case RefUnresolved:
		if r.DocID != "" || r.MemberID != "" || r.Link != "" {
			return errors.Newf("unresolved reference %q carries resolved fields", r.Name)
		}
	default:
		return errors.Newf("unknown reference kind %q", r.Kind)
	}
	return nil
}

// UnmarshalJSON decodes a reference and rejects payloads that do not match
// their variant.
func (r *Ref) UnmarshalJSON(data []byte) error {
	type plain Ref
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if err := Ref(p).Validate(); err != nil {
		return errors.Wrap(err, "decode reference")
	}
	*r = Ref(p)
	return nil
}

// NameRef is either a reference or a literal name, never both. It is used
// where a fact may point into the graph or may only be known by name, such
// as a type's containing namespace.
type NameRef struct {
	ref     *Ref
	literal string
}

// NameOf returns a NameRef holding a literal name.
func NameOf(literal string) NameRef { return NameRef{literal: literal} }

// RefTo returns a NameRef holding a reference.
func RefTo(r Ref) NameRef { return NameRef{ref: &r} }

// Ref returns the reference variant, if that is what n holds.
func (n NameRef) Ref() (Ref, bool) {
	if n.ref == nil {
		return Ref{}, false
	}
	return *n.ref, true
}

// Literal returns the literal variant, if that is what n holds.
func (n NameRef) Literal() (string, bool) {
	if n.ref != nil {
		return "", false
	}
	return n.literal, true
}

// String returns the literal name or the reference's display label.
func (n NameRef) String() string {
	if n.ref != nil {
		return n.ref.Display()
	}
	return n.literal
}

// Equal reports whether both values hold the same variant and payload.
func (n NameRef) Equal(o NameRef) bool {
	if (n.ref == nil) != (o.ref == nil) {
		return false
	}
	if n.ref != nil {
		return *n.ref == *o.ref
	}
	return n.literal == o.literal
}

type nameRefWire struct {
	Ref     *Ref    `json:"ref,omitempty" yaml:"ref,omitempty"`
	Literal *string `json:"literal,omitempty" yaml:"literal,omitempty"`
}

func (n NameRef) wire() nameRefWire {
	if n.ref != nil {
		return nameRefWire{Ref: n.ref}
	}
	lit := n.literal
	return nameRefWire{Literal: &lit}
}

// MarshalJSON encodes n as {"ref": {...}} or {"literal": "..."}.
func (n NameRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.wire())
}

// UnmarshalJSON decodes either variant.
func (n *NameRef) UnmarshalJSON(data []byte) error {
	var w nameRefWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.Ref != nil && w.Literal != nil:
		return errors.New("name reference holds both a ref and a literal")
	case w.Ref != nil:
		*n = RefTo(*w.Ref)
	case w.Literal != nil:
		*n = NameOf(*w.Literal)
	default:
		return errors.New("name reference holds neither a ref nor a literal")
	}
	return nil
}

// MarshalYAML encodes n with the same shape as MarshalJSON.
func (n NameRef) MarshalYAML() (interface{}, error) {
	return n.wire(), nil
}
