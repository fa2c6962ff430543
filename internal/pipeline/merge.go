package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/maid-docs/maid/internal/docs"
	"github.com/maid-docs/maid/internal/resolve"
	"github.com/maid-docs/maid/internal/symbol"
)

// refAt is a spelled reference with the scope it was written in.
type refAt struct {
	scope resolve.Scope
	ref   symbol.Ref
}

type attributeAt struct {
	scope resolve.Scope
	attr  symbol.Attribute
}

// draft is a merged entity waiting for its references to be resolved.
type draft struct {
	member *docs.Member
	scope  resolve.Scope
	loc    symbol.Location

	// type facts used by the index
	namespace string
	name      string
	arity     int

	attributes []attributeAt
	base       *refAt
	interfaces []refAt
	value      *refAt
	overrides  *refAt
	params     []symbol.Parameter
}

func (d *draft) entry() resolve.Entry {
	m := d.member
	e := resolve.Entry{DocID: m.DocID, ID: m.ID, Kind: m.Kind, Name: m.Name}
	if m.Kind == docs.KindType {
		e.Namespace, e.Name, e.Arity = d.namespace, d.name, d.arity
	}
	return e
}

// merger folds the contributions of one document set into drafts.
type merger struct {
	docID    string
	assembly string
	diags    []Diagnostic
}

func (mg *merger) diag(kind DiagnosticKind, id docs.MemberID, name string, loc symbol.Location, format string, args ...any) {
	mg.diags = append(mg.diags, Diagnostic{
		Kind:     kind,
		DocID:    mg.docID,
		MemberID: id,
		Name:     name,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
	})
}

func (mg *merger) conflict(id docs.MemberID, c contribution, fact, kept, ignored string) {
	mg.diag(IdentityConflict, id, c.desc.Name, c.desc.Location,
		"conflicting %s across declarations: kept %q, ignored %q", fact, kept, ignored)
}

// merge returns the drafts of a set in first-seen order. Types are merged
// first so that members can be attached to their declaring type; members of
// a type that was not modeled are skipped.
func (mg *merger) merge(entries []*entry) []*draft {
	types := make(map[docs.MemberID]*draft)
	merged := make([]*draft, len(entries))
	for i, e := range entries {
		if e.contribs[0].kind == docs.KindType {
			d := mg.mergeType(e)
			types[e.id] = d
			merged[i] = d
		}
	}

	out := make([]*draft, 0, len(entries))
	for i, e := range entries {
		if merged[i] != nil {
			out = append(out, merged[i])
			continue
		}
		first := e.contribs[0]
		declaring := docs.TypeID(mg.assembly, first.desc.Namespace, first.desc.ContainingType, first.desc.TypeArity)
		owner, ok := types[declaring]
		if !ok {
			mg.diag(SkippedKind, e.id, first.desc.Name, first.desc.Location,
				"skipped member of unmodeled type %s", declaring)
			continue
		}
		d := mg.mergeMember(e, declaring)
		attach(owner.member.Type, d.member)
		out = append(out, d)
	}
	return out
}

func attach(t *docs.TypeDoc, m *docs.Member) {
	switch m.Kind {
	case docs.KindConstructor:
		t.Constructors = append(t.Constructors, m.ID)
	case docs.KindMethod:
		t.Methods = append(t.Methods, m.ID)
	case docs.KindProperty:
		t.Properties = append(t.Properties, m.ID)
	case docs.KindField:
		t.Fields = append(t.Fields, m.ID)
	}
}

// common folds the facts shared by every kind. It returns the contributions
// that agree with the first one on kind.
func (mg *merger) common(e *entry, m *docs.Member) []contribution {
	first := e.contribs[0]
	access := first.desc.Accessibility
	var doc docs.Documentation
	var kept []contribution
	for i, c := range e.contribs {
		if c.kind != first.kind {
			mg.conflict(e.id, c, "kind", string(first.kind), string(c.kind))
			continue
		}
		kept = append(kept, c)
		d := c.desc
		if d.Accessibility != "" {
			switch {
			case access == "":
				access = d.Accessibility
			case docs.ParseAccess(access) != docs.ParseAccess(d.Accessibility):
				mg.conflict(e.id, c, "access modifier", access, d.Accessibility)
			}
		}
		m.Modifiers |= modifiers(d.Flags)

		parsed := docs.ParseDocumentation(d.Documentation)
		if parsed.Status == docs.Invalid {
			mg.diag(MalformedDocumentation, e.id, d.Name, d.Location,
				"malformed documentation comment: %s", parsed.Error)
		}
		if i == 0 {
			doc = parsed
		} else {
			doc = doc.Append(parsed)
		}
	}
	m.Access = docs.ParseAccess(access)
	m.Documentation = doc
	return kept
}

func (mg *merger) mergeType(e *entry) *draft {
	first := e.contribs[0].desc
	m := docs.NewMember(mg.docID, e.id, docs.KindType, arityName(first.Name, first.Arity))
	d := &draft{
		member:    m,
		scope:     e.contribs[0].scope,
		loc:       first.Location,
		namespace: first.Namespace,
		name:      first.Name,
		arity:     first.Arity,
	}

	kept := mg.common(e, m)
	if first.Accessibility == "" && m.Access == docs.AccessUnknown {
		m.Access = docs.AccessInternal
		if strings.Contains(first.Name, "+") {
			m.Access = docs.AccessPrivate
		}
	}
	if i := strings.LastIndexByte(first.Name, '+'); i > 0 {
		m.DeclaringType = docs.TypeID(mg.assembly, first.Namespace, first.Name[:i], 0)
	}

	t := m.Type
	t.TypeKind = typeKind(first.Kind)
	t.Assembly = mg.assembly
	seen := make(map[string]bool)
	for _, c := range kept {
		desc := c.desc
		if tk := typeKind(desc.Kind); tk != t.TypeKind {
			mg.conflict(e.id, c, "type kind", string(t.TypeKind), string(tk))
		}
		for _, a := range desc.Attributes {
			d.attributes = append(d.attributes, attributeAt{scope: c.scope, attr: a})
		}
		if desc.BaseType != nil {
			switch {
			case d.base == nil:
				d.base = &refAt{scope: c.scope, ref: *desc.BaseType}
			case spelled(d.base.ref) != spelled(*desc.BaseType):
				mg.conflict(e.id, c, "base type", d.base.ref.Name, desc.BaseType.Name)
			}
		}
		for _, iface := range desc.Interfaces {
			key := spelled(iface)
			if seen[key] {
				continue
			}
			seen[key] = true
			d.interfaces = append(d.interfaces, refAt{scope: c.scope, ref: iface})
		}
	}
	return d
}

func (mg *merger) mergeMember(e *entry, declaring docs.MemberID) *draft {
	first := e.contribs[0]
	m := docs.NewMember(mg.docID, e.id, first.kind, first.desc.Name)
	m.DeclaringType = declaring
	d := &draft{member: m, scope: first.scope, loc: first.desc.Location, params: first.desc.Parameters}

	kept := mg.common(e, m)
	for _, c := range kept {
		desc := c.desc
		for _, a := range desc.Attributes {
			d.attributes = append(d.attributes, attributeAt{scope: c.scope, attr: a})
		}
		if desc.ValueType != nil {
			switch {
			case d.value == nil:
				d.value = &refAt{scope: c.scope, ref: *desc.ValueType}
			case spelled(d.value.ref) != spelled(*desc.ValueType):
				mg.conflict(e.id, c, "value type", d.value.ref.Name, desc.ValueType.Name)
			}
		}
		if desc.Overrides != nil {
			switch {
			case d.overrides == nil:
				d.overrides = &refAt{scope: c.scope, ref: *desc.Overrides}
			case d.overrides.ref.Display() != desc.Overrides.Display():
				mg.conflict(e.id, c, "override target", d.overrides.ref.Display(), desc.Overrides.Display())
			}
		}
		if m.Kind == docs.KindProperty {
			acc := accessors(desc.Accessors)
			switch {
			case m.Property.Accessors == 0:
				m.Property.Accessors = acc
			case acc != 0 && acc != m.Property.Accessors:
				mg.conflict(e.id, c, "accessors",
					strings.Join(m.Property.Accessors.Names(), ","), strings.Join(acc.Names(), ","))
			}
		}
	}
	return d
}

func typeKind(k symbol.Kind) docs.TypeKind {
	switch k {
	case symbol.Interface:
		return docs.TypeInterface
	case symbol.Record:
		return docs.TypeRecord
	default:
		return docs.TypeClass
	}
}

func modifiers(f symbol.Flags) docs.Modifiers {
	var m docs.Modifiers
	set := func(on bool, flag docs.Modifiers) {
		if on {
			m = m.With(flag)
		}
	}
	set(f.Static, docs.ModStatic)
	set(f.Abstract, docs.ModAbstract)
	set(f.Sealed, docs.ModSealed)
	set(f.Virtual, docs.ModVirtual)
	set(f.Override, docs.ModOverride)
	set(f.Partial, docs.ModPartial)
	set(f.Readonly, docs.ModReadonly)
	set(f.Const, docs.ModConst)
	set(f.Async, docs.ModAsync)
	return m
}

func accessors(names []string) docs.Accessor {
	var a docs.Accessor
	for _, n := range names {
		a |= docs.ParseAccessor(n)
	}
	return a
}

// spelled is the comparison key of a spelled reference.
func spelled(r symbol.Ref) string {
	return symbol.QualifiedName(r.Namespace, docs.NormalizeTypeName(r.Name))
}

func arityName(name string, arity int) string {
	if arity == 0 {
		return name
	}
	return name + "`" + strconv.Itoa(arity)
}
