// Package resolve turns the spelled references of declared elements into
// internal, external or unresolved references.
package resolve

import (
	"strings"

	"github.com/maid-docs/maid/internal/docs"
	"github.com/maid-docs/maid/internal/symbol"
)

// Scope is the lexical position a reference was written at.
type Scope struct {
	DocID     string
	Namespace string
	Usings    []string
	// Type is the declared name of the innermost type the reference appears
	// in, with the generic arity of each level ("Outer`1+Inner"). Empty at
	// namespace level.
	Type string
}

// Resolver resolves references against an Index and an external Catalog.
// It holds no mutable state and is safe for concurrent use once the index is
// complete.
type Resolver struct {
	index   *Index
	catalog *Catalog
}

// New returns a resolver. A nil catalog still recognizes keyword aliases.
func New(index *Index, catalog *Catalog) *Resolver {
	if catalog == nil {
		catalog = NewCatalog(nil)
	}
	if index == nil {
		index = NewIndex()
	}
	return &Resolver{index: index, catalog: catalog}
}

// Type resolves a reference to a type.
func (r *Resolver) Type(scope Scope, ref symbol.Ref) docs.Ref {
	if e, ok := r.findType(scope, ref); ok {
		return docs.Internal(e.DocID, e.ID)
	}
	return r.external(scope, ref)
}

// Attribute resolves an attribute type, trying the conventional Attribute
// suffix when the spelled name omits it.
func (r *Resolver) Attribute(scope Scope, ref symbol.Ref) docs.Ref {
	candidates := []symbol.Ref{ref}
	if !strings.HasSuffix(ref.Name, "Attribute") {
		long := ref
		long.Name = ref.Name + "Attribute"
		candidates = append(candidates, long)
	}
	for _, c := range candidates {
		if e, ok := r.findType(scope, c); ok {
			return docs.Internal(e.DocID, e.ID)
		}
	}
	for _, c := range candidates {
		if out := r.external(scope, c); out.Kind == docs.RefExternal {
			out.Name = ref.Name
			return out
		}
	}
	return docs.Unresolved(ref.Name)
}

// Member resolves a reference to a method or property through its
// containing type, as used for override targets.
func (r *Resolver) Member(scope Scope, ref symbol.Ref) docs.Ref {
	if ref.ContainingType == nil {
		return docs.Unresolved(ref.Name)
	}
	owner := *ref.ContainingType
	if e, ok := r.findType(scope, owner); ok {
		var id docs.MemberID
		switch ref.Kind {
		case symbol.Method:
			id = docs.MethodID(e.ID, ref.Name, ref.Arity, ref.Parameters)
		default:
			id = docs.ValueMemberID(e.ID, ref.Name)
		}
		if m, ok := r.index.Lookup(id); ok {
			return docs.Internal(m.DocID, m.ID)
		}
		return docs.Unresolved(ref.Display())
	}
	if out := r.external(scope, owner); out.Kind == docs.RefExternal {
		return docs.External(ref.Display(), out.Link)
	}
	return docs.Unresolved(ref.Display())
}

// Namespace returns the namespace of a declared type: a reference when the
// namespace is known to the external catalog, a literal otherwise.
func (r *Resolver) Namespace(namespace string) docs.NameRef {
	if namespace != "" {
		if link, ok := r.catalog.Match(namespace); ok {
			return docs.RefTo(docs.External(namespace, link))
		}
	}
	return docs.NameOf(namespace)
}

func (r *Resolver) findType(scope Scope, ref symbol.Ref) (Entry, bool) {
	base, arity := LookupName(ref.Name)
	if base == "" {
		return Entry{}, false
	}
	if arity == 0 {
		arity = ref.Arity
	}

	nested := strings.ReplaceAll(base, ".", "+")
	if ref.Assembly != "" {
		for _, name := range []string{base, nested} {
			if e, ok := r.index.Lookup(docs.TypeID(ref.Assembly, ref.Namespace, name, arity)); ok {
				return e, true
			}
		}
	}
	if ref.Qualified() {
		for _, form := range nestedForms(base) {
			if e, ok := pick(r.index.Qualified(symbol.QualifiedName(ref.Namespace, form), arity), scope.DocID); ok {
				return e, true
			}
		}
		return Entry{}, false
	}

	// Types nested in the enclosing types come before namespace members.
	for _, t := range enclosingTypes(scope.Type) {
		if e, ok := pick(r.index.Qualified(symbol.QualifiedName(scope.Namespace, t+"+"+nested), arity), scope.DocID); ok {
			return e, true
		}
	}

	ns, simple := symbol.SplitQualified(base)
	if ns != "" {
		for _, form := range nestedForms(base) {
			if e, ok := pick(r.index.Qualified(form, arity), scope.DocID); ok {
				return e, true
			}
			for _, enc := range enclosing(scope.Namespace) {
				if enc == "" {
					continue
				}
				if e, ok := pick(r.index.Qualified(enc+"."+form, arity), scope.DocID); ok {
					return e, true
				}
			}
		}
		return Entry{}, false
	}

	for _, enc := range enclosing(scope.Namespace) {
		if e, ok := pick(r.index.Qualified(symbol.QualifiedName(enc, simple), arity), scope.DocID); ok {
			return e, true
		}
	}
	for _, u := range scope.Usings {
		if e, ok := pick(r.index.Qualified(u+"."+simple, arity), scope.DocID); ok {
			return e, true
		}
	}

	var local []Entry
	for _, e := range r.index.Simple(simple, arity) {
		if e.DocID == scope.DocID {
			local = append(local, e)
		}
	}
	if len(local) == 1 {
		return local[0], true
	}
	return Entry{}, false
}

func (r *Resolver) external(scope Scope, ref symbol.Ref) docs.Ref {
	base, arity := LookupName(ref.Name)
	if base == "" {
		return docs.Unresolved(ref.Name)
	}
	if arity == 0 {
		arity = ref.Arity
	}
	qualified := base
	if ref.Namespace != "" {
		qualified = ref.Namespace + "." + base
	}
	if link, ok := r.catalog.Match(typeKey(qualified, arity)); ok {
		return docs.External(ref.Name, link)
	}
	if !strings.Contains(qualified, ".") {
		if link, ok := r.catalog.MatchUsing(typeKey(base, arity), scope.Usings); ok {
			return docs.External(ref.Name, link)
		}
	}
	return docs.Unresolved(ref.Name)
}

// pick chooses among same-named candidates: the scope's own set first, then
// the current run, then persisted entries.
func pick(cands []Entry, docID string) (Entry, bool) {
	if len(cands) == 0 {
		return Entry{}, false
	}
	for _, e := range cands {
		if e.DocID == docID {
			return e, true
		}
	}
	for _, e := range cands {
		if !e.Persisted {
			return e, true
		}
	}
	return cands[0], true
}

// enclosing returns ns and each of its parents, ending with the global
// namespace.
func enclosing(ns string) []string {
	var out []string
	for ns != "" {
		out = append(out, ns)
		i := strings.LastIndexByte(ns, '.')
		if i < 0 {
			break
		}
		ns = ns[:i]
	}
	return append(out, "")
}

// enclosingTypes returns t and each type it is nested in, innermost first.
func enclosingTypes(t string) []string {
	var out []string
	for t != "" {
		out = append(out, t)
		i := strings.LastIndexByte(t, '+')
		if i < 0 {
			break
		}
		t = t[:i]
	}
	return out
}

// nestedForms returns the readings of a dotted name, from every segment but
// the last naming a namespace to every segment naming a type:
// "A.Outer.Inner" yields "A.Outer.Inner", "A.Outer+Inner" and
// "A+Outer+Inner".
func nestedForms(name string) []string {
	segs := strings.Split(name, ".")
	out := make([]string, 0, len(segs))
	for k := len(segs) - 1; k >= 0; k-- {
		out = append(out, symbol.QualifiedName(strings.Join(segs[:k], "."), strings.Join(segs[k:], "+")))
	}
	return out
}

// LookupName reduces a spelled type name to the name and generic arity used
// for lookup. Array ranks, nullable and pointer markers and generic argument
// lists are dropped; tuples yield an empty name.
func LookupName(spelled string) (string, int) {
	name := docs.NormalizeTypeName(symbol.TrimGlobal(spelled))
	for {
		switch {
		case strings.HasSuffix(name, "?"), strings.HasSuffix(name, "*"):
			name = name[:len(name)-1]
			continue
		case strings.HasSuffix(name, "]"):
			if i := strings.LastIndexByte(name, '['); i >= 0 {
				name = name[:i]
				continue
			}
		}
		break
	}
	if name == "" || name[0] == '(' {
		return "", 0
	}
	open := strings.IndexByte(name, '<')
	if open < 0 {
		return name, 0
	}
	arity, depth := 1, 0
	for _, c := range name[open:] {
		switch c {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 1 {
				arity++
			}
		}
	}
	return name[:open], arity
}
