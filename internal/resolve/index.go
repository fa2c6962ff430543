package resolve

import (
	"strconv"

	"github.com/maid-docs/maid/internal/docs"
	"github.com/maid-docs/maid/internal/symbol"
)

// Entry is one declared element known to the index.
type Entry struct {
	DocID     string
	ID        docs.MemberID
	Kind      docs.Kind
	Namespace string
	// Name is the declared name without generic arity.
	Name  string
	Arity int
	// Persisted marks entries loaded from a previous run rather than the
	// current one.
	Persisted bool
}

// Index is the identifier lookup table shared by concurrent resolution. It
// is filled once before resolution starts and only read afterwards.
type Index struct {
	byID        map[docs.MemberID]Entry
	byQualified map[string][]Entry
	bySimple    map[string][]Entry
	docs        map[string]bool
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		byID:        make(map[docs.MemberID]Entry),
		byQualified: make(map[string][]Entry),
		bySimple:    make(map[string][]Entry),
		docs:        make(map[string]bool),
	}
}

// Add records e. The first entry for an identifier wins, so current-run
// entries must be added before persisted ones.
func (ix *Index) Add(e Entry) {
	if _, ok := ix.byID[e.ID]; ok {
		return
	}
	ix.byID[e.ID] = e
	ix.docs[e.DocID] = true
	if e.Kind != docs.KindType {
		return
	}
	q := typeKey(symbol.QualifiedName(e.Namespace, e.Name), e.Arity)
	ix.byQualified[q] = append(ix.byQualified[q], e)
	s := typeKey(e.Name, e.Arity)
	ix.bySimple[s] = append(ix.bySimple[s], e)
}

// AddSet records every member of set.
func (ix *Index) AddSet(set *docs.DocumentSet) {
	for _, m := range set.Members() {
		ix.Add(EntryFor(m))
	}
}

// EntryFor builds the index entry of a member.
func EntryFor(m *docs.Member) Entry {
	e := Entry{DocID: m.DocID, ID: m.ID, Kind: m.Kind, Name: m.Name}
	if m.Type != nil {
		ns, _ := m.Type.Namespace.Literal()
		if r, ok := m.Type.Namespace.Ref(); ok {
			ns = r.Display()
		}
		e.Namespace = ns
		e.Name, e.Arity = SplitArity(m.Name)
	}
	return e
}

// HasDoc reports whether any entry belongs to docID.
func (ix *Index) HasDoc(docID string) bool { return ix.docs[docID] }

// Lookup returns the entry for id.
func (ix *Index) Lookup(id docs.MemberID) (Entry, bool) {
	e, ok := ix.byID[id]
	return e, ok
}

// Qualified returns the types declared as namespace.name with the given arity.
func (ix *Index) Qualified(qualified string, arity int) []Entry {
	return ix.byQualified[typeKey(qualified, arity)]
}

// Simple returns the types with the given simple name and arity in any
// namespace.
func (ix *Index) Simple(name string, arity int) []Entry {
	return ix.bySimple[typeKey(name, arity)]
}

// Len returns the number of entries.
func (ix *Index) Len() int { return len(ix.byID) }

func typeKey(name string, arity int) string {
	if arity == 0 {
		return name
	}
	return name + "`" + strconv.Itoa(arity)
}

// SplitArity splits a declared name such as "List`1" into ("List", 1).
func SplitArity(name string) (string, int) {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '`' {
			n, err := strconv.Atoi(name[i+1:])
			if err != nil {
				return name, 0
			}
			return name[:i], n
		}
	}
	return name, 0
}
