package pipeline

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/maid-docs/maid/internal/docs"
	"github.com/maid-docs/maid/internal/resolve"
	"github.com/maid-docs/maid/internal/symbol"
)

// seq orders contributions by unit, then by declaration within the unit.
type seq struct {
	unit, decl int
}

func (s seq) less(o seq) bool {
	if s.unit != o.unit {
		return s.unit < o.unit
	}
	return s.decl < o.decl
}

// contribution is one declaration of an identifier. Partial declarations
// contribute several times to the same identifier.
type contribution struct {
	seq   seq
	kind  docs.Kind
	desc  *symbol.Descriptor
	scope resolve.Scope
}

// entry gathers the contributions of one identifier.
type entry struct {
	id docs.MemberID

	mu       sync.Mutex
	contribs []contribution
}

func (e *entry) add(c contribution) {
	e.mu.Lock()
	e.contribs = append(e.contribs, c)
	e.mu.Unlock()
}

// sorted returns the contributions in input order.
func (e *entry) sorted() []contribution {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := append([]contribution(nil), e.contribs...)
	sort.Slice(out, func(i, j int) bool { return out[i].seq.less(out[j].seq) })
	return out
}

type bucket struct {
	mu      sync.Mutex
	entries map[docs.MemberID]*entry
}

// accumulator collects the provisional entities of one document set, keyed
// by namespace. It is filled concurrently during Collecting and drained once
// when Merging starts; after that it accepts nothing.
type accumulator struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	drained bool
}

var errDrained = errors.New("accumulator already drained")

func newAccumulator() *accumulator {
	return &accumulator{buckets: make(map[string]*bucket)}
}

func (a *accumulator) bucket(namespace string) (*bucket, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.drained {
		return nil, errDrained
	}
	b, ok := a.buckets[namespace]
	if !ok {
		b = &bucket{entries: make(map[docs.MemberID]*entry)}
		a.buckets[namespace] = b
	}
	return b, nil
}

// add records c under id. Only the bucket lock is held while the entry is
// looked up; the append itself holds the entry's lock.
func (a *accumulator) add(namespace string, id docs.MemberID, c contribution) error {
	b, err := a.bucket(namespace)
	if err != nil {
		return err
	}
	b.mu.Lock()
	e, ok := b.entries[id]
	if !ok {
		e = &entry{id: id}
		b.entries[id] = e
	}
	b.mu.Unlock()

	e.add(c)
	return nil
}

// drain closes the accumulator and returns its entries ordered by their
// first contribution.
func (a *accumulator) drain() ([]*entry, error) {
	a.mu.Lock()
	if a.drained {
		a.mu.Unlock()
		return nil, errDrained
	}
	a.drained = true
	buckets := a.buckets
	a.buckets = nil
	a.mu.Unlock()

	type first struct {
		e   *entry
		seq seq
	}
	var all []first
	for _, b := range buckets {
		for _, e := range b.entries {
			cs := e.sorted()
			e.contribs = cs
			all = append(all, first{e: e, seq: cs[0].seq})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].seq != all[j].seq {
			return all[i].seq.less(all[j].seq)
		}
		return all[i].e.id < all[j].e.id
	})
	out := make([]*entry, len(all))
	for i, f := range all {
		out[i] = f.e
	}
	return out, nil
}
