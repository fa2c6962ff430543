// Package docs holds the documentation graph: document sets, their member
// entities, the identifier scheme that keys them and the references that
// connect them.
package docs

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// State is the lifecycle state of a document set during extraction.
type State int

const (
	Collecting State = iota
	Merging
	Resolving
	Sealed
)

func (s State) String() string {
	switch s {
	case Collecting:
		return "collecting"
	case Merging:
		return "merging"
	case Resolving:
		return "resolving"
	case Sealed:
		return "sealed"
	default:
		return "unknown"
	}
}

var (
	// ErrSealed is returned when a member is added to a sealed set.
	ErrSealed = errors.New("document set is sealed")
	// ErrDuplicateMember is returned when an identifier is added twice.
	ErrDuplicateMember = errors.New("duplicate member identifier")
	// ErrIllegalTransition is returned for a state change that skips or
	// reverses a step.
	ErrIllegalTransition = errors.New("illegal document set state transition")
	// ErrInvalidMemberIdentity marks an entity whose identity disagrees with
	// its kind.
	ErrInvalidMemberIdentity = errors.New("invalid member identity")
)

// DocumentSet is the root aggregate of one extraction unit, usually one
// assembly. It owns its members; members refer to each other only by id.
type DocumentSet struct {
	docID string

	mu      sync.RWMutex
	state   State
	members []*Member
	index   map[MemberID]int
}

// NewDocumentSet returns an empty set in the Collecting state.
func NewDocumentSet(docID string) *DocumentSet {
	return &DocumentSet{
		docID: docID,
		index: make(map[MemberID]int),
	}
}

// DocID returns the set's identifying name.
func (s *DocumentSet) DocID() string { return s.docID }

// State returns the current lifecycle state.
func (s *DocumentSet) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Advance moves the set to the next state. Only single forward steps are
// allowed.
func (s *DocumentSet) Advance(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if to != s.state+1 || to > Sealed {
		return errors.Wrapf(ErrIllegalTransition, "%s: %s -> %s", s.docID, s.state, to)
	}
	s.state = to
	return nil
}

// Add appends m to the set. The member must belong to this set, carry a
// payload matching its kind and have an identifier not yet present.
func (s *DocumentSet) Add(m *Member) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if m.DocID != s.docID {
		return errors.Newf("member %s belongs to %q, not %q", m.ID, m.DocID, s.docID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Sealed {
		return errors.Wrapf(ErrSealed, "add %s to %s", m.ID, s.docID)
	}
	if _, ok := s.index[m.ID]; ok {
		return errors.Wrapf(ErrDuplicateMember, "%s", m.ID)
	}
	s.index[m.ID] = len(s.members)
	s.members = append(s.members, m)
	return nil
}

// Members returns the members in insertion order. The returned slice is a
// copy; the members themselves must not be modified.
func (s *DocumentSet) Members() []*Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Member, len(s.members))
	copy(out, s.members)
	return out
}

// Len returns the number of members.
func (s *DocumentSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

// Lookup returns the member with the given identifier.
func (s *DocumentSet) Lookup(id MemberID) (*Member, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.members[i], true
}

func invalidIdentity(kind Kind, canonical string) error {
	return errors.Wrapf(ErrInvalidMemberIdentity, "%s cannot carry id %q", kind, canonical)
}

func errUnknownKind(kind Kind) error {
	return errors.Newf("unknown member kind %q", kind)
}

func errPayload(id MemberID, kind Kind) error {
	return errors.Newf("member %s: payload does not match kind %q", id, kind)
}
