package pipeline

import (
	"go.uber.org/zap"

	"github.com/maid-docs/maid/internal/docs"
	"github.com/maid-docs/maid/internal/symbol"
)

// DiagnosticKind classifies a non-fatal finding of a run.
type DiagnosticKind string

const (
	// SkippedKind marks a declaration of a kind the graph does not model, or
	// a member whose declaring type was not modeled.
	SkippedKind DiagnosticKind = "skipped_kind"
	// UnresolvedReference marks a reference that is neither internal nor
	// known to the external catalog.
	UnresolvedReference DiagnosticKind = "unresolved_reference"
	// MalformedDocumentation marks a comment that failed to parse.
	MalformedDocumentation DiagnosticKind = "malformed_documentation"
	// IdentityConflict marks partial declarations that disagree on a scalar
	// fact. The first value is kept.
	IdentityConflict DiagnosticKind = "identity_conflict"
	// InvalidMemberIdentity marks a declaration dropped because its identity
	// could not be built or disagrees with its kind.
	InvalidMemberIdentity DiagnosticKind = "invalid_member_identity"
)

// Diagnostic is one finding, attached to the document set it was raised in.
type Diagnostic struct {
	Kind     DiagnosticKind  `json:"kind"`
	DocID    string          `json:"docId"`
	MemberID docs.MemberID   `json:"memberId,omitempty"`
	Name     string          `json:"name,omitempty"`
	Message  string          `json:"message"`
	Location symbol.Location `json:"location"`
}

func (d Diagnostic) log(log *zap.Logger) {
	fields := []zap.Field{
		zap.String("doc_id", d.DocID),
		zap.String("member_id", string(d.MemberID)),
		zap.String("kind", string(d.Kind)),
	}
	if d.Name != "" {
		fields = append(fields, zap.String("name", d.Name))
	}
	if d.Location.File != "" {
		fields = append(fields, zap.String("file", d.Location.File), zap.Int("line", d.Location.Line))
	}
	switch d.Kind {
	case SkippedKind, UnresolvedReference:
		log.Debug(d.Message, fields...)
	default:
		log.Warn(d.Message, fields...)
	}
}

// SetSummary counts the outcome of one document set.
type SetSummary struct {
	DocID      string `json:"docId"`
	Members    int    `json:"members"`
	Skipped    int    `json:"skipped"`
	Unresolved int    `json:"unresolved"`
	Malformed  int    `json:"malformed"`
	Conflicts  int    `json:"conflicts"`
	Invalid    int    `json:"invalid"`
}

// Warnings returns the number of diagnostics that were logged as warnings.
func (s SetSummary) Warnings() int {
	return s.Malformed + s.Conflicts + s.Invalid
}

func (s *SetSummary) count(kind DiagnosticKind) {
	switch kind {
	case SkippedKind:
		s.Skipped++
	case UnresolvedReference:
		s.Unresolved++
	case MalformedDocumentation:
		s.Malformed++
	case IdentityConflict:
		s.Conflicts++
	case InvalidMemberIdentity:
		s.Invalid++
	}
}

// FailedProject is a project whose document set was not produced.
type FailedProject struct {
	Project string `json:"project"`
	Error   string `json:"error"`
}

// Summary accompanies the emitted artifact.
type Summary struct {
	Sets   []SetSummary    `json:"sets"`
	Failed []FailedProject `json:"failed,omitempty"`
}

func summarize(sets []*docs.DocumentSet, diags []Diagnostic, failures []*ProjectError) Summary {
	out := Summary{Sets: make([]SetSummary, 0, len(sets))}
	pos := make(map[string]int, len(sets))
	for _, set := range sets {
		pos[set.DocID()] = len(out.Sets)
		out.Sets = append(out.Sets, SetSummary{DocID: set.DocID(), Members: set.Len()})
	}
	for _, d := range diags {
		if i, ok := pos[d.DocID]; ok {
			out.Sets[i].count(d.Kind)
		}
	}
	for _, f := range failures {
		out.Failed = append(out.Failed, FailedProject{Project: f.Project, Error: f.Err.Error()})
	}
	return out
}
