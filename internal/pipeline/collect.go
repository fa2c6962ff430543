package pipeline

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/maid-docs/maid/internal/docs"
	"github.com/maid-docs/maid/internal/resolve"
	"github.com/maid-docs/maid/internal/symbol"
)

// build is the in-flight state of one document set.
type build struct {
	project *symbol.Project
	set     *docs.DocumentSet
	drafts  []*draft
	diags   []Diagnostic
}

// collect classifies every descriptor of the project and accumulates the
// modeled ones, one task per unit. It leaves the set in Resolving with the
// merged drafts attached.
func (p *Pipeline) collect(ctx context.Context, proj *symbol.Project, set *docs.DocumentSet) (*build, error) {
	docID := set.DocID()
	acc := newAccumulator()
	unitDiags := make([][]Diagnostic, len(proj.Units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for ui := range proj.Units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			unit := &proj.Units[ui]
			type item struct {
				namespace string
				id        docs.MemberID
				c         contribution
			}
			batch := make([]item, 0, len(unit.Descriptors))
			for di := range unit.Descriptors {
				d := &unit.Descriptors[di]
				if d.Location.File == "" {
					d.Location.File = unit.Path
				}
				kind, id, diag := classify(docID, proj.Assembly, d)
				if diag != nil {
					unitDiags[ui] = append(unitDiags[ui], *diag)
					continue
				}
				batch = append(batch, item{
					namespace: d.Namespace,
					id:        id,
					c: contribution{
						seq:   seq{unit: ui, decl: di},
						kind:  kind,
						desc:  d,
						scope: resolve.Scope{DocID: docID, Namespace: d.Namespace, Usings: unit.Usings, Type: enclosingType(d)},
					},
				})
			}
			for _, it := range batch {
				if err := acc.add(it.namespace, it.id, it.c); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := set.Advance(docs.Merging); err != nil {
		return nil, err
	}
	entries, err := acc.drain()
	if err != nil {
		return nil, err
	}
	mg := &merger{docID: docID, assembly: proj.Assembly}
	drafts := mg.merge(entries)
	if err := set.Advance(docs.Resolving); err != nil {
		return nil, err
	}

	b := &build{project: proj, set: set, drafts: drafts}
	for _, ds := range unitDiags {
		b.diags = append(b.diags, ds...)
	}
	b.diags = append(b.diags, mg.diags...)
	return b, nil
}

// classify maps a descriptor to the entity kind and identifier it
// contributes to, or explains why it contributes nothing.
func classify(docID, assembly string, d *symbol.Descriptor) (docs.Kind, docs.MemberID, *Diagnostic) {
	reject := func(kind DiagnosticKind, msg string) (docs.Kind, docs.MemberID, *Diagnostic) {
		return "", "", &Diagnostic{Kind: kind, DocID: docID, Name: d.Name, Message: msg, Location: d.Location}
	}

	var kind docs.Kind
	switch d.Kind {
	case symbol.Class, symbol.Interface, symbol.Record:
		kind = docs.KindType
	case symbol.Method:
		kind = docs.KindMethod
	case symbol.Constructor:
		kind = docs.KindConstructor
	case symbol.Property:
		kind = docs.KindProperty
	case symbol.Field:
		kind = docs.KindField
	case symbol.Struct, symbol.Enum, symbol.Delegate, symbol.Event, symbol.EnumMember:
		return reject(SkippedKind, "skipped "+string(d.Kind)+" declaration")
	default:
		return reject(InvalidMemberIdentity, "unknown declaration kind "+string(d.Kind))
	}

	if d.Name == "" {
		return reject(InvalidMemberIdentity, "declaration without a name")
	}
	if err := docs.CheckCanonicalID(kind, d.CanonicalID); err != nil {
		return reject(InvalidMemberIdentity, err.Error())
	}
	if kind == docs.KindType {
		return kind, docs.TypeID(assembly, d.Namespace, d.Name, d.Arity), nil
	}
	if d.ContainingType == "" {
		return reject(InvalidMemberIdentity, string(d.Kind)+" without a declaring type")
	}

	typeID := docs.TypeID(assembly, d.Namespace, d.ContainingType, d.TypeArity)
	switch kind {
	case docs.KindMethod:
		return kind, docs.MethodID(typeID, d.Name, d.Arity, d.ParameterTypes()), nil
	case docs.KindConstructor:
		return kind, docs.ConstructorID(typeID, d.ParameterTypes()), nil
	default:
		return kind, docs.ValueMemberID(typeID, d.Name), nil
	}
}

// enclosingType returns the declared name of the type whose body d appears
// in, or "" for a top-level type.
func enclosingType(d *symbol.Descriptor) string {
	if d.Kind.IsType() {
		if i := strings.LastIndexByte(d.Name, '+'); i >= 0 {
			return d.Name[:i]
		}
		return ""
	}
	if d.ContainingType == "" || d.TypeArity == 0 {
		return d.ContainingType
	}
	return d.ContainingType + "`" + strconv.Itoa(d.TypeArity)
}
