// Package emit serializes sealed document sets into output units.
//
// A unit is one file: either a whole document set ({docId}.json) or, in
// namespace grouping, every member of one namespace across the sets of a
// run ({namespace}.json, with the global namespace written as global.json).
// Field order follows struct order and members keep insertion order, so two
// runs over the same input produce byte-identical files.
package emit

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/maid-docs/maid/internal/docs"
)

// SummaryFile is the name of the run summary written next to the units.
const SummaryFile = "summary.json"

// DocSetUnit is the content of a unit in docset grouping.
type DocSetUnit struct {
	DocID   string         `json:"docId" yaml:"docId"`
	Members []*docs.Member `json:"members" yaml:"members"`
}

// NamespaceUnit is the content of a unit in namespace grouping.
type NamespaceUnit struct {
	Namespace string         `json:"namespace" yaml:"namespace"`
	Members   []*docs.Member `json:"members" yaml:"members"`
}

// Options configures an Emitter.
type Options struct {
	Dir      string
	Format   Format
	Grouping Grouping
	// Workers bounds concurrent unit writes. Zero means GOMAXPROCS.
	Workers int
	Logger  *zap.Logger
}

// Emitter writes units to a directory.
type Emitter struct {
	opts Options
	log  *zap.Logger
}

// New returns an emitter. Empty options fall back to JSON, docset grouping
// and the current directory.
func New(opts Options) *Emitter {
	if opts.Format == "" {
		opts.Format = DefaultFormat
	}
	if opts.Grouping == "" {
		opts.Grouping = ByDocSet
	}
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Emitter{opts: opts, log: log}
}

type unit struct {
	name    string
	content any
}

// Emit writes one unit per set or per namespace and returns the written
// paths in sorted order. Existing units with the same name are overwritten.
func (e *Emitter) Emit(ctx context.Context, sets []*docs.DocumentSet) ([]string, error) {
	for _, set := range sets {
		if set.State() != docs.Sealed {
			return nil, errors.Newf("document set %s is not sealed", set.DocID())
		}
	}

	var units []unit
	switch e.opts.Grouping {
	case ByNamespace:
		units = namespaceUnits(sets)
	case ByDocSet:
		for _, set := range sets {
			units = append(units, unit{
				name:    set.DocID(),
				content: DocSetUnit{DocID: set.DocID(), Members: nonNil(set.Members())},
			})
		}
	default:
		return nil, errors.Newf("unsupported grouping: %s", e.opts.Grouping)
	}

	if err := os.MkdirAll(e.opts.Dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create output directory %s", e.opts.Dir)
	}

	paths := make([]string, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, u := range units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(e.opts.Dir, UnitName(u.name)+e.opts.Format.Ext())
			if err := e.write(path, e.opts.Format, u.content); err != nil {
				return err
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(paths)
	e.log.Info("emitted units",
		zap.String("dir", e.opts.Dir),
		zap.String("grouping", string(e.opts.Grouping)),
		zap.Int("units", len(paths)))
	return paths, nil
}

// WriteSummary writes summary as summary.json, always in JSON.
func (e *Emitter) WriteSummary(summary any) (string, error) {
	if err := os.MkdirAll(e.opts.Dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create output directory %s", e.opts.Dir)
	}
	path := filepath.Join(e.opts.Dir, SummaryFile)
	return path, e.write(path, FormatJSON, summary)
}

func (e *Emitter) write(path string, f Format, v any) error {
	data, err := Marshal(f, v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", filepath.Base(path))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// namespaceUnits groups the members of all sets by namespace. Members of a
// type go with the type's namespace; units are ordered by first appearance.
func namespaceUnits(sets []*docs.DocumentSet) []unit {
	var order []string
	byNS := make(map[string]*NamespaceUnit)
	for _, set := range sets {
		members := set.Members()
		typeNS := make(map[docs.MemberID]string)
		for _, m := range members {
			if m.Type != nil {
				typeNS[m.ID] = m.Type.Namespace.String()
			}
		}
		for _, m := range members {
			ns := typeNS[m.ID]
			if m.Type == nil {
				ns = typeNS[m.DeclaringType]
			}
			u, ok := byNS[ns]
			if !ok {
				u = &NamespaceUnit{Namespace: ns}
				byNS[ns] = u
				order = append(order, ns)
			}
			u.Members = append(u.Members, m)
		}
	}
	units := make([]unit, 0, len(order))
	for _, ns := range order {
		units = append(units, unit{name: ns, content: byNS[ns]})
	}
	return units
}

func nonNil(members []*docs.Member) []*docs.Member {
	if members == nil {
		return []*docs.Member{}
	}
	return members
}
