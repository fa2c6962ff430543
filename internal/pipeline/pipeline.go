// Package pipeline turns the declared elements reported by a symbol provider
// into sealed document sets.
//
// Each project of a run becomes one document set that moves through
// Collecting, Merging, Resolving and Sealed. Units are collected
// concurrently into a namespace-keyed accumulator; same-identifier
// contributions are merged in input order; references are then resolved in
// parallel against an index of every set of the run plus the sets known
// from earlier runs.
package pipeline

import (
	"context"
	"runtime"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/maid-docs/maid/internal/docs"
	"github.com/maid-docs/maid/internal/resolve"
	"github.com/maid-docs/maid/internal/symbol"
)

// Known supplies the entities of document sets sealed by earlier runs.
type Known interface {
	Entries(ctx context.Context) ([]resolve.Entry, error)
}

// Options configures a Pipeline.
type Options struct {
	Provider symbol.Provider
	// Known is optional. Its sets are only consulted for document ids the
	// current run does not produce.
	Known Known
	// External is the catalog for references outside every tracked set.
	// Nil means the built-in rules.
	External *resolve.Catalog
	// Workers bounds concurrency of every phase. Zero means GOMAXPROCS.
	Workers       int
	Logger        *zap.Logger
	MeterProvider metric.MeterProvider
}

// Pipeline runs extractions. It is safe to reuse across runs.
type Pipeline struct {
	provider symbol.Provider
	known    Known
	external *resolve.Catalog
	workers  int
	log      *zap.Logger
	metrics  *instruments
}

// Result is the outcome of a run.
type Result struct {
	// Sets are the sealed document sets in project order.
	Sets        []*docs.DocumentSet
	Diagnostics []Diagnostic
	Failures    []*ProjectError
	Summary     Summary
}

// New returns a pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Provider == nil {
		return nil, errors.New("pipeline requires a symbol provider")
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	external := opts.External
	if external == nil {
		external = resolve.NewCatalog(resolve.DefaultRules())
	}
	ins, err := newInstruments(opts.MeterProvider)
	if err != nil {
		return nil, errors.Wrap(err, "create pipeline instruments")
	}
	return &Pipeline{
		provider: opts.Provider,
		known:    opts.Known,
		external: external,
		workers:  workers,
		log:      log,
		metrics:  ins,
	}, nil
}

// Run extracts one document set per project. A project that fails to load
// is reported in Result.Failures and the others still complete; Run itself
// fails only on cancellation or when the known sets cannot be read.
func (p *Pipeline) Run(ctx context.Context, projects []string) (res *Result, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "Pipeline.Run",
		trace.WithAttributes(attribute.Int("maid.project_count", len(projects))))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			setRunSpanResult(span, res)
		}
		span.End()
		p.metrics.recordRun(ctx, time.Since(start), res, err)
	}()

	loaded, failures, err := p.load(ctx, projects)
	if err != nil {
		return nil, err
	}

	var builds []*build
	produced := make(map[string]bool)
	for i, proj := range loaded {
		if proj == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		docID := proj.Assembly
		if produced[docID] {
			failures = append(failures, &ProjectError{
				Project: projects[i],
				Err:     errors.Newf("document set %q is already produced by another project", docID),
			})
			continue
		}
		produced[docID] = true

		pctx, pspan := startProjectSpan(ctx, docID, len(proj.Units))
		b, err := p.collect(pctx, proj, docs.NewDocumentSet(docID))
		pspan.End()
		if err != nil {
			return nil, errors.Wrapf(err, "collect %s", docID)
		}
		builds = append(builds, b)
	}

	index := resolve.NewIndex()
	for _, b := range builds {
		for _, d := range b.drafts {
			index.Add(d.entry())
		}
	}
	if p.known != nil {
		entries, err := p.known.Entries(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "read known document sets")
		}
		for _, e := range entries {
			if produced[e.DocID] {
				continue
			}
			e.Persisted = true
			index.Add(e)
		}
	}

	if err := p.resolve(ctx, resolve.New(index, p.external), builds); err != nil {
		return nil, err
	}

	res = &Result{Failures: failures}
	for _, b := range builds {
		for _, d := range b.drafts {
			if err := b.set.Add(d.member); err != nil {
				return nil, errors.Wrapf(err, "seal %s", b.set.DocID())
			}
		}
		if err := b.set.Advance(docs.Sealed); err != nil {
			return nil, err
		}
		res.Sets = append(res.Sets, b.set)
		res.Diagnostics = append(res.Diagnostics, b.diags...)
	}
	for _, d := range res.Diagnostics {
		d.log(p.log)
	}
	for _, f := range failures {
		p.log.Warn("project not extracted", zap.String("project", f.Project), zap.Error(f.Err))
	}
	res.Summary = summarize(res.Sets, res.Diagnostics, failures)
	return res, nil
}

// load loads every project concurrently. Load failures are collected per
// project; only cancellation fails the whole step.
func (p *Pipeline) load(ctx context.Context, projects []string) ([]*symbol.Project, []*ProjectError, error) {
	loaded := make([]*symbol.Project, len(projects))
	errs := make([]error, len(projects))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, path := range projects {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			proj, err := p.provider.Load(ctx, path)
			switch {
			case err != nil:
				errs[i] = err
			case proj == nil || proj.Assembly == "":
				errs[i] = errors.New("provider reported no assembly name")
			default:
				loaded[i] = proj
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var failures []*ProjectError
	for i, err := range errs {
		if err != nil {
			failures = append(failures, &ProjectError{Project: projects[i], Err: err})
		}
	}
	return loaded, failures, nil
}

// resolve resolves the references of every draft. Drafts are independent
// and the index is read-only, so each task writes only its own draft.
func (p *Pipeline) resolve(ctx context.Context, r *resolve.Resolver, builds []*build) error {
	perBuild := make([][][]Diagnostic, len(builds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for bi, b := range builds {
		perBuild[bi] = make([][]Diagnostic, len(b.drafts))
		for di, d := range b.drafts {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				perBuild[bi][di] = resolveDraft(r, d)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for bi, b := range builds {
		for _, ds := range perBuild[bi] {
			b.diags = append(b.diags, ds...)
		}
	}
	return nil
}

var voidRef = symbol.Ref{Name: "void"}

// resolveDraft fills the reference facts of d's member and reports the
// references that stayed unresolved.
func resolveDraft(r *resolve.Resolver, d *draft) []Diagnostic {
	m := d.member
	var diags []Diagnostic
	check := func(ref docs.Ref) docs.Ref {
		if ref.Kind == docs.RefUnresolved {
			diags = append(diags, Diagnostic{
				Kind:     UnresolvedReference,
				DocID:    m.DocID,
				MemberID: m.ID,
				Name:     ref.Name,
				Message:  "unresolved reference",
				Location: d.loc,
			})
		}
		return ref
	}
	typeRef := func(at *refAt, fallback symbol.Ref) docs.Ref {
		if at == nil {
			return check(r.Type(d.scope, fallback))
		}
		return check(r.Type(at.scope, at.ref))
	}

	for _, a := range d.attributes {
		ref := a.attr.Type
		if ref.Name == "" {
			ref.Name = a.attr.Name
		}
		attr := docs.Attribute{Name: a.attr.Name, Ref: check(r.Attribute(a.scope, ref))}
		for _, arg := range a.attr.Arguments {
			attr.Arguments = append(attr.Arguments, docs.AttributeArg{Type: arg.Type, Value: arg.Value})
		}
		m.Attributes = append(m.Attributes, attr)
	}

	switch m.Kind {
	case docs.KindType:
		t := m.Type
		t.Namespace = r.Namespace(d.namespace)
		if d.base != nil {
			base := typeRef(d.base, symbol.Ref{})
			t.Inherits = &base
		}
		for _, iface := range d.interfaces {
			ref := check(r.Type(iface.scope, iface.ref))
			if !containsRef(t.Interfaces, ref) {
				t.Interfaces = append(t.Interfaces, ref)
			}
		}
	case docs.KindMethod:
		m.Method.Returns = typeRef(d.value, voidRef)
		m.Method.Overrides = overrideRef(r, d, check)
		m.Method.Parameters = parameters(r, d, check)
	case docs.KindConstructor:
		m.Constructor.Parameters = parameters(r, d, check)
	case docs.KindProperty:
		m.Property.Type = typeRef(d.value, symbol.Ref{Name: "object"})
		m.Property.Overrides = overrideRef(r, d, check)
	case docs.KindField:
		m.Field.Type = typeRef(d.value, symbol.Ref{Name: "object"})
	}
	return diags
}

func overrideRef(r *resolve.Resolver, d *draft, check func(docs.Ref) docs.Ref) *docs.Ref {
	if d.overrides == nil {
		return nil
	}
	ref := check(r.Member(d.overrides.scope, d.overrides.ref))
	return &ref
}

func parameters(r *resolve.Resolver, d *draft, check func(docs.Ref) docs.Ref) []docs.Parameter {
	out := make([]docs.Parameter, 0, len(d.params))
	for _, p := range d.params {
		out = append(out, docs.Parameter{
			Name:     p.Name,
			Type:     check(r.Type(d.scope, p.Type)),
			Modifier: p.Modifier,
		})
	}
	return out
}

func containsRef(refs []docs.Ref, ref docs.Ref) bool {
	for _, r := range refs {
		if r == ref {
			return true
		}
	}
	return false
}
