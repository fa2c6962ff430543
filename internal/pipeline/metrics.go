package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/maid-docs/maid/internal/pipeline"

// Package-level tracer for extraction runs.
var tracer = otel.Tracer(instrumentationName)

// instruments are created per pipeline so that a caller-supplied meter
// provider is honored.
type instruments struct {
	runs        metric.Int64Counter
	runDuration metric.Float64Histogram
	members     metric.Int64Counter
	diagnostics metric.Int64Counter
	failures    metric.Int64Counter
}

func newInstruments(mp metric.MeterProvider) (*instruments, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	var ins instruments
	var err error
	ins.runs, err = meter.Int64Counter(
		"maid_pipeline_runs_total",
		metric.WithDescription("Total number of extraction runs"),
	)
	if err != nil {
		return nil, err
	}
	ins.runDuration, err = meter.Float64Histogram(
		"maid_pipeline_run_duration_seconds",
		metric.WithDescription("Duration of extraction runs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	ins.members, err = meter.Int64Counter(
		"maid_pipeline_members_total",
		metric.WithDescription("Entities added to sealed document sets"),
	)
	if err != nil {
		return nil, err
	}
	ins.diagnostics, err = meter.Int64Counter(
		"maid_pipeline_diagnostics_total",
		metric.WithDescription("Diagnostics raised during extraction"),
	)
	if err != nil {
		return nil, err
	}
	ins.failures, err = meter.Int64Counter(
		"maid_pipeline_project_failures_total",
		metric.WithDescription("Projects whose document set was not produced"),
	)
	if err != nil {
		return nil, err
	}
	return &ins, nil
}

// recordRun records the outcome of a run. res may be nil when the run
// failed as a whole.
func (ins *instruments) recordRun(ctx context.Context, duration time.Duration, res *Result, err error) {
	attrs := metric.WithAttributes(attribute.Bool("success", err == nil))
	ins.runs.Add(ctx, 1, attrs)
	ins.runDuration.Record(ctx, duration.Seconds(), attrs)
	if res == nil {
		return
	}

	for _, set := range res.Sets {
		ins.members.Add(ctx, int64(set.Len()), metric.WithAttributes(attribute.String("doc_id", set.DocID())))
	}
	counts := make(map[DiagnosticKind]int64)
	for _, d := range res.Diagnostics {
		counts[d.Kind]++
	}
	for kind, n := range counts {
		ins.diagnostics.Add(ctx, n, metric.WithAttributes(attribute.String("kind", string(kind))))
	}
	if len(res.Failures) > 0 {
		ins.failures.Add(ctx, int64(len(res.Failures)))
	}
}

// startProjectSpan creates a span for the extraction of one project.
func startProjectSpan(ctx context.Context, docID string, units int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Pipeline.Project",
		trace.WithAttributes(
			attribute.String("maid.doc_id", docID),
			attribute.Int("maid.unit_count", units),
		),
	)
}

// setRunSpanResult sets the result attributes on a run span.
func setRunSpanResult(span trace.Span, res *Result) {
	members := 0
	for _, set := range res.Sets {
		members += set.Len()
	}
	span.SetAttributes(
		attribute.Int("maid.set_count", len(res.Sets)),
		attribute.Int("maid.member_count", members),
		attribute.Int("maid.diagnostic_count", len(res.Diagnostics)),
		attribute.Int("maid.failure_count", len(res.Failures)),
	)
}
