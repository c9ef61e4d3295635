// Package pipeline runs one analysis end to end: classify the objective,
// execute and render the analysis, and optionally compose a report.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/KaramelBytes/autostat/internal/analysis"
	"github.com/KaramelBytes/autostat/internal/report"
	"github.com/KaramelBytes/autostat/internal/table"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Request is the input to a single run.
type Request struct {
	// ID names the run's artifacts; a random UUID is generated when empty.
	ID         string
	Table      *table.Table
	Objective  string
	WithReport bool
}

// Result describes a completed run. It is only returned when every
// requested artifact was produced.
type Result struct {
	ID         string             `json:"id"`
	Kind       analysis.Kind      `json:"analysis_type"`
	Rendered   analysis.Kind      `json:"rendered_as,omitempty"`
	Columns    analysis.Selection `json:"columns_used"`
	ChartName  string             `json:"chart"`
	ReportName string             `json:"report,omitempty"`
	Message    string             `json:"message"`
	Warnings   []string           `json:"warnings,omitempty"`

	ChartPNG  []byte `json:"-"`
	ReportPDF []byte `json:"-"`
	// ReportLines are the text lines written into the report, if any.
	ReportLines []string `json:"-"`
}

// ChartName returns the artifact name of a run's chart.
func ChartName(id string) string { return id + "_chart.png" }

// ReportName returns the artifact name of a run's report.
func ReportName(id string) string { return id + "_report.pdf" }

// Runner is safe for concurrent use.
type Runner struct {
	exec   *analysis.Executor
	log    *zap.Logger
	report []report.Option
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the structured logger; the default discards output.
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithReportOptions forwards options to report composition.
func WithReportOptions(opts ...report.Option) RunnerOption {
	return func(r *Runner) { r.report = append(r.report, opts...) }
}

// New returns a Runner rendering charts with renderer.
func New(renderer analysis.Renderer, opts ...RunnerOption) *Runner {
	r := &Runner{exec: analysis.NewExecutor(renderer), log: zap.NewNop()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run executes req. On any error the result is nil; no partial artifacts
// are returned.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Table.Validate(); err != nil {
		return nil, err
	}
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	start := time.Now()
	log := r.log.With(zap.String("run_id", id), zap.String("table", req.Table.Name))

	kind, cols := analysis.Classify(req.Objective, req.Table.NumericColumns())
	log.Debug("objective classified", zap.Stringer("kind", kind), zap.Strings("columns", cols))

	ch, err := r.exec.Execute(req.Table, kind, cols)
	if err != nil {
		log.Warn("analysis failed", zap.Stringer("kind", kind), zap.Error(err))
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		ID:        id,
		Kind:      kind,
		Columns:   cols,
		ChartName: ChartName(id),
		Message:   fmt.Sprintf("Performed %s based on your objective", kind),
		ChartPNG:  ch.PNG,
	}
	if ch.Rendered != kind {
		res.Rendered = ch.Rendered
	}
	if ch.Degraded != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%v; rendered %s instead", ch.Degraded, ch.Rendered))
		log.Info("analysis degraded", zap.Stringer("rendered", ch.Rendered), zap.Error(ch.Degraded))
	}

	if req.WithReport {
		rep, err := report.Compose(req.Objective, kind, cols, ch.PNG, r.report...)
		if err != nil {
			log.Warn("report composition failed", zap.Error(err))
			return nil, err
		}
		res.ReportName = ReportName(id)
		res.ReportPDF = rep.PDF
		res.ReportLines = rep.Lines
	}

	log.Info("analysis complete",
		zap.Stringer("kind", kind),
		zap.Strings("columns", cols),
		zap.Bool("report", req.WithReport),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}
