package analysis

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/autostat/internal/table"
)

// Renderer draws computed statistics as a raster image.
type Renderer interface {
	Heatmap(m *CorrMatrix) ([]byte, error)
	Regression(fit *RegressionFit) ([]byte, error)
	Histograms(title string, hs []Histogram) ([]byte, error)
}

// Chart is the outcome of one analysis: the statistics behind the image plus
// the encoded image itself.
type Chart struct {
	// Requested is the kind the classifier selected; Rendered is what was drawn.
	Requested Kind
	Rendered  Kind
	Columns   Selection

	Corr  *CorrMatrix
	Fit   *RegressionFit
	Hists []Histogram

	// Degraded is set when the requested analysis could not run and a fallback
	// rendering was produced instead.
	Degraded error

	PNG []byte
}

// Executor computes statistics for a selection and renders them.
type Executor struct {
	renderer Renderer
}

// NewExecutor returns an Executor drawing with r.
func NewExecutor(r Renderer) *Executor {
	return &Executor{renderer: r}
}

// Execute runs the analysis kind over cols of t.
//
// Correlation on an empty selection fails with InsufficientColumns. Regression
// that cannot be fitted falls back to a Descriptive rendering and records the
// shortfall in Chart.Degraded. Descriptive and Default never fail on an
// empty selection; they render a placeholder.
func (e *Executor) Execute(t *table.Table, kind Kind, cols Selection) (*Chart, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown analysis kind %q", kind)
	}
	series, err := lookup(t, kind, cols)
	if err != nil {
		return nil, err
	}
	ch := &Chart{Requested: kind, Rendered: kind, Columns: clone(cols)}

	switch kind {
	case Correlation:
		if len(series) == 0 {
			return nil, &AnalysisError{Kind: kind, Reason: InsufficientColumns, Need: 1, Have: 0}
		}
		ch.Corr = Correlate(series)
		ch.PNG, err = e.renderer.Heatmap(ch.Corr)
	case Regression:
		if len(series) < 2 {
			ch.Degraded = &AnalysisError{Kind: kind, Reason: InsufficientColumns, Need: 2, Have: len(series)}
			ch.Rendered = Descriptive
			return e.histograms(ch, series)
		}
		fit, ferr := FitRegression(series[0], series[1])
		var ae *AnalysisError
		if errors.As(ferr, &ae) {
			ch.Degraded = ae
			ch.Rendered = Descriptive
			return e.histograms(ch, series)
		}
		if ferr != nil {
			return nil, ferr
		}
		ch.Fit = fit
		ch.PNG, err = e.renderer.Regression(ch.Fit)
	default:
		return e.histograms(ch, series)
	}
	if err != nil {
		return nil, asRenderError("chart", err)
	}
	return ch, nil
}

func (e *Executor) histograms(ch *Chart, series []table.Column) (*Chart, error) {
	ch.Hists = make([]Histogram, 0, len(series))
	for _, c := range series {
		ch.Hists = append(ch.Hists, BuildHistogram(c, HistogramBins))
	}
	png, err := e.renderer.Histograms("Descriptive Distribution", ch.Hists)
	if err != nil {
		return nil, asRenderError("chart", err)
	}
	ch.PNG = png
	return ch, nil
}

// lookup resolves selected names to numeric columns, in selection order.
func lookup(t *table.Table, kind Kind, cols Selection) ([]table.Column, error) {
	out := make([]table.Column, 0, len(cols))
	for _, name := range cols {
		c, ok := t.Column(name)
		if !ok || c.Kind != table.Numeric {
			return nil, &AnalysisError{Kind: kind, Reason: UnknownColumn, Column: name}
		}
		out = append(out, c)
	}
	return out, nil
}
