// Package chart draws analysis statistics as PNG images with gonum/plot.
package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"strconv"

	"github.com/KaramelBytes/autostat/internal/analysis"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Default canvas geometry: 6in x 4in at 100 dpi, i.e. 600x400 pixels.
const (
	DefaultWidth  = 6 * vg.Inch
	DefaultHeight = 4 * vg.Inch
	DefaultDPI    = 100

	// GridColumns is the number of histogram panels per row.
	GridColumns = 3
	bandSamples = 50
)

var (
	pointColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	lineColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	bandColor  = color.RGBA{R: 214, G: 39, B: 40, A: 60}
	barColor   = color.RGBA{R: 31, G: 119, B: 180, A: 200}
	nanColor   = color.Gray{Y: 200}
)

// Renderer implements analysis.Renderer. The zero value is not usable; call New.
type Renderer struct {
	Width  vg.Length
	Height vg.Length
	DPI    int
}

// New returns a Renderer with the default geometry.
func New() *Renderer {
	return &Renderer{Width: DefaultWidth, Height: DefaultHeight, DPI: DefaultDPI}
}

var _ analysis.Renderer = (*Renderer)(nil)

// Heatmap draws an annotated correlation heatmap on a diverging palette
// fixed to [-1, 1]. Undefined coefficients are grey and labelled "nan".
func (r *Renderer) Heatmap(m *analysis.CorrMatrix) ([]byte, error) {
	if m == nil || len(m.Columns) == 0 {
		return r.placeholder("Correlation Matrix", "no numeric columns")
	}
	p := plot.New()
	p.Title.Text = "Correlation Matrix"

	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)
	hm := plotter.NewHeatMap(corrGrid{m}, cmap.Palette(255))
	hm.Min, hm.Max = -1, 1
	hm.NaN = nanColor
	p.Add(hm)

	n := len(m.Columns)
	xys := make(plotter.XYs, 0, n*n)
	labels := make([]string, 0, n*n)
	for c := 0; c < n; c++ {
		for row := 0; row < n; row++ {
			xys = append(xys, plotter.XY{X: float64(c), Y: float64(row)})
			labels = append(labels, formatCoef(m.Values[n-1-row][c]))
		}
	}
	lbl, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return nil, fmt.Errorf("heatmap labels: %w", err)
	}
	for i := range lbl.TextStyle {
		lbl.TextStyle[i].XAlign = text.XCenter
		lbl.TextStyle[i].YAlign = text.YCenter
	}
	p.Add(lbl)

	xt := make([]plot.Tick, n)
	yt := make([]plot.Tick, n)
	for i, name := range m.Columns {
		xt[i] = plot.Tick{Value: float64(i), Label: name}
		yt[i] = plot.Tick{Value: float64(n - 1 - i), Label: name}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xt)
	p.Y.Tick.Marker = plot.ConstantTicks(yt)
	return r.encode(p)
}

// corrGrid adapts a CorrMatrix to plotter.GridXYZ with the first column on top.
type corrGrid struct{ m *analysis.CorrMatrix }

func (g corrGrid) Dims() (c, r int) { return len(g.m.Columns), len(g.m.Columns) }
func (g corrGrid) X(c int) float64  { return float64(c) }
func (g corrGrid) Y(r int) float64  { return float64(r) }
func (g corrGrid) Z(c, r int) float64 {
	n := len(g.m.Columns)
	return g.m.Values[n-1-r][c]
}

func formatCoef(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Regression draws the paired observations, the fitted line and, when it can
// be estimated, the 95% confidence band of the mean response.
func (r *Renderer) Regression(fit *analysis.RegressionFit) ([]byte, error) {
	if fit == nil || len(fit.X) == 0 {
		return r.placeholder("Regression", "no observations")
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Regression: %s vs %s", fit.XName, fit.YName)
	p.X.Label.Text = fit.XName
	p.Y.Label.Text = fit.YName

	pts := make(plotter.XYs, len(fit.X))
	xmin, xmax := fit.X[0], fit.X[0]
	for i := range fit.X {
		pts[i] = plotter.XY{X: fit.X[i], Y: fit.Y[i]}
		xmin = math.Min(xmin, fit.X[i])
		xmax = math.Max(xmax, fit.X[i])
	}

	if band, ok := confidenceBand(fit, xmin, xmax); ok {
		poly, err := plotter.NewPolygon(band)
		if err != nil {
			return nil, fmt.Errorf("confidence band: %w", err)
		}
		poly.Color = bandColor
		poly.LineStyle.Width = 0
		p.Add(poly)
	}

	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fmt.Errorf("scatter: %w", err)
	}
	sc.GlyphStyle.Color = pointColor
	sc.GlyphStyle.Radius = vg.Points(3)
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(sc)

	line := plotter.NewFunction(fit.Predict)
	line.XMin, line.XMax = xmin, xmax
	line.Samples = 2
	line.Color = lineColor
	line.Width = vg.Points(1.5)
	p.Add(line)
	return r.encode(p)
}

// confidenceBand traces the upper bound left to right, then the lower bound
// back, as a closed polygon outline.
func confidenceBand(fit *analysis.RegressionFit, xmin, xmax float64) (plotter.XYs, bool) {
	if _, _, ok := fit.Band(xmin); !ok || xmax <= xmin {
		return nil, false
	}
	out := make(plotter.XYs, 0, 2*bandSamples)
	step := (xmax - xmin) / float64(bandSamples-1)
	for i := 0; i < bandSamples; i++ {
		x := xmin + float64(i)*step
		_, hi, _ := fit.Band(x)
		out = append(out, plotter.XY{X: x, Y: hi})
	}
	for i := bandSamples - 1; i >= 0; i-- {
		x := xmin + float64(i)*step
		lo, _, _ := fit.Band(x)
		out = append(out, plotter.XY{X: x, Y: lo})
	}
	return out, true
}

// Histograms draws one panel per histogram in a grid GridColumns wide under a
// shared title. An empty list renders a placeholder.
func (r *Renderer) Histograms(title string, hs []analysis.Histogram) ([]byte, error) {
	if len(hs) == 0 {
		return r.placeholder(title, "no numeric columns")
	}
	cols := GridColumns
	if len(hs) < cols {
		cols = len(hs)
	}
	rows := (len(hs) + cols - 1) / cols

	grid := make([][]*plot.Plot, rows)
	for i := range grid {
		grid[i] = make([]*plot.Plot, cols)
		for j := range grid[i] {
			k := i*cols + j
			if k >= len(hs) {
				blank := plot.New()
				blank.HideAxes()
				grid[i][j] = blank
				continue
			}
			grid[i][j] = histogramPanel(hs[k])
		}
	}

	c := r.canvas()
	dc := draw.New(c)
	head := plot.New().Title.TextStyle
	head.XAlign = text.XCenter
	head.YAlign = text.YTop
	dc.FillText(head, vg.Point{X: (dc.Min.X + dc.Max.X) / 2, Y: dc.Max.Y - vg.Points(4)}, title)

	tiles := draw.Tiles{
		Rows: rows, Cols: cols,
		PadX: vg.Millimeter * 2, PadY: vg.Millimeter * 2,
		PadTop: head.Height(title) + vg.Points(8),
		PadLeft: vg.Millimeter, PadRight: vg.Millimeter, PadBottom: vg.Millimeter,
	}
	canvases := plot.Align(grid, tiles, dc)
	for i := range grid {
		for j := range grid[i] {
			grid[i][j].Draw(canvases[i][j])
		}
	}
	return writePNG(c)
}

func histogramPanel(h analysis.Histogram) *plot.Plot {
	p := plot.New()
	p.Title.Text = h.Column
	p.Y.Label.Text = "count"
	if len(h.Bins) == 0 {
		return p
	}
	bins := make([]plotter.HistogramBin, len(h.Bins))
	for i, b := range h.Bins {
		bins[i] = plotter.HistogramBin{Min: b.Min, Max: b.Max, Weight: float64(b.Count)}
	}
	hist := &plotter.Histogram{
		Bins:      bins,
		Width:     h.Bins[0].Max - h.Bins[0].Min,
		FillColor: barColor,
		LineStyle: plotter.DefaultLineStyle,
	}
	p.Add(hist)
	return p
}

// placeholder renders a titled, axis-free image carrying a short note.
func (r *Renderer) placeholder(title, note string) ([]byte, error) {
	p := plot.New()
	p.Title.Text = title + " (" + note + ")"
	p.HideAxes()
	return r.encode(p)
}

func (r *Renderer) canvas() *vgimg.Canvas {
	w, h, dpi := r.Width, r.Height, r.DPI
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(dpi))
}

func (r *Renderer) encode(p *plot.Plot) ([]byte, error) {
	c := r.canvas()
	p.Draw(draw.New(c))
	return writePNG(c)
}

func writePNG(c *vgimg.Canvas) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
