package analysis

import (
	"math"

	"github.com/KaramelBytes/autostat/internal/table"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// HistogramBins is the fixed bin count for distribution charts.
const HistogramBins = 10

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]; NaN when undefined
	Pairs   [][]int     // complete observations behind each coefficient
}

// At returns the coefficient between columns a and b by name.
func (m *CorrMatrix) At(a, b string) (float64, bool) {
	ia, ib := -1, -1
	for i, c := range m.Columns {
		if c == a {
			ia = i
		}
		if c == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return 0, false
	}
	return m.Values[ia][ib], true
}

// Correlate computes a pairwise-complete Pearson matrix: each coefficient uses
// only the rows where both columns have a value.
func Correlate(cols []table.Column) *CorrMatrix {
	n := len(cols)
	m := &CorrMatrix{Columns: make([]string, n), Values: make([][]float64, n), Pairs: make([][]int, n)}
	for i := range cols {
		m.Columns[i] = cols[i].Name
		m.Values[i] = make([]float64, n)
		m.Pairs[i] = make([]int, n)
	}
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			x, y := paired(cols[a].Values, cols[b].Values)
			r := pearson(x, y)
			if a == b && !math.IsNaN(r) {
				r = 1
			}
			m.Values[a][b], m.Values[b][a] = r, r
			m.Pairs[a][b], m.Pairs[b][a] = len(x), len(x)
		}
	}
	return m
}

func pearson(x, y []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return math.NaN()
	}
	r := stat.Correlation(x, y, nil)
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}

// paired returns the values of x and y on rows where both are present.
func paired(x, y []float64) ([]float64, []float64) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	px := make([]float64, 0, n)
	py := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		px = append(px, x[i])
		py = append(py, y[i])
	}
	return px, py
}

// RegressionFit is an ordinary least squares line y = Intercept + Slope*x.
type RegressionFit struct {
	XName, YName string
	X, Y         []float64 // paired observations
	Slope        float64
	Intercept    float64
	RSquared     float64
	N            int

	xMean float64
	sxx   float64
	se    float64 // residual standard error; NaN when N < 3
	tCrit float64 // two-sided 95% Student's t quantile
}

// FitRegression fits response on predictor over rows where both are present.
func FitRegression(predictor, response table.Column) (*RegressionFit, error) {
	x, y := paired(predictor.Values, response.Values)
	if len(x) < 2 {
		return nil, &AnalysisError{Kind: Regression, Reason: InsufficientObservations, Need: 2, Have: len(x)}
	}
	if stat.Variance(x, nil) == 0 {
		return nil, &AnalysisError{Kind: Regression, Reason: InsufficientObservations, Need: 2, Have: 1, Column: predictor.Name}
	}
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	fit := &RegressionFit{
		XName: predictor.Name, YName: response.Name,
		X: x, Y: y,
		Slope: beta, Intercept: alpha,
		N:     len(x),
		xMean: stat.Mean(x, nil),
		se:    math.NaN(),
		tCrit: math.NaN(),
	}
	for _, v := range x {
		d := v - fit.xMean
		fit.sxx += d * d
	}
	fit.RSquared = stat.RSquared(x, y, nil, alpha, beta)
	if fit.N > 2 {
		var sse float64
		for i := range x {
			r := y[i] - fit.Predict(x[i])
			sse += r * r
		}
		dof := float64(fit.N - 2)
		fit.se = math.Sqrt(sse / dof)
		fit.tCrit = distuv.StudentsT{Mu: 0, Sigma: 1, Nu: dof}.Quantile(0.975)
	}
	return fit, nil
}

// Predict evaluates the fitted line at x.
func (f *RegressionFit) Predict(x float64) float64 { return f.Intercept + f.Slope*x }

// Band returns the 95% confidence interval of the mean response at x. ok is
// false when there are too few observations to estimate it.
func (f *RegressionFit) Band(x float64) (lo, hi float64, ok bool) {
	if f.N < 3 || math.IsNaN(f.se) || f.sxx == 0 {
		return 0, 0, false
	}
	d := x - f.xMean
	half := f.tCrit * f.se * math.Sqrt(1/float64(f.N)+d*d/f.sxx)
	y := f.Predict(x)
	return y - half, y + half, true
}

// Bin is one histogram bucket; Max is exclusive except for the last bin.
type Bin struct {
	Min, Max float64
	Count    int
}

// Histogram summarizes the distribution of one numeric column.
type Histogram struct {
	Column string
	Bins   []Bin
	N      int
	Mean   float64
	Std    float64
	Min    float64
	Max    float64
}

// BuildHistogram bins the present values of c into n equal-width bins. A
// column with a single distinct value gets a unit-wide range centred on it.
func BuildHistogram(c table.Column, n int) Histogram {
	vals := c.Present()
	h := Histogram{Column: c.Name, N: len(vals), Std: math.NaN(), Mean: math.NaN()}
	if len(vals) == 0 || n <= 0 {
		return h
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	h.Min, h.Max = lo, hi
	h.Mean = stat.Mean(vals, nil)
	if len(vals) > 1 {
		h.Std = stat.StdDev(vals, nil)
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(n)
	h.Bins = make([]Bin, n)
	for i := range h.Bins {
		h.Bins[i] = Bin{Min: lo + float64(i)*width, Max: lo + float64(i+1)*width}
	}
	h.Bins[n-1].Max = hi
	for _, v := range vals {
		i := int((v - lo) / width)
		if i >= n {
			i = n - 1
		}
		if i < 0 {
			i = 0
		}
		h.Bins[i].Count++
	}
	return h
}
