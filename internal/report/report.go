// Package report lays out the one-page PDF summary of an analysis run.
package report

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"
	"math"
	"strings"
	"time"

	"codeberg.org/go-fonts/liberation/liberationsansbold"
	"codeberg.org/go-fonts/liberation/liberationsansregular"
	"github.com/KaramelBytes/autostat/internal/analysis"
	"github.com/go-pdf/fpdf"
)

// Heading is the first line of every report.
const Heading = "Research Analysis Report"

// Page geometry in millimetres on A4 portrait.
const (
	marginX     = 15.0
	marginTop   = 20.0
	marginBot   = 15.0
	chartTop    = 80.0
	chartWidth  = 180.0
	minChartH   = 60.0
	lineHeight  = 7.0
	chartImage  = "chart"
	bodyFont    = "LiberationSans"
	headingSize = 16
	bodySize    = 12
	minBodySize = 7
)

// Report is a composed document: the text lines written, in order, the
// encoded PDF and its page count.
type Report struct {
	Lines []string
	PDF   []byte
	Pages int
}

type options struct {
	compress bool
	created  time.Time
}

// Option adjusts how a report is encoded.
type Option func(*options)

// WithCompression toggles PDF stream compression (on by default).
func WithCompression(on bool) Option {
	return func(o *options) { o.compress = on }
}

// WithCreationDate pins the document creation and modification timestamps.
func WithCreationDate(t time.Time) Option {
	return func(o *options) { o.created = t }
}

// Lines returns the text lines of a report in layout order.
func Lines(objective string, kind analysis.Kind, cols analysis.Selection) []string {
	return []string{
		Heading,
		"Objective: " + objective,
		"Analysis Type: " + kind.Title(),
		"Columns Used: " + cols.String(),
	}
}

// Compose lays out the heading, objective, analysis kind and columns, then
// embeds chartPNG at a fixed position and width. Text is written with an
// embedded Unicode font. The page never overflows: long text shrinks, and
// the objective is clipped only at the smallest size; the chart moves down
// below the text and shrinks to the space left.
func Compose(objective string, kind analysis.Kind, cols analysis.Selection, chartPNG []byte, opts ...Option) (*Report, error) {
	o := options{compress: true}
	for _, fn := range opts {
		fn(&o)
	}
	if len(chartPNG) == 0 {
		return nil, &analysis.RenderError{Stage: "report", Err: fmt.Errorf("empty chart image")}
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(chartPNG))
	if err != nil || cfg.Width == 0 || cfg.Height == 0 {
		return nil, &analysis.RenderError{Stage: "report", Err: fmt.Errorf("decode chart image: %v", err)}
	}

	lines := Lines(objective, kind, cols)
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(o.compress)
	if !o.created.IsZero() {
		pdf.SetCreationDate(o.created)
		pdf.SetModificationDate(o.created)
	}
	pdf.AddUTF8FontFromBytes(bodyFont, "", liberationsansregular.TTF)
	pdf.AddUTF8FontFromBytes(bodyFont, "B", liberationsansbold.TTF)
	pdf.SetTitle(Heading, true)
	pdf.SetMargins(marginX, marginTop, marginX)
	pdf.SetAutoPageBreak(false, marginBot)
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()
	bottom := pageH - marginBot
	textW := pageW - 2*marginX

	pdf.SetFont(bodyFont, "B", headingSize)
	pdf.CellFormat(0, 10, printable(lines[0]), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont(bodyFont, "", bodySize)
	rows, lh := fitBody(pdf, lines[1:], textW, bottom-minChartH-5-pdf.GetY())
	for _, r := range rows {
		pdf.CellFormat(0, lh, r, "", 1, "L", false, 0, "")
	}

	top := chartTop
	if y := pdf.GetY() + 5; y > top {
		top = y
	}
	w := chartWidth
	h := w * float64(cfg.Height) / float64(cfg.Width)
	if avail := math.Max(bottom-top, 10); h > avail {
		h = avail
		w = h * float64(cfg.Width) / float64(cfg.Height)
	}
	imgOpt := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader(chartImage, imgOpt, bytes.NewReader(chartPNG))
	pdf.ImageOptions(chartImage, marginX, top, w, h, false, imgOpt, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &analysis.RenderError{Stage: "report", Err: err}
	}
	return &Report{Lines: lines, PDF: buf.Bytes(), Pages: pdf.PageCount()}, nil
}

// fitBody wraps lines to width, stepping the font size down until the rows
// fit in budget millimetres. At the minimum size the first line (the
// objective) is clipped with an ellipsis so the rest still fits. The font
// size is left set for the returned rows.
func fitBody(pdf *fpdf.Fpdf, lines []string, width, budget float64) ([]string, float64) {
	for size := float64(bodySize); ; size-- {
		pdf.SetFontSize(size)
		lh := lineHeight * size / bodySize
		wrapped := make([][]string, len(lines))
		n := 0
		for i, l := range lines {
			wrapped[i] = pdf.SplitText(printable(l), width)
			if len(wrapped[i]) == 0 {
				wrapped[i] = []string{""}
			}
			n += len(wrapped[i])
		}
		fit := int(budget / lh)
		if n > fit && size > minBodySize {
			continue
		}
		if n > fit {
			keep := fit - (n - len(wrapped[0]))
			if keep < 1 {
				keep = 1
			}
			if keep < len(wrapped[0]) {
				head := wrapped[0][:keep]
				head[keep-1] = strings.TrimRight(head[keep-1], " ") + " ..."
				wrapped[0] = head
			}
		}
		var rows []string
		for _, ws := range wrapped {
			rows = append(rows, ws...)
		}
		return rows, lh
	}
}

// printable replaces runes outside the Basic Multilingual Plane, which the
// embedded font tables cannot index.
func printable(s string) string {
	return strings.Map(func(r rune) rune {
		if r > 0xFFFF {
			return '?'
		}
		return r
	}, s)
}
