package report

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"
	"unicode/utf16"

	"github.com/KaramelBytes/autostat/internal/analysis"
	"github.com/google/go-cmp/cmp"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 60, 40))
	for x := 0; x < 60; x++ {
		img.SetGray(x, 20, color.Gray{Y: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

var fixed = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

var pdfEscaper = strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`, "\r", `\r`)

// shown returns the text-showing operator fpdf emits for s in an embedded
// UTF-8 font: the UTF-16BE code units, escaped, followed by Tj.
func shown(s string) []byte {
	return []byte("(" + utf16Operand(s) + ")Tj")
}

func utf16Operand(s string) string {
	var b []byte
	for _, u := range utf16.Encode([]rune(s)) {
		b = append(b, byte(u>>8), byte(u))
	}
	return pdfEscaper.Replace(string(b))
}

func TestComposeLinesMatchInputs(t *testing.T) {
	rep, err := Compose("Is there a relationship between age and income?", analysis.Correlation,
		analysis.Selection{"age", "income"}, testPNG(t), WithCompression(false), WithCreationDate(fixed))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	want := []string{
		"Research Analysis Report",
		"Objective: Is there a relationship between age and income?",
		"Analysis Type: Correlation",
		"Columns Used: age, income",
	}
	if diff := cmp.Diff(want, rep.Lines); diff != "" {
		t.Fatalf("lines (-want +got):\n%s", diff)
	}
	if !bytes.HasPrefix(rep.PDF, []byte("%PDF")) {
		t.Fatalf("output is not a PDF")
	}
	for _, l := range want {
		if !bytes.Contains(rep.PDF, shown(l)) {
			t.Fatalf("PDF does not contain %q", l)
		}
	}
	if !bytes.Contains(rep.PDF, []byte("/Subtype /Image")) {
		t.Fatalf("PDF does not embed the chart image")
	}
}

func TestComposeEmptyColumns(t *testing.T) {
	rep, err := Compose("anything", analysis.Default, analysis.Selection{}, testPNG(t), WithCompression(false))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if rep.Lines[3] != "Columns Used: " {
		t.Fatalf("columns line = %q", rep.Lines[3])
	}
}

func TestComposeIsDeterministicWithFixedDate(t *testing.T) {
	a, err := Compose("effect", analysis.Regression, analysis.Selection{"x", "y"}, testPNG(t), WithCreationDate(fixed))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	b, err := Compose("effect", analysis.Regression, analysis.Selection{"x", "y"}, testPNG(t), WithCreationDate(fixed))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !bytes.Equal(a.PDF, b.PDF) {
		t.Fatalf("PDF output differs between identical runs")
	}
}

func TestComposeLongObjectiveStillSucceeds(t *testing.T) {
	long := bytes.Repeat([]byte("what is the distribution pattern of these values "), 20)
	rep, err := Compose(string(long), analysis.Descriptive, analysis.Selection{"a"}, testPNG(t))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if rep.Lines[1] != "Objective: "+string(long) {
		t.Fatalf("objective line should be verbatim")
	}
	if rep.Pages != 1 {
		t.Fatalf("pages = %d, want 1", rep.Pages)
	}
}

func TestComposeOverlongObjectiveStaysOnOnePage(t *testing.T) {
	long := strings.Repeat("what is the distribution pattern of these values ", 200)
	rep, err := Compose(long, analysis.Descriptive, analysis.Selection{"a", "b"}, testPNG(t), WithCompression(false))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if rep.Pages != 1 {
		t.Fatalf("pages = %d, want 1", rep.Pages)
	}
	if !bytes.Contains(rep.PDF, []byte(utf16Operand(" ...")+")Tj")) {
		t.Fatalf("clipped objective should end with an ellipsis")
	}
	for _, l := range []string{"Analysis Type: Descriptive", "Columns Used: a, b"} {
		if !bytes.Contains(rep.PDF, shown(l)) {
			t.Fatalf("PDF does not contain %q", l)
		}
	}
	if !bytes.Contains(rep.PDF, []byte("/Subtype /Image")) {
		t.Fatalf("PDF does not embed the chart image")
	}
}

func TestComposeKeepsNonLatinText(t *testing.T) {
	objective := "Влияние возраста на доход"
	cols := analysis.Selection{"возраст", "доход"}
	rep, err := Compose(objective, analysis.Regression, cols, testPNG(t), WithCompression(false))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	for _, l := range []string{"Objective: " + objective, "Columns Used: возраст, доход"} {
		if !bytes.Contains(rep.PDF, shown(l)) {
			t.Fatalf("PDF does not contain %q", l)
		}
	}
	if bytes.Contains(rep.PDF, []byte("Objective: ....")) {
		t.Fatalf("objective was transliterated to placeholders")
	}
}

func TestComposeRejectsBadImage(t *testing.T) {
	for name, img := range map[string][]byte{"empty": nil, "garbage": []byte("not a png")} {
		_, err := Compose("x", analysis.Default, nil, img)
		var re *analysis.RenderError
		if !errors.As(err, &re) || re.Stage != "report" {
			t.Fatalf("%s: expected report RenderError, got %v", name, err)
		}
	}
}
