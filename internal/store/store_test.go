package store

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/autostat/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	s, err := New(Dirs{
		Upload: filepath.Join(root, "uploads"),
		Chart:  filepath.Join(root, "charts"),
		Report: filepath.Join(root, "reports"),
	})
	require.NoError(t, err)
	return s
}

func TestNewCreatesDirectories(t *testing.T) {
	s := newStore(t)
	for _, d := range []string{s.Dirs().Upload, s.Dirs().Chart, s.Dirs().Report} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	_, err := New(Dirs{Upload: "x"})
	assert.Error(t, err)
}

func TestSaveUploadKeepsBaseName(t *testing.T) {
	s := newStore(t)
	path, err := s.SaveUpload("id1", "../../etc/data.csv", []byte("a,b\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dirs().Upload, "id1_data.csv"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(b))
}

func TestSaveResultAndOpen(t *testing.T) {
	s := newStore(t)
	res := &pipeline.Result{
		ChartName:  pipeline.ChartName("r1"),
		ReportName: pipeline.ReportName("r1"),
		ChartPNG:   []byte("png-bytes"),
		ReportPDF:  []byte("pdf-bytes"),
	}
	require.NoError(t, s.SaveResult(res))

	f, err := s.Open(Chart, "r1_chart.png")
	require.NoError(t, err)
	defer f.Close()
	b, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(b))

	g, err := s.Open(Report, "r1_report.pdf")
	require.NoError(t, err)
	g.Close()
}

func TestSaveResultRollsBackChartOnReportFailure(t *testing.T) {
	s := newStore(t)
	res := &pipeline.Result{
		ChartName:  "r2_chart.png",
		ReportName: "../escape.pdf",
		ChartPNG:   []byte("png"),
		ReportPDF:  []byte("pdf"),
	}
	err := s.SaveResult(res)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidName)

	_, statErr := os.Stat(filepath.Join(s.Dirs().Chart, "r2_chart.png"))
	assert.True(t, os.IsNotExist(statErr), "chart should be removed")
}

func TestSaveResultRequiresChart(t *testing.T) {
	assert.Error(t, newStore(t).SaveResult(&pipeline.Result{ChartName: "x.png"}))
	assert.Error(t, newStore(t).SaveResult(nil))
}

func TestOpenRejectsTraversal(t *testing.T) {
	s := newStore(t)
	for _, name := range []string{"", ".", "..", "../secret", "a/b.png", `a\b.png`} {
		_, err := s.Open(Chart, name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
	_, err := s.Open(Chart, "missing.png")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Open(Kind("other"), "x")
	assert.Error(t, err)
}
