// Package store persists uploads and analysis artifacts on the local filesystem.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/autostat/internal/pipeline"
	"github.com/KaramelBytes/autostat/internal/utils"
)

// Kind selects one of the artifact directories.
type Kind string

const (
	Upload Kind = "upload"
	Chart  Kind = "chart"
	Report Kind = "report"
)

var (
	ErrInvalidName = errors.New("invalid artifact name")
	ErrNotFound    = errors.New("artifact not found")
)

// Dirs holds the directory for each artifact kind.
type Dirs struct {
	Upload string
	Chart  string
	Report string
}

// Store reads and writes artifacts under Dirs.
type Store struct {
	dirs Dirs
}

// New creates any missing directories and returns a Store over them.
func New(d Dirs) (*Store, error) {
	for _, dir := range []string{d.Upload, d.Chart, d.Report} {
		if dir == "" {
			return nil, fmt.Errorf("store: empty directory in %+v", d)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create %s: %w", dir, err)
		}
	}
	return &Store{dirs: d}, nil
}

// Dirs returns the configured directories.
func (s *Store) Dirs() Dirs { return s.dirs }

func (s *Store) dir(k Kind) (string, error) {
	switch k {
	case Upload:
		return s.dirs.Upload, nil
	case Chart:
		return s.dirs.Chart, nil
	case Report:
		return s.dirs.Report, nil
	}
	return "", fmt.Errorf("store: unknown kind %q", k)
}

// Path resolves name inside the directory of kind k. Names containing path
// separators or parent references are rejected with ErrInvalidName.
func (s *Store) Path(k Kind, name string) (string, error) {
	dir, err := s.dir(k)
	if err != nil {
		return "", err
	}
	if !validName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(dir, name), nil
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return false
	}
	return filepath.Base(name) == name
}

// SaveUpload stores the raw upload as <id>_<filename> and returns its path.
// Only the base name of filename is kept.
func (s *Store) SaveUpload(id, filename string, data []byte) (string, error) {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	path, err := s.Path(Upload, id+"_"+base)
	if err != nil {
		return "", err
	}
	if err := utils.SafeWriteFile(path, data); err != nil {
		return "", fmt.Errorf("store: save upload: %w", err)
	}
	return path, nil
}

// SaveResult writes the chart and, if present, the report of res. Either
// both land or neither: a failed report write removes the chart again.
func (s *Store) SaveResult(res *pipeline.Result) error {
	if res == nil || len(res.ChartPNG) == 0 {
		return errors.New("store: result has no chart")
	}
	chartPath, err := s.Path(Chart, res.ChartName)
	if err != nil {
		return err
	}
	if err := utils.SafeWriteFile(chartPath, res.ChartPNG); err != nil {
		return fmt.Errorf("store: save chart: %w", err)
	}
	if res.ReportName == "" {
		return nil
	}
	reportPath, err := s.Path(Report, res.ReportName)
	if err == nil {
		err = utils.SafeWriteFile(reportPath, res.ReportPDF)
	}
	if err != nil {
		_ = os.Remove(chartPath)
		return fmt.Errorf("store: save report: %w", err)
	}
	return nil
}

// Open opens a stored artifact for reading.
func (s *Store) Open(k Kind, name string) (*os.File, error) {
	path, err := s.Path(k, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", name, err)
	}
	return f, nil
}
