package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSafeWriteFileReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")
	if err := SafeWriteFile(path, []byte("one")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := SafeWriteFile(path, []byte("two")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "two" {
		t.Fatalf("content = %q, %v", b, err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestSafeWriteFileMissingDir(t *testing.T) {
	if err := SafeWriteFile(filepath.Join(t.TempDir(), "nope", "x"), []byte("x")); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestPrettyJSONAndYAML(t *testing.T) {
	v := struct {
		Kind    string   `json:"analysis_type"`
		Columns []string `json:"columns_used"`
	}{"correlation", []string{"age", "income"}}
	j, err := PrettyJSON(v)
	if err != nil || !strings.Contains(string(j), "\n  \"analysis_type\": \"correlation\"") {
		t.Fatalf("json = %s, %v", j, err)
	}
	y, err := YAML(v)
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !strings.Contains(string(y), "analysis_type: correlation") || !strings.Contains(string(y), "- income") {
		t.Fatalf("yaml = %s", y)
	}
}
