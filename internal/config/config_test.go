package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.DefaultObjective != DefaultObjective || c.ListenAddr != ":8080" || c.BatchConcurrency != 4 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	wantData := filepath.Join(home, ".autostat", "data")
	if c.DataDir != wantData || c.ChartDir != filepath.Join(wantData, "charts") {
		t.Fatalf("dirs = %q %q", c.DataDir, c.ChartDir)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	in := &Global{DataDir: "/srv/autostat", ListenAddr: ":9000", MaxUploadMB: 5, LogLevel: "debug"}
	if err := Save(in, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	t.Setenv("AUTOSTAT_LISTEN_ADDR", ":7000")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.ListenAddr != ":7000" {
		t.Fatalf("env should win, got %q", c.ListenAddr)
	}
	if c.MaxUploadMB != 5 || c.LogLevel != "debug" {
		t.Fatalf("file values lost: %+v", c)
	}
	if c.UploadDir != filepath.Join("/srv/autostat", "uploads") {
		t.Fatalf("upload dir = %q", c.UploadDir)
	}
}

func TestSaveDefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := Save(&Global{ListenAddr: ":1"}, ""); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".autostat", "config.yaml")); err != nil {
		t.Fatalf("config not written: %v", err)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("listen_addr: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestObjective(t *testing.T) {
	c := &Global{DefaultObjective: "distribution"}
	if got := c.Objective("  "); got != "distribution" {
		t.Fatalf("got %q", got)
	}
	if got := c.Objective("impact"); got != "impact" {
		t.Fatalf("got %q", got)
	}
	var nilCfg *Global
	if got := nilCfg.Objective(""); got != DefaultObjective {
		t.Fatalf("got %q", got)
	}
}
