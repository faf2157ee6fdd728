package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, exists, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Error("exists = true for missing file")
	}
	if path == "" {
		t.Error("resolved path empty")
	}
	if cfg.Samtools.Binary != "samtools" {
		t.Errorf("Samtools.Binary = %q", cfg.Samtools.Binary)
	}
	if cfg.Defaults.Processes != 6 {
		t.Errorf("Defaults.Processes = %d", cfg.Defaults.Processes)
	}
	if cfg.Defaults.WindowLength != 10000 {
		t.Errorf("Defaults.WindowLength = %d", cfg.Defaults.WindowLength)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
work_dir = "` + dir + `/scratch"

[samtools]
sort_threads = 8

[logging]
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Error("exists = false for present file")
	}
	if cfg.Samtools.SortThreads != 8 {
		t.Errorf("SortThreads = %d", cfg.Samtools.SortThreads)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level not lowercased: %q", cfg.Logging.Level)
	}
	if !filepath.IsAbs(cfg.Paths.WorkDir) {
		t.Errorf("WorkDir not absolute: %q", cfg.Paths.WorkDir)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"bad processes":   "[defaults]\nprocesses = 0\n",
		"bad window":      "[defaults]\nwindow_length = 10\n",
		"bad sort memory": "[samtools]\nsort_memory = \"lots\"\n",
		"bad log format":  "[logging]\nformat = \"yaml\"\n",
	}
	for name, content := range cases {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, _, _, err := Load(path); err == nil {
			t.Errorf("%s: Load accepted invalid config", name)
		}
	}
}

func TestSamtoolsEnvOverride(t *testing.T) {
	t.Setenv("INSTRAIN_SAMTOOLS", "/opt/samtools/bin/samtools")
	cfg, _, _, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Samtools.Binary != "/opt/samtools/bin/samtools" {
		t.Errorf("Binary = %q, want env override", cfg.Samtools.Binary)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, _, err := Load(path); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[samtools]") {
		t.Error("sample config missing samtools section")
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := ExpandPath("~/data/genomes.fasta")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	want := filepath.Join(home, "data", "genomes.fasta")
	if got != want {
		t.Errorf("ExpandPath = %q, want %q", got, want)
	}
}
