package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/liupfskygre/inStrain/internal/logging"
	"github.com/liupfskygre/inStrain/internal/profiledb"
	"github.com/liupfskygre/inStrain/internal/readfilter"
	"github.com/liupfskygre/inStrain/internal/snv"
	"github.com/liupfskygre/inStrain/internal/version"
)

const currentGoVersion = "go1.24.5"

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), currentGoVersion, args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// isolate points HOME at a throwaway directory and returns a config path
// that does not exist, so commands run on pure defaults without touching
// the real machine.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	return filepath.Join(t.TempDir(), "no-such-config.toml")
}

// seedProfileDir builds the smallest profile directory genome_wide and
// other can operate on: one finished run with one profiled scaffold.
func seedProfileDir(t *testing.T, dir string) {
	t.Helper()
	layout := profiledb.NewLayout(dir)
	if err := layout.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	store, err := profiledb.OpenLayout(layout)
	if err != nil {
		t.Fatalf("OpenLayout: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	const runID = "run-cli"
	if err := store.BeginRun(ctx, profiledb.Run{
		ID:        runID,
		Operation: "profile",
		BAMPath:   "sample.bam",
		FastaPath: "ref.fasta",
		StartedAt: time.Now().UTC(),
		Version:   version.Version,
	}); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	metrics := snv.Metrics{
		Scaffold:        "s1",
		Length:          100,
		Coverage:        8,
		CoverageMedian:  8,
		Breadth:         1,
		BreadthMinCov:   1,
		BreadthExpected: 0.999,
		NuclDiversity:   0.01,
		DivergentSites:  2,
		SNVCount:        1,
		SNSCount:        1,
		ConANIReference: 0.99,
		PopANIReference: 0.995,
	}
	if err := store.AddScaffoldMetrics(ctx, runID, metrics); err != nil {
		t.Fatalf("AddScaffoldMetrics: %v", err)
	}
	report := readfilter.Report{
		Pairs:          100,
		FilteredPairs:  90,
		Reads:          200,
		MeanPairLength: 280,
		MedianInsert:   300,
		MaxInsert:      900,
		Scaffolds: []readfilter.ScaffoldReport{
			{Scaffold: "s1", Reads: 200, Pairs: 100, FilteredPairs: 90, MeanANI: 0.98, MeanInsert: 300, MeanMapQ: 42},
		},
	}
	if err := store.AddMappingReport(ctx, runID, report); err != nil {
		t.Fatalf("AddMappingReport: %v", err)
	}
	if err := store.FinishRun(ctx, runID, time.Now().UTC()); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
}

func TestOldRuntimeBlockedBeforeArguments(t *testing.T) {
	var stdout, stderr bytes.Buffer
	// The arguments are garbage on purpose: the gate must fire before
	// anything looks at them.
	code := run(context.Background(), "go1.19.5", []string{"profile", "--no-such-flag"}, &stdout, &stderr)
	if code != exitEnvironment {
		t.Fatalf("exit = %d, want %d", code, exitEnvironment)
	}
	if !strings.Contains(stderr.String(), "UNSUPPORTED RUNTIME") {
		t.Errorf("stderr missing the runtime banner:\n%s", stderr.String())
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout should stay clean, got:\n%s", stdout.String())
	}
}

func TestHelpExitsZero(t *testing.T) {
	code, stdout, _ := runCLI(t, "profile", "--help")
	if code != exitOK {
		t.Fatalf("exit = %d, want %d", code, exitOK)
	}
	if !strings.Contains(stdout, "--min_read_ani") {
		t.Errorf("help output missing flag documentation:\n%s", stdout)
	}
}

func TestVersionExitsZero(t *testing.T) {
	code, stdout, _ := runCLI(t, "--version")
	if code != exitOK {
		t.Fatalf("exit = %d, want %d", code, exitOK)
	}
	want := "instrain version " + version.Version
	if !strings.Contains(stdout, want) {
		t.Errorf("stdout = %q, want it to contain %q", stdout, want)
	}
}

func TestMissingArgumentIsUsageError(t *testing.T) {
	code, _, stderr := runCLI(t, "profile")
	if code != exitUsage {
		t.Fatalf("exit = %d, want %d", code, exitUsage)
	}
	if !strings.Contains(stderr, "a mapping file (.bam or .sam) is required") {
		t.Errorf("stderr does not name the missing argument:\n%s", stderr)
	}
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	code, _, stderr := runCLI(t, "profile", "--frobnicate")
	if code != exitUsage {
		t.Fatalf("exit = %d, want %d", code, exitUsage)
	}
	if !strings.Contains(stderr, "frobnicate") {
		t.Errorf("stderr does not name the unknown flag:\n%s", stderr)
	}
}

func TestUnknownCommandIsUsageError(t *testing.T) {
	code, _, stderr := runCLI(t, "analyze")
	if code != exitUsage {
		t.Fatalf("exit = %d, want %d", code, exitUsage)
	}
	if !strings.Contains(stderr, "unknown command") {
		t.Errorf("stderr = %q, want an unknown command report", stderr)
	}
}

func TestGenomeWideEndToEnd(t *testing.T) {
	cfgPath := isolate(t)
	dir := filepath.Join(t.TempDir(), "sample.IS")
	seedProfileDir(t, dir)

	code, _, stderr := runCLI(t, "genome_wide", "-i", dir, "--config", cfgPath)
	if code != exitOK {
		t.Fatalf("exit = %d, want %d\nstderr:\n%s", code, exitOK, stderr)
	}

	table := filepath.Join(dir, "output", "sample.IS_genome_info.tsv")
	data, err := os.ReadFile(table)
	if err != nil {
		t.Fatalf("genome table not written: %v", err)
	}
	if !strings.Contains(string(data), "all_scaffolds") {
		t.Errorf("genome table missing the fallback genome:\n%s", data)
	}
}

func TestMissingProfileFailureReachesStderr(t *testing.T) {
	cfgPath := isolate(t)
	missing := filepath.Join(t.TempDir(), "nope.IS")

	code, _, stderr := runCLI(t, "genome_wide", "-i", missing, "--config", cfgPath)
	if code != exitFailure {
		t.Fatalf("exit = %d, want %d", code, exitFailure)
	}
	if !strings.Contains(stderr, "does not look like a profile directory") {
		t.Errorf("stderr does not carry the underlying failure:\n%s", stderr)
	}
}

func TestOtherSummarizesRunLog(t *testing.T) {
	cfgPath := isolate(t)
	dir := filepath.Join(t.TempDir(), "sample.IS")
	seedProfileDir(t, dir)

	layout := profiledb.NewLayout(dir)
	runLog, err := logging.OpenRunLog(logging.Options{Output: io.Discard}, layout.RunLogPath())
	if err != nil {
		t.Fatalf("OpenRunLog: %v", err)
	}
	logging.Checkpoint(runLog.Logger, "main_profile", logging.StateStart)
	runLog.Logger.Info("one record for the counter")
	logging.Checkpoint(runLog.Logger, "main_profile", logging.StateEnd)
	if err := runLog.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	code, stdout, stderr := runCLI(t, "other", "--run_statistics", dir, "--config", cfgPath)
	if code != exitOK {
		t.Fatalf("exit = %d, want %d\nstderr:\n%s", code, exitOK, stderr)
	}
	if !strings.Contains(stdout, "wall time") {
		t.Errorf("summary missing wall time:\n%s", stdout)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	code, stdout, stderr := runCLI(t, "config", "init")
	if code != exitOK {
		t.Fatalf("exit = %d, want %d\nstderr:\n%s", code, exitOK, stderr)
	}
	if !strings.Contains(stdout, "Wrote sample configuration") {
		t.Errorf("stdout = %q", stdout)
	}
	home := os.Getenv("HOME")
	if _, err := os.Stat(filepath.Join(home, ".config", "instrain", "config.toml")); err != nil {
		t.Errorf("sample config not written: %v", err)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if code, _, stderr := runCLI(t, "config", "init"); code != exitOK {
		t.Fatalf("first init failed: %d\n%s", code, stderr)
	}
	code, _, stderr := runCLI(t, "config", "init")
	if code == exitOK {
		t.Fatal("second init should refuse to overwrite")
	}
	if !strings.Contains(stderr, "already exists") {
		t.Errorf("stderr = %q", stderr)
	}
}
