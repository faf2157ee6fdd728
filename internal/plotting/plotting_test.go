package plotting_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/liupfskygre/inStrain/internal/plotting"
	"github.com/liupfskygre/inStrain/internal/profiledb"
	"github.com/liupfskygre/inStrain/internal/readfilter"
	"github.com/liupfskygre/inStrain/internal/snv"
)

const runID = "run-1"

func seedStore(t *testing.T) *profiledb.Store {
	t.Helper()
	ctx := context.Background()
	store, err := profiledb.OpenLayout(profiledb.NewLayout(t.TempDir()))
	if err != nil {
		t.Fatalf("OpenLayout failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	run := profiledb.Run{ID: runID, Operation: "profile", StartedAt: time.Now().UTC(), Version: "test"}
	if err := store.BeginRun(ctx, run); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if err := store.AddScaffoldMetrics(ctx, runID, snv.Metrics{Scaffold: "s1", Length: 100, Coverage: 8}); err != nil {
		t.Fatalf("AddScaffoldMetrics failed: %v", err)
	}
	windows := []snv.WindowMetrics{
		{Scaffold: "s1", Start: 0, End: 49, Coverage: 9, Breadth: 1, NuclDiversity: 0.01, DivergentSites: 2},
		{Scaffold: "s1", Start: 50, End: 99, Coverage: 7, Breadth: 0.9, NuclDiversity: -1},
	}
	if err := store.AddWindowMetrics(ctx, runID, windows); err != nil {
		t.Fatalf("AddWindowMetrics failed: %v", err)
	}
	calls := []snv.Call{
		{Position: 10, RefBase: 'A', ConBase: 'A', VarBase: 'G', Counts: [4]int{6, 0, 4, 0},
			Coverage: 10, AlleleCount: 2, VarFreq: 0.4, RefFreq: 0.6, RefIsAllele: true, Class: snv.ClassSNV},
		{Position: 30, RefBase: 'A', ConBase: 'C', VarBase: 'C', Counts: [4]int{0, 10, 0, 0},
			Coverage: 10, AlleleCount: 1, VarFreq: 1, Class: snv.ClassSNS},
	}
	if err := store.AddCalls(ctx, runID, "s1", calls); err != nil {
		t.Fatalf("AddCalls failed: %v", err)
	}
	mapping := readfilter.Report{
		Reads: 200, Pairs: 100, FilteredPairs: 80,
		Scaffolds: []readfilter.ScaffoldReport{
			{Scaffold: "s1", Reads: 200, Pairs: 100, FilteredPairs: 80, MeanANI: 0.99, MeanInsert: 300, MeanMapQ: 40},
		},
	}
	if err := store.AddMappingReport(ctx, runID, mapping); err != nil {
		t.Fatalf("AddMappingReport failed: %v", err)
	}
	genes := []profiledb.GeneRecord{
		{Gene: "s1_1", Scaffold: "s1", Start: 10, End: 21, Direction: 1, Coverage: 9, Breadth: 1, NuclDiversity: 0.02, NMutations: 1},
	}
	if err := store.AddGeneRecords(ctx, runID, genes); err != nil {
		t.Fatalf("AddGeneRecords failed: %v", err)
	}
	genomes := []profiledb.GenomeRecord{
		{Genome: "all_scaffolds", Scaffolds: 1, Detected: 1, Length: 100, Coverage: 8, Breadth: 0.8},
	}
	if err := store.AddGenomeRecords(ctx, runID, genomes); err != nil {
		t.Fatalf("AddGenomeRecords failed: %v", err)
	}
	return store
}

func TestRunEmitsEveryFigure(t *testing.T) {
	store := seedStore(t)
	dir := filepath.Join(t.TempDir(), "figures")

	written, err := plotting.Run(context.Background(), store, runID, dir, nil, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(written) != len(plotting.Available()) {
		t.Fatalf("wrote %d figures, want %d", len(written), len(plotting.Available()))
	}
	for _, w := range written {
		if _, err := os.Stat(w.Path); err != nil {
			t.Errorf("figure %d missing on disk: %v", w.Number, err)
		}
		if w.Rows < 1 {
			t.Errorf("figure %d has no data rows", w.Number)
		}
	}
}

func TestRunSelectsByNumber(t *testing.T) {
	store := seedStore(t)
	dir := filepath.Join(t.TempDir(), "figures")

	written, err := plotting.Run(context.Background(), store, runID, dir, []string{"2"}, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(written) != 1 || written[0].Number != 2 {
		t.Fatalf("written = %+v, want figure 2 only", written)
	}
	data, err := os.ReadFile(written[0].Path)
	if err != nil {
		t.Fatalf("read figure: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("figure 2 has %d lines, want header + 2 windows", len(lines))
	}
	if !strings.HasPrefix(lines[1], "s1\t0\t49\t") {
		t.Errorf("window row = %q", lines[1])
	}
}

func TestRunSkipsFiguresWithoutData(t *testing.T) {
	ctx := context.Background()
	store, err := profiledb.OpenLayout(profiledb.NewLayout(t.TempDir()))
	if err != nil {
		t.Fatalf("OpenLayout failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	run := profiledb.Run{ID: runID, Operation: "profile", StartedAt: time.Now().UTC(), Version: "test"}
	if err := store.BeginRun(ctx, run); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}

	written, err := plotting.Run(ctx, store, runID, filepath.Join(t.TempDir(), "figures"), nil, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(written) != 0 {
		t.Fatalf("empty profile wrote %+v", written)
	}
}

func TestRunUnknownFigureNumber(t *testing.T) {
	store := seedStore(t)

	written, err := plotting.Run(context.Background(), store, runID, filepath.Join(t.TempDir(), "figures"), []string{"42"}, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(written) != 0 {
		t.Fatalf("figure 42 wrote %+v", written)
	}
}

func TestAlleleFrequencyBinning(t *testing.T) {
	store := seedStore(t)
	dir := filepath.Join(t.TempDir(), "figures")

	written, err := plotting.Run(context.Background(), store, runID, dir, []string{"4"}, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(written) != 1 {
		t.Fatalf("written = %+v", written)
	}
	data, err := os.ReadFile(written[0].Path)
	if err != nil {
		t.Fatalf("read figure: %v", err)
	}
	// The single polymorphic site has variant frequency 0.4; the fixed
	// substitution must not be binned.
	var hit string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if strings.HasPrefix(line, "0.400000\t") {
			hit = line
		}
	}
	if !strings.HasSuffix(hit, "\t1") {
		t.Errorf("0.40 bin line = %q, want count 1", hit)
	}
}
