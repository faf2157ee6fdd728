package compare_test

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/liupfskygre/inStrain/internal/compare"
	"github.com/liupfskygre/inStrain/internal/profiledb"
	"github.com/liupfskygre/inStrain/internal/snv"
)

// seedSample builds a profile with one 20 bp scaffold.
func seedSample(t *testing.T, dir string, coverage []int32, calls []snv.Call) string {
	t.Helper()
	ctx := context.Background()
	store, err := profiledb.OpenLayout(profiledb.NewLayout(dir))
	if err != nil {
		t.Fatalf("OpenLayout failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	runID := "run-" + filepath.Base(dir)
	run := profiledb.Run{ID: runID, Operation: "profile", StartedAt: time.Now().UTC(), Version: "test", Settings: "{}"}
	if err := store.BeginRun(ctx, run); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if err := store.AddScaffoldMetrics(ctx, runID, snv.Metrics{Scaffold: "s1", Length: len(coverage)}); err != nil {
		t.Fatalf("AddScaffoldMetrics failed: %v", err)
	}
	if err := store.SaveCoverage(ctx, runID, "s1", coverage); err != nil {
		t.Fatalf("SaveCoverage failed: %v", err)
	}
	if err := store.AddCalls(ctx, runID, "s1", calls); err != nil {
		t.Fatalf("AddCalls failed: %v", err)
	}
	if err := store.FinishRun(ctx, runID, time.Now().UTC()); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}
	return dir
}

func flatCoverage(length int, depth int32) []int32 {
	out := make([]int32, length)
	for i := range out {
		out[i] = depth
	}
	return out
}

func TestRunComparesPair(t *testing.T) {
	base := t.TempDir()
	ctx := context.Background()

	covA := flatCoverage(20, 10)
	for i := 15; i < 20; i++ {
		covA[i] = 0
	}
	callsA := []snv.Call{
		// Fixed substitution: sample B holds the reference here.
		{Position: 5, RefBase: 'A', ConBase: 'C', VarBase: 'C', Counts: [4]int{0, 10, 0, 0},
			Coverage: 10, AlleleCount: 1, VarFreq: 1, Class: snv.ClassSNS},
		// Biallelic with the reference still present.
		{Position: 8, RefBase: 'A', ConBase: 'A', VarBase: 'G', Counts: [4]int{6, 0, 4, 0},
			Coverage: 10, AlleleCount: 2, VarFreq: 0.4, RefFreq: 0.6, RefIsAllele: true, Class: snv.ClassSNV},
		// Same substitution in both samples.
		{Position: 10, RefBase: 'C', ConBase: 'T', VarBase: 'T', Counts: [4]int{0, 0, 0, 10},
			Coverage: 10, AlleleCount: 1, VarFreq: 1, Class: snv.ClassSNS},
		// Outside sample B's coverage.
		{Position: 16, RefBase: 'A', ConBase: 'G', VarBase: 'G', Counts: [4]int{0, 0, 10, 0},
			Coverage: 10, AlleleCount: 1, VarFreq: 1, Class: snv.ClassSNS},
	}
	dirA := seedSample(t, filepath.Join(base, "sampleA.IS"), covA, callsA)

	covB := flatCoverage(20, 10)
	covB[0], covB[1] = 2, 2
	callsB := []snv.Call{
		// Matches sample A's substitution at 10.
		{Position: 10, RefBase: 'C', ConBase: 'T', VarBase: 'T', Counts: [4]int{0, 0, 0, 12},
			Coverage: 12, AlleleCount: 1, VarFreq: 1, Class: snv.ClassSNS},
		// Below sample B's own coverage gate on sample A side is fine,
		// but this position is under covB's gate and must be skipped.
		{Position: 1, RefBase: 'A', ConBase: 'G', VarBase: 'G', Counts: [4]int{0, 0, 2, 0},
			Coverage: 2, AlleleCount: 1, VarFreq: 1, Class: snv.ClassSNS},
	}
	dirB := seedSample(t, filepath.Join(base, "sampleB.IS"), covB, callsB)

	samples, closer, err := compare.OpenSamples(ctx, []string{dirA, dirB})
	if err != nil {
		t.Fatalf("OpenSamples failed: %v", err)
	}
	defer closer()

	results, err := compare.Run(ctx, samples, compare.Options{MinCov: 5, Processes: 2})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("result count = %d, want 1", len(results))
	}
	r := results[0]

	if r.Sample1 != "sampleA.IS" || r.Sample2 != "sampleB.IS" || r.Scaffold != "s1" {
		t.Fatalf("pair identity wrong: %+v", r)
	}
	// Both pass 5x on positions 2..14.
	if r.ComparedBases != 13 {
		t.Fatalf("compared bases = %d, want 13", r.ComparedBases)
	}
	if math.Abs(r.CoverageOverlap-13.0/20.0) > 1e-9 {
		t.Errorf("coverage overlap = %v, want %v", r.CoverageOverlap, 13.0/20.0)
	}
	if math.Abs(r.PercentGenomeCompared-13.0/20.0) > 1e-9 {
		t.Errorf("percent compared = %v, want %v", r.PercentGenomeCompared, 13.0/20.0)
	}
	// Only position 5 separates the consensus sequences, and only there
	// do the samples share no allele.
	if r.ConsensusSNPs != 1 || r.PopulationSNPs != 1 {
		t.Fatalf("SNP counts = %d/%d, want 1/1", r.ConsensusSNPs, r.PopulationSNPs)
	}
	wantANI := 1 - 1.0/13.0
	if math.Abs(r.ConANI-wantANI) > 1e-9 || math.Abs(r.PopANI-wantANI) > 1e-9 {
		t.Errorf("ANIs = %v/%v, want %v", r.ConANI, r.PopANI, wantANI)
	}
}

func TestRunRejectsSingleSample(t *testing.T) {
	dir := seedSample(t, filepath.Join(t.TempDir(), "only.IS"), flatCoverage(10, 10), nil)
	samples, closer, err := compare.OpenSamples(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("OpenSamples failed: %v", err)
	}
	defer closer()

	if _, err := compare.Run(context.Background(), samples, compare.Options{MinCov: 5}); err == nil {
		t.Fatal("single-sample comparison accepted")
	}
}

func TestOpenSamplesRejectsMissingProfile(t *testing.T) {
	if _, _, err := compare.OpenSamples(context.Background(), []string{t.TempDir()}); err == nil {
		t.Fatal("empty directory accepted as profile")
	}
}

func TestAggregateGenomes(t *testing.T) {
	results := []compare.PairResult{
		{Scaffold: "s1", Sample1: "a", Sample2: "b", Length: 100, ComparedBases: 80, ConsensusSNPs: 2, PopulationSNPs: 1},
		{Scaffold: "s2", Sample1: "a", Sample2: "b", Length: 100, ComparedBases: 20, ConsensusSNPs: 0, PopulationSNPs: 0},
		{Scaffold: "skip", Sample1: "a", Sample2: "b", Length: 50, ComparedBases: 50},
	}
	stb := map[string]string{"s1": "bin.1", "s2": "bin.1"}

	genomes := compare.AggregateGenomes(results, stb)
	if len(genomes) != 1 {
		t.Fatalf("genome count = %d, want 1", len(genomes))
	}
	g := genomes[0]
	if g.Length != 200 || g.ComparedBases != 100 {
		t.Fatalf("length/compared = %d/%d, want 200/100", g.Length, g.ComparedBases)
	}
	if g.ConsensusSNPs != 2 || g.PopulationSNPs != 1 {
		t.Fatalf("SNPs = %d/%d, want 2/1", g.ConsensusSNPs, g.PopulationSNPs)
	}
	if math.Abs(g.ConANI-0.98) > 1e-9 || math.Abs(g.PopANI-0.99) > 1e-9 {
		t.Errorf("ANIs = %v/%v, want 0.98/0.99", g.ConANI, g.PopANI)
	}
	if math.Abs(g.PercentCompared-0.5) > 1e-9 {
		t.Errorf("percent compared = %v, want 0.5", g.PercentCompared)
	}
}
