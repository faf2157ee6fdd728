package genomewide

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/liupfskygre/inStrain/internal/profiledb"
	"github.com/liupfskygre/inStrain/internal/readfilter"
	"github.com/liupfskygre/inStrain/internal/snv"
)

func writeSTB(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write stb: %v", err)
	}
	return path
}

func TestParseSTB(t *testing.T) {
	first := writeSTB(t, "a.stb", "s1\tbin.1\ns2\tbin.1\n# comment\n\ns3\tbin.2\n")
	second := writeSTB(t, "b.stb", "s3\tbin.3\n")

	stb, err := ParseSTB([]string{first, second})
	if err != nil {
		t.Fatalf("ParseSTB failed: %v", err)
	}
	if len(stb) != 3 {
		t.Fatalf("assignment count = %d, want 3", len(stb))
	}
	if stb["s1"] != "bin.1" || stb["s2"] != "bin.1" {
		t.Errorf("bin.1 assignments wrong: %v", stb)
	}
	// The later file wins.
	if stb["s3"] != "bin.3" {
		t.Errorf("s3 assigned to %s, want bin.3", stb["s3"])
	}
}

func TestParseSTBRejectsMalformedLine(t *testing.T) {
	path := writeSTB(t, "bad.stb", "s1 bin.1\n")
	if _, err := ParseSTB([]string{path}); err == nil {
		t.Fatal("space-separated stb line accepted")
	}
}

func TestFallbackSTB(t *testing.T) {
	stb := FallbackSTB([]string{"s1", "s2"})
	if stb["s1"] != FallbackGenome || stb["s2"] != FallbackGenome {
		t.Fatalf("fallback assignments wrong: %v", stb)
	}
}

func TestAggregate(t *testing.T) {
	metrics := []snv.Metrics{
		{
			Scaffold: "s1", Length: 1000, Coverage: 10, Breadth: 1,
			BreadthMinCov: 1, NuclDiversity: 0.01, DivergentSites: 10,
			SNVCount: 8, SNSCount: 2, ConANIReference: 0.99, PopANIReference: 0.995,
		},
		{
			Scaffold: "s2", Length: 3000, Coverage: 2, Breadth: 0.5,
			BreadthMinCov: 0.2, NuclDiversity: 0.02, DivergentSites: 4,
			SNVCount: 4, SNSCount: 0, ConANIReference: 1, PopANIReference: 1,
		},
		{Scaffold: "s3", Length: 500, Coverage: 0, Breadth: 0},
		{Scaffold: "unbinned", Length: 100, Coverage: 1, Breadth: 0.1},
	}
	mapping := []readfilter.ScaffoldReport{
		{Scaffold: "s1", FilteredPairs: 100},
		{Scaffold: "s2", FilteredPairs: 60},
	}
	stb := map[string]string{"s1": "bin.1", "s2": "bin.1", "s3": "bin.2"}

	records, unassigned := Aggregate(metrics, mapping, stb)
	if unassigned != 1 {
		t.Fatalf("unassigned = %d, want 1", unassigned)
	}
	if len(records) != 2 {
		t.Fatalf("genome count = %d, want 2", len(records))
	}

	bin1 := records[0]
	if bin1.Genome != "bin.1" {
		t.Fatalf("first genome = %s, want bin.1", bin1.Genome)
	}
	if bin1.Scaffolds != 2 || bin1.Detected != 2 || bin1.Length != 4000 {
		t.Errorf("scaffolds/detected/length = %d/%d/%d, want 2/2/4000",
			bin1.Scaffolds, bin1.Detected, bin1.Length)
	}
	// Length-weighted: (10*1000 + 2*3000) / 4000.
	if math.Abs(bin1.Coverage-4) > 1e-9 {
		t.Errorf("coverage = %v, want 4", bin1.Coverage)
	}
	// (1*1000 + 0.5*3000) / 4000.
	if math.Abs(bin1.Breadth-0.625) > 1e-9 {
		t.Errorf("breadth = %v, want 0.625", bin1.Breadth)
	}
	if bin1.DivergentSites != 14 || bin1.SNVCount != 12 || bin1.SNSCount != 2 {
		t.Errorf("site counts = %d/%d/%d, want 14/12/2",
			bin1.DivergentSites, bin1.SNVCount, bin1.SNSCount)
	}
	if bin1.FilteredPairs != 160 {
		t.Errorf("filtered pairs = %d, want 160", bin1.FilteredPairs)
	}
	// Gated positions: 1000 on s1, 600 on s2. Diversity weighted there:
	// (0.01*1000 + 0.02*600) / 1600.
	if math.Abs(bin1.NuclDiversity-0.01375) > 1e-9 {
		t.Errorf("nucleotide diversity = %v, want 0.01375", bin1.NuclDiversity)
	}
	// conSNPs: 0.01*1000 = 10 on s1, 0 on s2 over 1600 gated positions.
	if math.Abs(bin1.ConANIReference-(1-10.0/1600.0)) > 1e-9 {
		t.Errorf("conANI = %v, want %v", bin1.ConANIReference, 1-10.0/1600.0)
	}
	if math.Abs(bin1.PopANIReference-(1-5.0/1600.0)) > 1e-9 {
		t.Errorf("popANI = %v, want %v", bin1.PopANIReference, 1-5.0/1600.0)
	}

	bin2 := records[1]
	if bin2.Detected != 0 || bin2.Coverage != 0 {
		t.Errorf("undetected genome has coverage: %+v", bin2)
	}
}

func TestRunStoresRecords(t *testing.T) {
	ctx := context.Background()
	store, err := profiledb.OpenLayout(profiledb.NewLayout(filepath.Join(t.TempDir(), "sample.IS")))
	if err != nil {
		t.Fatalf("OpenLayout failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	runID := "run-gw"
	run := profiledb.Run{ID: runID, Operation: "profile", StartedAt: time.Now().UTC(), Version: "test", Settings: "{}"}
	if err := store.BeginRun(ctx, run); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	for _, m := range []snv.Metrics{
		{Scaffold: "s1", Length: 1000, Coverage: 10, Breadth: 1, BreadthMinCov: 1},
		{Scaffold: "s2", Length: 1000, Coverage: 4, Breadth: 0.9, BreadthMinCov: 0.5},
	} {
		if err := store.AddScaffoldMetrics(ctx, runID, m); err != nil {
			t.Fatalf("AddScaffoldMetrics failed: %v", err)
		}
	}

	records, err := Run(ctx, store, runID, nil, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(records) != 1 || records[0].Genome != FallbackGenome {
		t.Fatalf("fallback aggregation wrong: %+v", records)
	}
	if records[0].Scaffolds != 2 || records[0].Length != 2000 {
		t.Errorf("scaffolds/length = %d/%d, want 2/2000", records[0].Scaffolds, records[0].Length)
	}

	stored, err := store.GenomeRecords(ctx, runID)
	if err != nil {
		t.Fatalf("GenomeRecords failed: %v", err)
	}
	if len(stored) != 1 || stored[0].Genome != FallbackGenome {
		t.Fatalf("stored records wrong: %+v", stored)
	}
}
