package profiledb_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	_ "modernc.org/sqlite"

	"github.com/liupfskygre/inStrain/internal/profiledb"
	"github.com/liupfskygre/inStrain/internal/readfilter"
	"github.com/liupfskygre/inStrain/internal/snv"
)

func openStore(t *testing.T) *profiledb.Store {
	t.Helper()
	store, err := profiledb.OpenLayout(profiledb.NewLayout(filepath.Join(t.TempDir(), "sample.IS")))
	if err != nil {
		t.Fatalf("OpenLayout failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func beginRun(t *testing.T, store *profiledb.Store, id, operation string) {
	t.Helper()
	run := profiledb.Run{
		ID:        id,
		Operation: operation,
		BAMPath:   "/data/sample.bam",
		FastaPath: "/data/genome.fasta",
		StartedAt: time.Now().UTC(),
		Version:   "1.9.0",
		Settings:  "{}",
	}
	if err := store.BeginRun(context.Background(), run); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
}

func TestRunLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	beginRun(t, store, "run-1", "profile")

	run, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Finished() {
		t.Fatal("fresh run already marked finished")
	}
	if run.BAMPath != "/data/sample.bam" || run.Version != "1.9.0" {
		t.Fatalf("unexpected run: %+v", run)
	}

	if _, err := store.LatestRun(ctx, "profile"); !errors.Is(err, profiledb.ErrNotFound) {
		t.Fatalf("LatestRun before finish: err = %v, want ErrNotFound", err)
	}

	if err := store.FinishRun(ctx, "run-1", time.Now().UTC()); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}
	latest, err := store.LatestRun(ctx, "profile")
	if err != nil {
		t.Fatalf("LatestRun failed: %v", err)
	}
	if latest.ID != "run-1" || !latest.Finished() {
		t.Fatalf("unexpected latest run: %+v", latest)
	}
}

func TestLatestRunPrefersNewest(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for i, id := range []string{"run-old", "run-new"} {
		run := profiledb.Run{
			ID:        id,
			Operation: "profile",
			StartedAt: time.Date(2026, 3, 1+i, 0, 0, 0, 0, time.UTC),
			Version:   "1.9.0",
			Settings:  "{}",
		}
		if err := store.BeginRun(ctx, run); err != nil {
			t.Fatalf("BeginRun %s failed: %v", id, err)
		}
		if err := store.FinishRun(ctx, id, run.StartedAt.Add(time.Hour)); err != nil {
			t.Fatalf("FinishRun %s failed: %v", id, err)
		}
	}

	latest, err := store.LatestRun(ctx, "profile")
	if err != nil {
		t.Fatalf("LatestRun failed: %v", err)
	}
	if latest.ID != "run-new" {
		t.Fatalf("latest run = %s, want run-new", latest.ID)
	}
}

func TestScaffoldMetricsRoundtrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	beginRun(t, store, "run-1", "profile")

	want := snv.Metrics{
		Scaffold: "s1", Length: 1000,
		Coverage: 9.5, CoverageMedian: 10, CoverageSD: 2.25,
		Breadth: 0.99, BreadthMinCov: 0.9, BreadthExpected: 0.9998,
		NuclDiversity: 0.004, DivergentSites: 12, SNVCount: 9, SNSCount: 3,
		ConANIReference: 0.996, PopANIReference: 0.998,
	}
	if err := store.AddScaffoldMetrics(ctx, "run-1", want); err != nil {
		t.Fatalf("AddScaffoldMetrics failed: %v", err)
	}

	got, err := store.ScaffoldMetrics(ctx, "run-1")
	if err != nil {
		t.Fatalf("ScaffoldMetrics failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("scaffold count = %d, want 1", len(got))
	}
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Fatalf("scaffold metrics mismatch (-want +got):\n%s", diff)
	}
}

func TestWindowMetricsRoundtrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	beginRun(t, store, "run-1", "profile")

	want := []snv.WindowMetrics{
		{Scaffold: "s1", Start: 0, End: 499, Coverage: 8, Breadth: 1, NuclDiversity: 0.002, DivergentSites: 3},
		{Scaffold: "s1", Start: 500, End: 999, Coverage: 6, Breadth: 0.8, NuclDiversity: -1, DivergentSites: 0},
	}
	if err := store.AddWindowMetrics(ctx, "run-1", want); err != nil {
		t.Fatalf("AddWindowMetrics failed: %v", err)
	}
	got, err := store.WindowMetrics(ctx, "run-1")
	if err != nil {
		t.Fatalf("WindowMetrics failed: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("window metrics mismatch (-want +got):\n%s", diff)
	}
}

func TestCallsRoundtripAndAnnotation(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	beginRun(t, store, "run-1", "profile")

	calls := []snv.Call{
		{
			Position: 42, RefBase: 'A', ConBase: 'A', VarBase: 'C',
			Counts: [4]int{6, 4, 0, 0}, Coverage: 10, AlleleCount: 2,
			VarFreq: 0.4, RefFreq: 0.6, RefIsAllele: true, Class: snv.ClassSNV,
		},
		{
			Position: 99, RefBase: 'G', ConBase: 'T', VarBase: 'T',
			Counts: [4]int{0, 0, 0, 12}, Coverage: 12, AlleleCount: 1,
			VarFreq: 1, RefFreq: 0, RefIsAllele: false, Class: snv.ClassSNS,
		},
	}
	if err := store.AddCalls(ctx, "run-1", "s1", calls); err != nil {
		t.Fatalf("AddCalls failed: %v", err)
	}

	got, err := store.Calls(ctx, "run-1", "s1")
	if err != nil {
		t.Fatalf("Calls failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("call count = %d, want 2", len(got))
	}
	if diff := cmp.Diff(calls[0], got[0].Call); diff != "" {
		t.Fatalf("call mismatch (-want +got):\n%s", diff)
	}
	if got[0].Gene != "" || got[0].MutationType != "" {
		t.Fatalf("unannotated call carries gene data: %+v", got[0])
	}

	annotations := []profiledb.CallAnnotation{
		{Scaffold: "s1", Position: 42, Gene: "gene_1", MutationType: "N", Mutation: "N:K14T"},
	}
	if err := store.AnnotateCalls(ctx, "run-1", annotations); err != nil {
		t.Fatalf("AnnotateCalls failed: %v", err)
	}
	all, err := store.AllCalls(ctx, "run-1")
	if err != nil {
		t.Fatalf("AllCalls failed: %v", err)
	}
	if all[0].Gene != "gene_1" || all[0].MutationType != "N" || all[0].Mutation != "N:K14T" {
		t.Fatalf("annotation not applied: %+v", all[0])
	}
}

func TestMappingReportRoundtrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	beginRun(t, store, "run-1", "profile")

	report := readfilter.Report{
		Scaffolds: []readfilter.ScaffoldReport{
			{Scaffold: "s1", Reads: 200, Pairs: 100, FilteredPairs: 90, MeanANI: 0.98, MeanInsert: 310, MeanMapQ: 41},
			{Scaffold: "s2", Reads: 20, Pairs: 10, FilteredPairs: 4, MeanANI: 0.96, MeanInsert: 290, MeanMapQ: 38},
		},
	}
	if err := store.AddMappingReport(ctx, "run-1", report); err != nil {
		t.Fatalf("AddMappingReport failed: %v", err)
	}
	got, err := store.MappingReports(ctx, "run-1")
	if err != nil {
		t.Fatalf("MappingReports failed: %v", err)
	}
	if diff := cmp.Diff(report.Scaffolds, got); diff != "" {
		t.Fatalf("mapping mismatch (-want +got):\n%s", diff)
	}
}

func TestPositionDataRoundtrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	beginRun(t, store, "run-1", "profile")

	coverage := make([]int32, 500)
	clonality := make([]float32, 500)
	for i := range coverage {
		coverage[i] = int32(i % 37)
		clonality[i] = -1
	}
	clonality[5] = 0.875

	if err := store.SaveCoverage(ctx, "run-1", "s1", coverage); err != nil {
		t.Fatalf("SaveCoverage failed: %v", err)
	}
	if err := store.SaveClonality(ctx, "run-1", "s1", clonality); err != nil {
		t.Fatalf("SaveClonality failed: %v", err)
	}

	gotCoverage, err := store.LoadCoverage(ctx, "run-1", "s1")
	if err != nil {
		t.Fatalf("LoadCoverage failed: %v", err)
	}
	if diff := cmp.Diff(coverage, gotCoverage); diff != "" {
		t.Fatalf("coverage mismatch (-want +got):\n%s", diff)
	}
	gotClonality, err := store.LoadClonality(ctx, "run-1", "s1")
	if err != nil {
		t.Fatalf("LoadClonality failed: %v", err)
	}
	if diff := cmp.Diff(clonality, gotClonality); diff != "" {
		t.Fatalf("clonality mismatch (-want +got):\n%s", diff)
	}

	if _, err := store.LoadCoverage(ctx, "run-1", "missing"); !errors.Is(err, profiledb.ErrNotFound) {
		t.Fatalf("missing scaffold: err = %v, want ErrNotFound", err)
	}
}

func TestGeneAndGenomeRecords(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	beginRun(t, store, "run-1", "profile_genes")

	genes := []profiledb.GeneRecord{
		{Gene: "gene_1", Scaffold: "s1", Start: 99, End: 400, Direction: 1,
			Coverage: 11.2, Breadth: 1, NuclDiversity: 0.003, SNVCount: 2, SNSCount: 1,
			NMutations: 1, SMutations: 2},
	}
	if err := store.AddGeneRecords(ctx, "run-1", genes); err != nil {
		t.Fatalf("AddGeneRecords failed: %v", err)
	}
	gotGenes, err := store.GeneRecords(ctx, "run-1")
	if err != nil {
		t.Fatalf("GeneRecords failed: %v", err)
	}
	if diff := cmp.Diff(genes, gotGenes); diff != "" {
		t.Fatalf("genes mismatch (-want +got):\n%s", diff)
	}

	genomes := []profiledb.GenomeRecord{
		{Genome: "bin.1", Scaffolds: 5, Detected: 4, Length: 50000, Coverage: 8.8,
			Breadth: 0.95, BreadthMinCov: 0.82, BreadthExpected: 0.999,
			NuclDiversity: 0.005, DivergentSites: 40, SNVCount: 33, SNSCount: 7,
			ConANIReference: 0.995, PopANIReference: 0.997, FilteredPairs: 1234},
	}
	if err := store.AddGenomeRecords(ctx, "run-1", genomes); err != nil {
		t.Fatalf("AddGenomeRecords failed: %v", err)
	}
	gotGenomes, err := store.GenomeRecords(ctx, "run-1")
	if err != nil {
		t.Fatalf("GenomeRecords failed: %v", err)
	}
	if diff := cmp.Diff(genomes, gotGenomes); diff != "" {
		t.Fatalf("genomes mismatch (-want +got):\n%s", diff)
	}
}

func TestMeta(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	beginRun(t, store, "run-1", "profile")

	if err := store.SetMeta(ctx, "run-1", "filter.pairs", "1000"); err != nil {
		t.Fatalf("SetMeta failed: %v", err)
	}
	if err := store.SetMeta(ctx, "run-1", "filter.pairs", "1200"); err != nil {
		t.Fatalf("SetMeta overwrite failed: %v", err)
	}
	value, err := store.GetMeta(ctx, "run-1", "filter.pairs")
	if err != nil {
		t.Fatalf("GetMeta failed: %v", err)
	}
	if value != "1200" {
		t.Fatalf("meta value = %s, want 1200", value)
	}
	if _, err := store.GetMeta(ctx, "run-1", "absent"); !errors.Is(err, profiledb.ErrNotFound) {
		t.Fatalf("absent meta: err = %v, want ErrNotFound", err)
	}
	all, err := store.MetaAll(ctx, "run-1")
	if err != nil {
		t.Fatalf("MetaAll failed: %v", err)
	}
	if len(all) != 1 || all["filter.pairs"] != "1200" {
		t.Fatalf("unexpected meta map: %v", all)
	}
}

func TestSchemaMismatchDetected(t *testing.T) {
	layout := profiledb.NewLayout(filepath.Join(t.TempDir(), "sample.IS"))
	store, err := profiledb.OpenLayout(layout)
	if err != nil {
		t.Fatalf("OpenLayout failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	db, err := sql.Open("sqlite", layout.DatabasePath())
	if err != nil {
		t.Fatalf("reopen raw db failed: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 1"); err != nil {
		t.Fatalf("downgrade schema failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close raw db failed: %v", err)
	}

	if _, err := profiledb.Open(layout.DatabasePath()); !errors.Is(err, profiledb.ErrSchemaMismatch) {
		t.Fatalf("reopen after downgrade: err = %v, want ErrSchemaMismatch", err)
	}
}

func TestLayoutLock(t *testing.T) {
	layout := profiledb.NewLayout(filepath.Join(t.TempDir(), "sample.IS"))
	if err := layout.Ensure(); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	release, err := layout.Lock()
	if err != nil {
		t.Fatalf("first Lock failed: %v", err)
	}
	if _, err := layout.Lock(); err == nil {
		t.Fatal("second Lock on a held profile succeeded")
	}
	if err := release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	release, err = layout.Lock()
	if err != nil {
		t.Fatalf("Lock after release failed: %v", err)
	}
	_ = release()
}
