package snv

import (
	"math"
	"testing"

	"github.com/liupfskygre/inStrain/internal/samtools"
)

func pileupAt(pos int, ref byte, counts [4]int) samtools.Pileup {
	depth := counts[0] + counts[1] + counts[2] + counts[3]
	return samtools.Pileup{Scaffold: "s1", Pos: pos, Ref: ref, Depth: depth, Counts: counts}
}

// buildProfile covers positions 1..80 of a 100 bp scaffold at depth 10,
// with a fixed substitution at position 10 and a biallelic site at
// position 20.
func buildProfile(t *testing.T) *ScaffoldProfile {
	t.Helper()
	caller := testCaller(5, 0.05)
	profile := NewScaffoldProfile("s1", 100)
	for pos := 1; pos <= 80; pos++ {
		record := pileupAt(pos, 'A', [4]int{10, 0, 0, 0})
		switch pos {
		case 10:
			record = pileupAt(pos, 'A', [4]int{0, 10, 0, 0})
		case 20:
			record = pileupAt(pos, 'A', [4]int{6, 4, 0, 0})
		}
		if err := profile.Add(record, caller); err != nil {
			t.Fatalf("Add position %d: %v", pos, err)
		}
	}
	return profile
}

func TestProfileSummarize(t *testing.T) {
	m := buildProfile(t).Summarize()

	if m.Scaffold != "s1" || m.Length != 100 {
		t.Fatalf("scaffold/length = %s/%d, want s1/100", m.Scaffold, m.Length)
	}
	if math.Abs(m.Coverage-8) > 1e-9 {
		t.Errorf("mean coverage = %v, want 8", m.Coverage)
	}
	if m.CoverageMedian != 10 {
		t.Errorf("median coverage = %d, want 10", m.CoverageMedian)
	}
	if math.Abs(m.CoverageSD-4) > 1e-9 {
		t.Errorf("coverage sd = %v, want 4", m.CoverageSD)
	}
	if math.Abs(m.Breadth-0.8) > 1e-9 {
		t.Errorf("breadth = %v, want 0.8", m.Breadth)
	}
	if math.Abs(m.BreadthMinCov-0.8) > 1e-9 {
		t.Errorf("breadth_minCov = %v, want 0.8", m.BreadthMinCov)
	}
	wantExpected := 1 - math.Exp(-0.883*8)
	if math.Abs(m.BreadthExpected-wantExpected) > 1e-9 {
		t.Errorf("expected breadth = %v, want %v", m.BreadthExpected, wantExpected)
	}

	// 78 clonal positions plus clonality 1 at the substitution and 42/90
	// at the biallelic site.
	wantDiversity := 1 - (79+42.0/90.0)/80
	if math.Abs(m.NuclDiversity-wantDiversity) > 1e-9 {
		t.Errorf("nucleotide diversity = %v, want %v", m.NuclDiversity, wantDiversity)
	}

	if m.DivergentSites != 2 || m.SNVCount != 1 || m.SNSCount != 1 {
		t.Errorf("site counts = %d/%d/%d, want 2 divergent, 1 SNV, 1 SNS",
			m.DivergentSites, m.SNVCount, m.SNSCount)
	}

	// Only the substitution moves the consensus off the reference, and
	// only there does the reference allele vanish.
	wantANI := 79.0 / 80.0
	if math.Abs(m.ConANIReference-wantANI) > 1e-9 {
		t.Errorf("conANI = %v, want %v", m.ConANIReference, wantANI)
	}
	if math.Abs(m.PopANIReference-wantANI) > 1e-9 {
		t.Errorf("popANI = %v, want %v", m.PopANIReference, wantANI)
	}
}

func TestProfileSummarizeWindows(t *testing.T) {
	windows := buildProfile(t).SummarizeWindows(50)

	if len(windows) != 2 {
		t.Fatalf("window count = %d, want 2", len(windows))
	}
	first, second := windows[0], windows[1]

	if first.Start != 0 || first.End != 49 || second.Start != 50 || second.End != 99 {
		t.Fatalf("window bounds = [%d,%d] [%d,%d], want [0,49] [50,99]",
			first.Start, first.End, second.Start, second.End)
	}
	if math.Abs(first.Coverage-10) > 1e-9 || math.Abs(first.Breadth-1) > 1e-9 {
		t.Errorf("first window coverage/breadth = %v/%v, want 10/1", first.Coverage, first.Breadth)
	}
	if first.DivergentSites != 2 {
		t.Errorf("first window divergent sites = %d, want 2", first.DivergentSites)
	}
	if math.Abs(second.Coverage-6) > 1e-9 || math.Abs(second.Breadth-0.6) > 1e-9 {
		t.Errorf("second window coverage/breadth = %v/%v, want 6/0.6", second.Coverage, second.Breadth)
	}
	if second.DivergentSites != 0 {
		t.Errorf("second window divergent sites = %d, want 0", second.DivergentSites)
	}
	if math.Abs(second.NuclDiversity) > 1e-9 {
		t.Errorf("second window diversity = %v, want 0", second.NuclDiversity)
	}
}

func TestProfileAddOutOfBounds(t *testing.T) {
	caller := testCaller(5, 0.05)
	profile := NewScaffoldProfile("s1", 100)

	if err := profile.Add(pileupAt(101, 'A', [4]int{10, 0, 0, 0}), caller); err == nil {
		t.Fatal("position past scaffold end accepted")
	}
	if err := profile.Add(pileupAt(0, 'A', [4]int{10, 0, 0, 0}), caller); err == nil {
		t.Fatal("position zero accepted for 1-based input")
	}
}

func TestProfileEmptyScaffold(t *testing.T) {
	m := NewScaffoldProfile("empty", 0).Summarize()

	if m.Breadth != 0 || m.Coverage != 0 || m.DivergentSites != 0 {
		t.Errorf("empty scaffold metrics not zero: %+v", m)
	}
}
