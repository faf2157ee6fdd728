package snv

import (
	"fmt"
	"math"
	"sort"

	"github.com/liupfskygre/inStrain/internal/fasta"
	"github.com/liupfskygre/inStrain/internal/samtools"
)

// clonalityUnset marks positions where clonality was not computed, either
// because coverage sat below the caller's gate or the position was never
// piled up.
const clonalityUnset = float32(-1)

// ScaffoldProfile accumulates per-position state for one scaffold while
// its pileup streams past.
type ScaffoldProfile struct {
	Name   string
	Length int

	// Coverage holds read depth per 0-based position, counting only
	// unambiguous bases.
	Coverage []int32
	// Clonality holds per-position clonality where coverage passed the
	// caller's gate, clonalityUnset elsewhere.
	Clonality []float32
	// Calls holds the divergent sites in position order.
	Calls []Call
}

// NewScaffoldProfile allocates a profile for a scaffold of the given length.
func NewScaffoldProfile(name string, length int) *ScaffoldProfile {
	clonality := make([]float32, length)
	for i := range clonality {
		clonality[i] = clonalityUnset
	}
	return &ScaffoldProfile{
		Name:      name,
		Length:    length,
		Coverage:  make([]int32, length),
		Clonality: clonality,
	}
}

// Add folds one pileup record into the profile. Records outside the
// scaffold bounds are rejected rather than silently clamped.
func (p *ScaffoldProfile) Add(record samtools.Pileup, caller *Caller) error {
	pos := record.Pos - 1
	if pos < 0 || pos >= p.Length {
		return fmt.Errorf("pileup position %d outside scaffold %s (length %d)", record.Pos, p.Name, p.Length)
	}
	coverage := record.Coverage()
	p.Coverage[pos] = int32(coverage)
	if coverage >= caller.MinCov() {
		if value, ok := Clonality(record.Counts); ok {
			p.Clonality[pos] = float32(value)
		}
	}
	if call, ok := caller.Evaluate(pos, record.Ref, record.Counts); ok {
		p.Calls = append(p.Calls, call)
	}
	return nil
}

// Metrics summarizes one scaffold after its pileup has been consumed.
type Metrics struct {
	Scaffold string
	Length   int
	// Coverage is mean depth over every position, covered or not.
	Coverage       float64
	CoverageMedian int
	CoverageSD     float64
	// Breadth is the fraction of positions with any coverage.
	Breadth float64
	// BreadthMinCov is the fraction of positions passing the caller's
	// coverage gate; reference ANI values are computed over exactly these
	// positions.
	BreadthMinCov   float64
	BreadthExpected float64
	// NuclDiversity is mean (1 - clonality) over gated positions.
	NuclDiversity  float64
	DivergentSites int
	SNVCount       int
	SNSCount       int
	// ConANIReference is identity to the reference counting only consensus
	// differences; PopANIReference counts a difference only when the
	// reference allele has dropped out of the population entirely.
	ConANIReference float64
	PopANIReference float64
}

// WindowMetrics carries the same per-position summaries for a slice of a
// scaffold, for detecting uneven coverage or diversity along its length.
type WindowMetrics struct {
	Scaffold string
	Start    int
	End      int
	Coverage float64
	Breadth  float64
	// NuclDiversity is mean (1 - clonality) over gated positions in the
	// window, -1 when no position qualified.
	NuclDiversity  float64
	DivergentSites int
}

// Summarize computes scaffold-wide metrics.
func (p *ScaffoldProfile) Summarize() Metrics {
	m := Metrics{Scaffold: p.Name, Length: p.Length}
	if p.Length == 0 {
		return m
	}

	var total float64
	covered := 0
	for _, c := range p.Coverage {
		total += float64(c)
		if c > 0 {
			covered++
		}
	}
	m.Coverage = total / float64(p.Length)
	m.CoverageMedian = medianInt32(p.Coverage)
	m.Breadth = float64(covered) / float64(p.Length)
	m.BreadthExpected = ExpectedBreadth(m.Coverage)

	var varSum float64
	for _, c := range p.Coverage {
		diff := float64(c) - m.Coverage
		varSum += diff * diff
	}
	m.CoverageSD = math.Sqrt(varSum / float64(p.Length))

	var claritySum float64
	clonal := 0
	for _, value := range p.Clonality {
		if value == clonalityUnset {
			continue
		}
		claritySum += float64(value)
		clonal++
	}
	if clonal > 0 {
		m.NuclDiversity = 1 - claritySum/float64(clonal)
	}

	conSNPs := 0
	popSNPs := 0
	for _, call := range p.Calls {
		m.DivergentSites++
		switch call.Class {
		case ClassSNV:
			m.SNVCount++
		case ClassSNS:
			m.SNSCount++
		}
		if refIsBase(call.RefBase) {
			if call.ConBase != call.RefBase {
				conSNPs++
			}
			if !call.RefIsAllele {
				popSNPs++
			}
		}
	}

	gated := p.gatedPositions()
	m.BreadthMinCov = float64(gated) / float64(p.Length)
	if gated > 0 {
		m.ConANIReference = float64(gated-conSNPs) / float64(gated)
		m.PopANIReference = float64(gated-popSNPs) / float64(gated)
	}
	return m
}

// SummarizeWindows computes per-window metrics using near-equal contiguous
// windows of roughly the requested length.
func (p *ScaffoldProfile) SummarizeWindows(windowLength int) []WindowMetrics {
	windows := fasta.Windows(p.Length, windowLength)
	out := make([]WindowMetrics, 0, len(windows))
	callIdx := 0
	for _, w := range windows {
		wm := WindowMetrics{Scaffold: p.Name, Start: w.Start, End: w.End, NuclDiversity: -1}
		size := w.Length()
		var total float64
		covered := 0
		var claritySum float64
		clonal := 0
		for pos := w.Start; pos <= w.End; pos++ {
			total += float64(p.Coverage[pos])
			if p.Coverage[pos] > 0 {
				covered++
			}
			if p.Clonality[pos] != clonalityUnset {
				claritySum += float64(p.Clonality[pos])
				clonal++
			}
		}
		wm.Coverage = total / float64(size)
		wm.Breadth = float64(covered) / float64(size)
		if clonal > 0 {
			wm.NuclDiversity = 1 - claritySum/float64(clonal)
		}
		for callIdx < len(p.Calls) && p.Calls[callIdx].Position <= w.End {
			wm.DivergentSites++
			callIdx++
		}
		out = append(out, wm)
	}
	return out
}

// gatedPositions counts positions where clonality qualified, which is
// exactly the set of positions passing the coverage gate with at least
// two reads.
func (p *ScaffoldProfile) gatedPositions() int {
	n := 0
	for _, value := range p.Clonality {
		if value != clonalityUnset {
			n++
		}
	}
	return n
}

func medianInt32(values []int32) int {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]int32, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return int(sorted[len(sorted)/2])
}
