package snv

import (
	"math"

	"github.com/liupfskygre/inStrain/internal/samtools"
)

// Class labels a divergent site by how it diverges.
type Class string

const (
	// ClassSNV marks a polymorphic position: two or more alleles pass the
	// null model.
	ClassSNV Class = "SNV"
	// ClassSNS marks a substitution: one allele, but not the reference.
	ClassSNS Class = "SNS"
)

// Call is one divergent site.
type Call struct {
	// Position is 0-based on the scaffold.
	Position int
	RefBase  byte
	// ConBase is the consensus (most common) base.
	ConBase byte
	// VarBase is the most common non-consensus allele; equals ConBase when
	// the site carries only one allele.
	VarBase     byte
	Counts      [4]int
	Coverage    int
	AlleleCount int
	// VarFreq is VarBase's share of coverage.
	VarFreq float64
	// RefFreq is RefBase's share of coverage; zero when the reference base
	// is ambiguous.
	RefFreq float64
	// RefIsAllele is true when the reference base itself passes the allele
	// test, meaning the reference variant is still present in the
	// population at this site.
	RefIsAllele bool
	Class       Class
}

// Caller evaluates positions against the variant thresholds.
type Caller struct {
	minCov  int
	minFreq float64
	model   *NullModel
}

// NewCaller builds a caller. minCov gates which positions are evaluated at
// all; minFreq and the model's FDR gate which bases count as alleles.
func NewCaller(minCov int, minFreq float64, model *NullModel) *Caller {
	return &Caller{minCov: minCov, minFreq: minFreq, model: model}
}

// MinCov reports the coverage gate.
func (c *Caller) MinCov() int { return c.minCov }

// Evaluate inspects one position. ok is true when the position is a
// divergent site worth recording: polymorphic, or fixed against the
// reference.
func (c *Caller) Evaluate(pos int, ref byte, counts [4]int) (Call, bool) {
	coverage := counts[0] + counts[1] + counts[2] + counts[3]
	if coverage < c.minCov {
		return Call{}, false
	}
	threshold := c.model.MinCount(coverage)

	call := Call{
		Position: pos,
		RefBase:  ref,
		Counts:   counts,
		Coverage: coverage,
	}

	conIdx := 0
	varIdx := -1
	for i := 1; i < 4; i++ {
		if counts[i] > counts[conIdx] {
			conIdx = i
		}
	}
	for i := 0; i < 4; i++ {
		if i == conIdx {
			continue
		}
		if varIdx < 0 || counts[i] > counts[varIdx] {
			varIdx = i
		}
	}
	for i := 0; i < 4; i++ {
		if c.isAllele(counts[i], coverage, threshold) {
			call.AlleleCount++
		}
	}

	call.ConBase = samtools.IndexBase(conIdx)
	if call.AlleleCount >= 2 && varIdx >= 0 && c.isAllele(counts[varIdx], coverage, threshold) {
		call.VarBase = samtools.IndexBase(varIdx)
	} else {
		call.VarBase = call.ConBase
	}
	if idx, ok := samtools.BaseIndex(call.VarBase); ok {
		call.VarFreq = float64(counts[idx]) / float64(coverage)
	}
	if idx, ok := samtools.BaseIndex(ref); ok {
		call.RefFreq = float64(counts[idx]) / float64(coverage)
		call.RefIsAllele = c.isAllele(counts[idx], coverage, threshold)
	}

	switch {
	case call.AlleleCount >= 2:
		call.Class = ClassSNV
	case call.ConBase != ref && refIsBase(ref):
		call.Class = ClassSNS
	default:
		return Call{}, false
	}
	return call, true
}

// isAllele applies both gates: enough observations to beat the error
// model, and enough frequency to matter.
func (c *Caller) isAllele(count, coverage, threshold int) bool {
	if count < threshold {
		return false
	}
	return float64(count) >= c.minFreq*float64(coverage)
}

func refIsBase(ref byte) bool {
	_, ok := samtools.BaseIndex(ref)
	return ok
}

// Clonality is the probability two reads drawn without replacement agree:
// sum c*(c-1) over bases divided by n*(n-1). ok is false below two reads.
func Clonality(counts [4]int) (float64, bool) {
	n := counts[0] + counts[1] + counts[2] + counts[3]
	if n < 2 {
		return 0, false
	}
	sum := 0
	for _, c := range counts {
		sum += c * (c - 1)
	}
	return float64(sum) / float64(n*(n-1)), true
}

// ExpectedBreadth estimates the breadth a given mean coverage should
// produce under even read placement.
func ExpectedBreadth(coverage float64) float64 {
	if coverage <= 0 {
		return 0
	}
	value := 1 - math.Exp(-0.883*coverage)
	if value < 0 {
		return 0
	}
	return value
}
