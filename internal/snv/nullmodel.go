package snv

import "sync"

// Sequencing error rate assumed by the null model.
const errorRate = 1e-3

// Coverages beyond the cap reuse the cap's threshold. Thresholds grow so
// slowly with coverage that the difference is noise.
const coverageCap = 10000

// NullModel answers: at this coverage, how many observations of a base
// are needed before it stops looking like sequencing error?
type NullModel struct {
	fdr   float64
	mu    sync.Mutex
	cache map[int]int
}

// NewNullModel builds a model for the given per-position false discovery
// rate.
func NewNullModel(fdr float64) *NullModel {
	return &NullModel{fdr: fdr, cache: make(map[int]int)}
}

// FDR reports the configured false discovery rate.
func (m *NullModel) FDR() float64 { return m.fdr }

// MinCount returns the smallest base count at the given coverage whose
// tail probability under the error model is below the FDR.
func (m *NullModel) MinCount(coverage int) int {
	if coverage < 1 {
		return 1
	}
	if coverage > coverageCap {
		coverage = coverageCap
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, ok := m.cache[coverage]; ok {
		return cached
	}
	threshold := minCountFor(coverage, m.fdr)
	m.cache[coverage] = threshold
	return threshold
}

// minCountFor walks the binomial PMF upward until the remaining tail mass
// drops below fdr. With an error rate of 1e-3 the series converges after a
// handful of terms even at the coverage cap.
func minCountFor(n int, fdr float64) int {
	p := errorRate
	q := 1 - p

	// pmf(0) = q^n, computed in log space to survive large n.
	pmf := powFloat(q, n)
	cdf := pmf
	for k := 0; k < n; k++ {
		tail := 1 - cdf
		if tail < fdr {
			return k + 1
		}
		pmf *= float64(n-k) / float64(k+1) * p / q
		cdf += pmf
	}
	return n + 1
}

func powFloat(base float64, exp int) float64 {
	result := 1.0
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}
