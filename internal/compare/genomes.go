package compare

import "sort"

// GenomePairResult folds scaffold comparisons of one sample pair up to a
// genome.
type GenomePairResult struct {
	Genome          string
	Sample1         string
	Sample2         string
	Length          int
	ComparedBases   int
	PercentCompared float64
	ConsensusSNPs   int
	PopulationSNPs  int
	ConANI          float64
	PopANI          float64
}

// AggregateGenomes sums scaffold pair results per genome using stb
// assignments. Scaffolds missing from the stb are dropped.
func AggregateGenomes(results []PairResult, stb map[string]string) []GenomePairResult {
	type key struct {
		genome, s1, s2 string
	}
	acc := make(map[key]*GenomePairResult)
	for _, r := range results {
		genome, ok := stb[r.Scaffold]
		if !ok {
			continue
		}
		k := key{genome: genome, s1: r.Sample1, s2: r.Sample2}
		g := acc[k]
		if g == nil {
			g = &GenomePairResult{Genome: genome, Sample1: r.Sample1, Sample2: r.Sample2}
			acc[k] = g
		}
		g.Length += r.Length
		g.ComparedBases += r.ComparedBases
		g.ConsensusSNPs += r.ConsensusSNPs
		g.PopulationSNPs += r.PopulationSNPs
	}

	out := make([]GenomePairResult, 0, len(acc))
	for _, g := range acc {
		if g.Length > 0 {
			g.PercentCompared = float64(g.ComparedBases) / float64(g.Length)
		}
		if g.ComparedBases > 0 {
			g.ConANI = 1 - float64(g.ConsensusSNPs)/float64(g.ComparedBases)
			g.PopANI = 1 - float64(g.PopulationSNPs)/float64(g.ComparedBases)
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sample1 != out[j].Sample1 {
			return out[i].Sample1 < out[j].Sample1
		}
		if out[i].Sample2 != out[j].Sample2 {
			return out[i].Sample2 < out[j].Sample2
		}
		return out[i].Genome < out[j].Genome
	})
	return out
}
