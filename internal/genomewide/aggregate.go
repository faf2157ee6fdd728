package genomewide

import (
	"sort"

	"github.com/liupfskygre/inStrain/internal/profiledb"
	"github.com/liupfskygre/inStrain/internal/readfilter"
	"github.com/liupfskygre/inStrain/internal/snv"
)

// Aggregate folds scaffold metrics into genome records following the stb
// assignments. Scaffolds missing from the stb are left out; the returned
// count reports how many were skipped that way.
func Aggregate(metrics []snv.Metrics, mapping []readfilter.ScaffoldReport, stb map[string]string) ([]profiledb.GenomeRecord, int) {
	pairs := make(map[string]int64, len(mapping))
	for _, sc := range mapping {
		pairs[sc.Scaffold] = sc.FilteredPairs
	}

	type accumulator struct {
		record   profiledb.GenomeRecord
		covSum   float64
		breadth  float64
		gatedSum float64
		divSum   float64
		conSNPs  float64
		popSNPs  float64
	}
	genomes := make(map[string]*accumulator)
	unassigned := 0

	for _, m := range metrics {
		genome, ok := stb[m.Scaffold]
		if !ok {
			unassigned++
			continue
		}
		acc := genomes[genome]
		if acc == nil {
			acc = &accumulator{record: profiledb.GenomeRecord{Genome: genome}}
			genomes[genome] = acc
		}
		length := float64(m.Length)
		gated := m.BreadthMinCov * length

		acc.record.Scaffolds++
		if m.Breadth > 0 {
			acc.record.Detected++
		}
		acc.record.Length += m.Length
		acc.record.DivergentSites += m.DivergentSites
		acc.record.SNVCount += m.SNVCount
		acc.record.SNSCount += m.SNSCount
		acc.record.FilteredPairs += pairs[m.Scaffold]

		acc.covSum += m.Coverage * length
		acc.breadth += m.Breadth * length
		acc.gatedSum += gated
		acc.divSum += m.NuclDiversity * gated
		acc.conSNPs += (1 - m.ConANIReference) * gated
		acc.popSNPs += (1 - m.PopANIReference) * gated
	}

	names := make([]string, 0, len(genomes))
	for name := range genomes {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]profiledb.GenomeRecord, 0, len(names))
	for _, name := range names {
		acc := genomes[name]
		length := float64(acc.record.Length)
		if length > 0 {
			acc.record.Coverage = acc.covSum / length
			acc.record.Breadth = acc.breadth / length
			acc.record.BreadthMinCov = acc.gatedSum / length
		}
		acc.record.BreadthExpected = snv.ExpectedBreadth(acc.record.Coverage)
		if acc.gatedSum > 0 {
			acc.record.NuclDiversity = acc.divSum / acc.gatedSum
			acc.record.ConANIReference = 1 - acc.conSNPs/acc.gatedSum
			acc.record.PopANIReference = 1 - acc.popSNPs/acc.gatedSum
		}
		out = append(out, acc.record)
	}
	return out, unassigned
}
