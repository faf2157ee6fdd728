package report

import (
	"strconv"

	"github.com/liupfskygre/inStrain/internal/compare"
	"github.com/liupfskygre/inStrain/internal/profiledb"
	"github.com/liupfskygre/inStrain/internal/readfilter"
	"github.com/liupfskygre/inStrain/internal/snv"
)

// Output table filenames. Callers prefix them with the profile name via
// FilePath.
const (
	ScaffoldInfoFile      = "scaffold_info.tsv"
	SNVsFile              = "SNVs.tsv"
	MappingInfoFile       = "mapping_info.tsv"
	GeneInfoFile          = "gene_info.tsv"
	GenomeInfoFile        = "genome_info.tsv"
	ComparisonsFile       = "comparisonsTable.tsv"
	GenomeComparisonsFile = "genomeWide_compare.tsv"
)

// ScaffoldInfo builds the per-scaffold summary table.
func ScaffoldInfo(metrics []snv.Metrics) [][]string {
	rows := [][]string{{
		"scaffold", "length", "coverage", "coverage_median", "coverage_std",
		"breadth", "breadth_minCov", "breadth_expected", "nucl_diversity",
		"divergent_site_count", "SNV_count", "SNS_count",
		"conANI_reference", "popANI_reference",
	}}
	for _, m := range metrics {
		rows = append(rows, []string{
			m.Scaffold,
			fmtInt(m.Length),
			fmtFloat(m.Coverage),
			fmtInt(m.CoverageMedian),
			fmtFloat(m.CoverageSD),
			fmtFloat(m.Breadth),
			fmtFloat(m.BreadthMinCov),
			fmtFloat(m.BreadthExpected),
			fmtFloat(m.NuclDiversity),
			fmtInt(m.DivergentSites),
			fmtInt(m.SNVCount),
			fmtInt(m.SNSCount),
			fmtFloat(m.ConANIReference),
			fmtFloat(m.PopANIReference),
		})
	}
	return rows
}

// SNVInfo builds the divergent-site table. Gene columns stay empty until a
// gene profiling run fills them.
func SNVInfo(calls []profiledb.CallRecord) [][]string {
	rows := [][]string{{
		"scaffold", "position", "ref_base", "con_base", "var_base",
		"position_coverage", "allele_count", "ref_freq", "var_freq",
		"A", "C", "G", "T", "class", "gene", "mutation_type", "mutation",
	}}
	for _, rec := range calls {
		c := rec.Call
		rows = append(rows, []string{
			rec.Scaffold,
			fmtInt(c.Position),
			string(c.RefBase),
			string(c.ConBase),
			string(c.VarBase),
			fmtInt(c.Coverage),
			fmtInt(c.AlleleCount),
			fmtFloat(c.RefFreq),
			fmtFloat(c.VarFreq),
			fmtInt(c.Counts[0]),
			fmtInt(c.Counts[1]),
			fmtInt(c.Counts[2]),
			fmtInt(c.Counts[3]),
			string(c.Class),
			rec.Gene,
			rec.MutationType,
			rec.Mutation,
		})
	}
	return rows
}

// MappingInfo builds the per-scaffold read filtering table.
func MappingInfo(reports []readfilter.ScaffoldReport) [][]string {
	rows := [][]string{{
		"scaffold", "reads", "pairs", "filtered_pairs",
		"mean_pair_ani", "mean_insert_distance", "mean_mapq",
	}}
	for _, r := range reports {
		rows = append(rows, []string{
			r.Scaffold,
			strconv.FormatInt(r.Reads, 10),
			strconv.FormatInt(r.Pairs, 10),
			strconv.FormatInt(r.FilteredPairs, 10),
			fmtFloat(r.MeanANI),
			fmtFloat(r.MeanInsert),
			fmtFloat(r.MeanMapQ),
		})
	}
	return rows
}

// GeneInfo builds the per-gene profiling table.
func GeneInfo(records []profiledb.GeneRecord) [][]string {
	rows := [][]string{{
		"gene", "scaffold", "start", "end", "direction", "gene_length",
		"coverage", "breadth", "nucl_diversity",
		"SNV_count", "SNS_count", "N_mutations", "S_mutations",
	}}
	for _, g := range records {
		rows = append(rows, []string{
			g.Gene,
			g.Scaffold,
			fmtInt(g.Start),
			fmtInt(g.End),
			fmtInt(g.Direction),
			fmtInt(g.End - g.Start + 1),
			fmtFloat(g.Coverage),
			fmtFloat(g.Breadth),
			fmtMaybeFloat(g.NuclDiversity),
			fmtInt(g.SNVCount),
			fmtInt(g.SNSCount),
			fmtInt(g.NMutations),
			fmtInt(g.SMutations),
		})
	}
	return rows
}

// GenomeInfo builds the per-genome summary table.
func GenomeInfo(records []profiledb.GenomeRecord) [][]string {
	rows := [][]string{{
		"genome", "scaffolds", "detected_scaffolds", "length",
		"coverage", "breadth", "breadth_minCov", "breadth_expected",
		"nucl_diversity", "divergent_site_count", "SNV_count", "SNS_count",
		"conANI_reference", "popANI_reference", "filtered_pairs",
	}}
	for _, g := range records {
		rows = append(rows, []string{
			g.Genome,
			fmtInt(g.Scaffolds),
			fmtInt(g.Detected),
			fmtInt(g.Length),
			fmtFloat(g.Coverage),
			fmtFloat(g.Breadth),
			fmtFloat(g.BreadthMinCov),
			fmtFloat(g.BreadthExpected),
			fmtFloat(g.NuclDiversity),
			fmtInt(g.DivergentSites),
			fmtInt(g.SNVCount),
			fmtInt(g.SNSCount),
			fmtFloat(g.ConANIReference),
			fmtFloat(g.PopANIReference),
			strconv.FormatInt(g.FilteredPairs, 10),
		})
	}
	return rows
}

// Comparisons builds the per-scaffold sample comparison table.
func Comparisons(results []compare.PairResult) [][]string {
	rows := [][]string{{
		"scaffold", "name1", "name2", "length",
		"compared_bases_count", "coverage_overlap", "percent_genome_compared",
		"consensus_SNPs", "population_SNPs", "conANI", "popANI",
	}}
	for _, r := range results {
		rows = append(rows, []string{
			r.Scaffold,
			r.Sample1,
			r.Sample2,
			fmtInt(r.Length),
			fmtInt(r.ComparedBases),
			fmtFloat(r.CoverageOverlap),
			fmtFloat(r.PercentGenomeCompared),
			fmtInt(r.ConsensusSNPs),
			fmtInt(r.PopulationSNPs),
			fmtFloat(r.ConANI),
			fmtFloat(r.PopANI),
		})
	}
	return rows
}

// GenomeComparisons builds the genome-level sample comparison table.
func GenomeComparisons(results []compare.GenomePairResult) [][]string {
	rows := [][]string{{
		"genome", "name1", "name2", "length", "compared_bases_count",
		"percent_compared", "consensus_SNPs", "population_SNPs",
		"conANI", "popANI",
	}}
	for _, r := range results {
		rows = append(rows, []string{
			r.Genome,
			r.Sample1,
			r.Sample2,
			fmtInt(r.Length),
			fmtInt(r.ComparedBases),
			fmtFloat(r.PercentCompared),
			fmtInt(r.ConsensusSNPs),
			fmtInt(r.PopulationSNPs),
			fmtFloat(r.ConANI),
			fmtFloat(r.PopANI),
		})
	}
	return rows
}

func fmtInt(v int) string { return strconv.Itoa(v) }

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

// fmtMaybeFloat renders negative sentinel values as an empty cell.
func fmtMaybeFloat(v float64) string {
	if v < 0 {
		return ""
	}
	return fmtFloat(v)
}
