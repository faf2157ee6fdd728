package quickprofile

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/liupfskygre/inStrain/internal/fasta"
	"github.com/liupfskygre/inStrain/internal/genomewide"
	"github.com/liupfskygre/inStrain/internal/logging"
	"github.com/liupfskygre/inStrain/internal/samtools"
	"github.com/liupfskygre/inStrain/internal/snv"
)

// defaultSampleSize caps how many alignments the read-length probe visits.
const defaultSampleSize = 1000

// Options tunes an estimation run.
type Options struct {
	// BreadthCutoff drops genomes whose estimated breadth falls below it.
	BreadthCutoff float64
	// StringentCutoff drops individual scaffolds below it before genome
	// grouping. Zero keeps every scaffold.
	StringentCutoff float64
	// SampleSize overrides how many alignments the read-length probe
	// visits.
	SampleSize int
	Logger     *slog.Logger
}

// ScaffoldEstimate is the index-derived coverage estimate for one scaffold.
type ScaffoldEstimate struct {
	Scaffold string
	Length   int
	Reads    int64
	Coverage float64
	Breadth  float64
}

// GenomeEstimate folds scaffold estimates up to one genome.
type GenomeEstimate struct {
	Genome    string
	Scaffolds int
	Length    int
	Reads     int64
	Coverage  float64
	Breadth   float64
}

// Result is what a quick profile leaves behind.
type Result struct {
	MeanReadLength float64
	Scaffolds      []ScaffoldEstimate
	Genomes        []GenomeEstimate
	// GenomeCSV is the path of the written genome coverage table.
	GenomeCSV string
}

// Run estimates coverage for every scaffold in the BAM, folds the
// estimates into genomes, and writes the CSV tables under outDir.
func Run(ctx context.Context, client *samtools.Client, bam, fastaPath string, stbPaths []string, outDir string, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	meanLength, err := MeanReadLength(ctx, client, bam, opts.SampleSize)
	if err != nil {
		return nil, err
	}
	logger.Info("sampled read length", logging.Float64("mean_bp", meanLength))

	stats, err := client.IdxStats(ctx, bam)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("no reference sequences in %s", bam)
	}
	if fastaPath != "" {
		if err := checkReference(stats, fastaPath, logger); err != nil {
			return nil, err
		}
	}

	scaffolds := Estimate(stats, meanLength)

	var stb map[string]string
	if len(stbPaths) > 0 {
		stb, err = genomewide.ParseSTB(stbPaths)
		if err != nil {
			return nil, err
		}
	} else {
		names := make([]string, len(scaffolds))
		for i, est := range scaffolds {
			names[i] = est.Scaffold
		}
		stb = genomewide.FallbackSTB(names)
	}

	genomes := Group(scaffolds, stb, opts.StringentCutoff)
	kept := genomes[:0]
	for _, g := range genomes {
		if g.Breadth >= opts.BreadthCutoff {
			kept = append(kept, g)
		}
	}
	logger.Info("estimated genome coverage",
		logging.Int("genomes", len(kept)),
		logging.Int("below_breadth_cutoff", len(genomes)-len(kept)))

	genomeCSV, err := writeReports(outDir, scaffolds, kept)
	if err != nil {
		return nil, err
	}
	return &Result{
		MeanReadLength: meanLength,
		Scaffolds:      scaffolds,
		Genomes:        kept,
		GenomeCSV:      genomeCSV,
	}, nil
}

// MeanReadLength averages the sequence length of the first mapped primary
// alignments in the file.
func MeanReadLength(ctx context.Context, client *samtools.Client, bam string, sample int) (float64, error) {
	if sample < 1 {
		sample = defaultSampleSize
	}
	total, count := 0, 0
	err := client.StreamAlignments(ctx, bam, "", func(a samtools.Alignment) error {
		if a.Unmapped() || !a.Primary() || a.Length == 0 {
			return nil
		}
		total += a.Length
		count++
		if count >= sample {
			return samtools.ErrStop
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, fmt.Errorf("no mapped reads in %s", bam)
	}
	return float64(total) / float64(count), nil
}

// Estimate turns index stats into per-scaffold coverage estimates.
// Coverage is mapped reads times mean read length over scaffold length;
// breadth comes from the expected-breadth curve at that coverage.
func Estimate(stats []samtools.IdxStat, readLength float64) []ScaffoldEstimate {
	out := make([]ScaffoldEstimate, 0, len(stats))
	for _, st := range stats {
		if st.Length <= 0 {
			continue
		}
		est := ScaffoldEstimate{Scaffold: st.Scaffold, Length: st.Length, Reads: st.Mapped}
		if st.Mapped > 0 {
			est.Coverage = float64(st.Mapped) * readLength / float64(st.Length)
			est.Breadth = snv.ExpectedBreadth(est.Coverage)
		}
		out = append(out, est)
	}
	return out
}

// Group folds scaffold estimates into genomes using stb assignments.
// Scaffolds below stringentCutoff or missing from the stb are dropped.
// Coverage and breadth are weighted by scaffold length.
func Group(estimates []ScaffoldEstimate, stb map[string]string, stringentCutoff float64) []GenomeEstimate {
	type accumulator struct {
		GenomeEstimate
		covSum     float64
		breadthSum float64
	}
	accs := make(map[string]*accumulator)
	for _, est := range estimates {
		if stringentCutoff > 0 && est.Breadth < stringentCutoff {
			continue
		}
		genome, ok := stb[est.Scaffold]
		if !ok {
			continue
		}
		acc := accs[genome]
		if acc == nil {
			acc = &accumulator{GenomeEstimate: GenomeEstimate{Genome: genome}}
			accs[genome] = acc
		}
		acc.Scaffolds++
		acc.Length += est.Length
		acc.Reads += est.Reads
		acc.covSum += est.Coverage * float64(est.Length)
		acc.breadthSum += est.Breadth * float64(est.Length)
	}

	out := make([]GenomeEstimate, 0, len(accs))
	for _, acc := range accs {
		if acc.Length > 0 {
			acc.Coverage = acc.covSum / float64(acc.Length)
			acc.Breadth = acc.breadthSum / float64(acc.Length)
		}
		out = append(out, acc.GenomeEstimate)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Genome < out[j].Genome })
	return out
}

// checkReference fails when the BAM and the FASTA share no scaffold names.
func checkReference(stats []samtools.IdxStat, fastaPath string, logger *slog.Logger) error {
	index, err := fasta.ReadIndex(fastaPath, false)
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(index))
	for _, seq := range index {
		known[seq.Name] = struct{}{}
	}
	matched := 0
	for _, st := range stats {
		if _, ok := known[st.Scaffold]; ok {
			matched++
		}
	}
	if matched == 0 {
		return fmt.Errorf("no scaffold names shared between the mapping and %s, were the reads mapped to this reference?", fastaPath)
	}
	if matched < len(stats) {
		logger.Warn("mapping references scaffolds missing from the fasta",
			logging.Int("matched", matched),
			logging.Int("total", len(stats)))
	}
	return nil
}

func writeReports(dir string, scaffolds []ScaffoldEstimate, genomes []GenomeEstimate) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	scaffoldRows := make([][]string, 0, len(scaffolds)+1)
	scaffoldRows = append(scaffoldRows, []string{"scaffold", "length", "reads", "coverage", "breadth"})
	for _, est := range scaffolds {
		scaffoldRows = append(scaffoldRows, []string{
			est.Scaffold,
			strconv.Itoa(est.Length),
			strconv.FormatInt(est.Reads, 10),
			formatFloat(est.Coverage),
			formatFloat(est.Breadth),
		})
	}
	if err := writeCSV(filepath.Join(dir, "scaffoldCoverage.csv"), scaffoldRows); err != nil {
		return "", err
	}

	genomeRows := make([][]string, 0, len(genomes)+1)
	genomeRows = append(genomeRows, []string{"genome", "scaffolds", "length", "reads", "coverage", "breadth"})
	for _, g := range genomes {
		genomeRows = append(genomeRows, []string{
			g.Genome,
			strconv.Itoa(g.Scaffolds),
			strconv.Itoa(g.Length),
			strconv.FormatInt(g.Reads, 10),
			formatFloat(g.Coverage),
			formatFloat(g.Breadth),
		})
	}
	genomePath := filepath.Join(dir, "genomeCoverage.csv")
	if err := writeCSV(genomePath, genomeRows); err != nil {
		return "", err
	}
	return genomePath, nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
