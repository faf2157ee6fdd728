package plotting

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/liupfskygre/inStrain/internal/logging"
	"github.com/liupfskygre/inStrain/internal/profiledb"
	"github.com/liupfskygre/inStrain/internal/report"
)

// Figure describes one figure-data series.
type Figure struct {
	Number int
	Name   string
	File   string
}

// Written records one emitted figure.
type Written struct {
	Figure
	Path string
	// Rows counts data rows, header excluded.
	Rows int
}

type builder func(ctx context.Context, store *profiledb.Store, runID string) ([][]string, error)

type figureSpec struct {
	Figure
	build builder
}

func figureSpecs() []figureSpec {
	return []figureSpec{
		{Figure{1, "genome coverage and breadth", "genome_breadth.tsv"}, buildGenomeBreadth},
		{Figure{2, "coverage by scaffold window", "coverage_windows.tsv"}, buildCoverageWindows},
		{Figure{3, "divergent site density", "divergent_site_density.tsv"}, buildSiteDensity},
		{Figure{4, "allele frequency distribution", "allele_frequencies.tsv"}, buildAlleleFrequencies},
		{Figure{5, "read filtering summary", "read_filtering.tsv"}, buildReadFiltering},
		{Figure{6, "gene microdiversity", "gene_diversity.tsv"}, buildGeneDiversity},
	}
}

// Available lists every figure the plot operation knows.
func Available() []Figure {
	specs := figureSpecs()
	out := make([]Figure, len(specs))
	for i, spec := range specs {
		out[i] = spec.Figure
	}
	return out
}

// Run emits the selected figures into figuresDir. Selection entries are
// figure numbers; empty, "a" or "all" selects everything. Figures whose
// backing tables are empty are skipped with a log line rather than failed.
func Run(ctx context.Context, store *profiledb.Store, runID, figuresDir string, selection []string, logger *slog.Logger) ([]Written, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	selected, err := parseSelection(selection)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(figuresDir, 0o755); err != nil {
		return nil, fmt.Errorf("create figures directory: %w", err)
	}

	var written []Written
	for _, spec := range figureSpecs() {
		if selected != nil {
			if _, ok := selected[spec.Number]; !ok {
				continue
			}
			delete(selected, spec.Number)
		}
		rows, err := spec.build(ctx, store, runID)
		if err != nil {
			return nil, fmt.Errorf("figure %d (%s): %w", spec.Number, spec.Name, err)
		}
		if len(rows) <= 1 {
			logger.Info("skipping figure, no data",
				logging.Int("figure", spec.Number),
				logging.String("name", spec.Name))
			continue
		}
		path := filepath.Join(figuresDir, spec.File)
		if err := report.WriteTSV(path, rows); err != nil {
			return nil, fmt.Errorf("figure %d (%s): %w", spec.Number, spec.Name, err)
		}
		logger.Info("wrote figure data",
			logging.Int("figure", spec.Number),
			logging.String("name", spec.Name),
			logging.Int("rows", len(rows)-1))
		written = append(written, Written{Figure: spec.Figure, Path: path, Rows: len(rows) - 1})
	}
	for number := range selected {
		logger.Warn("no such figure", logging.Int("figure", number))
	}
	return written, nil
}

// parseSelection returns nil when everything is selected.
func parseSelection(selection []string) (map[int]struct{}, error) {
	if len(selection) == 0 {
		return nil, nil
	}
	selected := make(map[int]struct{})
	for _, entry := range selection {
		if entry == "a" || entry == "all" {
			return nil, nil
		}
		number, err := strconv.Atoi(entry)
		if err != nil {
			return nil, fmt.Errorf("figure selector %q is not a number", entry)
		}
		selected[number] = struct{}{}
	}
	return selected, nil
}

func buildGenomeBreadth(ctx context.Context, store *profiledb.Store, runID string) ([][]string, error) {
	records, err := store.GenomeRecords(ctx, runID)
	if err != nil {
		return nil, err
	}
	rows := [][]string{{"genome", "coverage", "breadth", "breadth_expected", "nucl_diversity"}}
	for _, g := range records {
		rows = append(rows, []string{
			g.Genome,
			fmtFloat(g.Coverage),
			fmtFloat(g.Breadth),
			fmtFloat(g.BreadthExpected),
			fmtFloat(g.NuclDiversity),
		})
	}
	return rows, nil
}

func buildCoverageWindows(ctx context.Context, store *profiledb.Store, runID string) ([][]string, error) {
	windows, err := store.WindowMetrics(ctx, runID)
	if err != nil {
		return nil, err
	}
	rows := [][]string{{"scaffold", "start", "end", "coverage", "breadth"}}
	for _, w := range windows {
		rows = append(rows, []string{
			w.Scaffold,
			strconv.Itoa(w.Start),
			strconv.Itoa(w.End),
			fmtFloat(w.Coverage),
			fmtFloat(w.Breadth),
		})
	}
	return rows, nil
}

func buildSiteDensity(ctx context.Context, store *profiledb.Store, runID string) ([][]string, error) {
	windows, err := store.WindowMetrics(ctx, runID)
	if err != nil {
		return nil, err
	}
	rows := [][]string{{"scaffold", "start", "end", "divergent_sites", "nucl_diversity"}}
	for _, w := range windows {
		diversity := ""
		if w.NuclDiversity >= 0 {
			diversity = fmtFloat(w.NuclDiversity)
		}
		rows = append(rows, []string{
			w.Scaffold,
			strconv.Itoa(w.Start),
			strconv.Itoa(w.End),
			strconv.Itoa(w.DivergentSites),
			diversity,
		})
	}
	return rows, nil
}

// buildAlleleFrequencies bins the variant frequency of every polymorphic
// site into 0.05-wide bins.
func buildAlleleFrequencies(ctx context.Context, store *profiledb.Store, runID string) ([][]string, error) {
	calls, err := store.AllCalls(ctx, runID)
	if err != nil {
		return nil, err
	}
	const bins = 20
	counts := make([]int, bins)
	total := 0
	for _, rec := range calls {
		if rec.Call.AlleleCount < 2 {
			continue
		}
		bin := int(rec.Call.VarFreq * bins)
		if bin >= bins {
			bin = bins - 1
		}
		if bin < 0 {
			bin = 0
		}
		counts[bin]++
		total++
	}
	if total == 0 {
		return [][]string{{"freq_low", "freq_high", "count"}}, nil
	}
	rows := [][]string{{"freq_low", "freq_high", "count"}}
	for i, count := range counts {
		rows = append(rows, []string{
			fmtFloat(float64(i) / bins),
			fmtFloat(float64(i+1) / bins),
			strconv.Itoa(count),
		})
	}
	return rows, nil
}

func buildReadFiltering(ctx context.Context, store *profiledb.Store, runID string) ([][]string, error) {
	reports, err := store.MappingReports(ctx, runID)
	if err != nil {
		return nil, err
	}
	return report.MappingInfo(reports), nil
}

func buildGeneDiversity(ctx context.Context, store *profiledb.Store, runID string) ([][]string, error) {
	records, err := store.GeneRecords(ctx, runID)
	if err != nil {
		return nil, err
	}
	rows := [][]string{{"gene", "scaffold", "coverage", "nucl_diversity", "N_mutations", "S_mutations"}}
	for _, g := range records {
		diversity := ""
		if g.NuclDiversity >= 0 {
			diversity = fmtFloat(g.NuclDiversity)
		}
		rows = append(rows, []string{
			g.Gene,
			g.Scaffold,
			fmtFloat(g.Coverage),
			diversity,
			strconv.Itoa(g.NMutations),
			strconv.Itoa(g.SMutations),
		})
	}
	return rows, nil
}

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
