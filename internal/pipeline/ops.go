package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/liupfskygre/inStrain/internal/compare"
	"github.com/liupfskygre/inStrain/internal/fasta"
	"github.com/liupfskygre/inStrain/internal/genes"
	"github.com/liupfskygre/inStrain/internal/genomewide"
	"github.com/liupfskygre/inStrain/internal/logging"
	"github.com/liupfskygre/inStrain/internal/plotting"
	"github.com/liupfskygre/inStrain/internal/profiledb"
	"github.com/liupfskygre/inStrain/internal/quickprofile"
	"github.com/liupfskygre/inStrain/internal/readfilter"
	"github.com/liupfskygre/inStrain/internal/report"
	"github.com/liupfskygre/inStrain/internal/request"
	"github.com/liupfskygre/inStrain/internal/runstats"
	"github.com/liupfskygre/inStrain/internal/textutil"
)

// buildCriteria maps request filters onto pair criteria, loading the
// priority read names when a file was given.
func buildCriteria(filters request.ReadFilters) (readfilter.Criteria, error) {
	criteria := readfilter.Criteria{
		MinANI:            filters.MinReadANI,
		MinMapQ:           filters.MinMapQ,
		MaxInsertRelative: filters.MaxInsertRelative,
		MinInsert:         filters.MinInsert,
		Pairing:           filters.PairingFilter,
	}
	if filters.PriorityReadsPath != "" {
		reads, err := fasta.ReadNameList(filters.PriorityReadsPath)
		if err != nil {
			return criteria, err
		}
		criteria.PriorityReads = reads
	}
	return criteria, nil
}

// openProfile attaches to an existing profile directory: lock, store, and
// the latest finished profile run. The release closure undoes all of it.
func (c *Controller) openProfile(ctx context.Context, dir, op string) (*profiledb.Store, profiledb.Layout, string, func(), error) {
	layout := profiledb.NewLayout(dir)
	if !layout.Exists() {
		return nil, layout, "", nil, fail(op, "open profile",
			fmt.Errorf("%s does not look like a profile directory; run profile first", dir))
	}
	release, err := layout.Lock()
	if err != nil {
		return nil, layout, "", nil, fail(op, "open profile", err)
	}
	store, err := profiledb.OpenLayout(layout)
	if err != nil {
		_ = release()
		return nil, layout, "", nil, fail(op, "open profile", err)
	}
	run, err := store.LatestRun(ctx, "profile")
	if err != nil {
		_ = store.Close()
		_ = release()
		if errors.Is(err, profiledb.ErrNotFound) {
			err = fmt.Errorf("%s holds no finished profile run", dir)
		}
		return nil, layout, "", nil, fail(op, "open profile", err)
	}
	cleanup := func() {
		_ = store.Close()
		_ = release()
	}
	return store, layout, run.ID, cleanup, nil
}

func (c *Controller) runCompare(ctx context.Context, req *request.Compare) error {
	const op = "compare"

	samples, closeSamples, err := compare.OpenSamples(ctx, req.Inputs)
	if err != nil {
		return fail(op, "open profiles", err)
	}
	defer closeSamples()

	c.console.Info("comparing profiles", logging.Int("samples", len(samples)))
	results, err := compare.Run(ctx, samples, compare.Options{
		MinCov:    req.MinCov,
		Processes: req.Processes,
		Logger:    c.console,
	})
	if err != nil {
		return fail(op, "compare profiles", err)
	}

	if err := os.MkdirAll(req.Output, 0o755); err != nil {
		return fail(op, "write reports", err)
	}
	name := profileName(req.Output)
	if err := report.WriteTSV(report.FilePath(req.Output, name, report.ComparisonsFile), report.Comparisons(results)); err != nil {
		return fail(op, "write reports", err)
	}
	if len(req.StbFiles) > 0 {
		stb, err := genomewide.ParseSTB(req.StbFiles)
		if err != nil {
			return fail(op, "write reports", err)
		}
		genomeResults := compare.AggregateGenomes(results, stb)
		if err := report.WriteTSV(report.FilePath(req.Output, name, report.GenomeComparisonsFile), report.GenomeComparisons(genomeResults)); err != nil {
			return fail(op, "write reports", err)
		}
	}
	c.console.Info("comparison written",
		logging.String("output", req.Output),
		logging.Int("scaffold_pairs", len(results)))
	return nil
}

func (c *Controller) runFilterReads(ctx context.Context, req *request.FilterReads) error {
	const op = "filter_reads"

	client, err := c.samtoolsClient(ctx)
	if err != nil {
		return fail(op, "preflight", err)
	}
	if err := os.MkdirAll(c.cfg.Paths.WorkDir, 0o755); err != nil {
		return fail(op, "prepare alignment", err)
	}
	prepared, err := client.PrepareAlignment(ctx, req.BAM, c.cfg.Paths.WorkDir)
	if err != nil {
		return fail(op, "prepare alignment", err)
	}

	index, err := fasta.ReadIndex(req.FASTA, false)
	if err != nil {
		return fail(op, "read reference", err)
	}
	scaffolds := make(map[string]struct{}, len(index))
	for _, seq := range index {
		scaffolds[seq.Name] = struct{}{}
	}

	pairs, _, err := readfilter.Collect(ctx, client, prepared, scaffolds, c.console)
	if err != nil {
		return fail(op, "filter reads", err)
	}
	criteria, err := buildCriteria(req.ReadFilters)
	if err != nil {
		return fail(op, "filter reads", err)
	}
	_, mapping := readfilter.Filter(pairs, criteria)

	if err := os.MkdirAll(req.Output, 0o755); err != nil {
		return fail(op, "write report", err)
	}
	name := strings.TrimSuffix(filepath.Base(req.BAM), filepath.Ext(req.BAM))
	if err := report.WriteTSV(report.FilePath(req.Output, name, report.MappingInfoFile), report.MappingInfo(mapping.Scaffolds)); err != nil {
		return fail(op, "write report", err)
	}

	if req.GenerateBAM {
		out := filepath.Join(req.Output, name+".filtered.bam")
		if err := client.FilterAlignments(ctx, prepared, out, criteria.Expression(mapping.MaxInsert), criteria.MapQThreshold()); err != nil {
			return fail(op, "write filtered bam", err)
		}
		c.console.Info("wrote filtered alignments", logging.String("path", out))
	}
	c.console.Info("read filtering complete",
		logging.String("kept_pairs", textutil.Count(mapping.FilteredPairs)),
		logging.String("of_pairs", textutil.Count(mapping.Pairs)))
	return nil
}

func (c *Controller) runProfileGenes(ctx context.Context, req *request.ProfileGenes) error {
	const op = "profile_genes"

	store, layout, runID, release, err := c.openProfile(ctx, req.ProfileDir, op)
	if err != nil {
		return err
	}
	defer release()

	geneList, err := genes.Parse(req.GeneFile)
	if err != nil {
		return fail(op, "parse genes", err)
	}
	result, err := genes.Profile(ctx, store, runID, geneList, genes.Options{
		Processes: req.Processes,
		Progress:  c.progress,
		Logger:    c.console,
	})
	if err != nil {
		return fail(op, "profile genes", err)
	}

	// The SNV table is rewritten because gene profiling annotates calls
	// with gene identity and mutation type.
	name := profileName(req.ProfileDir)
	records, err := store.GeneRecords(ctx, runID)
	if err != nil {
		return fail(op, "write reports", err)
	}
	if err := report.WriteTSV(report.FilePath(layout.OutputDir(), name, report.GeneInfoFile), report.GeneInfo(records)); err != nil {
		return fail(op, "write reports", err)
	}
	calls, err := store.AllCalls(ctx, runID)
	if err != nil {
		return fail(op, "write reports", err)
	}
	if err := report.WriteTSV(report.FilePath(layout.OutputDir(), name, report.SNVsFile), report.SNVInfo(calls)); err != nil {
		return fail(op, "write reports", err)
	}

	c.console.Info("gene profiling complete",
		logging.Int("genes", len(result.Genes)),
		logging.Int("annotated_sites", len(result.Annotations)),
		logging.Int("scaffolds", result.ScaffoldsProfiled))
	return nil
}

func (c *Controller) runGenomeWide(ctx context.Context, req *request.GenomeWide) error {
	const op = "genome_wide"

	store, layout, runID, release, err := c.openProfile(ctx, req.ProfileDir, op)
	if err != nil {
		return err
	}
	defer release()

	records, err := genomewide.Run(ctx, store, runID, req.StbFiles, c.console)
	if err != nil {
		return fail(op, "aggregate scaffolds", err)
	}
	name := profileName(req.ProfileDir)
	if err := report.WriteTSV(report.FilePath(layout.OutputDir(), name, report.GenomeInfoFile), report.GenomeInfo(records)); err != nil {
		return fail(op, "write report", err)
	}
	c.console.Info("genome aggregation complete", logging.Int("genomes", len(records)))
	return nil
}

func (c *Controller) runQuickProfile(ctx context.Context, req *request.QuickProfile) error {
	const op = "quick_profile"

	client, err := c.samtoolsClient(ctx)
	if err != nil {
		return fail(op, "preflight", err)
	}
	var stbPaths []string
	if strings.TrimSpace(req.StbFile) != "" {
		stbPaths = []string{req.StbFile}
	}
	result, err := quickprofile.Run(ctx, client, req.BAM, req.FASTA, stbPaths, req.Output, quickprofile.Options{
		BreadthCutoff:   req.BreadthCutoff,
		StringentCutoff: req.StringentCutoff,
		Logger:          c.console,
	})
	if err != nil {
		return fail(op, "estimate coverage", err)
	}
	c.console.Info("quick profile complete",
		logging.String("output", result.GenomeCSV),
		logging.Int("genomes", len(result.Genomes)),
		logging.Float64("mean_read_length", result.MeanReadLength))
	return nil
}

func (c *Controller) runPlot(ctx context.Context, req *request.Plot) error {
	const op = "plot"

	store, layout, runID, release, err := c.openProfile(ctx, req.ProfileDir, op)
	if err != nil {
		return err
	}
	defer release()

	written, err := plotting.Run(ctx, store, runID, layout.FiguresDir(), req.Plots, c.console)
	if err != nil {
		return fail(op, "emit figures", err)
	}
	if len(written) > 0 {
		rows := make([][]string, 0, len(written))
		for _, w := range written {
			rows = append(rows, []string{strconv.Itoa(w.Number), w.Name, textutil.Count(w.Rows)})
		}
		fmt.Fprintln(c.out, report.Render([]string{"figure", "name", "rows"}, rows,
			[]report.Alignment{report.AlignRight, report.AlignLeft, report.AlignRight}))
	}
	c.console.Info("figure data written",
		logging.Int("figures", len(written)),
		logging.String("dir", layout.FiguresDir()))
	return nil
}

func (c *Controller) runOther(ctx context.Context, req *request.Other) error {
	const op = "other"

	layout := profiledb.NewLayout(req.RunStatistics)
	stats, err := runstats.ParseLog(layout.RunLogPath())
	if err != nil {
		return fail(op, "run_statistics", err)
	}

	summary := runstats.SummaryRows(stats)
	fmt.Fprintln(c.out, report.Render(summary[0], summary[1:],
		[]report.Alignment{report.AlignLeft, report.AlignRight}))

	if req.Verbose {
		if spans := runstats.SpanRows(stats); len(spans) > 1 {
			fmt.Fprintln(c.out, report.Render(spans[0], spans[1:],
				[]report.Alignment{report.AlignLeft, report.AlignRight, report.AlignRight, report.AlignRight}))
		}
	}

	sizes, err := runstats.OutputSizes(layout)
	if err != nil {
		return fail(op, "run_statistics", err)
	}
	if len(sizes) > 0 {
		rows := runstats.SizeRows(sizes)
		fmt.Fprintln(c.out, report.Render(rows[0], rows[1:],
			[]report.Alignment{report.AlignLeft, report.AlignRight}))
	}
	return nil
}
