package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/liupfskygre/inStrain/internal/fasta"
	"github.com/liupfskygre/inStrain/internal/genes"
	"github.com/liupfskygre/inStrain/internal/genomewide"
	"github.com/liupfskygre/inStrain/internal/logging"
	"github.com/liupfskygre/inStrain/internal/plotting"
	"github.com/liupfskygre/inStrain/internal/profiledb"
	"github.com/liupfskygre/inStrain/internal/readfilter"
	"github.com/liupfskygre/inStrain/internal/request"
	"github.com/liupfskygre/inStrain/internal/samtools"
	"github.com/liupfskygre/inStrain/internal/snv"
	"github.com/liupfskygre/inStrain/internal/textutil"
	"github.com/liupfskygre/inStrain/internal/version"
)

// pileupBaseQuality is the minimum base quality fed to mpileup, matching
// its own default so low-confidence bases never enter the counts.
const pileupBaseQuality = 13

func (c *Controller) runProfile(ctx context.Context, req *request.Profile) error {
	const op = "profile"

	client, err := c.samtoolsClient(ctx)
	if err != nil {
		return fail(op, "preflight", err)
	}

	layout := profiledb.NewLayout(req.Output)
	if err := layout.Ensure(); err != nil {
		return fail(op, "create profile directory", err)
	}
	release, err := layout.Lock()
	if err != nil {
		return fail(op, "lock profile directory", err)
	}
	defer func() { _ = release() }()

	runLog, err := logging.OpenRunLog(c.runLogOptions(), layout.RunLogPath())
	if err != nil {
		return fail(op, "open run log", err)
	}
	defer runLog.Close()

	runID := uuid.NewString()
	logger := runLog.Logger.With(
		logging.String(logging.FieldRunID, runID),
		logging.String(logging.FieldOperation, op))

	store, err := profiledb.OpenLayout(layout)
	if err != nil {
		return fail(op, "open profile database", err)
	}
	defer store.Close()

	settings, err := json.Marshal(req)
	if err != nil {
		return fail(op, "record run", err)
	}
	if err := store.BeginRun(ctx, profiledb.Run{
		ID:        runID,
		Operation: op,
		BAMPath:   req.BAM,
		FastaPath: req.FASTA,
		StartedAt: time.Now().UTC(),
		Version:   version.Version,
		Settings:  string(settings),
	}); err != nil {
		return fail(op, "record run", err)
	}

	logging.Checkpoint(logger, "main_profile", logging.StateStart)
	err = c.profileStages(ctx, client, store, layout, runID, logger, req)
	logging.Checkpoint(logger, "main_profile", logging.StateEnd)
	if err != nil {
		logger.Error("profile failed", logging.Error(err))
		return err
	}

	if err := store.FinishRun(ctx, runID, time.Now().UTC()); err != nil {
		return fail(op, "record run", err)
	}

	// The summary parses the run log, so the file has to be complete
	// before it is read back.
	if err := runLog.Close(); err != nil {
		return fail(op, "close run log", err)
	}
	c.printRunSummary(layout)
	c.console.Info("profile complete", logging.String("output", layout.Root))
	return nil
}

func (c *Controller) profileStages(ctx context.Context, client *samtools.Client, store *profiledb.Store, layout profiledb.Layout, runID string, logger *slog.Logger, req *request.Profile) error {
	const op = "profile"

	var scaffoldSet map[string]struct{}
	if req.ScaffoldListPath != "" {
		set, err := fasta.ReadNameList(req.ScaffoldListPath)
		if err != nil {
			return fail(op, "read scaffold list", err)
		}
		scaffoldSet = set
		logger.Info("restricting to listed scaffolds", logging.Int("scaffolds", len(set)))
	}

	c.banner(op, 1, "Filter reads")
	logging.Checkpoint(logger, "filter_reads", logging.StateStart)
	filtered, mapping, err := c.filterStage(ctx, client, store, runID, logger, req, scaffoldSet)
	logging.Checkpoint(logger, "filter_reads", logging.StateEnd)
	if err != nil {
		return err
	}

	c.banner(op, 2, "Profile scaffolds")
	logging.Checkpoint(logger, "profile_scaffolds", logging.StateStart)
	err = c.scaffoldStage(ctx, client, store, runID, logger, req, scaffoldSet, filtered, mapping)
	logging.Checkpoint(logger, "profile_scaffolds", logging.StateEnd)
	if err != nil {
		return err
	}

	step := 3
	if req.GeneFile != "" {
		c.banner(op, step, "Profile genes")
		step++
		logging.Checkpoint(logger, "profile_genes", logging.StateStart)
		err = c.geneStage(ctx, store, runID, logger, req)
		logging.Checkpoint(logger, "profile_genes", logging.StateEnd)
		if err != nil {
			return err
		}
	}

	if !req.SkipGenomeWide {
		c.banner(op, step, "Make genome-wide results")
		step++
		logging.Checkpoint(logger, "genome_wide", logging.StateStart)
		_, err = genomewide.Run(ctx, store, runID, req.StbFiles, logger)
		logging.Checkpoint(logger, "genome_wide", logging.StateEnd)
		if err != nil {
			return fail(op, "genome_wide", err)
		}
	}

	if !req.SkipPlotGeneration {
		c.banner(op, step, "Generate plots")
		logging.Checkpoint(logger, "making_plots", logging.StateStart)
		_, err = plotting.Run(ctx, store, runID, layout.FiguresDir(), nil, logger)
		logging.Checkpoint(logger, "making_plots", logging.StateEnd)
		if err != nil {
			return fail(op, "making_plots", err)
		}
	}

	if err := c.writeProfileTables(ctx, store, layout, runID, profileName(req.Output)); err != nil {
		return fail(op, "write output tables", err)
	}
	return nil
}

// filterStage collects and filters read pairs, records the mapping report,
// and materializes the filtered BAM the pileup will stream from.
func (c *Controller) filterStage(ctx context.Context, client *samtools.Client, store *profiledb.Store, runID string, logger *slog.Logger, req *request.Profile, scaffoldSet map[string]struct{}) (string, readfilter.Report, error) {
	const op = "profile"
	var zero readfilter.Report

	if err := os.MkdirAll(c.cfg.Paths.WorkDir, 0o755); err != nil {
		return "", zero, fail(op, "filter_reads", err)
	}
	prepared, err := client.PrepareAlignment(ctx, req.BAM, c.cfg.Paths.WorkDir)
	if err != nil {
		return "", zero, fail(op, "filter_reads", err)
	}

	pairs, stats, err := readfilter.Collect(ctx, client, prepared, scaffoldSet, logger)
	if err != nil {
		return "", zero, fail(op, "filter_reads", err)
	}
	logger.Info("collected read pairs",
		logging.Int64("records", stats.Records),
		logging.Int64("skipped", stats.Skipped),
		logging.Int64("off_target", stats.OffTarget),
		logging.Int("pairs", len(pairs)))

	criteria, err := buildCriteria(req.ReadFilters)
	if err != nil {
		return "", zero, fail(op, "filter_reads", err)
	}

	kept, mapping := readfilter.Filter(pairs, criteria)
	if len(kept) == 0 {
		return "", zero, fail(op, "filter_reads",
			fmt.Errorf("no read pairs passed the filters; %d pairs were considered", mapping.Pairs))
	}

	if err := store.AddMappingReport(ctx, runID, mapping); err != nil {
		return "", zero, fail(op, "filter_reads", err)
	}
	meta := map[string]string{
		"filter.pairs":            strconv.FormatInt(mapping.Pairs, 10),
		"filter.filtered_pairs":   strconv.FormatInt(mapping.FilteredPairs, 10),
		"filter.reads":            strconv.FormatInt(mapping.Reads, 10),
		"filter.mean_pair_length": strconv.FormatFloat(mapping.MeanPairLength, 'f', 2, 64),
		"filter.median_insert":    strconv.FormatFloat(mapping.MedianInsert, 'f', 2, 64),
	}
	for key, value := range meta {
		if err := store.SetMeta(ctx, runID, key, value); err != nil {
			return "", zero, fail(op, "filter_reads", err)
		}
	}
	logger.Info("filtered read pairs",
		logging.Int64("kept", mapping.FilteredPairs),
		logging.Int64("considered", mapping.Pairs),
		logging.Float64("median_insert", mapping.MedianInsert))
	c.console.Info("reads filtered",
		logging.String("kept_pairs", textutil.Count(mapping.FilteredPairs)),
		logging.String("of_pairs", textutil.Count(mapping.Pairs)))

	filtered := filepath.Join(c.cfg.Paths.WorkDir, profileName(req.Output)+".filtered.bam")
	if err := client.FilterAlignments(ctx, prepared, filtered, criteria.Expression(mapping.MaxInsert), criteria.MapQThreshold()); err != nil {
		return "", zero, fail(op, "filter_reads", err)
	}
	return filtered, mapping, nil
}

// scaffoldStage streams the pileup once and fans finished scaffolds out to
// workers that summarize and persist them.
func (c *Controller) scaffoldStage(ctx context.Context, client *samtools.Client, store *profiledb.Store, runID string, logger *slog.Logger, req *request.Profile, scaffoldSet map[string]struct{}, bam string, mapping readfilter.Report) error {
	const op = "profile"

	index, err := fasta.ReadIndex(req.FASTA, req.UseFullFastaHeader)
	if err != nil {
		return fail(op, "profile_scaffolds", err)
	}
	lengths := make(map[string]int, len(index))
	for _, seq := range index {
		lengths[seq.Name] = seq.Length
	}
	for _, sr := range mapping.Scaffolds {
		if _, ok := lengths[sr.Scaffold]; !ok {
			return fail(op, "profile_scaffolds",
				fmt.Errorf("scaffold %s from the mapping is missing from %s; were the reads mapped to this reference?", sr.Scaffold, req.FASTA))
		}
	}

	pairCounts := make(map[string]int64, len(mapping.Scaffolds))
	for _, sr := range mapping.Scaffolds {
		pairCounts[sr.Scaffold] = sr.FilteredPairs
	}

	selected := make(map[string]bool, len(index))
	for _, seq := range index {
		if scaffoldSet != nil {
			if _, ok := scaffoldSet[seq.Name]; !ok {
				continue
			}
		}
		if req.MinScaffoldReads > 0 && pairCounts[seq.Name] < int64(req.MinScaffoldReads) {
			continue
		}
		selected[seq.Name] = true
	}

	if req.MinGenomeCoverage > 0 {
		dropped, err := dropShallowGenomes(selected, index, mapping, req)
		if err != nil {
			return fail(op, "profile_scaffolds", err)
		}
		if dropped > 0 {
			logger.Info("dropped scaffolds of genomes below the coverage floor",
				logging.Int("scaffolds", dropped),
				logging.Float64("floor", req.MinGenomeCoverage))
		}
	}

	if len(selected) == 0 {
		return fail(op, "profile_scaffolds", fmt.Errorf("no scaffolds are eligible for profiling"))
	}

	profilable := 0
	for name := range selected {
		if pairCounts[name] > 0 {
			profilable++
		}
	}
	logger.Info("profiling scaffolds",
		logging.Int("eligible", len(selected)),
		logging.Int("with_reads", profilable))

	caller := snv.NewCaller(req.Variants.MinCov, req.Variants.MinFreq, snv.NewNullModel(req.Variants.FDR))
	bar := progressbar.NewOptions(profilable,
		progressbar.OptionSetWriter(c.progress),
		progressbar.OptionSetDescription("profiling scaffolds"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish())

	jobs := make(chan *snv.ScaffoldProfile)
	outcomes := make(chan scaffoldResult)
	var wg sync.WaitGroup
	for i := 0; i < req.Processes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for profile := range jobs {
				outcomes <- persistProfile(ctx, store, runID, req.WindowLength, profile)
				_ = bar.Add(1)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	streamDone := make(chan error, 1)
	go func() {
		defer close(jobs)
		streamDone <- streamScaffoldProfiles(ctx, client, bam, req.FASTA, lengths, selected, caller, jobs)
	}()

	var profiled, snvCount, snsCount int
	var firstErr error
	for outcome := range outcomes {
		if outcome.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("scaffold %s: %w", outcome.scaffold, outcome.err)
			}
			continue
		}
		profiled++
		snvCount += outcome.metrics.SNVCount
		snsCount += outcome.metrics.SNSCount
	}
	_ = bar.Finish()
	if err := <-streamDone; err != nil && firstErr == nil {
		firstErr = err
	}
	if firstErr != nil {
		return fail(op, "profile_scaffolds", firstErr)
	}

	logger.Info("scaffold profiling complete",
		logging.Int("scaffolds", profiled),
		logging.Int("snvs", snvCount),
		logging.Int("snss", snsCount))
	c.console.Info("scaffolds profiled",
		logging.String("scaffolds", textutil.Count(profiled)),
		logging.String("divergent_sites", textutil.Count(snvCount+snsCount)))
	return nil
}

type scaffoldResult struct {
	scaffold string
	metrics  snv.Metrics
	err      error
}

// persistProfile summarizes one scaffold and writes everything derived
// from it in one pass, so a failure never leaves the scaffold half-stored.
func persistProfile(ctx context.Context, store *profiledb.Store, runID string, windowLength int, profile *snv.ScaffoldProfile) scaffoldResult {
	result := scaffoldResult{scaffold: profile.Name}

	metrics := profile.Summarize()
	if err := store.AddScaffoldMetrics(ctx, runID, metrics); err != nil {
		result.err = err
		return result
	}
	if windows := profile.SummarizeWindows(windowLength); len(windows) > 0 {
		if err := store.AddWindowMetrics(ctx, runID, windows); err != nil {
			result.err = err
			return result
		}
	}
	if len(profile.Calls) > 0 {
		if err := store.AddCalls(ctx, runID, profile.Name, profile.Calls); err != nil {
			result.err = err
			return result
		}
	}
	if err := store.SaveCoverage(ctx, runID, profile.Name, profile.Coverage); err != nil {
		result.err = err
		return result
	}
	if err := store.SaveClonality(ctx, runID, profile.Name, profile.Clonality); err != nil {
		result.err = err
		return result
	}
	result.metrics = metrics
	return result
}

// streamScaffoldProfiles walks the pileup in scaffold order, accumulating
// one profile at a time and handing each finished scaffold to jobs.
func streamScaffoldProfiles(ctx context.Context, client *samtools.Client, bam, fastaPath string, lengths map[string]int, selected map[string]bool, caller *snv.Caller, jobs chan<- *snv.ScaffoldProfile) error {
	var current *snv.ScaffoldProfile
	skip := ""

	send := func(profile *snv.ScaffoldProfile) error {
		select {
		case jobs <- profile:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	err := client.StreamPileup(ctx, bam, fastaPath, "", pileupBaseQuality, func(p samtools.Pileup) error {
		if p.Scaffold == skip {
			return nil
		}
		if current == nil || current.Name != p.Scaffold {
			if current != nil {
				if err := send(current); err != nil {
					return err
				}
				current = nil
			}
			if !selected[p.Scaffold] {
				skip = p.Scaffold
				return nil
			}
			current = snv.NewScaffoldProfile(p.Scaffold, lengths[p.Scaffold])
		}
		return current.Add(p, caller)
	})
	if err != nil {
		return err
	}
	if current != nil {
		return send(current)
	}
	return nil
}

// dropShallowGenomes removes every scaffold belonging to a genome whose
// estimated coverage sits below the floor. The estimate uses filtered
// pair counts, so it costs nothing beyond the filtering already done.
func dropShallowGenomes(selected map[string]bool, index []fasta.Sequence, mapping readfilter.Report, req *request.Profile) (int, error) {
	stb, err := genomewide.ParseSTB(req.StbFiles)
	if err != nil {
		return 0, err
	}
	if len(stb) == 0 {
		names := make([]string, 0, len(index))
		for _, seq := range index {
			names = append(names, seq.Name)
		}
		stb = genomewide.FallbackSTB(names)
	}

	type estimate struct {
		bases  float64
		length int64
	}
	genomes := make(map[string]*estimate)
	for _, seq := range index {
		genome, ok := stb[seq.Name]
		if !ok {
			continue
		}
		est := genomes[genome]
		if est == nil {
			est = &estimate{}
			genomes[genome] = est
		}
		est.length += int64(seq.Length)
	}
	for _, sr := range mapping.Scaffolds {
		genome, ok := stb[sr.Scaffold]
		if !ok {
			continue
		}
		if est := genomes[genome]; est != nil {
			est.bases += float64(sr.FilteredPairs) * mapping.MeanPairLength
		}
	}

	shallow := make(map[string]bool)
	for genome, est := range genomes {
		if est.length > 0 && est.bases/float64(est.length) < req.MinGenomeCoverage {
			shallow[genome] = true
		}
	}

	// Scaffolds absent from the scaffold-to-bin mapping have no genome to
	// estimate, so the floor removes them as well.
	dropped := 0
	for name := range selected {
		genome, ok := stb[name]
		if !ok || shallow[genome] {
			delete(selected, name)
			dropped++
		}
	}
	return dropped, nil
}

func (c *Controller) geneStage(ctx context.Context, store *profiledb.Store, runID string, logger *slog.Logger, req *request.Profile) error {
	const op = "profile"

	geneList, err := genes.Parse(req.GeneFile)
	if err != nil {
		return fail(op, "profile_genes", err)
	}
	result, err := genes.Profile(ctx, store, runID, geneList, genes.Options{
		Processes: req.Processes,
		Progress:  c.progress,
		Logger:    logger,
	})
	if err != nil {
		return fail(op, "profile_genes", err)
	}
	logger.Info("gene profiling complete",
		logging.Int("genes", len(result.Genes)),
		logging.Int("annotated_sites", len(result.Annotations)),
		logging.Int("scaffolds", result.ScaffoldsProfiled))
	return nil
}
