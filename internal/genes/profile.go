package genes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/liupfskygre/inStrain/internal/logging"
	"github.com/liupfskygre/inStrain/internal/profiledb"
	"github.com/liupfskygre/inStrain/internal/snv"
)

// Options tunes a gene profiling pass.
type Options struct {
	Processes int
	// Progress receives a progress bar when non-nil.
	Progress io.Writer
	Logger   *slog.Logger
}

// Result summarizes what was computed and stored.
type Result struct {
	Genes             []profiledb.GeneRecord
	Annotations       []profiledb.CallAnnotation
	ScaffoldsProfiled int
}

type scaffoldOutcome struct {
	records     []profiledb.GeneRecord
	annotations []profiledb.CallAnnotation
	err         error
}

// Profile maps genes onto a finished profile run, computes per-gene
// metrics, types the divergent sites inside genes, and stores both.
func Profile(ctx context.Context, store *profiledb.Store, runID string, geneList []Gene, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	grouped := GroupByScaffold(geneList)
	profiled, err := store.ScaffoldMetrics(ctx, runID)
	if err != nil {
		return Result{}, err
	}
	inProfile := make(map[string]struct{}, len(profiled))
	for _, m := range profiled {
		inProfile[m.Scaffold] = struct{}{}
	}

	var scaffolds []string
	for scaffold := range grouped {
		if _, ok := inProfile[scaffold]; ok {
			scaffolds = append(scaffolds, scaffold)
		}
	}
	sort.Strings(scaffolds)
	logger.Info("profiling genes",
		logging.Int("genes", len(geneList)),
		logging.Int("scaffolds_with_genes", len(grouped)),
		logging.Int("scaffolds_in_profile", len(inProfile)),
		logging.Int("scaffolds_to_profile", len(scaffolds)))

	workers := opts.Processes
	if workers < 1 {
		workers = 1
	}
	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(len(scaffolds),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription("Profiling genes"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	jobs := make(chan string)
	outcomes := make(chan scaffoldOutcome)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for scaffold := range jobs {
				records, annotations, err := profileScaffold(ctx, store, runID, scaffold, grouped[scaffold])
				if err != nil {
					err = fmt.Errorf("scaffold %s: %w", scaffold, err)
				}
				outcomes <- scaffoldOutcome{records: records, annotations: annotations, err: err}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, scaffold := range scaffolds {
			select {
			case jobs <- scaffold:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	result := Result{ScaffoldsProfiled: len(scaffolds)}
	var errs []error
	for outcome := range outcomes {
		if bar != nil {
			_ = bar.Add(1)
		}
		if outcome.err != nil {
			errs = append(errs, outcome.err)
			continue
		}
		result.Genes = append(result.Genes, outcome.records...)
		result.Annotations = append(result.Annotations, outcome.annotations...)
	}
	if bar != nil {
		_ = bar.Finish()
	}
	if len(errs) > 0 {
		return Result{}, errors.Join(errs...)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	sort.Slice(result.Genes, func(i, j int) bool {
		if result.Genes[i].Scaffold != result.Genes[j].Scaffold {
			return result.Genes[i].Scaffold < result.Genes[j].Scaffold
		}
		return result.Genes[i].Start < result.Genes[j].Start
	})
	sort.Slice(result.Annotations, func(i, j int) bool {
		if result.Annotations[i].Scaffold != result.Annotations[j].Scaffold {
			return result.Annotations[i].Scaffold < result.Annotations[j].Scaffold
		}
		return result.Annotations[i].Position < result.Annotations[j].Position
	})

	if err := store.AddGeneRecords(ctx, runID, result.Genes); err != nil {
		return Result{}, err
	}
	if err := store.AnnotateCalls(ctx, runID, result.Annotations); err != nil {
		return Result{}, err
	}
	logger.Info("gene profiling done",
		logging.Int("genes_stored", len(result.Genes)),
		logging.Int("sites_typed", len(result.Annotations)))
	return result, nil
}

func profileScaffold(ctx context.Context, store *profiledb.Store, runID, scaffold string, scaffoldGenes []Gene) ([]profiledb.GeneRecord, []profiledb.CallAnnotation, error) {
	coverage, err := store.LoadCoverage(ctx, runID, scaffold)
	if err != nil {
		return nil, nil, err
	}
	clonality, err := store.LoadClonality(ctx, runID, scaffold)
	if err != nil {
		return nil, nil, err
	}
	calls, err := store.Calls(ctx, runID, scaffold)
	if err != nil {
		return nil, nil, err
	}

	var annotations []profiledb.CallAnnotation
	mutationCounts := make(map[string][2]int)
	for _, rec := range calls {
		// Sites with no callable allele or more than two cannot be
		// attributed to a single substitution.
		if rec.Call.AlleleCount < 1 || rec.Call.AlleleCount > 2 {
			continue
		}
		site, err := TypeSite(scaffoldGenes, rec.Call.Position, rec.Call.ConBase, rec.Call.VarBase)
		if err != nil {
			return nil, nil, err
		}
		annotations = append(annotations, profiledb.CallAnnotation{
			Scaffold:     scaffold,
			Position:     rec.Call.Position,
			Gene:         site.Gene,
			MutationType: site.MutationType,
			Mutation:     site.Mutation,
		})
		if site.MutationType == "N" || site.MutationType == "S" {
			counts := mutationCounts[site.Gene]
			if site.MutationType == "N" {
				counts[0]++
			} else {
				counts[1]++
			}
			mutationCounts[site.Gene] = counts
		}
	}

	records := make([]profiledb.GeneRecord, 0, len(scaffoldGenes))
	for _, g := range scaffoldGenes {
		record, err := geneMetrics(g, coverage, clonality, calls)
		if err != nil {
			return nil, nil, err
		}
		counts := mutationCounts[g.Name]
		record.NMutations = counts[0]
		record.SMutations = counts[1]
		records = append(records, record)
	}
	return records, annotations, nil
}

func geneMetrics(g Gene, coverage []int32, clonality []float32, calls []profiledb.CallRecord) (profiledb.GeneRecord, error) {
	if g.Start < 0 || g.Start > g.End {
		return profiledb.GeneRecord{}, fmt.Errorf("gene %s: bad span %d..%d", g.Name, g.Start, g.End)
	}
	record := profiledb.GeneRecord{
		Gene:          g.Name,
		Scaffold:      g.Scaffold,
		Start:         g.Start,
		End:           g.End,
		Direction:     g.Direction,
		NuclDiversity: -1,
	}

	length := g.Length()
	// Genes past the end of the stored arrays keep zero coverage for the
	// overhang; the genes file and the reference can disagree.
	var total float64
	covered := 0
	var claritySum float64
	clonal := 0
	for pos := g.Start; pos <= g.End && pos < len(coverage); pos++ {
		total += float64(coverage[pos])
		if coverage[pos] > 0 {
			covered++
		}
		if pos < len(clonality) && clonality[pos] >= 0 {
			claritySum += float64(clonality[pos])
			clonal++
		}
	}
	record.Coverage = total / float64(length)
	record.Breadth = float64(covered) / float64(length)
	if clonal > 0 {
		record.NuclDiversity = 1 - claritySum/float64(clonal)
	}

	for _, rec := range calls {
		if !g.Contains(rec.Call.Position) {
			continue
		}
		switch rec.Call.Class {
		case snv.ClassSNV:
			record.SNVCount++
		case snv.ClassSNS:
			record.SNSCount++
		}
	}
	return record, nil
}
