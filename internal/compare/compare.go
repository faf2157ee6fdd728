package compare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/liupfskygre/inStrain/internal/logging"
	"github.com/liupfskygre/inStrain/internal/profiledb"
	"github.com/liupfskygre/inStrain/internal/samtools"
)

// Options tunes a comparison run.
type Options struct {
	// MinCov is the depth both samples need at a position for it to be
	// compared.
	MinCov    int
	Processes int
	Logger    *slog.Logger
}

// PairResult compares one scaffold between two samples.
type PairResult struct {
	Scaffold string
	Sample1  string
	Sample2  string
	Length   int
	// ComparedBases counts positions where both samples pass MinCov.
	ComparedBases int
	// CoverageOverlap is ComparedBases over the positions either sample
	// covers adequately.
	CoverageOverlap       float64
	PercentGenomeCompared float64
	ConsensusSNPs         int
	PopulationSNPs        int
	ConANI                float64
	PopANI                float64
}

// Run compares every sample pair over their shared scaffolds.
func Run(ctx context.Context, samples []Sample, opts Options) ([]PairResult, error) {
	if len(samples) < 2 {
		return nil, errors.New("comparison needs at least two samples")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.MinCov < 1 {
		opts.MinCov = 1
	}

	lengths := make([]map[string]int, len(samples))
	for i, sample := range samples {
		metrics, err := sample.Store.ScaffoldMetrics(ctx, sample.RunID)
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", sample.Name, err)
		}
		lengths[i] = make(map[string]int, len(metrics))
		for _, m := range metrics {
			lengths[i][m.Scaffold] = m.Length
		}
	}

	type job struct {
		a, b     int
		scaffold string
	}
	var jobList []job
	for i := 0; i < len(samples); i++ {
		for j := i + 1; j < len(samples); j++ {
			shared := 0
			for scaffold := range lengths[i] {
				if _, ok := lengths[j][scaffold]; ok {
					jobList = append(jobList, job{a: i, b: j, scaffold: scaffold})
					shared++
				}
			}
			logger.Info("comparing samples",
				logging.String("sample1", samples[i].Name),
				logging.String("sample2", samples[j].Name),
				logging.Int("shared_scaffolds", shared))
		}
	}

	workers := opts.Processes
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan job)
	type outcome struct {
		result PairResult
		ok     bool
		err    error
	}
	outcomes := make(chan outcome)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for jb := range jobs {
				result, ok, err := compareScaffold(ctx, samples[jb.a], samples[jb.b], jb.scaffold, opts.MinCov)
				outcomes <- outcome{result: result, ok: ok, err: err}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, jb := range jobList {
			select {
			case jobs <- jb:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var results []PairResult
	var errs []error
	for out := range outcomes {
		if out.err != nil {
			errs = append(errs, out.err)
			continue
		}
		if out.ok {
			results = append(results, out.result)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Sample1 != results[j].Sample1 {
			return results[i].Sample1 < results[j].Sample1
		}
		if results[i].Sample2 != results[j].Sample2 {
			return results[i].Sample2 < results[j].Sample2
		}
		return results[i].Scaffold < results[j].Scaffold
	})
	return results, nil
}

func compareScaffold(ctx context.Context, a, b Sample, scaffold string, minCov int) (PairResult, bool, error) {
	covA, err := a.Store.LoadCoverage(ctx, a.RunID, scaffold)
	if errors.Is(err, profiledb.ErrNotFound) {
		return PairResult{}, false, nil
	}
	if err != nil {
		return PairResult{}, false, fmt.Errorf("sample %s scaffold %s: %w", a.Name, scaffold, err)
	}
	covB, err := b.Store.LoadCoverage(ctx, b.RunID, scaffold)
	if errors.Is(err, profiledb.ErrNotFound) {
		return PairResult{}, false, nil
	}
	if err != nil {
		return PairResult{}, false, fmt.Errorf("sample %s scaffold %s: %w", b.Name, scaffold, err)
	}
	if len(covA) != len(covB) {
		return PairResult{}, false, fmt.Errorf("scaffold %s: profiles disagree on length (%d vs %d), were the samples mapped to the same reference?",
			scaffold, len(covA), len(covB))
	}

	result := PairResult{Scaffold: scaffold, Sample1: a.Name, Sample2: b.Name, Length: len(covA)}
	either := 0
	gate := int32(minCov)
	for i := range covA {
		okA, okB := covA[i] >= gate, covB[i] >= gate
		if okA && okB {
			result.ComparedBases++
		}
		if okA || okB {
			either++
		}
	}
	if either > 0 {
		result.CoverageOverlap = float64(result.ComparedBases) / float64(either)
	}
	if result.Length > 0 {
		result.PercentGenomeCompared = float64(result.ComparedBases) / float64(result.Length)
	}
	if result.ComparedBases == 0 {
		return result, true, nil
	}

	callsA, err := callMap(ctx, a, scaffold)
	if err != nil {
		return PairResult{}, false, err
	}
	callsB, err := callMap(ctx, b, scaffold)
	if err != nil {
		return PairResult{}, false, err
	}

	positions := make(map[int]struct{}, len(callsA)+len(callsB))
	for pos := range callsA {
		positions[pos] = struct{}{}
	}
	for pos := range callsB {
		positions[pos] = struct{}{}
	}

	for pos := range positions {
		if pos < 0 || pos >= len(covA) || covA[pos] < gate || covB[pos] < gate {
			continue
		}
		recA, hasA := callsA[pos]
		recB, hasB := callsB[pos]

		// A sample without a call holds the reference base; the sample
		// with the call knows what that base is.
		conA, conB := refConsensus(recA, hasA, recB), refConsensus(recB, hasB, recA)
		if conA != conB {
			result.ConsensusSNPs++
		}
		if !sharesAllele(alleleSet(recA, hasA, recB), alleleSet(recB, hasB, recA)) {
			result.PopulationSNPs++
		}
	}
	result.ConANI = 1 - float64(result.ConsensusSNPs)/float64(result.ComparedBases)
	result.PopANI = 1 - float64(result.PopulationSNPs)/float64(result.ComparedBases)
	return result, true, nil
}

func callMap(ctx context.Context, sample Sample, scaffold string) (map[int]profiledb.CallRecord, error) {
	calls, err := sample.Store.Calls(ctx, sample.RunID, scaffold)
	if err != nil {
		return nil, fmt.Errorf("sample %s scaffold %s: %w", sample.Name, scaffold, err)
	}
	out := make(map[int]profiledb.CallRecord, len(calls))
	for _, rec := range calls {
		out[rec.Call.Position] = rec
	}
	return out, nil
}

func refConsensus(rec profiledb.CallRecord, has bool, other profiledb.CallRecord) byte {
	if has {
		return rec.Call.ConBase
	}
	return other.Call.RefBase
}

func alleleSet(rec profiledb.CallRecord, has bool, other profiledb.CallRecord) [4]bool {
	var set [4]bool
	mark := func(base byte) {
		if idx, ok := samtools.BaseIndex(base); ok {
			set[idx] = true
		}
	}
	if !has {
		mark(other.Call.RefBase)
		return set
	}
	mark(rec.Call.ConBase)
	if rec.Call.AlleleCount >= 2 {
		mark(rec.Call.VarBase)
	}
	if rec.Call.RefIsAllele {
		mark(rec.Call.RefBase)
	}
	return set
}

func sharesAllele(a, b [4]bool) bool {
	for i := range a {
		if a[i] && b[i] {
			return true
		}
	}
	return false
}
