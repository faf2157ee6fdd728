package genomewide

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/liupfskygre/inStrain/internal/logging"
	"github.com/liupfskygre/inStrain/internal/profiledb"
)

// Run aggregates a finished profile run to genome level and stores the
// records. With no stb paths every profiled scaffold lands in the
// fallback genome.
func Run(ctx context.Context, store *profiledb.Store, runID string, stbPaths []string, logger *slog.Logger) ([]profiledb.GenomeRecord, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	metrics, err := store.ScaffoldMetrics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(metrics) == 0 {
		return nil, fmt.Errorf("run %s has no profiled scaffolds", runID)
	}

	var stb map[string]string
	if len(stbPaths) > 0 {
		stb, err = ParseSTB(stbPaths)
		if err != nil {
			return nil, err
		}
	} else {
		scaffolds := make([]string, len(metrics))
		for i, m := range metrics {
			scaffolds[i] = m.Scaffold
		}
		stb = FallbackSTB(scaffolds)
	}

	mapping, err := store.MappingReports(ctx, runID)
	if err != nil {
		return nil, err
	}

	records, unassigned := Aggregate(metrics, mapping, stb)
	if len(records) == 0 {
		return nil, fmt.Errorf("no profiled scaffold is assigned to a genome")
	}
	if unassigned > 0 {
		logger.Warn("scaffolds missing from the stb were skipped",
			logging.Int("skipped", unassigned))
	}

	if err := store.AddGenomeRecords(ctx, runID, records); err != nil {
		return nil, err
	}
	logger.Info("genome aggregation done",
		logging.Int("genomes", len(records)),
		logging.Int("scaffolds", len(metrics)-unassigned))
	return records, nil
}
