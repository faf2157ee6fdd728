// Package preflight verifies that a machine can actually run an analysis
// before any heavy work starts: scratch space writable, samtools present
// and recent enough. The check command renders these results; the pipeline
// runs the samtools check again right before first use.
package preflight

import (
	"context"

	"github.com/liupfskygre/inStrain/internal/config"
	"github.com/liupfskygre/inStrain/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check that applies to the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
	}
	results = append(results, CheckSamtools(ctx, cfg.Samtools.Binary))
	return results
}

// SystemDeps reports the availability of every external binary instrain
// shells out to.
func SystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "samtools",
			Command:     cfg.Samtools.Binary,
			Description: "Required for all alignment access",
		},
	}
	return deps.CheckBinaries(requirements)
}
