package main

import (
	"github.com/spf13/cobra"

	"github.com/liupfskygre/inStrain/internal/request"
)

func newQuickProfileCommand(ctx *commandContext) *cobra.Command {
	req := &request.QuickProfile{}

	cmd := &cobra.Command{
		Use:   "quick_profile [bam] [fasta]",
		Short: "Estimate coverage and breadth straight from the mapping index",
		Long: `Estimate per-scaffold and per-genome coverage and breadth from the BAM
index alone. Orders of magnitude faster than a full profile, at the cost
of skipping read filtering and variant calling entirely.`,
		Args: positionalArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				req.BAM = args[0]
			}
			if len(args) > 1 {
				req.FASTA = args[1]
			}
			if err := finalizeRequest(req); err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("processes") {
				req.Processes = cfg.Defaults.Processes
			}
			return ctx.execute(cmd, req)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&req.Output, "output", "o", "", `Output directory (default "QuickProfile")`)
	flags.StringVarP(&req.StbFile, "stb", "s", "", "Scaffold-to-bin file for genome grouping")
	flags.Float64Var(&req.BreadthCutoff, "breadth_cutoff", 0.5, "Drop genomes whose estimated breadth falls below this")
	flags.Float64Var(&req.StringentCutoff, "stringent_breadth_cutoff", 0, "Drop scaffolds below this estimated breadth before grouping (0 keeps all)")
	flags.IntVarP(&req.Processes, "processes", "p", 6, "Worker processes")

	return cmd
}
