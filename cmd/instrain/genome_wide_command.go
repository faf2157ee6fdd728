package main

import (
	"github.com/spf13/cobra"

	"github.com/liupfskygre/inStrain/internal/request"
)

func newGenomeWideCommand(ctx *commandContext) *cobra.Command {
	req := &request.GenomeWide{}

	cmd := &cobra.Command{
		Use:   "genome_wide",
		Short: "Aggregate scaffold metrics to the genome level",
		Long: `Roll the per-scaffold results of a finished profile up to genomes using
scaffold-to-bin files. Without an stb every scaffold lands in a single
catch-all genome.`,
		Args: positionalArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := finalizeRequest(req); err != nil {
				return err
			}
			return ctx.execute(cmd, req)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&req.ProfileDir, "input", "i", "", "Profile directory produced by the profile command")
	flags.StringSliceVarP(&req.StbFiles, "stb", "s", nil, "Scaffold-to-bin file(s)")

	return cmd
}
