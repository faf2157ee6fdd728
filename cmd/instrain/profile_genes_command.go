package main

import (
	"github.com/spf13/cobra"

	"github.com/liupfskygre/inStrain/internal/request"
)

func newProfileGenesCommand(ctx *commandContext) *cobra.Command {
	req := &request.ProfileGenes{}

	cmd := &cobra.Command{
		Use:   "profile_genes",
		Short: "Add gene-level metrics to an existing profile",
		Long: `Map gene calls onto a finished profile: per-gene coverage,
breadth and nucleotide diversity, plus gene identity and mutation type
for every called variant. The profile's gene and SNV tables are
rewritten in place.`,
		Args: positionalArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
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
	flags.StringVarP(&req.ProfileDir, "input", "i", "", "Profile directory produced by the profile command")
	flags.StringVarP(&req.GeneFile, "gene_file", "g", "", "Gene calls (prodigal .fna or genbank .gb)")
	flags.IntVarP(&req.Processes, "processes", "p", 6, "Worker processes")

	return cmd
}
