package main

import (
	"github.com/spf13/cobra"

	"github.com/liupfskygre/inStrain/internal/request"
)

func newFilterReadsCommand(ctx *commandContext) *cobra.Command {
	req := &request.FilterReads{ReadFilters: request.DefaultReadFilters()}

	cmd := &cobra.Command{
		Use:   "filter_reads [bam] [fasta]",
		Short: "Filter read pairs and report mapping statistics",
		Long: `Apply the pair filters to a mapping and write a per-scaffold report of
what survived, without building a profile. With --generate_bam the
filtered alignments are written next to the report for reuse.`,
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
			return ctx.execute(cmd, req)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&req.Output, "output", "o", ".", "Directory for the report")
	flags.Float64VarP(&req.MinReadANI, "min_read_ani", "l", 0.95, "Minimum identity of a read pair to the reference")
	flags.IntVar(&req.MinMapQ, "min_mapq", -1, "Minimum mapping quality of the better mate (-1 disables)")
	flags.Float64Var(&req.MaxInsertRelative, "max_insert_relative", 3, "Maximum insert size as a multiple of the median insert")
	flags.IntVar(&req.MinInsert, "min_insert", 50, "Minimum insert size in bases")
	flags.StringVar(&req.PairingFilter, "pairing_filter", "paired_only", "Which pairing states are eligible: paired_only, non_discordant or all_reads")
	flags.StringVar(&req.PriorityReadsPath, "priority_reads", "", "File of read names that bypass the pairing filter")
	flags.BoolVar(&req.GenerateBAM, "generate_bam", false, "Also write the filtered alignments as an indexed .bam")

	return cmd
}
