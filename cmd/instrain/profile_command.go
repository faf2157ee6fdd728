package main

import (
	"github.com/spf13/cobra"

	"github.com/liupfskygre/inStrain/internal/request"
)

func newProfileCommand(ctx *commandContext) *cobra.Command {
	req := &request.Profile{
		ReadFilters: request.DefaultReadFilters(),
		Variants:    request.DefaultVariantSettings(),
	}

	cmd := &cobra.Command{
		Use:   "profile [bam] [fasta]",
		Short: "Create a microdiversity profile of one sample",
		Long: `Profile a coordinate-sorted mapping against its reference assembly:
filter read pairs, compute per-scaffold coverage and nucleotide diversity,
call SNVs and SNSs, and store everything in a reusable profile directory.

Examples:
  instrain profile sample.bam assembly.fasta -o sample.IS
  instrain profile sample.bam assembly.fasta -g genes.fna -s bins.stb
  instrain profile sample.bam assembly.fasta --database_mode`,
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
			if !cmd.Flags().Changed("window_length") {
				req.WindowLength = cfg.Defaults.WindowLength
			}
			return ctx.execute(cmd, req)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&req.Output, "output", "o", "", "Profile directory (default derived from the fasta name)")
	flags.IntVarP(&req.Processes, "processes", "p", 6, "Worker processes")

	flags.Float64VarP(&req.MinReadANI, "min_read_ani", "l", 0.95, "Minimum identity of a read pair to the reference")
	flags.IntVar(&req.MinMapQ, "min_mapq", -1, "Minimum mapping quality of the better mate (-1 disables)")
	flags.Float64Var(&req.MaxInsertRelative, "max_insert_relative", 3, "Maximum insert size as a multiple of the median insert")
	flags.IntVar(&req.MinInsert, "min_insert", 50, "Minimum insert size in bases")
	flags.StringVar(&req.PairingFilter, "pairing_filter", "paired_only", "Which pairing states are eligible: paired_only, non_discordant or all_reads")
	flags.StringVar(&req.PriorityReadsPath, "priority_reads", "", "File of read names that bypass the pairing filter")

	flags.IntVarP(&req.Variants.MinCov, "min_cov", "c", 5, "Minimum coverage to call a variant")
	flags.Float64VarP(&req.Variants.MinFreq, "min_freq", "f", 0.05, "Minimum allele frequency to report a variant")
	flags.Float64Var(&req.Variants.FDR, "fdr", 1e-6, "False discovery rate for the variant null model")

	flags.StringVarP(&req.GeneFile, "gene_file", "g", "", "Gene calls for gene-level profiling (prodigal .fna or genbank .gb)")
	flags.StringSliceVarP(&req.StbFiles, "stb", "s", nil, "Scaffold-to-bin file(s) for genome-level results")
	flags.StringVar(&req.ScaffoldListPath, "scaffolds_to_profile", "", "Restrict profiling to the scaffolds named in this file")

	flags.IntVar(&req.WindowLength, "window_length", 10000, "Sliding window size in bases")
	flags.IntVar(&req.MinScaffoldReads, "min_scaffold_reads", 0, "Skip scaffolds with fewer filtered pairs")
	flags.Float64Var(&req.MinGenomeCoverage, "min_genome_coverage", 0, "Skip all scaffolds of genomes below this mean coverage")
	flags.BoolVar(&req.DatabaseMode, "database_mode", false, "Tighten defaults for building comparison databases")
	flags.BoolVar(&req.SkipMMProfiling, "skip_mm_profiling", false, "Collapse per-mismatch-level tracking and keep final counts only")
	flags.BoolVar(&req.UseFullFastaHeader, "use_full_fasta_header", false, "Key scaffolds by the whole header line instead of the first token")
	flags.BoolVar(&req.SkipGenomeWide, "skip_genome_wide", false, "Leave out the genome-level aggregation step")
	flags.BoolVar(&req.SkipPlotGeneration, "skip_plot_generation", false, "Leave out the figure-data step")

	return cmd
}
