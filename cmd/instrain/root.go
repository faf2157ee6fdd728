package main

import (
	"github.com/spf13/cobra"

	"github.com/liupfskygre/inStrain/internal/request"
	"github.com/liupfskygre/inStrain/internal/version"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string

	ctx := newCommandContext(&configFlag, &logLevelFlag)

	rootCmd := &cobra.Command{
		Use:   "instrain",
		Short: "Strain-level analysis of metagenomic read mappings",
		Long: `instrain profiles the microdiversity of microbial populations from
shotgun metagenomic mappings: coverage, nucleotide diversity, SNV and SNS
calling, gene-level metrics, genome-level summaries, and detailed pairwise
comparison of samples profiled against the same assembly.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetVersionTemplate("instrain version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override the configured console log level")

	// Flag parse failures become typed usage errors so the exit code
	// distinguishes them from operation failures.
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &request.UsageError{Op: cmd.Name(), Message: err.Error()}
	})

	rootCmd.AddCommand(newProfileCommand(ctx))
	rootCmd.AddCommand(newCompareCommand(ctx))
	rootCmd.AddCommand(newFilterReadsCommand(ctx))
	rootCmd.AddCommand(newProfileGenesCommand(ctx))
	rootCmd.AddCommand(newGenomeWideCommand(ctx))
	rootCmd.AddCommand(newQuickProfileCommand(ctx))
	rootCmd.AddCommand(newPlotCommand(ctx))
	rootCmd.AddCommand(newOtherCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}
