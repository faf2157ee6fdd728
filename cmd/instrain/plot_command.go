package main

import (
	"github.com/spf13/cobra"

	"github.com/liupfskygre/inStrain/internal/request"
)

func newPlotCommand(ctx *commandContext) *cobra.Command {
	req := &request.Plot{}

	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Emit figure data for a finished profile",
		Long: `Write the data series behind each standard figure as TSV files under the
profile's figures directory, ready for any plotting front end.

Figures are selected by number:
  1  genome coverage and breadth
  2  coverage by scaffold window
  3  divergent site density
  4  allele frequency distribution
  5  read filtering summary
  6  gene microdiversity`,
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
	flags.StringSliceVar(&req.Plots, "plots", nil, "Figure numbers to emit, or 'a' for all (default all)")

	return cmd
}
