package main

import (
	"github.com/spf13/cobra"

	"github.com/liupfskygre/inStrain/internal/request"
)

func newOtherCommand(ctx *commandContext) *cobra.Command {
	req := &request.Other{}

	cmd := &cobra.Command{
		Use:   "other",
		Short: "Housekeeping operations on existing profiles",
		Args:  positionalArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := finalizeRequest(req); err != nil {
				return err
			}
			return ctx.execute(cmd, req)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&req.RunStatistics, "run_statistics", "", "Summarize the run log of this profile directory")
	flags.BoolVar(&req.Verbose, "verbose", false, "Include per-stage timing in the summary")

	return cmd
}
