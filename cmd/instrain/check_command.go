package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liupfskygre/inStrain/internal/pipeline"
	"github.com/liupfskygre/inStrain/internal/preflight"
	"github.com/liupfskygre/inStrain/internal/report"
	"github.com/liupfskygre/inStrain/internal/version"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that this machine can run an analysis",
		Args:  positionalArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "instrain %s (profile schema %d)\n\n", version.Version, version.SchemaVersion)

			results := preflight.RunAll(cmd.Context(), cfg)
			rows := make([][]string, 0, len(results))
			failed := 0
			for _, res := range results {
				if !res.Passed {
					failed++
				}
				rows = append(rows, []string{res.Name, yesNo(res.Passed), res.Detail})
			}
			fmt.Fprintln(out, report.Render(
				[]string{"check", "ok", "detail"}, rows,
				[]report.Alignment{report.AlignLeft, report.AlignLeft, report.AlignLeft}))

			statuses := preflight.SystemDeps(cfg)
			depRows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				depRows = append(depRows, []string{
					status.Name, yesNo(status.Available), status.Detail, status.Description,
				})
			}
			fmt.Fprintln(out, report.Render(
				[]string{"dependency", "found", "path", "notes"}, depRows,
				[]report.Alignment{report.AlignLeft, report.AlignLeft, report.AlignLeft, report.AlignLeft}))

			for _, status := range statuses {
				if !status.Available && !status.Optional {
					failed++
				}
			}
			if failed > 0 {
				return &pipeline.Failure{
					Op:  "check",
					Err: fmt.Errorf("%d check(s) failed; fix the issues above before profiling", failed),
				}
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
}
