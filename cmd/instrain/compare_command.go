package main

import (
	"github.com/spf13/cobra"

	"github.com/liupfskygre/inStrain/internal/request"
)

func newCompareCommand(ctx *commandContext) *cobra.Command {
	req := &request.Compare{}

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare strain identity between profiles of the same assembly",
		Long: `Compare profiles pairwise at every position both samples cover well
enough, reporting consensus and population ANI per scaffold. All inputs
must have been profiled against the same reference assembly.

Examples:
  instrain compare -i sample1.IS -i sample2.IS
  instrain compare -i sample1.IS -i sample2.IS -s bins.stb -o comparison`,
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
	flags.StringSliceVarP(&req.Inputs, "input", "i", nil, "Profile directories to compare (repeat; at least two)")
	flags.StringVarP(&req.Output, "output", "o", "", `Output directory (default "instrainComparer")`)
	flags.IntVarP(&req.Processes, "processes", "p", 6, "Worker processes")
	flags.IntVarP(&req.MinCov, "min_cov", "c", 5, "Minimum coverage in both samples for a position to be compared")
	flags.StringSliceVarP(&req.StbFiles, "stb", "s", nil, "Scaffold-to-bin file(s) for genome-level comparison")

	return cmd
}
