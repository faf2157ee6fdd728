package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/liupfskygre/inStrain/internal/profiledb"
	"github.com/liupfskygre/inStrain/internal/report"
	"github.com/liupfskygre/inStrain/internal/runstats"
)

// writeProfileTables renders everything a finished run stored into the
// flat files under output/. Gene and genome tables only appear when the
// run produced those records.
func (c *Controller) writeProfileTables(ctx context.Context, store *profiledb.Store, layout profiledb.Layout, runID, name string) error {
	dir := layout.OutputDir()

	metrics, err := store.ScaffoldMetrics(ctx, runID)
	if err != nil {
		return err
	}
	if err := report.WriteTSV(report.FilePath(dir, name, report.ScaffoldInfoFile), report.ScaffoldInfo(metrics)); err != nil {
		return err
	}

	calls, err := store.AllCalls(ctx, runID)
	if err != nil {
		return err
	}
	if err := report.WriteTSV(report.FilePath(dir, name, report.SNVsFile), report.SNVInfo(calls)); err != nil {
		return err
	}

	mapping, err := store.MappingReports(ctx, runID)
	if err != nil {
		return err
	}
	if err := report.WriteTSV(report.FilePath(dir, name, report.MappingInfoFile), report.MappingInfo(mapping)); err != nil {
		return err
	}

	geneRecords, err := store.GeneRecords(ctx, runID)
	if err != nil {
		return err
	}
	if len(geneRecords) > 0 {
		if err := report.WriteTSV(report.FilePath(dir, name, report.GeneInfoFile), report.GeneInfo(geneRecords)); err != nil {
			return err
		}
	}

	genomeRecords, err := store.GenomeRecords(ctx, runID)
	if err != nil {
		return err
	}
	if len(genomeRecords) > 0 {
		if err := report.WriteTSV(report.FilePath(dir, name, report.GenomeInfoFile), report.GenomeInfo(genomeRecords)); err != nil {
			return err
		}
	}
	return nil
}

// profileName derives the file prefix for a profile's reports from its
// directory path.
func profileName(output string) string {
	name := filepath.Base(filepath.Clean(output))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "instrain"
	}
	return name
}

// printRunSummary renders the per-stage timing and output-size tables
// from the completed run log. Summary problems are not worth failing a
// finished run over, so errors drop the tables silently.
func (c *Controller) printRunSummary(layout profiledb.Layout) {
	stats, err := runstats.ParseLog(layout.RunLogPath())
	if err != nil {
		return
	}
	if spans := runstats.SpanRows(stats); len(spans) > 1 {
		fmt.Fprintln(c.out, report.Render(spans[0], spans[1:],
			[]report.Alignment{report.AlignLeft, report.AlignRight, report.AlignRight, report.AlignRight}))
	}
	sizes, err := runstats.OutputSizes(layout)
	if err != nil || len(sizes) == 0 {
		return
	}
	rows := runstats.SizeRows(sizes)
	fmt.Fprintln(c.out, report.Render(rows[0], rows[1:],
		[]report.Alignment{report.AlignLeft, report.AlignRight}))
}
