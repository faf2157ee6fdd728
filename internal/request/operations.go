package request

import "strings"

// Compare is the request behind the compare command: strain-level identity
// between profiles of different samples mapped to the same assembly.
type Compare struct {
	// Inputs are profile directories produced by the profile command.
	Inputs    []string
	Output    string
	Processes int
	// MinCov is the coverage both samples need at a position for it to
	// count as compared.
	MinCov int
	// StbFiles trigger genome-level comparison summaries.
	StbFiles []string
}

func (c *Compare) Operation() Operation { return OpCompare }

func (c *Compare) Normalize() {
	if strings.TrimSpace(c.Output) == "" {
		c.Output = "instrainComparer"
	}
}

func (c *Compare) Validate() error {
	if len(c.Inputs) < 2 {
		return Usagef(OpCompare, "at least two profile directories are required (--input), got %d", len(c.Inputs))
	}
	if c.Processes < 1 {
		return Usagef(OpCompare, "--processes must be at least 1, got %d", c.Processes)
	}
	if c.MinCov < 1 {
		return Usagef(OpCompare, "--min_cov must be at least 1, got %d", c.MinCov)
	}
	return nil
}

// FilterReads is the request behind the filter_reads command: apply the
// pair filters and write a report without profiling.
type FilterReads struct {
	BAM    string
	FASTA  string
	Output string
	ReadFilters
	// GenerateBAM also writes the filtered alignments next to the report.
	GenerateBAM bool
}

func (f *FilterReads) Operation() Operation { return OpFilterReads }

func (f *FilterReads) Normalize() {
	if strings.TrimSpace(f.Output) == "" {
		f.Output = "."
	}
}

func (f *FilterReads) Validate() error {
	if strings.TrimSpace(f.BAM) == "" {
		return Usagef(OpFilterReads, "a mapping file (.bam or .sam) is required")
	}
	if strings.TrimSpace(f.FASTA) == "" {
		return Usagef(OpFilterReads, "a reference file (.fasta) is required")
	}
	return f.ReadFilters.validate(OpFilterReads)
}

// ProfileGenes is the request behind the profile_genes command: gene-level
// metrics for an existing profile.
type ProfileGenes struct {
	// ProfileDir is a directory produced by the profile command.
	ProfileDir string
	// GeneFile holds gene calls, either Prodigal FASTA or GenBank.
	GeneFile  string
	Processes int
}

func (g *ProfileGenes) Operation() Operation { return OpProfileGenes }

func (g *ProfileGenes) Validate() error {
	if strings.TrimSpace(g.ProfileDir) == "" {
		return Usagef(OpProfileGenes, "a profile directory is required (--input)")
	}
	if strings.TrimSpace(g.GeneFile) == "" {
		return Usagef(OpProfileGenes, "a gene file is required (--gene_file)")
	}
	if g.Processes < 1 {
		return Usagef(OpProfileGenes, "--processes must be at least 1, got %d", g.Processes)
	}
	return nil
}

// GenomeWide is the request behind the genome_wide command: aggregate
// scaffold metrics to genomes using scaffold-to-bin files.
type GenomeWide struct {
	ProfileDir string
	StbFiles   []string
}

func (g *GenomeWide) Operation() Operation { return OpGenomeWide }

func (g *GenomeWide) Validate() error {
	if strings.TrimSpace(g.ProfileDir) == "" {
		return Usagef(OpGenomeWide, "a profile directory is required (--input)")
	}
	return nil
}

// QuickProfile is the request behind the quick_profile command: coverage
// and breadth estimates straight from the BAM index, no variant calling.
type QuickProfile struct {
	BAM     string
	FASTA   string
	Output  string
	StbFile string
	// BreadthCutoff drops genomes whose estimated breadth falls below it.
	BreadthCutoff float64
	// StringentCutoff additionally drops scaffolds below it before genome
	// grouping. Zero keeps every scaffold.
	StringentCutoff float64
	Processes       int
}

func (q *QuickProfile) Operation() Operation { return OpQuickProfile }

func (q *QuickProfile) Normalize() {
	if strings.TrimSpace(q.Output) == "" {
		q.Output = "QuickProfile"
	}
}

func (q *QuickProfile) Validate() error {
	if strings.TrimSpace(q.BAM) == "" {
		return Usagef(OpQuickProfile, "a mapping file (.bam or .sam) is required")
	}
	if strings.TrimSpace(q.FASTA) == "" {
		return Usagef(OpQuickProfile, "a reference file (.fasta) is required")
	}
	if q.BreadthCutoff < 0 || q.BreadthCutoff > 1 {
		return Usagef(OpQuickProfile, "--breadth_cutoff must be between 0 and 1, got %g", q.BreadthCutoff)
	}
	if q.StringentCutoff < 0 || q.StringentCutoff > 1 {
		return Usagef(OpQuickProfile, "--stringent_breadth_cutoff must be between 0 and 1, got %g", q.StringentCutoff)
	}
	if q.Processes < 1 {
		return Usagef(OpQuickProfile, "--processes must be at least 1, got %d", q.Processes)
	}
	return nil
}

// Plot is the request behind the plot command: emit figure data for an
// existing profile.
type Plot struct {
	ProfileDir string
	// Plots selects figures by number; empty or "a" selects all.
	Plots []string
}

func (p *Plot) Operation() Operation { return OpPlot }

func (p *Plot) Validate() error {
	if strings.TrimSpace(p.ProfileDir) == "" {
		return Usagef(OpPlot, "a profile directory is required (--input)")
	}
	for _, plot := range p.Plots {
		if plot == "a" || plot == "all" {
			continue
		}
		if len(plot) == 0 || strings.Trim(plot, "0123456789") != "" {
			return Usagef(OpPlot, "--plots takes figure numbers or 'a' for all, got %q", plot)
		}
	}
	return nil
}

// Other is the request behind the other command: housekeeping operations
// that do not fit the main flow.
type Other struct {
	// RunStatistics names a profile directory whose run log should be
	// summarized.
	RunStatistics string
	// Verbose includes per-checkpoint detail in the summary.
	Verbose bool
}

func (o *Other) Operation() Operation { return OpOther }

func (o *Other) Validate() error {
	if strings.TrimSpace(o.RunStatistics) == "" {
		return Usagef(OpOther, "nothing to do; pass --run_statistics with a profile directory")
	}
	return nil
}
