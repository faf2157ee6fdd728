package request

import (
	"path/filepath"
	"strings"
)

// Profile is the request behind the profile command: microdiversity
// metrics for one sample mapped against one assembly.
type Profile struct {
	BAM   string
	FASTA string
	// Output names the profile directory. Empty derives it from the FASTA
	// file name.
	Output    string
	Processes int

	ReadFilters
	Variants VariantSettings

	// WindowLength is the sliding window size in bases.
	WindowLength int
	// MinScaffoldReads skips scaffolds with fewer filtered pairs.
	MinScaffoldReads int
	// MinGenomeCoverage skips all scaffolds of genomes below this mean
	// coverage. Requires a scaffold-to-bin file.
	MinGenomeCoverage float64
	// DatabaseMode tightens defaults for building comparison databases:
	// looser read ANI, mismatch profiling off, genome coverage floor on.
	DatabaseMode bool
	// SkipMMProfiling collapses per-mismatch-level tracking and reports
	// only the final counts.
	SkipMMProfiling bool
	// UseFullFastaHeader keys scaffolds by the whole header line instead
	// of the first token.
	UseFullFastaHeader bool

	// GeneFile optionally triggers gene-level profiling after the scaffold
	// pass.
	GeneFile string
	// StbFiles optionally trigger genome-level aggregation after the
	// scaffold pass.
	StbFiles []string
	// ScaffoldListPath restricts profiling to the scaffolds named in the
	// file (plain list or FASTA).
	ScaffoldListPath string

	// SkipGenomeWide leaves out the genome-level aggregation step.
	SkipGenomeWide bool
	// SkipPlotGeneration leaves out the figure-data emission step.
	SkipPlotGeneration bool
}

func (p *Profile) Operation() Operation { return OpProfile }

// Normalize resolves interacting defaults. Database mode overwrites the
// read ANI, mismatch profiling and genome coverage settings regardless of
// other flags, matching the documented behavior.
func (p *Profile) Normalize() {
	if p.DatabaseMode {
		p.MinReadANI = 0.92
		p.SkipMMProfiling = true
		p.MinGenomeCoverage = 1
	}
	p.Variants.normalize()
	if strings.TrimSpace(p.Output) == "" {
		p.Output = DerivedOutputName(p.FASTA)
	}
}

// Validate checks cross-field consistency. It never inspects the
// filesystem; existence checks belong to the controller.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.BAM) == "" {
		return Usagef(OpProfile, "a mapping file (.bam or .sam) is required")
	}
	if strings.TrimSpace(p.FASTA) == "" {
		return Usagef(OpProfile, "a reference file (.fasta) is required")
	}
	if p.Processes < 1 {
		return Usagef(OpProfile, "--processes must be at least 1, got %d", p.Processes)
	}
	if p.WindowLength < 100 {
		return Usagef(OpProfile, "--window_length must be at least 100, got %d", p.WindowLength)
	}
	if p.MinScaffoldReads < 0 {
		return Usagef(OpProfile, "--min_scaffold_reads must not be negative, got %d", p.MinScaffoldReads)
	}
	if p.MinGenomeCoverage < 0 {
		return Usagef(OpProfile, "--min_genome_coverage must not be negative, got %v", p.MinGenomeCoverage)
	}
	if p.MinGenomeCoverage > 0 && len(p.StbFiles) == 0 {
		return Usagef(OpProfile, "--min_genome_coverage requires a scaffold-to-bin file (--stb)")
	}
	if err := p.ReadFilters.validate(OpProfile); err != nil {
		return err
	}
	if err := p.Variants.validate(OpProfile); err != nil {
		return err
	}
	return nil
}

// DerivedOutputName turns a FASTA path into a profile directory name by
// cutting the path at its first dot and taking the base name. A name that
// collapses to nothing falls back to "instrain".
func DerivedOutputName(fasta string) string {
	trimmed := fasta
	if idx := strings.IndexByte(trimmed, '.'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	name := filepath.Base(trimmed)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "instrain"
	}
	return name
}
