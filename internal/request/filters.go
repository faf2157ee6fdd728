package request

// Pairing filter levels, from strictest to loosest.
const (
	PairingPairedOnly    = "paired_only"
	PairingNonDiscordant = "non_discordant"
	PairingAllReads      = "all_reads"
)

// ReadFilters controls which mapped read pairs count toward a profile.
type ReadFilters struct {
	// MinReadANI is the minimum identity between a read pair and the
	// reference, computed as 1 - mismatches / aligned length.
	MinReadANI float64
	// MinMapQ drops pairs whose best mate mapping quality is at or below
	// this value. Negative disables the filter.
	MinMapQ int
	// MaxInsertRelative caps insert size at this multiple of the median
	// insert observed in the sample.
	MaxInsertRelative float64
	// MinInsert is the smallest accepted insert size in bases.
	MinInsert int
	// PairingFilter selects which pairing states are eligible.
	PairingFilter string
	// PriorityReadsPath optionally names a file of read names that bypass
	// the pairing filter.
	PriorityReadsPath string
}

// DefaultReadFilters mirrors the documented defaults.
func DefaultReadFilters() ReadFilters {
	return ReadFilters{
		MinReadANI:        0.95,
		MinMapQ:           -1,
		MaxInsertRelative: 3,
		MinInsert:         50,
		PairingFilter:     PairingPairedOnly,
	}
}

func (f *ReadFilters) validate(op Operation) *UsageError {
	if f.MinReadANI < 0 || f.MinReadANI > 1 {
		return Usagef(op, "--min_read_ani must be between 0 and 1, got %v", f.MinReadANI)
	}
	if f.MaxInsertRelative <= 0 {
		return Usagef(op, "--max_insert_relative must be positive, got %v", f.MaxInsertRelative)
	}
	if f.MinInsert < 0 {
		return Usagef(op, "--min_insert must not be negative, got %d", f.MinInsert)
	}
	switch f.PairingFilter {
	case PairingPairedOnly, PairingNonDiscordant, PairingAllReads:
	default:
		return Usagef(op, "--pairing_filter must be one of %s, %s or %s, got %q",
			PairingPairedOnly, PairingNonDiscordant, PairingAllReads, f.PairingFilter)
	}
	return nil
}

// VariantSettings controls nucleotide variant calling.
type VariantSettings struct {
	// MinCov is the minimum coverage to call a variant at a position.
	MinCov int
	// MinFreq is the minimum allele frequency to report a variant.
	MinFreq float64
	// FDR is the per-position false discovery rate for the variant null
	// model.
	FDR float64
}

// DefaultVariantSettings mirrors the documented defaults.
func DefaultVariantSettings() VariantSettings {
	return VariantSettings{
		MinCov:  5,
		MinFreq: 0.05,
		FDR:     1e-6,
	}
}

// normalize floors the FDR: zero would make every position significant,
// which is never what the user meant.
func (v *VariantSettings) normalize() {
	if v.FDR == 0 {
		v.FDR = 1e-6
	}
}

func (v *VariantSettings) validate(op Operation) *UsageError {
	if v.MinCov < 1 {
		return Usagef(op, "--min_cov must be at least 1, got %d", v.MinCov)
	}
	if v.MinFreq < 0 || v.MinFreq >= 1 {
		return Usagef(op, "--min_freq must be in [0, 1), got %v", v.MinFreq)
	}
	if v.FDR < 0 || v.FDR > 1 {
		return Usagef(op, "--fdr must be between 0 and 1, got %v", v.FDR)
	}
	return nil
}
