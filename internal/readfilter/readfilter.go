// Package readfilter turns raw alignments into filtered read pairs.
//
// Alignments stream in coordinate order, so mates of the same pair appear
// within one scaffold's block. Pairs are assembled per scaffold, scored
// (identity to reference, mapping quality, insert size, pairing status)
// and then judged against the filter criteria. The same criteria compile
// to a samtools view expression so the BAM used for pileup profiling
// matches the pairs counted here.
package readfilter

import (
	"context"
	"log/slog"

	"github.com/liupfskygre/inStrain/internal/logging"
	"github.com/liupfskygre/inStrain/internal/samtools"
)

// Status classifies how a pair's mates mapped.
type Status int

const (
	// StatusPaired means both mates mapped to the same scaffold.
	StatusPaired Status = iota
	// StatusSingleton means the mate is unmapped (or the read is unpaired).
	StatusSingleton
	// StatusDiscordant means the mate mapped to a different scaffold.
	StatusDiscordant
)

func (s Status) String() string {
	switch s {
	case StatusPaired:
		return "paired"
	case StatusSingleton:
		return "singleton"
	case StatusDiscordant:
		return "discordant"
	default:
		return "unknown"
	}
}

// Pair is one read pair (or half pair) mapped to a scaffold.
type Pair struct {
	Name     string
	Scaffold string
	Status   Status
	// Reads is 1 or 2 depending on how many mates were observed here.
	Reads int
	// Mismatches sums the NM tags of the observed mates; -1 when any mate
	// lacked the tag.
	Mismatches int
	// AlignedLength sums the aligned query bases of the observed mates.
	AlignedLength int
	// MapQ is the higher mate mapping quality.
	MapQ int
	// Insert is the outer template span for proper pairs, 0 otherwise.
	Insert int
}

// ANI is the pair's identity to the reference: 1 - mismatches / aligned
// length. Pairs with unknown mismatch counts report -1.
func (p Pair) ANI() float64 {
	if p.Mismatches < 0 || p.AlignedLength == 0 {
		return -1
	}
	return 1 - float64(p.Mismatches)/float64(p.AlignedLength)
}

// CollectStats summarizes what the alignment stream contained.
type CollectStats struct {
	// Records is every primary mapped alignment seen.
	Records int64
	// Skipped counts records dropped before pairing: secondary,
	// supplementary, duplicate, QC-fail or unmapped.
	Skipped int64
	// OffTarget counts records on scaffolds outside the requested set.
	OffTarget int64
	// MissingNM counts pairs with no NM tag on at least one mate.
	MissingNM int64
}

// Collect streams bam once and assembles pairs. When scaffolds is
// non-empty, records on other scaffolds are skipped but still counted in
// stats. The logger only receives debug detail.
func Collect(ctx context.Context, client *samtools.Client, bam string, scaffolds map[string]struct{}, logger *slog.Logger) ([]Pair, CollectStats, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	var pairs []Pair
	var stats CollectStats
	pending := make(map[string]samtools.Alignment)
	current := ""

	flush := func() {
		for _, mate := range pending {
			pairs = append(pairs, newHalfPair(mate, &stats))
		}
		clear(pending)
	}

	err := client.StreamAlignments(ctx, bam, "", func(record samtools.Alignment) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !record.Primary() {
			stats.Skipped++
			return nil
		}
		stats.Records++
		if len(scaffolds) > 0 {
			if _, ok := scaffolds[record.Scaffold]; !ok {
				stats.OffTarget++
				return nil
			}
		}
		if record.Scaffold != current {
			flush()
			current = record.Scaffold
		}
		mate, ok := pending[record.Name]
		if !ok {
			pending[record.Name] = record
			return nil
		}
		delete(pending, record.Name)
		pairs = append(pairs, newFullPair(mate, record, &stats))
		return nil
	})
	if err != nil {
		return nil, stats, err
	}
	flush()

	logger.Debug("collected read pairs",
		logging.Int("pairs", len(pairs)),
		logging.Int64("records", stats.Records),
		logging.Int64("skipped", stats.Skipped),
		logging.Int64("off_target", stats.OffTarget),
	)
	return pairs, stats, nil
}

func newFullPair(first, second samtools.Alignment, stats *CollectStats) Pair {
	pair := Pair{
		Name:          first.Name,
		Scaffold:      first.Scaffold,
		Status:        StatusPaired,
		Reads:         2,
		AlignedLength: first.AlignedLength() + second.AlignedLength(),
		MapQ:          max(first.MapQ, second.MapQ),
		Insert:        abs(first.TemplateLen),
	}
	if pair.Insert == 0 {
		pair.Insert = abs(second.TemplateLen)
	}
	if first.Mismatches < 0 || second.Mismatches < 0 {
		pair.Mismatches = -1
		stats.MissingNM++
	} else {
		pair.Mismatches = first.Mismatches + second.Mismatches
	}
	return pair
}

// newHalfPair records a mate whose partner never showed up on this
// scaffold: either the mate is unmapped or it mapped elsewhere.
func newHalfPair(record samtools.Alignment, stats *CollectStats) Pair {
	status := StatusSingleton
	if record.Paired() && record.MateMapped() && record.MateScaffold != record.Scaffold {
		status = StatusDiscordant
	}
	pair := Pair{
		Name:          record.Name,
		Scaffold:      record.Scaffold,
		Status:        status,
		Reads:         1,
		Mismatches:    record.Mismatches,
		AlignedLength: record.AlignedLength(),
		MapQ:          record.MapQ,
	}
	if record.Mismatches < 0 {
		stats.MissingNM++
	}
	return pair
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
