package readfilter

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Pairing filter levels, matching the profile command's flag values.
const (
	PairingPairedOnly    = "paired_only"
	PairingNonDiscordant = "non_discordant"
	PairingAllReads      = "all_reads"
)

// Criteria is the full set of pair filters.
type Criteria struct {
	MinANI            float64
	MinMapQ           int
	MaxInsertRelative float64
	MinInsert         int
	Pairing           string
	// PriorityReads bypass the pairing requirement entirely.
	PriorityReads map[string]struct{}
}

// ScaffoldReport aggregates pair metrics for one scaffold.
type ScaffoldReport struct {
	Scaffold      string
	Reads         int64
	Pairs         int64
	FilteredPairs int64
	MeanANI       float64
	MeanInsert    float64
	MeanMapQ      float64
}

// Report summarizes a filtering pass over a whole sample.
type Report struct {
	Pairs          int64
	FilteredPairs  int64
	Reads          int64
	MeanPairLength float64
	MedianInsert   float64
	MaxInsert      int
	Scaffolds      []ScaffoldReport
}

// Filter applies criteria to collected pairs. The insert ceiling is
// relative to the median insert of properly paired reads, so it is
// computed here from the unfiltered population first.
func Filter(pairs []Pair, criteria Criteria) ([]Pair, Report) {
	report := Report{MedianInsert: medianInsert(pairs)}
	report.MaxInsert = int(math.Round(report.MedianInsert * criteria.MaxInsertRelative))

	perScaffold := make(map[string]*scaffoldAccumulator)
	var kept []Pair
	var lengthSum int64

	for _, pair := range pairs {
		acc := perScaffold[pair.Scaffold]
		if acc == nil {
			acc = &scaffoldAccumulator{scaffold: pair.Scaffold}
			perScaffold[pair.Scaffold] = acc
		}
		acc.observe(pair)
		report.Pairs++
		report.Reads += int64(pair.Reads)

		if !criteria.keeps(pair, report.MaxInsert) {
			continue
		}
		kept = append(kept, pair)
		acc.keep(pair)
		report.FilteredPairs++
		lengthSum += int64(pair.AlignedLength)
	}

	if report.FilteredPairs > 0 {
		report.MeanPairLength = float64(lengthSum) / float64(report.FilteredPairs)
	}

	names := make([]string, 0, len(perScaffold))
	for name := range perScaffold {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		report.Scaffolds = append(report.Scaffolds, perScaffold[name].report())
	}
	return kept, report
}

// keeps decides one pair against the criteria. maxInsert is the resolved
// absolute ceiling; a ceiling of zero (no paired reads at all) disables
// the upper bound.
func (c Criteria) keeps(pair Pair, maxInsert int) bool {
	if !c.eligible(pair) {
		return false
	}
	if c.MinANI > 0 {
		ani := pair.ANI()
		if ani < 0 || ani < c.MinANI {
			return false
		}
	}
	if c.MinMapQ >= 0 && pair.MapQ <= c.MinMapQ {
		return false
	}
	if pair.Status == StatusPaired {
		if pair.Insert < c.MinInsert {
			return false
		}
		if maxInsert > 0 && pair.Insert > maxInsert {
			return false
		}
	}
	return true
}

func (c Criteria) eligible(pair Pair) bool {
	if len(c.PriorityReads) > 0 {
		if _, ok := c.PriorityReads[pair.Name]; ok {
			return true
		}
	}
	switch c.Pairing {
	case PairingAllReads:
		return true
	case PairingNonDiscordant:
		return pair.Status != StatusDiscordant
	default:
		return pair.Status == StatusPaired
	}
}

// Expression compiles the criteria into a samtools view filter so the
// profiling BAM carries the same reads this package keeps. The pair-level
// insert and identity checks become per-read approximations: tlen stands
// in for the pair insert and each mate's own NM/aligned-length ratio for
// the pair identity.
func (c Criteria) Expression(maxInsert int) string {
	var parts []string
	switch c.Pairing {
	case PairingAllReads:
	case PairingNonDiscordant:
		parts = append(parts, "(!flag.paired || flag.munmap || rname == rnext)")
	default:
		parts = append(parts, "(flag.paired && !flag.munmap && rname == rnext)")
	}
	if c.MinANI > 0 {
		parts = append(parts, fmt.Sprintf("(1.0 - [NM] / (qlen - sclen)) >= %g", c.MinANI))
	}
	if c.MinInsert > 0 || maxInsert > 0 {
		insert := "(tlen == 0"
		if maxInsert > 0 {
			insert += fmt.Sprintf(" || (tlen >= %d && tlen <= %d) || (tlen <= -%d && tlen >= -%d)",
				c.MinInsert, maxInsert, c.MinInsert, maxInsert)
		} else {
			insert += fmt.Sprintf(" || tlen >= %d || tlen <= -%d", c.MinInsert, c.MinInsert)
		}
		insert += ")"
		parts = append(parts, insert)
	}
	return strings.Join(parts, " && ")
}

// MapQThreshold converts the exclusive min_mapq convention into the
// inclusive threshold samtools view -q expects.
func (c Criteria) MapQThreshold() int {
	if c.MinMapQ < 0 {
		return 0
	}
	return c.MinMapQ + 1
}

func medianInsert(pairs []Pair) float64 {
	var inserts []int
	for _, pair := range pairs {
		if pair.Status == StatusPaired && pair.Insert > 0 {
			inserts = append(inserts, pair.Insert)
		}
	}
	if len(inserts) == 0 {
		return 0
	}
	sort.Ints(inserts)
	mid := len(inserts) / 2
	if len(inserts)%2 == 1 {
		return float64(inserts[mid])
	}
	return float64(inserts[mid-1]+inserts[mid]) / 2
}

type scaffoldAccumulator struct {
	scaffold  string
	reads     int64
	pairs     int64
	kept      int64
	aniSum    float64
	insertSum float64
	mapqSum   float64
}

func (a *scaffoldAccumulator) observe(pair Pair) {
	a.pairs++
	a.reads += int64(pair.Reads)
}

func (a *scaffoldAccumulator) keep(pair Pair) {
	a.kept++
	if ani := pair.ANI(); ani >= 0 {
		a.aniSum += ani
	}
	a.insertSum += float64(pair.Insert)
	a.mapqSum += float64(pair.MapQ)
}

func (a *scaffoldAccumulator) report() ScaffoldReport {
	report := ScaffoldReport{
		Scaffold:      a.scaffold,
		Reads:         a.reads,
		Pairs:         a.pairs,
		FilteredPairs: a.kept,
	}
	if a.kept > 0 {
		report.MeanANI = a.aniSum / float64(a.kept)
		report.MeanInsert = a.insertSum / float64(a.kept)
		report.MeanMapQ = a.mapqSum / float64(a.kept)
	}
	return report
}
