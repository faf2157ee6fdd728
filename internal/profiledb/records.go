package profiledb

import (
	"time"

	"github.com/liupfskygre/inStrain/internal/snv"
)

// Run records one command invocation against the profile.
type Run struct {
	ID        string
	Operation string
	BAMPath   string
	FastaPath string
	StartedAt time.Time
	// FinishedAt stays zero until the run completes; interrupted runs are
	// recognizable by it.
	FinishedAt time.Time
	Version    string
	// Settings holds the normalized request as a JSON document.
	Settings string
}

// Finished reports whether the run recorded a completion time.
func (r Run) Finished() bool { return !r.FinishedAt.IsZero() }

// CallRecord is a stored divergent site plus its gene annotation, which
// arrives later when profile_genes runs.
type CallRecord struct {
	Scaffold     string
	Call         snv.Call
	Gene         string
	MutationType string
	Mutation     string
}

// CallAnnotation attaches gene context to one stored site.
type CallAnnotation struct {
	Scaffold     string
	Position     int
	Gene         string
	MutationType string
	Mutation     string
}

// GeneRecord summarizes one gene after profiling. Start and End are
// 0-based inclusive scaffold positions.
type GeneRecord struct {
	Gene          string
	Scaffold      string
	Start         int
	End           int
	Direction     int
	Coverage      float64
	Breadth       float64
	NuclDiversity float64
	SNVCount      int
	SNSCount      int
	NMutations    int
	SMutations    int
}

// GenomeRecord aggregates scaffold metrics over one genome.
type GenomeRecord struct {
	Genome string
	// Scaffolds counts scaffolds assigned to the genome; Detected counts
	// those with any coverage.
	Scaffolds       int
	Detected        int
	Length          int
	Coverage        float64
	Breadth         float64
	BreadthMinCov   float64
	BreadthExpected float64
	NuclDiversity   float64
	DivergentSites  int
	SNVCount        int
	SNSCount        int
	ConANIReference float64
	PopANIReference float64
	FilteredPairs   int64
}
