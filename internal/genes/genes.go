package genes

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/liupfskygre/inStrain/internal/fasta"
)

// Gene is one called gene. Start and End are 0-based inclusive scaffold
// positions; Sequence is the nucleotide sequence in coding orientation,
// exactly as prodigal emits it.
type Gene struct {
	Name      string
	Scaffold  string
	Start     int
	End       int
	Direction int
	Partial   bool
	Sequence  []byte
}

// Length is the gene's span on the scaffold.
func (g Gene) Length() int { return g.End - g.Start + 1 }

// Contains reports whether a 0-based scaffold position falls inside the
// gene.
func (g Gene) Contains(pos int) bool { return pos >= g.Start && pos <= g.End }

// ParseProdigal reads a prodigal nucleotide FASTA. Headers look like
//
//	>scaffold_1_2 # 1460 # 2257 # -1 # ID=1_2;partial=00;start_type=ATG
//
// with 1-based inclusive coordinates, converted to 0-based here. The
// scaffold name is the gene id minus its trailing _N ordinal.
func ParseProdigal(path string) ([]Gene, error) {
	var genes []Gene
	err := fasta.ParseFile(path, true, func(header string, seq []byte) error {
		gene, err := parseProdigalHeader(header)
		if err != nil {
			return err
		}
		gene.Sequence = append([]byte(nil), seq...)
		genes = append(genes, gene)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(genes) == 0 {
		return nil, fmt.Errorf("no genes in %s", path)
	}
	return genes, nil
}

func parseProdigalHeader(header string) (Gene, error) {
	fields := strings.Split(header, "#")
	if len(fields) < 4 {
		return Gene{}, fmt.Errorf("gene header %q is not prodigal format", header)
	}
	name := strings.Fields(strings.TrimSpace(fields[0]))[0]

	start, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return Gene{}, fmt.Errorf("gene %s: bad start: %w", name, err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return Gene{}, fmt.Errorf("gene %s: bad end: %w", name, err)
	}
	direction, err := strconv.Atoi(strings.TrimSpace(fields[3]))
	if err != nil {
		return Gene{}, fmt.Errorf("gene %s: bad direction: %w", name, err)
	}

	scaffold := name
	if idx := strings.LastIndex(name, "_"); idx > 0 {
		scaffold = name[:idx]
	}

	// partial=00 marks a complete gene.
	partial := !strings.Contains(header, "partial=00")

	return Gene{
		Name:      name,
		Scaffold:  scaffold,
		Start:     start - 1,
		End:       end - 1,
		Direction: direction,
		Partial:   partial,
	}, nil
}

// GroupByScaffold buckets genes by scaffold, preserving input order
// inside each bucket.
func GroupByScaffold(genes []Gene) map[string][]Gene {
	out := make(map[string][]Gene)
	for _, g := range genes {
		out[g.Scaffold] = append(out[g.Scaffold], g)
	}
	return out
}
