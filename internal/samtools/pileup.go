package samtools

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Pileup is one reference position decoded from samtools mpileup output.
// Pos is 1-based. Counts holds A, C, G, T in that order; reads showing a
// deletion at the position are tallied separately.
type Pileup struct {
	Scaffold  string
	Pos       int
	Ref       byte
	Depth     int
	Counts    [4]int
	Deletions int
}

// Coverage is the number of reads contributing a base call, excluding
// deletions and skips.
func (p Pileup) Coverage() int {
	return p.Counts[0] + p.Counts[1] + p.Counts[2] + p.Counts[3]
}

// BaseIndex maps a nucleotide to its slot in Counts. ok is false for
// ambiguity codes.
func BaseIndex(base byte) (int, bool) {
	switch base {
	case 'A', 'a':
		return 0, true
	case 'C', 'c':
		return 1, true
	case 'G', 'g':
		return 2, true
	case 'T', 't':
		return 3, true
	default:
		return 0, false
	}
}

// IndexBase is the inverse of BaseIndex.
func IndexBase(idx int) byte {
	return "ACGT"[idx]
}

// StreamPileup walks per-position base counts for one BAM against its
// reference FASTA. minBaseQuality is passed to mpileup -Q; region may be
// empty for the whole alignment. Returning ErrStop from fn ends the
// stream without error.
func (c *Client) StreamPileup(ctx context.Context, bam, fasta, region string, minBaseQuality int, fn func(Pileup) error) error {
	args := []string{
		"mpileup",
		"-B",
		"-d", strconv.Itoa(c.maxDepth),
		"-Q", strconv.Itoa(minBaseQuality),
	}
	if fasta != "" {
		args = append(args, "-f", fasta)
	}
	if region != "" {
		args = append(args, "-r", region)
	}
	args = append(args, bam)
	return c.run(ctx, args, func(line string) error {
		pileup, err := parsePileupLine(line)
		if err != nil {
			return err
		}
		return fn(pileup)
	})
}

// parsePileupLine decodes one mpileup row: scaffold, 1-based position,
// reference base, depth, encoded bases, qualities.
func parsePileupLine(line string) (Pileup, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 5 {
		return Pileup{}, fmt.Errorf("pileup row has %d fields, want at least 5", len(fields))
	}
	pos, err := strconv.Atoi(fields[1])
	if err != nil {
		return Pileup{}, fmt.Errorf("pileup position %q: %w", fields[1], err)
	}
	depth, err := strconv.Atoi(fields[3])
	if err != nil {
		return Pileup{}, fmt.Errorf("pileup depth %q: %w", fields[3], err)
	}
	pileup := Pileup{
		Scaffold: fields[0],
		Pos:      pos,
		Depth:    depth,
	}
	if ref := fields[2]; len(ref) > 0 {
		pileup.Ref = upperBase(ref[0])
	}
	if err := decodeBases(fields[4], &pileup); err != nil {
		return Pileup{}, fmt.Errorf("pileup bases at %s:%d: %w", pileup.Scaffold, pileup.Pos, err)
	}
	return pileup, nil
}

// decodeBases walks the mpileup base string. '.' and ',' refer to the
// reference base, explicit letters to substitutions. Read starts carry a
// mapping quality byte after '^'; indel runs are length-prefixed and
// describe the following positions, so both are skipped here. '*' marks a
// read with a deletion spanning this position.
func decodeBases(encoded string, pileup *Pileup) error {
	refIdx, refKnown := BaseIndex(pileup.Ref)
	i := 0
	for i < len(encoded) {
		ch := encoded[i]
		switch ch {
		case '.', ',':
			if refKnown {
				pileup.Counts[refIdx]++
			}
			i++
		case '^':
			// Read start: next byte is mapping quality, not a base.
			i += 2
		case '$':
			i++
		case '+', '-':
			i++
			start := i
			for i < len(encoded) && encoded[i] >= '0' && encoded[i] <= '9' {
				i++
			}
			if start == i {
				return fmt.Errorf("indel marker without length at offset %d", start-1)
			}
			n, err := strconv.Atoi(encoded[start:i])
			if err != nil {
				return err
			}
			i += n
		case '*', '#':
			pileup.Deletions++
			i++
		case '>', '<':
			// Reference skip from spliced alignments; not a base call.
			i++
		default:
			if idx, ok := BaseIndex(ch); ok {
				pileup.Counts[idx]++
			}
			i++
		}
	}
	if i > len(encoded) {
		return fmt.Errorf("truncated base string %q", encoded)
	}
	return nil
}

func upperBase(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}
