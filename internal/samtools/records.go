package samtools

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Sequence describes one reference sequence from a BAM header.
type Sequence struct {
	Name   string
	Length int
}

// IdxStat summarizes mapping counts for one reference sequence.
type IdxStat struct {
	Scaffold string
	Length   int
	Mapped   int64
	Unmapped int64
}

// SAM flag bits.
const (
	FlagPaired        = 0x1
	FlagProperPair    = 0x2
	FlagUnmapped      = 0x4
	FlagMateUnmapped  = 0x8
	FlagReverse       = 0x10
	FlagRead1         = 0x40
	FlagRead2         = 0x80
	FlagSecondary     = 0x100
	FlagQCFail        = 0x200
	FlagDuplicate     = 0x400
	FlagSupplementary = 0x800
)

// Alignment is one mapped read parsed from samtools view output. Position
// is 1-based as reported by samtools.
type Alignment struct {
	Name         string
	Flag         int
	Scaffold     string
	Pos          int
	MapQ         int
	Cigar        string
	MateScaffold string
	MatePos      int
	TemplateLen  int
	Length       int
	Mismatches   int
}

func (a Alignment) Paired() bool        { return a.Flag&FlagPaired != 0 }
func (a Alignment) ProperPair() bool    { return a.Flag&FlagProperPair != 0 }
func (a Alignment) Unmapped() bool      { return a.Flag&FlagUnmapped != 0 }
func (a Alignment) MateMapped() bool    { return a.Flag&FlagPaired != 0 && a.Flag&FlagMateUnmapped == 0 }
func (a Alignment) Read1() bool         { return a.Flag&FlagRead1 != 0 }
func (a Alignment) Secondary() bool     { return a.Flag&FlagSecondary != 0 }
func (a Alignment) Duplicate() bool     { return a.Flag&FlagDuplicate != 0 }
func (a Alignment) Supplementary() bool { return a.Flag&FlagSupplementary != 0 }

// Primary reports whether the record is a primary mapped alignment worth
// counting.
func (a Alignment) Primary() bool {
	return a.Flag&(FlagUnmapped|FlagSecondary|FlagSupplementary|FlagQCFail|FlagDuplicate) == 0
}

// AlignedLength counts query bases that participate in the alignment:
// CIGAR M, I, = and X operations. Soft and hard clips are excluded, so the
// mismatch count from the NM tag divides against comparable territory.
func (a Alignment) AlignedLength() int {
	total := 0
	n := 0
	for i := 0; i < len(a.Cigar); i++ {
		ch := a.Cigar[i]
		if ch >= '0' && ch <= '9' {
			n = n*10 + int(ch-'0')
			continue
		}
		switch ch {
		case 'M', 'I', '=', 'X':
			total += n
		}
		n = 0
	}
	return total
}

// parseAlignment decodes one samtools view line. Tag fields beyond the
// mandatory eleven are scanned only for NM.
func parseAlignment(line string) (Alignment, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 11 {
		return Alignment{}, fmt.Errorf("alignment record has %d fields, want at least 11", len(fields))
	}
	flag, err := strconv.Atoi(fields[1])
	if err != nil {
		return Alignment{}, fmt.Errorf("alignment flag %q: %w", fields[1], err)
	}
	pos, err := strconv.Atoi(fields[3])
	if err != nil {
		return Alignment{}, fmt.Errorf("alignment position %q: %w", fields[3], err)
	}
	mapq, err := strconv.Atoi(fields[4])
	if err != nil {
		return Alignment{}, fmt.Errorf("alignment mapq %q: %w", fields[4], err)
	}
	matePos, _ := strconv.Atoi(fields[7])
	tlen, _ := strconv.Atoi(fields[8])

	record := Alignment{
		Name:         fields[0],
		Flag:         flag,
		Scaffold:     fields[2],
		Pos:          pos,
		MapQ:         mapq,
		Cigar:        fields[5],
		MateScaffold: fields[6],
		MatePos:      matePos,
		TemplateLen:  tlen,
		Mismatches:   -1,
	}
	if record.MateScaffold == "=" {
		record.MateScaffold = record.Scaffold
	}
	if seq := fields[9]; seq != "*" {
		record.Length = len(seq)
	} else {
		record.Length = record.AlignedLength()
	}
	for _, tag := range fields[11:] {
		if value, ok := strings.CutPrefix(tag, "NM:i:"); ok {
			if nm, err := strconv.Atoi(value); err == nil {
				record.Mismatches = nm
			}
			break
		}
	}
	return record, nil
}

// Header returns the reference sequences declared in the alignment header.
func (c *Client) Header(ctx context.Context, path string) ([]Sequence, error) {
	var sequences []Sequence
	var parseErr error
	err := c.run(ctx, []string{"view", "-H", path}, func(line string) error {
		if !strings.HasPrefix(line, "@SQ") {
			return nil
		}
		var name string
		length := -1
		for _, field := range strings.Split(line, "\t")[1:] {
			if value, ok := strings.CutPrefix(field, "SN:"); ok {
				name = value
			} else if value, ok := strings.CutPrefix(field, "LN:"); ok {
				if length, parseErr = strconv.Atoi(value); parseErr != nil {
					return fmt.Errorf("header length %q: %w", value, parseErr)
				}
			}
		}
		if name != "" && length >= 0 {
			sequences = append(sequences, Sequence{Name: name, Length: length})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(sequences) == 0 {
		return nil, fmt.Errorf("%s declares no reference sequences", path)
	}
	return sequences, nil
}

// StreamAlignments invokes fn for every alignment record in path,
// optionally restricted to a region. Returning ErrStop from fn ends the
// stream without error.
func (c *Client) StreamAlignments(ctx context.Context, path, region string, fn func(Alignment) error) error {
	args := []string{"view", path}
	if region != "" {
		args = append(args, region)
	}
	return c.run(ctx, args, func(line string) error {
		record, err := parseAlignment(line)
		if err != nil {
			return err
		}
		return fn(record)
	})
}

// IdxStats reports per-scaffold mapping counts from the BAM index.
func (c *Client) IdxStats(ctx context.Context, path string) ([]IdxStat, error) {
	var stats []IdxStat
	err := c.run(ctx, []string{"idxstats", path}, func(line string) error {
		fields := strings.Split(line, "\t")
		if len(fields) < 4 || fields[0] == "*" {
			return nil
		}
		length, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("idxstats length %q: %w", fields[1], err)
		}
		mapped, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return fmt.Errorf("idxstats mapped count %q: %w", fields[2], err)
		}
		unmapped, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return fmt.Errorf("idxstats unmapped count %q: %w", fields[3], err)
		}
		stats = append(stats, IdxStat{Scaffold: fields[0], Length: length, Mapped: mapped, Unmapped: unmapped})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
