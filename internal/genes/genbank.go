package genes

import (
	"bufio"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/liupfskygre/inStrain/internal/fasta"
)

// Parse reads a gene catalog, picking the parser by extension: .fna, .fa
// or .fasta is prodigal output, .gb, .gbk or .genbank is GenBank flat
// format. A .gz suffix on either is transparent.
func Parse(path string) ([]Gene, error) {
	name := strings.ToLower(strings.TrimSuffix(path, ".gz"))
	switch filepath.Ext(name) {
	case ".fna", ".fa", ".fasta":
		return ParseProdigal(path)
	case ".gb", ".gbk", ".genbank":
		return ParseGenBank(path)
	default:
		return nil, fmt.Errorf("unsupported gene file %s: expected prodigal .fna/.fa or genbank .gb/.gbk", path)
	}
}

// ParseGenBank reads CDS features from a GenBank flat file. Coordinates
// become 0-based inclusive. join() locations keep their overall span, are
// marked partial, and their sequence is spliced from the listed segments;
// complement locations come out reverse-complemented into coding
// orientation.
func ParseGenBank(path string) ([]Gene, error) {
	f, err := fasta.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gene file: %w", err)
	}
	defer f.Close()

	var (
		genes    []Gene
		scaffold string
		pending  []genbankCDS
		current  *genbankCDS
		inOrigin bool
		origin   []byte
	)

	flushRecord := func() error {
		if current != nil {
			pending = append(pending, *current)
			current = nil
		}
		for _, cds := range pending {
			gene, err := cds.resolve(scaffold, origin)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			genes = append(genes, gene)
		}
		pending = pending[:0]
		origin = origin[:0]
		inOrigin = false
		return nil
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "LOCUS"):
			if err := flushRecord(); err != nil {
				return nil, err
			}
			fields := strings.Fields(line)
			if len(fields) < 2 {
				return nil, fmt.Errorf("%s: malformed LOCUS line %q", path, line)
			}
			scaffold = fields[1]
		case strings.HasPrefix(line, "VERSION"):
			if fields := strings.Fields(line); len(fields) >= 2 {
				scaffold = fields[1]
			}
		case line == "//":
			if err := flushRecord(); err != nil {
				return nil, err
			}
			scaffold = ""
		case strings.HasPrefix(line, "ORIGIN"):
			inOrigin = true
			if current != nil {
				pending = append(pending, *current)
				current = nil
			}
		case inOrigin:
			for _, r := range line {
				if r >= 'a' && r <= 'z' {
					origin = append(origin, byte(r)-'a'+'A')
				} else if r >= 'A' && r <= 'Z' {
					origin = append(origin, byte(r))
				}
			}
		case strings.HasPrefix(line, "     ") && len(line) > 5 && line[5] != ' ':
			// New feature. Only CDS features carry genes.
			if current != nil {
				pending = append(pending, *current)
				current = nil
			}
			fields := strings.Fields(line)
			if len(fields) == 2 && fields[0] == "CDS" {
				current = &genbankCDS{location: fields[1]}
			}
		case current != nil && strings.HasPrefix(strings.TrimSpace(line), "/"):
			current.inQualifiers = true
			qualifier := strings.TrimSpace(line)
			if value, ok := qualifierValue(qualifier, "gene"); ok && current.name == "" {
				current.name = value
			}
			if value, ok := qualifierValue(qualifier, "locus_tag"); ok && current.fallback == "" {
				current.fallback = value
			}
		case current != nil && !current.inQualifiers:
			// Long locations wrap onto continuation lines.
			current.location += strings.TrimSpace(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read gene file: %w", err)
	}
	if err := flushRecord(); err != nil {
		return nil, err
	}

	if len(genes) == 0 {
		return nil, fmt.Errorf("no CDS features in %s", path)
	}
	return genes, nil
}

type genbankCDS struct {
	location     string
	name         string
	fallback     string
	inQualifiers bool
}

func (c genbankCDS) resolve(scaffold string, origin []byte) (Gene, error) {
	name := c.name
	if name == "" {
		name = c.fallback
	}
	if name == "" {
		return Gene{}, fmt.Errorf("CDS at %s has neither a gene nor a locus_tag qualifier", c.location)
	}
	loc, err := parseGenbankLocation(c.location)
	if err != nil {
		return Gene{}, fmt.Errorf("gene %s: %w", name, err)
	}

	seq, err := loc.extract(origin)
	if err != nil {
		return Gene{}, fmt.Errorf("gene %s: %w", name, err)
	}

	direction := 1
	if loc.complement {
		direction = -1
	}
	return Gene{
		Name:      name,
		Scaffold:  scaffold,
		Start:     loc.start(),
		End:       loc.end(),
		Direction: direction,
		Partial:   loc.partial,
		Sequence:  seq,
	}, nil
}

// qualifierValue extracts the value of /key="value" or /key=value.
func qualifierValue(line, key string) (string, bool) {
	prefix := "/" + key + "="
	if !strings.HasPrefix(line, prefix) {
		return "", false
	}
	value := strings.TrimPrefix(line, prefix)
	value = strings.Trim(value, `"`)
	if value == "" {
		return "", false
	}
	return value, true
}

// genbankLocation is a parsed feature location: one or more ascending
// spans, optionally reverse-complemented as a whole.
type genbankLocation struct {
	spans      []genbankSpan
	complement bool
	partial    bool
}

type genbankSpan struct {
	start int // 0-based inclusive
	end   int
}

func (l genbankLocation) start() int { return l.spans[0].start }

func (l genbankLocation) end() int { return l.spans[len(l.spans)-1].end }

func (l genbankLocation) extract(origin []byte) ([]byte, error) {
	var seq []byte
	for _, span := range l.spans {
		if span.start < 0 || span.end >= len(origin) {
			return nil, fmt.Errorf("location %d..%d outside the %d bp ORIGIN sequence",
				span.start+1, span.end+1, len(origin))
		}
		seq = append(seq, origin[span.start:span.end+1]...)
	}
	if l.complement {
		seq = ReverseComplement(seq)
	}
	return seq, nil
}

func parseGenbankLocation(text string) (genbankLocation, error) {
	var loc genbankLocation
	text = strings.TrimSpace(text)

	if inner, ok := stripCall(text, "complement"); ok {
		loc.complement = true
		text = inner
	}
	if inner, ok := stripCall(text, "join"); ok {
		loc.partial = true
		text = inner
	} else if inner, ok := stripCall(text, "order"); ok {
		loc.partial = true
		text = inner
	}

	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		// Nested complement on a segment flips the whole gene; mixed
		// orientations inside one join are not representable here.
		if inner, ok := stripCall(part, "complement"); ok {
			loc.complement = true
			part = inner
		}
		if strings.ContainsAny(part, "<>") {
			loc.partial = true
			part = strings.Map(func(r rune) rune {
				if r == '<' || r == '>' {
					return -1
				}
				return r
			}, part)
		}
		span, err := parseGenbankSpan(part)
		if err != nil {
			return genbankLocation{}, err
		}
		loc.spans = append(loc.spans, span)
	}
	if len(loc.spans) == 0 {
		return genbankLocation{}, fmt.Errorf("empty location %q", text)
	}
	return loc, nil
}

func parseGenbankSpan(part string) (genbankSpan, error) {
	first, rest, found := strings.Cut(part, "..")
	start, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return genbankSpan{}, fmt.Errorf("bad location %q", part)
	}
	end := start
	if found {
		if end, err = strconv.Atoi(strings.TrimSpace(rest)); err != nil {
			return genbankSpan{}, fmt.Errorf("bad location %q", part)
		}
	}
	if end < start {
		return genbankSpan{}, fmt.Errorf("inverted location %q", part)
	}
	return genbankSpan{start: start - 1, end: end - 1}, nil
}

func stripCall(text, name string) (string, bool) {
	if strings.HasPrefix(text, name+"(") && strings.HasSuffix(text, ")") {
		return text[len(name)+1 : len(text)-1], true
	}
	return text, false
}
