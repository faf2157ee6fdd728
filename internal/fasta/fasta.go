// Package fasta reads reference sequences and scaffold lists.
//
// Sequences stream through a callback so multi-gigabyte assemblies never
// load whole. Gzip-compressed files are detected by suffix and unpacked
// transparently.
package fasta

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// Sequence is one reference scaffold's identity.
type Sequence struct {
	Name   string
	Length int
}

// Open returns a reader for path, unwrapping gzip when the name ends in
// .gz.
func Open(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(strings.ToLower(path), ".gz") {
		return file, nil
	}
	zr, err := gzip.NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("open gzip %s: %w", path, err)
	}
	return &gzipReadCloser{zr: zr, file: file}, nil
}

type gzipReadCloser struct {
	zr   *gzip.Reader
	file *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.zr.Read(p) }

func (g *gzipReadCloser) Close() error {
	zErr := g.zr.Close()
	fErr := g.file.Close()
	if zErr != nil {
		return zErr
	}
	return fErr
}

// Parse streams records from r. The callback receives the record name
// (first header token, or the whole header when fullHeader is set) and the
// uppercased sequence. Returning an error from fn stops the parse.
func Parse(r io.Reader, fullHeader bool, fn func(name string, seq []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)

	var name string
	var seq []byte
	started := false

	flush := func() error {
		if !started {
			return nil
		}
		if name == "" {
			return fmt.Errorf("record with empty header")
		}
		return fn(name, seq)
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, ">") {
			if err := flush(); err != nil {
				return err
			}
			started = true
			header := strings.TrimSpace(line[1:])
			if fullHeader {
				name = header
			} else {
				name, _, _ = strings.Cut(header, " ")
			}
			seq = nil
			continue
		}
		if !started {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			return fmt.Errorf("sequence data before first header")
		}
		seq = appendUpper(seq, line)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return flush()
}

func appendUpper(dst []byte, line string) []byte {
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if ch == ' ' || ch == '\t' || ch == '\r' {
			continue
		}
		if ch >= 'a' && ch <= 'z' {
			ch = ch - 'a' + 'A'
		}
		dst = append(dst, ch)
	}
	return dst
}

// ParseFile is Parse against a path, with gzip handling.
func ParseFile(path string, fullHeader bool, fn func(name string, seq []byte) error) error {
	r, err := Open(path)
	if err != nil {
		return err
	}
	defer r.Close()
	if err := Parse(r, fullHeader, fn); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// ReadIndex returns the name and length of every sequence in path without
// keeping sequence data.
func ReadIndex(path string, fullHeader bool) ([]Sequence, error) {
	var sequences []Sequence
	err := ParseFile(path, fullHeader, func(name string, seq []byte) error {
		sequences = append(sequences, Sequence{Name: name, Length: len(seq)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(sequences) == 0 {
		return nil, fmt.Errorf("%s contains no sequences", path)
	}
	return sequences, nil
}

// ReadNameList loads a scaffold subset file. FASTA input yields its
// headers; anything else is read as one name per line.
func ReadNameList(path string) (map[string]struct{}, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	names := make(map[string]struct{})
	text := string(data)
	if strings.HasPrefix(strings.TrimSpace(text), ">") {
		err := Parse(strings.NewReader(text), false, func(name string, _ []byte) error {
			names[name] = struct{}{}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else {
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			names[line] = struct{}{}
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%s names no scaffolds", path)
	}
	return names, nil
}
