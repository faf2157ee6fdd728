package genomewide

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// FallbackGenome names the single genome used when no stb is given.
const FallbackGenome = "all_scaffolds"

// ParseSTB reads scaffold-to-genome assignments from one or more files.
// Later files override earlier ones for the same scaffold. Blank lines
// and # comments are skipped.
func ParseSTB(paths []string) (map[string]string, error) {
	assignments := make(map[string]string)
	for _, path := range paths {
		if err := parseSTBFile(path, assignments); err != nil {
			return nil, err
		}
	}
	if len(assignments) == 0 {
		return nil, fmt.Errorf("no scaffold assignments in %s", strings.Join(paths, ", "))
	}
	return assignments, nil
}

func parseSTBFile(path string, assignments map[string]string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open stb file: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) != 2 || fields[0] == "" || fields[1] == "" {
			return fmt.Errorf("%s:%d: want scaffold<tab>genome, got %q", path, line, text)
		}
		assignments[fields[0]] = fields[1]
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stb file %s: %w", path, err)
	}
	return nil
}

// FallbackSTB assigns every scaffold to the single fallback genome.
func FallbackSTB(scaffolds []string) map[string]string {
	assignments := make(map[string]string, len(scaffolds))
	for _, scaffold := range scaffolds {
		assignments[scaffold] = FallbackGenome
	}
	return assignments
}
