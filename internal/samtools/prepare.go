package samtools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PrepareAlignment turns whatever the user handed us into an indexed,
// coordinate-sorted BAM and returns its path. SAM input is sorted into
// workDir. BAM input that already carries an index is used in place;
// otherwise indexing is attempted next to the file, falling back to a
// sorted copy in workDir when that fails (unsorted input or a read-only
// directory).
func (c *Client) PrepareAlignment(ctx context.Context, path, workDir string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("alignment file: %w", err)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("alignment file %s is empty", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".sam":
		return c.sortInto(ctx, path, workDir)
	case ".bam":
		if hasIndex(path) {
			return path, nil
		}
		if err := c.index(ctx, path); err == nil {
			return path, nil
		}
		return c.sortInto(ctx, path, workDir)
	default:
		return "", fmt.Errorf("unrecognized alignment format %q (expected .sam or .bam)", filepath.Ext(path))
	}
}

// FilterAlignments writes a BAM containing only records that pass the
// given samtools filter expression and flag mask, then indexes it. An
// empty expression keeps every primary record.
func (c *Client) FilterAlignments(ctx context.Context, path, out, expression string, minMapQ int) error {
	args := []string{"view", "-b", "-F", strconv.Itoa(FlagUnmapped | FlagSecondary | FlagQCFail | FlagDuplicate | FlagSupplementary)}
	if minMapQ > 0 {
		args = append(args, "-q", strconv.Itoa(minMapQ))
	}
	if expression != "" {
		args = append(args, "-e", expression)
	}
	args = append(args, "-o", out, path)
	if err := c.run(ctx, args, nil); err != nil {
		return fmt.Errorf("filter alignments: %w", err)
	}
	if err := c.index(ctx, out); err != nil {
		return fmt.Errorf("index filtered alignments: %w", err)
	}
	return nil
}

func (c *Client) sortInto(ctx context.Context, path, workDir string) (string, error) {
	if strings.TrimSpace(workDir) == "" {
		return "", errors.New("work directory required to sort alignments")
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", fmt.Errorf("create work directory: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	sorted := filepath.Join(workDir, base+".sorted.bam")
	args := []string{
		"sort",
		"-@", strconv.Itoa(c.sortThreads),
		"-m", c.sortMemory,
		"-o", sorted,
		path,
	}
	if err := c.run(ctx, args, nil); err != nil {
		return "", fmt.Errorf("sort alignments: %w", err)
	}
	if err := c.index(ctx, sorted); err != nil {
		return "", fmt.Errorf("index sorted alignments: %w", err)
	}
	return sorted, nil
}

func (c *Client) index(ctx context.Context, path string) error {
	return c.run(ctx, []string{"index", path}, nil)
}

// hasIndex reports whether a BAI or CSI index newer than the BAM exists.
// A stale index is treated as missing so a reindex happens after the BAM
// is regenerated.
func hasIndex(path string) bool {
	bamInfo, err := os.Stat(path)
	if err != nil {
		return false
	}
	candidates := []string{
		path + ".bai",
		path + ".csi",
		strings.TrimSuffix(path, filepath.Ext(path)) + ".bai",
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err != nil {
			continue
		}
		if info.ModTime().Before(bamInfo.ModTime()) {
			continue
		}
		return true
	}
	return false
}
