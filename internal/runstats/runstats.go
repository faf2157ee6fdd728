package runstats

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/liupfskygre/inStrain/internal/logging"
	"github.com/liupfskygre/inStrain/internal/profiledb"
)

// Span is one named checkpoint interval from the run log.
type Span struct {
	Name  string
	Start time.Time
	End   time.Time
}

// Finished reports whether the end checkpoint was recorded.
func (s Span) Finished() bool { return !s.End.IsZero() }

func (s Span) Duration() time.Duration {
	if !s.Finished() {
		return 0
	}
	return s.End.Sub(s.Start)
}

// Stats summarizes one run log.
type Stats struct {
	Path  string
	First time.Time
	Last  time.Time
	// Records counts parsed log lines; Unparsed counts lines that were
	// not valid JSON, such as a truncated tail after a crash.
	Records  int
	Unparsed int
	Warnings int
	Errors   int
	Spans    []Span
}

// WallTime is the distance between the first and last record.
func (s *Stats) WallTime() time.Duration {
	if s.First.IsZero() || s.Last.IsZero() {
		return 0
	}
	return s.Last.Sub(s.First)
}

type logRecord struct {
	TS         string `json:"ts"`
	Level      string `json:"level"`
	Msg        string `json:"msg"`
	EventType  string `json:"event_type"`
	Checkpoint string `json:"checkpoint"`
	State      string `json:"state"`
}

// ParseLog reads a run log file written by logging.OpenRunLog.
func ParseLog(path string) (*Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	defer func() { _ = f.Close() }()

	stats := &Stats{Path: path}
	open := make(map[string]time.Time)
	var order []string

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec logRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			stats.Unparsed++
			continue
		}
		stats.Records++
		ts, err := time.Parse(time.RFC3339Nano, rec.TS)
		if err == nil {
			if stats.First.IsZero() || ts.Before(stats.First) {
				stats.First = ts
			}
			if ts.After(stats.Last) {
				stats.Last = ts
			}
		}
		switch rec.Level {
		case "warn":
			stats.Warnings++
		case "error":
			stats.Errors++
		}
		if rec.EventType != logging.EventCheckpoint || rec.Checkpoint == "" {
			continue
		}
		switch rec.State {
		case logging.StateStart:
			if _, seen := open[rec.Checkpoint]; !seen {
				order = append(order, rec.Checkpoint)
			}
			open[rec.Checkpoint] = ts
		case logging.StateEnd:
			start, seen := open[rec.Checkpoint]
			if !seen {
				continue
			}
			delete(open, rec.Checkpoint)
			stats.Spans = append(stats.Spans, Span{Name: rec.Checkpoint, Start: start, End: ts})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read run log: %w", err)
	}
	if stats.Records == 0 {
		return nil, fmt.Errorf("%s holds no log records", path)
	}

	// Spans that never saw their end checkpoint still get reported, in
	// the order they started.
	for _, name := range order {
		if start, stillOpen := open[name]; stillOpen {
			stats.Spans = append(stats.Spans, Span{Name: name, Start: start})
		}
	}
	sort.SliceStable(stats.Spans, func(i, j int) bool {
		return stats.Spans[i].Start.Before(stats.Spans[j].Start)
	})
	return stats, nil
}

// FileSize is one output artifact and its size on disk.
type FileSize struct {
	Name  string
	Bytes int64
}

// OutputSizes lists the files a profile run left behind, relative to the
// profile root. Missing subdirectories are skipped.
func OutputSizes(layout profiledb.Layout) ([]FileSize, error) {
	var sizes []FileSize
	for _, dir := range []string{layout.OutputDir(), layout.RawDataDir(), layout.FiguresDir(), layout.LogDir()} {
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
			}
			sizes = append(sizes, FileSize{
				Name:  filepath.Join(filepath.Base(dir), entry.Name()),
				Bytes: info.Size(),
			})
		}
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i].Name < sizes[j].Name })
	return sizes, nil
}

// SummaryRows builds the headline table: header row first.
func SummaryRows(stats *Stats) [][]string {
	return [][]string{
		{"metric", "value"},
		{"wall time", stats.WallTime().Round(10 * time.Millisecond).String()},
		{"log records", humanize.Comma(int64(stats.Records))},
		{"warnings", humanize.Comma(int64(stats.Warnings))},
		{"errors", humanize.Comma(int64(stats.Errors))},
	}
}

// SpanRows builds the per-stage table: header row first.
func SpanRows(stats *Stats) [][]string {
	rows := [][]string{{"stage", "wall_time", "started", "finished"}}
	for _, span := range stats.Spans {
		duration := "unfinished"
		finished := ""
		if span.Finished() {
			duration = span.Duration().Round(10 * time.Millisecond).String()
			finished = span.End.Format("15:04:05")
		}
		rows = append(rows, []string{
			span.Name,
			duration,
			span.Start.Format("15:04:05"),
			finished,
		})
	}
	return rows
}

// SizeRows builds the output-size table: header row first.
func SizeRows(sizes []FileSize) [][]string {
	rows := [][]string{{"file", "size"}}
	var total int64
	for _, fs := range sizes {
		rows = append(rows, []string{fs.Name, humanize.Bytes(uint64(fs.Bytes))})
		total += fs.Bytes
	}
	if len(sizes) > 1 {
		rows = append(rows, []string{"total", humanize.Bytes(uint64(total))})
	}
	return rows
}
