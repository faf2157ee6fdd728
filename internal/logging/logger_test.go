package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(Options{Level: "verbose"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestConsoleLineShape(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	component := NewComponentLogger(logger, "pipeline")
	component.Info("filtered reads", Int("kept", 1200), Int("total", 2000))

	line := buf.String()
	if !strings.Contains(line, "INFO") {
		t.Errorf("missing level label: %q", line)
	}
	if !strings.Contains(line, "[pipeline]") {
		t.Errorf("component not hoisted into header: %q", line)
	}
	if !strings.Contains(line, "kept=1200") || !strings.Contains(line, "total=2000") {
		t.Errorf("missing trailing fields: %q", line)
	}
}

func TestConsoleQuotesAwkwardValues(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("msg", String("path", "/tmp/with space/file.bam"))
	if !strings.Contains(buf.String(), `path="/tmp/with space/file.bam"`) {
		t.Errorf("value with spaces not quoted: %q", buf.String())
	}
}

func TestConsoleLevelGate(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug line leaked through info console: %q", buf.String())
	}
}

func TestOpenRunLogSplitsLevels(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "log", "run.log")
	run, err := OpenRunLog(Options{Level: "info", Output: &console}, path)
	if err != nil {
		t.Fatalf("OpenRunLog: %v", err)
	}
	run.Logger.Info("visible everywhere")
	run.Logger.Debug("file only", String("detail", "x"))
	Checkpoint(run.Logger, "filter_reads", StateStart)
	if err := run.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if strings.Contains(console.String(), "file only") {
		t.Error("debug line reached the console")
	}
	if !strings.Contains(console.String(), "visible everywhere") {
		t.Error("info line missing from console")
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open run log: %v", err)
	}
	defer file.Close()

	var messages []string
	var sawCheckpoint bool
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("run log line is not JSON: %q", scanner.Text())
		}
		if _, ok := entry["ts"]; !ok {
			t.Fatalf("run log line missing ts: %q", scanner.Text())
		}
		msg, _ := entry["msg"].(string)
		messages = append(messages, msg)
		if entry[FieldEventType] == EventCheckpoint {
			sawCheckpoint = true
			if entry[FieldCheckpoint] != "filter_reads" || entry[FieldState] != StateStart {
				t.Errorf("checkpoint fields wrong: %v", entry)
			}
		}
	}
	joined := strings.Join(messages, "\n")
	if !strings.Contains(joined, "file only") {
		t.Error("debug line missing from file sink")
	}
	if !sawCheckpoint {
		t.Error("checkpoint event missing from file sink")
	}
}
