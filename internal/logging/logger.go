package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Options controls console logging for a command invocation.
type Options struct {
	// Level is the minimum console level: debug, info, warn or error.
	Level string
	// Format selects the console renderer: console or json.
	Format string
	// Output receives console lines. Defaults to os.Stderr.
	Output io.Writer
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.Level) == "" {
		o.Level = "info"
	}
	if strings.TrimSpace(o.Format) == "" {
		o.Format = "console"
	}
	if o.Output == nil {
		o.Output = os.Stderr
	}
	return o
}

// New builds a console-only logger. Commands that never open a profile
// directory (check, config, version) log through this alone.
func New(opts Options) (*slog.Logger, error) {
	opts = opts.withDefaults()
	handler, err := consoleHandler(opts)
	if err != nil {
		return nil, err
	}
	return slog.New(handler), nil
}

// RunLog couples the console sink with a debug-level JSON file inside a
// profile's log directory. Close flushes and releases the file; the logger
// must not be used afterwards.
type RunLog struct {
	Logger *slog.Logger
	Path   string
	file   *os.File
}

// OpenRunLog creates (or truncates) the log file at path and returns a
// logger that fans out to both the console and the file. The file sink
// always records down to debug regardless of the console level.
func OpenRunLog(opts Options, path string) (*RunLog, error) {
	opts = opts.withDefaults()
	console, err := consoleHandler(opts)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create run log %s: %w", path, err)
	}
	fileLevel := new(slog.LevelVar)
	fileLevel.Set(slog.LevelDebug)
	handler := newFanoutHandler(console, newJSONHandler(file, fileLevel))
	return &RunLog{
		Logger: slog.New(handler),
		Path:   path,
		file:   file,
	}, nil
}

func (r *RunLog) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func consoleHandler(opts Options) (slog.Handler, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	lvl := new(slog.LevelVar)
	lvl.Set(level)
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console":
		return newPrettyHandler(opts.Output, lvl), nil
	case "json":
		return newJSONHandler(opts.Output, lvl), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
}

// ParseLevel converts a config-file level name into a slog level.
func ParseLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", value)
	}
}
