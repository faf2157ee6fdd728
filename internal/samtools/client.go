package samtools

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Minimum supported samtools release. Expression filtering (view -e) first
// shipped in 1.12, and the read preparation path depends on it.
const (
	minMajor = 1
	minMinor = 12
)

// ErrStop terminates a streaming call early without reporting an error to
// the caller.
var ErrStop = errors.New("stop streaming")

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string) error) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithSortThreads sets the thread count passed to samtools sort.
func WithSortThreads(threads int) Option {
	return func(c *Client) {
		if threads > 0 {
			c.sortThreads = threads
		}
	}
}

// WithSortMemory sets the per-thread memory limit passed to samtools sort.
func WithSortMemory(memory string) Option {
	return func(c *Client) {
		if strings.TrimSpace(memory) != "" {
			c.sortMemory = memory
		}
	}
}

// WithMaxDepth caps the per-position depth considered by mpileup.
func WithMaxDepth(depth int) Option {
	return func(c *Client) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// WithTimeout cancels any single samtools invocation after d. Zero leaves
// commands uninterrupted.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// Client wraps samtools CLI interactions.
type Client struct {
	binary      string
	exec        Executor
	sortThreads int
	sortMemory  string
	maxDepth    int
	timeout     time.Duration
}

// New constructs a samtools client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("samtools binary required")
	}
	client := &Client{
		binary:      binary,
		exec:        commandExecutor{},
		sortThreads: 2,
		sortMemory:  "768M",
		maxDepth:    100000,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the configured executable name.
func (c *Client) Binary() string { return c.binary }

// Version reports the samtools release the client resolves to.
type Version struct {
	Major int
	Minor int
	Raw   string
}

func (v Version) String() string {
	if v.Raw != "" {
		return v.Raw
	}
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast reports whether the version is at or above major.minor.
func (v Version) AtLeast(major, minor int) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

// Version runs samtools --version and parses the release line.
func (c *Client) Version(ctx context.Context) (Version, error) {
	var first string
	err := c.run(ctx, []string{"--version"}, func(line string) error {
		if first == "" && strings.TrimSpace(line) != "" {
			first = strings.TrimSpace(line)
			return ErrStop
		}
		return nil
	})
	if err != nil {
		return Version{}, fmt.Errorf("samtools --version: %w", err)
	}
	version, ok := parseVersionLine(first)
	if !ok {
		return Version{}, fmt.Errorf("unrecognized samtools version output %q", first)
	}
	return version, nil
}

// EnsureMinimum fails when the installed samtools predates the supported
// release.
func (c *Client) EnsureMinimum(ctx context.Context) (Version, error) {
	version, err := c.Version(ctx)
	if err != nil {
		return Version{}, err
	}
	if !version.AtLeast(minMajor, minMinor) {
		return version, fmt.Errorf("samtools %s is too old; %d.%d or newer is required", version, minMajor, minMinor)
	}
	return version, nil
}

// MinimumVersion returns the oldest supported samtools release as a string.
func MinimumVersion() string {
	return fmt.Sprintf("%d.%d", minMajor, minMinor)
}

func parseVersionLine(line string) (Version, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 || !strings.EqualFold(fields[0], "samtools") {
		return Version{}, false
	}
	raw := fields[1]
	parts := strings.SplitN(raw, ".", 3)
	if len(parts) < 2 {
		return Version{}, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return Version{}, false
	}
	minorDigits := parts[1]
	for i := 0; i < len(minorDigits); i++ {
		if minorDigits[i] < '0' || minorDigits[i] > '9' {
			minorDigits = minorDigits[:i]
			break
		}
	}
	minor, err := strconv.Atoi(minorDigits)
	if err != nil {
		return Version{}, false
	}
	return Version{Major: major, Minor: minor, Raw: raw}, true
}

// run invokes samtools with the client timeout applied.
func (c *Client) run(ctx context.Context, args []string, onStdout func(string) error) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.exec.Run(ctx, c.binary, args, onStdout)
}

// maxLineBytes bounds a single stdout line. SAM records carry full read
// sequences, so the default bufio limit is far too small.
const maxLineBytes = 64 * 1024 * 1024

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string) error) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", binary, err)
	}

	// Drain stderr concurrently, keeping only a tail for diagnostics.
	var wg sync.WaitGroup
	var stderrTail tailBuffer
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
		for scanner.Scan() {
			stderrTail.Add(scanner.Text())
		}
	}()

	var callbackErr error
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 256*1024), maxLineBytes)
	for scanner.Scan() {
		if onStdout == nil {
			continue
		}
		if err := onStdout(scanner.Text()); err != nil {
			callbackErr = err
			break
		}
	}
	scanErr := scanner.Err()

	if callbackErr != nil || scanErr != nil {
		_ = cmd.Process.Kill()
	}
	wg.Wait()
	waitErr := cmd.Wait()

	if callbackErr != nil {
		if errors.Is(callbackErr, ErrStop) {
			return nil
		}
		return callbackErr
	}
	if scanErr != nil {
		return fmt.Errorf("read %s output: %w", binary, scanErr)
	}
	if waitErr != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s %s: %w", binary, firstArg(args), ctx.Err())
		}
		detail := stderrTail.String()
		if detail != "" {
			return fmt.Errorf("%s %s: %w: %s", binary, firstArg(args), waitErr, detail)
		}
		return fmt.Errorf("%s %s: %w", binary, firstArg(args), waitErr)
	}
	return nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// tailBuffer retains the last few lines written to it.
type tailBuffer struct {
	mu    sync.Mutex
	lines []string
}

const tailKeep = 5

func (t *tailBuffer) Add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > tailKeep {
		t.lines = t.lines[len(t.lines)-tailKeep:]
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "; ")
}
