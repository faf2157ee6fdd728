package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/liupfskygre/inStrain/internal/config"
	"github.com/liupfskygre/inStrain/internal/logging"
	"github.com/liupfskygre/inStrain/internal/request"
	"github.com/liupfskygre/inStrain/internal/samtools"
)

// Controller executes validated requests. One instance serves the whole
// process.
type Controller struct {
	cfg      config.Config
	console  *slog.Logger
	out      io.Writer
	progress io.Writer
}

// Option adjusts a Controller beyond its required collaborators.
type Option func(*Controller)

// WithProgress redirects progress bars. Pass io.Discard when stdout is
// not a terminal; banners and tables still go to out.
func WithProgress(w io.Writer) Option {
	return func(c *Controller) {
		if w != nil {
			c.progress = w
		}
	}
}

// New builds a controller. console carries operator-facing log lines;
// out receives banners and result tables.
func New(cfg config.Config, console *slog.Logger, out io.Writer, opts ...Option) *Controller {
	if console == nil {
		console = logging.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	c := &Controller{cfg: cfg, console: console, out: out, progress: out}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute runs one request to completion. Errors are *Failure values
// unless the request itself was unusable.
func (c *Controller) Execute(ctx context.Context, req request.Request) error {
	started := time.Now()
	op := string(req.Operation())
	c.console.Info("starting operation", logging.String(logging.FieldOperation, op))

	var err error
	switch r := req.(type) {
	case *request.Profile:
		err = c.runProfile(ctx, r)
	case *request.Compare:
		err = c.runCompare(ctx, r)
	case *request.FilterReads:
		err = c.runFilterReads(ctx, r)
	case *request.ProfileGenes:
		err = c.runProfileGenes(ctx, r)
	case *request.GenomeWide:
		err = c.runGenomeWide(ctx, r)
	case *request.QuickProfile:
		err = c.runQuickProfile(ctx, r)
	case *request.Plot:
		err = c.runPlot(ctx, r)
	case *request.Other:
		err = c.runOther(ctx, r)
	default:
		err = fail(op, "", fmt.Errorf("operation %q has no runner", op))
	}

	if err != nil {
		c.console.Error("operation failed",
			logging.String(logging.FieldOperation, op),
			logging.Error(err))
		return err
	}
	c.console.Info("operation finished",
		logging.String(logging.FieldOperation, op),
		logging.Duration("wall_time", time.Since(started).Round(10*time.Millisecond)))
	return nil
}

// samtoolsClient builds the subprocess client from configuration and
// verifies the binary meets the version floor.
func (c *Controller) samtoolsClient(ctx context.Context) (*samtools.Client, error) {
	opts := []samtools.Option{
		samtools.WithSortThreads(c.cfg.Samtools.SortThreads),
		samtools.WithSortMemory(c.cfg.Samtools.SortMemory),
		samtools.WithMaxDepth(c.cfg.Samtools.MpileupDepth),
	}
	if c.cfg.Samtools.CommandTimeout > 0 {
		opts = append(opts, samtools.WithTimeout(time.Duration(c.cfg.Samtools.CommandTimeout)*time.Second))
	}
	client, err := samtools.New(c.cfg.Samtools.Binary, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := client.EnsureMinimum(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// runLogOptions silences the console side of a run log; console output
// already flows through c.console.
func (c *Controller) runLogOptions() logging.Options {
	return logging.Options{Level: "error", Output: io.Discard}
}

// banner writes the framed step header shown between stages.
func (c *Controller) banner(op string, step int, title string) {
	text := fmt.Sprintf("..:: instrain %s Step %d. %s ::..", op, step, title)
	border := strings.Repeat("*", len(text)+8)
	fmt.Fprintf(c.out, "\n%s\n    %s\n%s\n\n", border, text, border)
}
