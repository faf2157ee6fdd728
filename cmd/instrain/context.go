package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/liupfskygre/inStrain/internal/config"
	"github.com/liupfskygre/inStrain/internal/logging"
	"github.com/liupfskygre/inStrain/internal/pipeline"
	"github.com/liupfskygre/inStrain/internal/request"
)

// commandContext shares lazily-built state between commands: the loaded
// configuration and the single process-scoped controller.
type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	controllerOnce sync.Once
	controller     *pipeline.Controller
	controllerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, logLevelFlag: logLevelFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// consoleLevel resolves the log level, letting --log-level override the
// configuration file.
func (c *commandContext) consoleLevel(cfg *config.Config) string {
	if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
		return strings.TrimSpace(*c.logLevelFlag)
	}
	return cfg.Logging.Level
}

// ensureController builds the controller on first use and reuses it for
// every request the process executes.
func (c *commandContext) ensureController(cmd *cobra.Command) (*pipeline.Controller, error) {
	c.controllerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.controllerErr = err
			return
		}
		console, err := logging.New(logging.Options{
			Level:  c.consoleLevel(cfg),
			Format: cfg.Logging.Format,
			Output: cmd.ErrOrStderr(),
		})
		if err != nil {
			c.controllerErr = err
			return
		}
		out := cmd.OutOrStdout()
		c.controller = pipeline.New(*cfg, console, out,
			pipeline.WithProgress(progressWriter(out)))
	})
	return c.controller, c.controllerErr
}

// execute hands a finalized request to the controller. Anything the
// controller reports that is not already a Failure gets wrapped so the
// underlying text still reaches the user.
func (c *commandContext) execute(cmd *cobra.Command, req request.Request) error {
	controller, err := c.ensureController(cmd)
	if err != nil {
		return err
	}
	err = controller.Execute(cmd.Context(), req)
	if err == nil {
		return nil
	}
	if _, ok := pipeline.AsFailure(err); ok {
		return err
	}
	return &pipeline.Failure{Op: string(req.Operation()), Err: err}
}

// finalizeRequest normalizes and validates a request. Nothing reaches the
// controller until this passes.
func finalizeRequest(req request.Request) error {
	if n, ok := req.(interface{ Normalize() }); ok {
		n.Normalize()
	}
	if v, ok := req.(interface{ Validate() error }); ok {
		return v.Validate()
	}
	return nil
}

// progressWriter keeps progress bars off redirected output.
func progressWriter(out io.Writer) io.Writer {
	if f, ok := out.(*os.File); ok {
		fd := f.Fd()
		if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
			return out
		}
	}
	return io.Discard
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

// usagef reports a command-level argument problem.
func usagef(cmd *cobra.Command, format string, args ...any) error {
	return &request.UsageError{Op: cmd.Name(), Message: fmt.Sprintf(format, args...)}
}

// positionalArgs caps positional arguments, reporting overflow as a
// usage error rather than a bare parse failure.
func positionalArgs(maximum int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) > maximum {
			return usagef(cmd, "accepts at most %d positional arguments, got %d", maximum, len(args))
		}
		return nil
	}
}
