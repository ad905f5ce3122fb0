package detector

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/tphakala/motionsort/internal/errors"
	"github.com/tphakala/motionsort/internal/logger"
)

// previewLimit bounds how much process output is copied into log lines.
const previewLimit = 200

// Command describes one external process invocation.
type Command struct {
	Path    string
	Args    []string
	Dir     string        // working directory, empty inherits ours
	Env     []string      // nil inherits our environment
	Timeout time.Duration // 0 means none beyond ctx
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Result is what a finished process left behind.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Success reports whether the process exited with status 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner starts a process and waits for it.
//
// A non-nil error means the process could not be run at all, e.g. the executable is missing
// or ctx was cancelled. A process that ran and failed is reported through Result.ExitCode
// with a nil error; whether that is fatal is the caller's decision.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	log := GetLogger()

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...) //nolint:gosec // G204: path and args come from validated configuration
	cmd.Dir = c.Dir
	if c.Env != nil {
		cmd.Env = c.Env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug("starting process",
		logger.String("command", c.String()),
		logger.String("dir", c.Dir))

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	res := Result{
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		category := errors.CategoryCancellation
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			category = errors.CategoryTimeout
		}
		return res, errors.New(ctxErr).
			Component("detector").
			Category(category).
			Context("operation", "run_process").
			Context("command", c.Path).
			Context("execution_duration_ms", duration.Milliseconds()).
			Build()
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// ran to completion with a non-zero status
			return res, nil
		}
		return res, errors.New(err).
			Component("detector").
			Category(errors.CategoryCommandExecution).
			Context("operation", "start_process").
			Context("command", c.Path).
			Build()
	}

	log.Debug("process finished",
		logger.Int("exit_code", res.ExitCode),
		logger.Int64("execution_duration_ms", duration.Milliseconds()),
		logger.String("output_preview", preview(res.Stdout)))
	return res, nil
}

func preview(s string) string {
	if len(s) > previewLimit {
		return s[:previewLimit] + "... (truncated)"
	}
	return s
}
