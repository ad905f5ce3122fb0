// Package detector runs the external yolov7 detect.py over the pending capture images.
//
// The detector writes one label file per image with at least one allowed object into
// <project>/<name>/labels and an annotated copy of that image into <project>/<name>.
// Running a model is outside this package; it only builds the invocation, runs it
// through a Runner and reads back what the tool wrote.
package detector

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tphakala/motionsort/internal/errors"
	"github.com/tphakala/motionsort/internal/logger"
)

// ErrDetectorFailed marks a detector run that exited with a non-zero status.
var ErrDetectorFailed = errors.NewStd("detector failed")

// Config holds everything needed to invoke detect.py.
type Config struct {
	Interpreter string        // e.g. python3, empty runs Script directly
	Script      string        // path to detect.py
	Source      string        // image directory passed to --source
	Weights     string        // --weights
	Confidence  float64       // --conf-thres
	Classes     []int         // --classes
	Project     string        // --project
	RunName     string        // --name
	WorkDir     string        // process working directory
	Timeout     time.Duration // 0 disables
}

// OutputDir is where annotated images are written.
func (c Config) OutputDir() string {
	return filepath.Join(c.Project, c.RunName)
}

// LabelDir is where label files are written.
func (c Config) LabelDir() string {
	return filepath.Join(c.OutputDir(), "labels")
}

// Args returns the detect.py arguments.
func (c Config) Args() []string {
	args := []string{
		"--source", c.Source,
		"--weights", c.Weights,
		"--conf-thres", strconv.FormatFloat(c.Confidence, 'f', -1, 64),
		"--save-txt",
		"--save-conf",
		"--name", c.RunName,
		"--project", c.Project,
	}
	if len(c.Classes) > 0 {
		args = append(args, "--classes")
		for _, id := range c.Classes {
			args = append(args, strconv.Itoa(id))
		}
	}
	return append(args, "--exist-ok")
}

// Command returns the full process invocation.
func (c Config) Command() Command {
	cmd := Command{
		Path:    c.Script,
		Args:    c.Args(),
		Dir:     c.WorkDir,
		Timeout: c.Timeout,
	}
	if c.Interpreter != "" {
		cmd.Path = c.Interpreter
		cmd.Args = append([]string{c.Script}, cmd.Args...)
	}
	return cmd
}

// Detector invokes detect.py through a Runner.
type Detector struct {
	cfg    Config
	runner Runner
	log    logger.Logger
}

// New returns a Detector. A nil runner uses ExecRunner.
func New(cfg Config, runner Runner) *Detector {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Detector{cfg: cfg, runner: runner, log: GetLogger()}
}

// Config returns the detector configuration.
func (d *Detector) Config() Config {
	return d.cfg
}

// Run invokes the detector once over the source directory. The returned error is
// non-nil only when the process could not be run; inspect the Result, or use Check,
// to learn whether it succeeded.
func (d *Detector) Run(ctx context.Context) (Result, error) {
	cmd := d.cfg.Command()
	log := d.log.WithContext(ctx)

	log.Info("running detector",
		logger.String("source", d.cfg.Source),
		logger.String("weights", d.cfg.Weights),
		logger.Float64("confidence", d.cfg.Confidence))

	res, err := d.runner.Run(ctx, cmd)
	if err != nil {
		return res, err
	}

	log.Info("detector finished",
		logger.Int("exit_code", res.ExitCode),
		logger.Duration("duration", res.Duration))
	return res, nil
}

// Check converts a failed Result into an error wrapping ErrDetectorFailed that carries
// the detector's diagnostic output. A successful Result yields nil.
func Check(res Result) error {
	if res.Success() {
		return nil
	}

	diag := strings.TrimSpace(res.Stderr)
	if diag == "" {
		diag = strings.TrimSpace(res.Stdout)
	}

	return errors.New(fmt.Errorf("%w: exit code %d: %s", ErrDetectorFailed, res.ExitCode, diag)).
		Component("detector").
		Category(errors.CategoryCommandExecution).
		Priority(errors.PriorityHigh).
		Context("operation", "run_detector").
		Context("exit_code", res.ExitCode).
		Context("execution_duration_ms", res.Duration.Milliseconds()).
		Context("stderr_preview", preview(res.Stderr)).
		Build()
}
