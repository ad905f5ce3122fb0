package detector

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/motionsort/internal/errors"
)

func testConfig() Config {
	return Config{
		Interpreter: "python3",
		Script:      "/home/motion/yolov7/detect.py",
		Source:      "/tmp/motion/image",
		Weights:     "/home/motion/yolov7/yolov7-tiny.pt",
		Confidence:  0.6,
		Classes:     []int{0, 2, 7},
		Project:     "/tmp",
		RunName:     "motion_run",
		WorkDir:     "/tmp",
	}
}

func TestConfigDirs(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	assert.Equal(t, "/tmp/motion_run", cfg.OutputDir())
	assert.Equal(t, "/tmp/motion_run/labels", cfg.LabelDir())
}

func TestConfigCommand(t *testing.T) {
	t.Parallel()

	cmd := testConfig().Command()
	assert.Equal(t, "python3", cmd.Path)
	assert.Equal(t, "/tmp", cmd.Dir)
	assert.Equal(t, []string{
		"/home/motion/yolov7/detect.py",
		"--source", "/tmp/motion/image",
		"--weights", "/home/motion/yolov7/yolov7-tiny.pt",
		"--conf-thres", "0.6",
		"--save-txt",
		"--save-conf",
		"--name", "motion_run",
		"--project", "/tmp",
		"--classes", "0", "2", "7",
		"--exist-ok",
	}, cmd.Args)
}

func TestConfigCommandWithoutInterpreter(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Interpreter = ""
	cfg.Classes = nil

	cmd := cfg.Command()
	assert.Equal(t, "/home/motion/yolov7/detect.py", cmd.Path)
	assert.NotContains(t, cmd.Args, "--classes")
	assert.Equal(t, "--exist-ok", cmd.Args[len(cmd.Args)-1])
}

type fakeRunner struct {
	got    Command
	result Result
	err    error
}

func (f *fakeRunner) Run(_ context.Context, cmd Command) (Result, error) {
	f.got = cmd
	return f.result, f.err
}

func TestDetectorRunLeavesFailureToCaller(t *testing.T) {
	t.Parallel()

	fr := &fakeRunner{result: Result{ExitCode: 2, Stderr: "CUDA out of memory"}}
	d := New(testConfig(), fr)

	res, err := d.Run(t.Context())
	require.NoError(t, err, "a process that ran is not a run error")
	assert.Equal(t, 2, res.ExitCode)
	assert.Equal(t, "python3", fr.got.Path)

	checkErr := Check(res)
	require.Error(t, checkErr)
	assert.ErrorIs(t, checkErr, ErrDetectorFailed)
	assert.Contains(t, checkErr.Error(), "CUDA out of memory")
	assert.True(t, errors.IsCategory(checkErr, errors.CategoryCommandExecution))
}

func TestDetectorRunStartError(t *testing.T) {
	t.Parallel()

	fr := &fakeRunner{err: errors.NewStd("exec: not found")}
	_, err := New(testConfig(), fr).Run(t.Context())
	require.Error(t, err)
}

func TestCheck(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Check(Result{ExitCode: 0}))

	err := Check(Result{ExitCode: 1, Stdout: "usage: detect.py"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit code 1: usage: detect.py", "stdout is used when stderr is empty")
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	t.Parallel()

	dir := t.TempDir()
	res, err := ExecRunner{}.Run(t.Context(), Command{
		Path: "sh",
		Args: []string{"-c", "pwd; echo oops >&2; exit 3"},
		Dir:  dir,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.Success())
	assert.Contains(t, res.Stdout, filepath.Base(dir))
	assert.Equal(t, "oops\n", res.Stderr)
}

func TestExecRunnerSuccess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	t.Parallel()

	res, err := ExecRunner{}.Run(t.Context(), Command{Path: "sh", Args: []string{"-c", "echo done"}})
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.Equal(t, "done\n", res.Stdout)
}

func TestExecRunnerMissingExecutable(t *testing.T) {
	t.Parallel()

	res, err := ExecRunner{}.Run(t.Context(), Command{Path: "/nonexistent/detect-binary"})
	require.Error(t, err)
	assert.Equal(t, -1, res.ExitCode)
	assert.True(t, errors.IsCategory(err, errors.CategoryCommandExecution))
}

func TestExecRunnerTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	t.Parallel()

	_, err := ExecRunner{}.Run(t.Context(), Command{
		Path:    "sh",
		Args:    []string{"-c", "sleep 5"},
		Timeout: 50 * time.Millisecond,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, errors.IsCategory(err, errors.CategoryTimeout))
}

func TestParseLabelFile(t *testing.T) {
	t.Parallel()

	input := "16 0.51 0.42 0.20 0.31 0.91\n\n0 0.10 0.20 0.05 0.12 0.64\n"
	ds, err := ParseLabelFile(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, ds, 2)

	assert.Equal(t, 16, ds[0].ClassID)
	assert.Equal(t, "dog", ds[0].Name())
	assert.InDelta(t, 0.91, ds[0].Confidence, 1e-9)
	assert.Equal(t, "dog 0.91, person 0.64", Summarize(ds))
}

func TestParseLabelFileWithoutConfidence(t *testing.T) {
	t.Parallel()

	ds, err := ParseLabelFile(strings.NewReader("2 0.5 0.5 0.1 0.1\n"))
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Zero(t, ds[0].Confidence)
	assert.Equal(t, "car", Summarize(ds))
}

func TestParseLabelFileErrors(t *testing.T) {
	t.Parallel()

	for name, input := range map[string]string{
		"too few fields": "0 0.5 0.5\n",
		"bad class":      "x 0.5 0.5 0.1 0.1 0.9\n",
		"negative class": "-1 0.5 0.5 0.1 0.1 0.9\n",
		"bad confidence": "0 0.5 0.5 0.1 0.1 high\n",
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseLabelFile(strings.NewReader(input))
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
		})
	}
}

func TestClassName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "person", ClassName(0))
	assert.Equal(t, "giraffe", ClassName(23))
	assert.Equal(t, "class_79", ClassName(79))
}
