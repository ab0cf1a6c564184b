package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// ErrEngineNotFound indicates the engine binary could not be located.
var ErrEngineNotFound = errors.New("engine binary not found")

// Engine trains a session from a written options file.
//
// A non-nil error that satisfies ExitCode reports the engine's exit status;
// any other error means the engine could not be started.
type Engine interface {
	Run(ctx context.Context, optionsPath string, stdout, stderr io.Writer) error
}

// ExecEngine runs an external engine binary as `<binary> [args...] --ini <options>`.
type ExecEngine struct {
	Binary string
	Args   []string
	Dir    string
}

// NewExecEngine creates an engine that starts binary with extra leading args.
func NewExecEngine(binary string, args ...string) *ExecEngine {
	return &ExecEngine{Binary: binary, Args: args}
}

// Command returns the argument vector used for optionsPath.
func (e *ExecEngine) Command(optionsPath string) []string {
	argv := make([]string, 0, len(e.Args)+3)
	argv = append(argv, e.Binary)
	argv = append(argv, e.Args...)
	return append(argv, "--ini", optionsPath)
}

// Locate resolves the engine binary through PATH.
func (e *ExecEngine) Locate() (string, error) {
	path, err := exec.LookPath(e.Binary)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrEngineNotFound, e.Binary, err)
	}
	return path, nil
}

func (e *ExecEngine) Run(ctx context.Context, optionsPath string, stdout, stderr io.Writer) error {
	path, err := e.Locate()
	if err != nil {
		return err
	}

	argv := e.Command(optionsPath)
	cmd := exec.CommandContext(ctx, path, argv[1:]...)
	cmd.Dir = e.Dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// ExitCode extracts the exit status from an engine error. It returns 0, true
// for a nil error and false when err is not an exit status.
func ExitCode(err error) (int, bool) {
	if err == nil {
		return 0, true
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode(), true
	}
	return 0, false
}
