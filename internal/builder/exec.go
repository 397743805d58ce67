package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/cxon-build/cxon/internal/msg"
)

var ErrTimeout = errors.New("command timed out")

// Runner runs one external tool to completion
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner starts real processes. Their output goes straight to the
// console; nothing is captured.
type ExecRunner struct {
	// Timeout bounds each command. Zero means no limit.
	Timeout time.Duration
	Stdout  io.Writer
	Stderr  io.Writer
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = r.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, r.Timeout)
	}
	return err
}

// CommandError is returned when a compile or link command fails to start or
// exits unsuccessfully
type CommandError struct {
	Step string
	Argv []string
	Err  error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s failed: %v\n  %s", e.Step, e.Err, msg.EscapeSlice(e.Argv))
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExitCode returns the tool's exit status, or -1 if it never produced one
func (e *CommandError) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
