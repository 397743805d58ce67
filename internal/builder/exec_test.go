package builder

import (
	"context"
	"errors"
	"io"
	"runtime"
	"strings"
	"testing"
	"time"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
}

func TestExecRunnerExitCode(t *testing.T) {
	skipWithoutShell(t)
	r := ExecRunner{Stdout: io.Discard, Stderr: io.Discard}

	argv := []string{"sh", "-c", "exit 3"}
	err := r.Run(context.Background(), argv[0], argv[1:]...)
	if err == nil {
		t.Fatal("Run succeeded; want exit status 3")
	}
	cmdErr := &CommandError{Step: "compiling a.c", Argv: argv, Err: err}
	if code := cmdErr.ExitCode(); code != 3 {
		t.Errorf("ExitCode() = %d; want 3", code)
	}
	if s := cmdErr.Error(); !strings.Contains(s, "compiling a.c failed") || !strings.Contains(s, "'exit 3'") {
		t.Errorf("Error() = %q; want the step and the quoted command line", s)
	}
}

func TestExecRunnerSuccess(t *testing.T) {
	skipWithoutShell(t)
	var out strings.Builder
	r := ExecRunner{Stdout: &out, Stderr: io.Discard}

	if err := r.Run(context.Background(), "sh", "-c", "echo hello"); err != nil {
		t.Fatal("Run failed: ", err)
	}
	if got := out.String(); got != "hello\n" {
		t.Errorf("stdout = %q; want %q", got, "hello\n")
	}
}

func TestExecRunnerTimeout(t *testing.T) {
	skipWithoutShell(t)
	r := ExecRunner{Timeout: 100 * time.Millisecond, Stdout: io.Discard, Stderr: io.Discard}

	start := time.Now()
	err := r.Run(context.Background(), "sleep", "5")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Run = %v; want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Errorf("Run took %s; want the command killed at the timeout", elapsed)
	}
	cmdErr := &CommandError{Step: "linking app", Argv: []string{"sleep", "5"}, Err: err}
	if !errors.Is(cmdErr, ErrTimeout) {
		t.Error("CommandError does not unwrap to ErrTimeout")
	}
	if code := cmdErr.ExitCode(); code != -1 {
		t.Errorf("ExitCode() = %d; want -1", code)
	}
}

func TestExecRunnerMissingTool(t *testing.T) {
	r := ExecRunner{Stdout: io.Discard, Stderr: io.Discard}

	err := r.Run(context.Background(), "cxon-no-such-tool", "-c", "a.c")
	if err == nil {
		t.Fatal("Run succeeded; want a start failure")
	}
	cmdErr := &CommandError{Step: "compiling a.c", Argv: []string{"cxon-no-such-tool", "-c", "a.c"}, Err: err}
	if code := cmdErr.ExitCode(); code != -1 {
		t.Errorf("ExitCode() = %d; want -1", code)
	}
	if !strings.Contains(cmdErr.Error(), "cxon-no-such-tool -c a.c") {
		t.Errorf("Error() = %q; want the command line", cmdErr.Error())
	}
}
