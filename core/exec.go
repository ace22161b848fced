package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// CommandRunner executes an external tool and reports its outcome.
type CommandRunner interface {
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) ExecutionResult
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args, killing it once timeout elapses. A missing
// binary yields exit code 127 and a timeout yields 124.
func (ExecRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) ExecutionResult {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if _, err := exec.LookPath(name); err != nil {
		return ExecutionResult{Stderr: "Command not found: " + name, ExitCode: ExitNotFound}
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Don't let orphaned grandchildren hold the pipes open after a kill.
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return TimeoutResult(timeout)
	}
	if err == nil {
		return ExecutionResult{Stdout: stdout.String(), Stderr: stderr.String()}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return ExecutionResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitErr.ExitCode()}
	}
	if errors.Is(err, exec.ErrNotFound) {
		return ExecutionResult{Stderr: "Command not found: " + name, ExitCode: ExitNotFound}
	}
	return ExecutionResult{Stdout: stdout.String(), Stderr: err.Error(), ExitCode: ExitFailure}
}

// TimeoutResult builds the result reported when a tool exceeds its timeout.
func TimeoutResult(timeout time.Duration) ExecutionResult {
	return ExecutionResult{
		Stderr:   fmt.Sprintf("Command timed out after %d seconds", int(timeout.Round(time.Second)/time.Second)),
		ExitCode: ExitTimeout,
	}
}
