package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Command describes one external process invocation.
type Command struct {
	Name string
	Args []string
	// Stdout and Stderr receive the process output when non-nil;
	// otherwise the process inherits the terminal.
	Stdout io.Writer
	Stderr io.Writer
}

// Runner executes external programs. ExecRunner is the production
// implementation; tests substitute a recording fake.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
	LookPath(name string) (string, error)
}

// LaunchError reports that a process could not be started at all, as
// opposed to running and exiting non-zero.
type LaunchError struct {
	Name string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %s: %v", e.Name, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// IsLaunchFailure reports whether err means the program never started.
func IsLaunchFailure(err error) bool {
	var le *LaunchError
	return errors.As(err, &le)
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Stdout = c.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = c.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("%s exited with code %d: %w", c.Name, exitErr.ExitCode(), err)
	}
	return &LaunchError{Name: c.Name, Err: err}
}

func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
