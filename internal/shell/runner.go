package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

const waitDelay = 2 * time.Second

// Output holds the captured result of a finished subprocess
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Success reports whether the process exited with status 0
func (o Output) Success() bool {
	return o.ExitCode == 0
}

// Runner executes external diagnostic tools.
// A non-zero exit status is not an error: it is reported through Output.ExitCode.
// Errors are reserved for processes that could not be started or were killed.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Output, error)
	LookPath(name string) (string, error)
}

// Exec runs commands on the local host
type Exec struct{}

// Run starts name with args and waits for it. The process is killed if ctx is done.
func (Exec) Run(ctx context.Context, name string, args ...string) (Output, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// children that inherit the output pipes must not hold Wait open after a kill
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, fmt.Errorf("%s: %w", name, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}
	return out, fmt.Errorf("failed to run %s: %w", name, err)
}

// LookPath resolves name against PATH
func (Exec) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
