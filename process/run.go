package process

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	apperrors "github.com/kbukum/speechkit/errors"
)

// Run executes a command and waits for it. Canceling ctx sends SIGTERM
// and, after the grace period, SIGKILL.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, apperrors.InvalidInput("binary", "is required")
	}

	c := command(ctx, cmd)
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()
	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode(c),
		Duration: time.Since(start),
	}
	if err != nil {
		if ctx.Err() != nil {
			return result, apperrors.Canceled(cmd.Binary, ctx.Err())
		}
		return result, apperrors.ExternalServiceError(cmd.Binary, fmt.Errorf("exit code %d: %w", result.ExitCode, err))
	}
	return result, nil
}

// command builds an exec.Cmd that stops gracefully when ctx is canceled.
func command(ctx context.Context, cmd Command) *exec.Cmd {
	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // running configured tools is the point
	c.Dir = cmd.Dir
	c.Env = mergeEnv(cmd.Env)
	if cmd.Stdin != nil {
		c.Stdin = cmd.Stdin
	}
	setProcessGroup(c)
	c.Cancel = func() error { return terminate(c) }
	c.WaitDelay = cmd.gracePeriod()
	return c
}

func exitCode(c *exec.Cmd) int {
	if c.ProcessState == nil {
		return -1
	}
	return c.ProcessState.ExitCode()
}

// mergeEnv returns nil, inheriting the parent environment, when extra is
// empty.
func mergeEnv(extra []string) []string {
	if len(extra) == 0 {
		return nil
	}
	return append(os.Environ(), extra...)
}
