package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultWaitDelay bounds how long Run waits for the output pipes to close
// once the process has been killed.
const DefaultWaitDelay = 5 * time.Second

// Runner executes a program and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs programs as child processes.
type ExecRunner struct {
	// WaitDelay applies to every command; zero selects DefaultWaitDelay.
	// Imported modules may spawn children that inherit stdout and would
	// otherwise keep Run blocked past the context deadline.
	WaitDelay time.Duration
}

// Run starts name with args and waits for it. When the process exits with a
// non-zero status the returned error wraps *exec.ExitError and carries the
// last line of standard error.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if tail := lastLine(stderr.String()); tail != "" {
				return out, fmt.Errorf("%w: %s", err, tail)
			}
		}
		return out, err
	}
	return out, nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
