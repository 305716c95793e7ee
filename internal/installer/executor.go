// Package installer runs driver installer artifacts as child processes.
// The executor makes one unattended attempt with the configured silent
// flags, then exactly one fallback attempt without them (some vendor
// installers don't support silent invocation and need to surface their own
// UI). Repeated failures are surfaced, never retried further, and nothing
// is rolled back: the child process mutates system state irreversibly.
package installer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aristath/hidmend/internal/proc"
)

// Runner invokes a command and blocks until it exits.
// A nil return means the process exited zero.
type Runner func(ctx context.Context, name string, args ...string) error

// Executor runs one installer artifact to a terminal result.
type Executor struct {
	silentArgs []string
	run        Runner
}

// New creates an Executor invoking installers through proc with the given
// unattended flags. Subprocesses are tracked by pm for shutdown cleanup.
func New(silentArgs []string, pm *proc.Manager) *Executor {
	return &Executor{
		silentArgs: silentArgs,
		run: func(ctx context.Context, name string, args ...string) error {
			cmd := proc.Command(ctx, name, args...)
			_, _, err := proc.Run(ctx, cmd, pm)
			return err
		},
	}
}

// NewWithRunner creates an Executor with a custom Runner. Used by tests to
// avoid launching real processes.
func NewWithRunner(silentArgs []string, run Runner) *Executor {
	return &Executor{silentArgs: silentArgs, run: run}
}

// Execute runs the installer at path. Returns the number of attempts made
// (1 or 2) and the terminal error, nil meaning the install succeeded.
// There is no timeout: a hung installer blocks until it exits.
func (e *Executor) Execute(ctx context.Context, path string) (int, error) {
	err := e.run(ctx, path, e.silentArgs...)
	if err == nil {
		return 1, nil
	}

	if len(e.silentArgs) == 0 {
		// No silent flags configured; a second identical invocation is not
		// a fallback, just a blind retry.
		return 1, fmt.Errorf("installer %s failed: %w", path, err)
	}

	slog.Warn("silent install failed, retrying without unattended flags",
		"installer", path, "err", err)

	if fallbackErr := e.run(ctx, path); fallbackErr != nil {
		return 2, fmt.Errorf("installer %s failed after interactive fallback (silent attempt: %v): %w",
			path, err, fallbackErr)
	}

	return 2, nil
}
