package devices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/aristath/hidmend/internal/proc"
)

// RetryConfig configures exponential backoff for device-tool invocations.
// Device utilities fail transiently while the bus re-enumerates, so each
// disable/remove is retried briefly before giving up on that device.
type RetryConfig struct {
	InitialInterval     time.Duration // Initial retry interval (default 100ms)
	MaxInterval         time.Duration // Maximum retry interval (default 2s)
	MaxElapsedTime      time.Duration // Maximum total retry time per invocation (default 10s)
	Multiplier          float64       // Backoff multiplier (default 2.0)
	RandomizationFactor float64       // Jitter factor (default 0.5)
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval:     100 * time.Millisecond,
		MaxInterval:         2 * time.Second,
		MaxElapsedTime:      10 * time.Second,
		Multiplier:          2.0,
		RandomizationFactor: 0.5,
	}
}

// CleanupReport summarizes one cleanup pass.
type CleanupReport struct {
	Disabled int  // Devices successfully disabled and deregistered
	Skipped  int  // Problem devices exempted by the exclusion allowlist
	Failed   int  // Devices the tool could not clean up
	Aborted  bool // Pass stopped early because the breaker opened
}

// Cleaner disables and deregisters stale device instances. The pass is
// idempotent: a device already removed simply won't appear in the next
// enumeration. A circuit breaker guards the device tool itself; repeated
// consecutive failures mean the utility is broken, and once the breaker
// opens the pass aborts instead of hammering it.
type Cleaner struct {
	disable  []string
	remove   []string
	exclude  []string
	run      CommandRunner
	retryCfg RetryConfig
	breaker  *gobreaker.CircuitBreaker
}

// NewCleaner creates a Cleaner using the given disable/remove command lines
// and exclusion allowlist patterns (case-insensitive substrings matched
// against device names and instance IDs).
func NewCleaner(disable, remove, exclude []string, pm *proc.Manager) *Cleaner {
	return newCleaner(disable, remove, exclude, procRunner(pm))
}

// NewCleanerWithRunner creates a Cleaner with a custom CommandRunner for tests.
func NewCleanerWithRunner(disable, remove, exclude []string, run CommandRunner) *Cleaner {
	return newCleaner(disable, remove, exclude, run)
}

func newCleaner(disable, remove, exclude []string, run CommandRunner) *Cleaner {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "device-tool",
		MaxRequests: 1,
		Interval:    0, // Don't clear counts automatically
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Trip after 5 consecutive failures
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// Don't count operator cancellation as tool failure
			if err == nil {
				return true
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return true
			}
			return false
		},
	})

	return &Cleaner{
		disable:  disable,
		remove:   remove,
		exclude:  exclude,
		run:      run,
		retryCfg: DefaultRetryConfig(),
		breaker:  cb,
	}
}

// Cleanup disables and deregisters every problem device not covered by the
// exclusion allowlist. Failures on individual devices are logged and
// counted, not propagated; an open breaker aborts the remainder of the pass
// and is reported via the returned error.
func (c *Cleaner) Cleanup(ctx context.Context, problems []DeviceIssue) (CleanupReport, error) {
	var report CleanupReport

	if len(c.disable) == 0 && len(c.remove) == 0 {
		if len(problems) > 0 {
			return report, ErrNotConfigured
		}
		return report, nil
	}

	for _, dev := range problems {
		if c.excluded(dev) {
			report.Skipped++
			slog.Debug("device exempt from cleanup", "instance", dev.InstanceID, "name", dev.Name)
			continue
		}

		if err := c.cleanupDevice(ctx, dev); err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				report.Aborted = true
				return report, fmt.Errorf("device tool failing repeatedly, cleanup aborted: %w", err)
			}
			report.Failed++
			slog.Warn("device cleanup failed", "instance", dev.InstanceID, "status", dev.Status, "err", err)
			continue
		}

		report.Disabled++
		slog.Info("stale device deregistered", "instance", dev.InstanceID, "name", dev.Name)
	}

	return report, nil
}

// cleanupDevice disables then removes one device instance.
func (c *Cleaner) cleanupDevice(ctx context.Context, dev DeviceIssue) error {
	if len(c.disable) > 0 {
		if err := c.invoke(ctx, c.disable, dev.InstanceID); err != nil {
			return fmt.Errorf("disabling device: %w", err)
		}
	}
	if len(c.remove) > 0 {
		if err := c.invoke(ctx, c.remove, dev.InstanceID); err != nil {
			return fmt.Errorf("removing device: %w", err)
		}
	}
	return nil
}

// invoke runs one device-tool command line (instance ID appended) through
// the circuit breaker with exponential backoff on transient failures.
func (c *Cleaner) invoke(ctx context.Context, cmdline []string, instanceID string) error {
	args := append(append([]string{}, cmdline[1:]...), instanceID)

	operation := func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		_, err := c.breaker.Execute(func() (interface{}, error) {
			return c.run(ctx, cmdline[0], args...)
		})
		if err != nil {
			// Open breaker: stop retrying, surface to the pass loop
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}

	backoffPolicy := backoff.NewExponentialBackOff()
	backoffPolicy.InitialInterval = c.retryCfg.InitialInterval
	backoffPolicy.MaxInterval = c.retryCfg.MaxInterval
	backoffPolicy.MaxElapsedTime = c.retryCfg.MaxElapsedTime
	backoffPolicy.Multiplier = c.retryCfg.Multiplier
	backoffPolicy.RandomizationFactor = c.retryCfg.RandomizationFactor

	return backoff.Retry(operation, backoff.WithContext(backoffPolicy, ctx))
}

// excluded reports whether the device matches any allowlist pattern.
func (c *Cleaner) excluded(dev DeviceIssue) bool {
	for _, pattern := range c.exclude {
		p := strings.ToLower(pattern)
		if p == "" {
			continue
		}
		if strings.Contains(strings.ToLower(dev.Name), p) ||
			strings.Contains(strings.ToLower(dev.InstanceID), p) {
			return true
		}
	}
	return false
}
