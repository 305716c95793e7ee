// Package devices wraps the external device utility: health enumeration and
// the stale-device cleanup pre-pass. Both are purely observational with
// respect to the runner's state machine; neither touches the progress
// marker. The utility's command lines come from configuration so vendor
// tooling can change without touching the engine.
package devices

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aristath/hidmend/internal/proc"
)

// ErrNotConfigured indicates the device utility command is not set.
// Callers log a warning and continue; diagnostics are never fatal.
var ErrNotConfigured = errors.New("device tool not configured")

// DeviceIssue describes one device instance in a non-OK state.
type DeviceIssue struct {
	InstanceID string
	Name       string
	Status     string
}

// HealthReport is the outcome of one enumeration pass.
type HealthReport struct {
	AllOK    bool
	Problems []DeviceIssue
}

// CommandRunner invokes a device-utility command line and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// procRunner returns a CommandRunner backed by proc, tracking subprocesses
// in pm for shutdown cleanup.
func procRunner(pm *proc.Manager) CommandRunner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		cmd := proc.Command(ctx, name, args...)
		stdout, _, err := proc.Run(ctx, cmd, pm)
		return stdout, err
	}
}

// Scanner checks device health by running the configured enumerate command.
//
// The command is expected to print one device per line:
//
//	STATUS<TAB>INSTANCE-ID<TAB>NAME
//
// Any status other than OK (case-insensitive) marks a problem device.
type Scanner struct {
	enumerate []string
	run       CommandRunner
}

// NewScanner creates a Scanner for the given enumerate command line.
func NewScanner(enumerate []string, pm *proc.Manager) *Scanner {
	return &Scanner{enumerate: enumerate, run: procRunner(pm)}
}

// NewScannerWithRunner creates a Scanner with a custom CommandRunner for tests.
func NewScannerWithRunner(enumerate []string, run CommandRunner) *Scanner {
	return &Scanner{enumerate: enumerate, run: run}
}

// CheckHealth enumerates devices and reports any in a non-OK state.
// An unconfigured scanner returns an all-OK report with ErrNotConfigured.
func (s *Scanner) CheckHealth(ctx context.Context) (HealthReport, error) {
	if len(s.enumerate) == 0 {
		return HealthReport{AllOK: true}, ErrNotConfigured
	}

	out, err := s.run(ctx, s.enumerate[0], s.enumerate[1:]...)
	if err != nil {
		return HealthReport{AllOK: true}, fmt.Errorf("enumerating devices: %w", err)
	}

	report := HealthReport{AllOK: true}
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.SplitN(line, "\t", 3)
		if len(fields) < 2 {
			// Not in the device line format; enumeration tools print
			// headers and blank separators, skip them.
			continue
		}

		status := strings.TrimSpace(fields[0])
		if strings.EqualFold(status, "OK") {
			continue
		}

		issue := DeviceIssue{
			Status:     status,
			InstanceID: strings.TrimSpace(fields[1]),
		}
		if len(fields) == 3 {
			issue.Name = strings.TrimSpace(fields[2])
		}
		report.Problems = append(report.Problems, issue)
		report.AllOK = false
	}

	return report, nil
}
