package runner

import (
	"fmt"

	"github.com/aristath/hidmend/internal/devices"
)

// Kind classifies the terminal result of one invocation.
type Kind int

const (
	// AllDone: every step has completed and the marker is cleared.
	AllDone Kind = iota
	// RebootRequired: one step completed; the machine must reboot before
	// the next step is safe to run.
	RebootRequired
	// MissingInput: no installer artifact matches the pending step.
	MissingInput
	// StepFailed: the pending step's installer failed terminally.
	StepFailed
)

// Outcome is the result of one invocation of the runner.
type Outcome struct {
	Kind           Kind
	CompletedIndex int                   // RebootRequired: index just completed
	StepIndex      int                   // MissingInput / StepFailed: pending step
	StepLabel      string                // label of the step the outcome concerns
	Err            error                 // StepFailed: terminal installer error
	Health         *devices.HealthReport // AllDone: final health, nil when diagnostics unavailable
}

// ExitCode maps the outcome to a process exit status: success paths
// (including the expected halt-for-reboot) exit zero so schedulers don't
// treat a mid-sequence halt as an error; user-actionable and failure halts
// are distinct nonzero codes.
func (o Outcome) ExitCode() int {
	switch o.Kind {
	case AllDone, RebootRequired:
		return 0
	case MissingInput:
		return 2
	case StepFailed:
		return 3
	default:
		return 1
	}
}

// String returns the outcome's stable short name, used in logs and history.
func (o Outcome) String() string {
	switch o.Kind {
	case AllDone:
		return "all-done"
	case RebootRequired:
		return "reboot-required"
	case MissingInput:
		return "missing-input"
	case StepFailed:
		return "step-failed"
	default:
		return "unknown"
	}
}

// Describe returns a human-readable summary of the outcome.
func (o Outcome) Describe() string {
	switch o.Kind {
	case AllDone:
		if o.Health != nil && !o.Health.AllOK {
			return fmt.Sprintf("all steps complete; %d device problem(s) remain", len(o.Health.Problems))
		}
		return "all steps complete, devices healthy"
	case RebootRequired:
		return fmt.Sprintf("step %d (%s) installed; reboot required before the next step", o.CompletedIndex, o.StepLabel)
	case MissingInput:
		return fmt.Sprintf("no installer found for step %d (%s); place one in the intake directory and rerun", o.StepIndex, o.StepLabel)
	case StepFailed:
		return fmt.Sprintf("step %d (%s) failed: %v", o.StepIndex, o.StepLabel, o.Err)
	default:
		return "unknown outcome"
	}
}
