package events

import (
	"time"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	Step() string // step label the event concerns, "" for run-level events
}

// Topic constants
const (
	TopicRun  = "run"
	TopicStep = "step"
)

// Event type constants
const (
	EventTypeRunStarted       = "run.started"
	EventTypeCleanupCompleted = "run.cleanup"
	EventTypeHealthChecked    = "run.health"
	EventTypeRebootRequested  = "run.reboot"
	EventTypeRunFinished      = "run.finished"
	EventTypeStepResolved     = "step.resolved"
	EventTypeStepMissing      = "step.missing"
	EventTypeStepStarted      = "step.started"
	EventTypeStepCompleted    = "step.completed"
	EventTypeStepFailed       = "step.failed"
)

// RunStartedEvent is published when an invocation begins.
type RunStartedEvent struct {
	ResumeIndex int // last completed step index read from the marker
	Timestamp   time.Time
}

func (e RunStartedEvent) EventType() string { return EventTypeRunStarted }
func (e RunStartedEvent) Step() string      { return "" }

// CleanupCompletedEvent is published after the stale-device cleanup pass.
type CleanupCompletedEvent struct {
	Disabled  int
	Skipped   int
	Failed    int
	Aborted   bool
	Timestamp time.Time
}

func (e CleanupCompletedEvent) EventType() string { return EventTypeCleanupCompleted }
func (e CleanupCompletedEvent) Step() string      { return "" }

// HealthCheckedEvent is published after a device health scan.
type HealthCheckedEvent struct {
	AllOK     bool
	Problems  int
	Timestamp time.Time
}

func (e HealthCheckedEvent) EventType() string { return EventTypeHealthChecked }
func (e HealthCheckedEvent) Step() string      { return "" }

// StepResolvedEvent is published when an installer artifact is found for the
// current step.
type StepResolvedEvent struct {
	Index     int
	Label     string
	Path      string
	Timestamp time.Time
}

func (e StepResolvedEvent) EventType() string { return EventTypeStepResolved }
func (e StepResolvedEvent) Step() string      { return e.Label }

// StepMissingEvent is published when no installer artifact matches the
// current step's label.
type StepMissingEvent struct {
	Index     int
	Label     string
	Timestamp time.Time
}

func (e StepMissingEvent) EventType() string { return EventTypeStepMissing }
func (e StepMissingEvent) Step() string      { return e.Label }

// StepStartedEvent is published when an installer begins executing.
type StepStartedEvent struct {
	Index     int
	Label     string
	Path      string
	Timestamp time.Time
}

func (e StepStartedEvent) EventType() string { return EventTypeStepStarted }
func (e StepStartedEvent) Step() string      { return e.Label }

// StepCompletedEvent is published when an installer finishes successfully
// and the progress marker has been advanced.
type StepCompletedEvent struct {
	Index     int
	Label     string
	Attempts  int
	Duration  time.Duration
	Timestamp time.Time
}

func (e StepCompletedEvent) EventType() string { return EventTypeStepCompleted }
func (e StepCompletedEvent) Step() string      { return e.Label }

// StepFailedEvent is published when an installer fails terminally.
type StepFailedEvent struct {
	Index     int
	Label     string
	Attempts  int
	Err       error
	Timestamp time.Time
}

func (e StepFailedEvent) EventType() string { return EventTypeStepFailed }
func (e StepFailedEvent) Step() string      { return e.Label }

// RebootRequestedEvent is published after the marker commits and before the
// reboot trigger fires.
type RebootRequestedEvent struct {
	CompletedIndex int
	Timestamp      time.Time
}

func (e RebootRequestedEvent) EventType() string { return EventTypeRebootRequested }
func (e RebootRequestedEvent) Step() string      { return "" }

// RunFinishedEvent is published with the invocation's terminal outcome.
type RunFinishedEvent struct {
	Outcome   string
	Timestamp time.Time
}

func (e RunFinishedEvent) EventType() string { return EventTypeRunFinished }
func (e RunFinishedEvent) Step() string      { return "" }
