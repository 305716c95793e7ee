// Package runner implements the resumable step engine: run the ordered
// install sequence one step per invocation, persist progress durably before
// triggering a reboot, and resume exactly where the previous invocation
// stopped. The progress marker is owned exclusively by this package; no
// collaborator mutates it.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aristath/hidmend/internal/devices"
	"github.com/aristath/hidmend/internal/events"
	"github.com/aristath/hidmend/internal/history"
	"github.com/aristath/hidmend/internal/intake"
	"github.com/aristath/hidmend/internal/plan"
	"github.com/aristath/hidmend/internal/progress"
)

// Resolver locates an installer artifact for a step label.
type Resolver interface {
	Resolve(label, dir string) (*intake.Candidate, bool, error)
}

// Executor runs one installer to a terminal result.
type Executor interface {
	Execute(ctx context.Context, path string) (attempts int, err error)
}

// HealthChecker reports device health. Purely observational.
type HealthChecker interface {
	CheckHealth(ctx context.Context) (devices.HealthReport, error)
}

// Cleaner deregisters stale device instances.
type Cleaner interface {
	Cleanup(ctx context.Context, problems []devices.DeviceIssue) (devices.CleanupReport, error)
}

// RebootFunc triggers the machine reboot after a successful install.
// The runner does not wait past it: the reboot terminates the process.
type RebootFunc func(ctx context.Context) error

// Options wires the runner's collaborators. Marker, Resolver, and Executor
// are required; the rest degrade gracefully when nil.
type Options struct {
	Steps     []plan.Step
	IntakeDir string

	Marker   progress.Store
	Resolver Resolver
	Executor Executor

	Health  HealthChecker // nil: health checks skipped with a warning
	Cleaner Cleaner       // nil: cleanup pre-pass skipped
	Reboot  RebootFunc    // nil: halt without triggering a reboot
	History history.Store // nil: no run history recorded
	Bus     *events.Bus   // nil: no events published
}

// Runner is the resumable step engine.
type Runner struct {
	opts Options
}

// New creates a Runner.
func New(opts Options) (*Runner, error) {
	if len(opts.Steps) == 0 {
		return nil, fmt.Errorf("runner needs a non-empty step sequence")
	}
	if opts.Marker == nil || opts.Resolver == nil || opts.Executor == nil {
		return nil, fmt.Errorf("runner needs marker, resolver, and executor")
	}
	return &Runner{opts: opts}, nil
}

// Run performs one invocation of the state machine and returns its terminal
// outcome. A non-nil error means an internal fault (storage, resolution
// I/O), distinct from the four outcome variants. At most one step is
// executed per invocation: after a successful install the machine must
// reboot before the next step is safe.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	last, err := r.opts.Marker.Read()
	if err != nil {
		if !errors.Is(err, progress.ErrCorruptMarker) {
			return Outcome{}, fmt.Errorf("reading progress marker: %w", err)
		}
		// Fresh start, but never silently: the marker held something.
		slog.Warn("progress marker unreadable, starting from the beginning", "err", err)
		last = progress.None
	}

	r.publish(events.TopicRun, events.RunStartedEvent{ResumeIndex: last, Timestamp: time.Now()})
	runID := r.startHistory(ctx)
	slog.Info("run started", "resume_index", last, "steps", len(r.opts.Steps))

	// Device maintenance pre-pass: unconditional, independent of the state
	// machine, never advances or blocks it.
	healthRep, haveHealth := r.deviceMaintenance(ctx)

	lastIndex := plan.LastIndex(r.opts.Steps)
	if last >= lastIndex {
		if last > lastIndex {
			slog.Warn("progress marker beyond final step, treating sequence as complete",
				"marker", last, "last_index", lastIndex)
		}
		return r.finishComplete(ctx, runID, healthRep, haveHealth)
	}

	cursor := last + 1
	step := r.opts.Steps[cursor]

	cand, ok, err := r.opts.Resolver.Resolve(step.Label, r.opts.IntakeDir)
	if err != nil {
		r.finishHistory(ctx, runID, "error", err.Error())
		return Outcome{}, fmt.Errorf("resolving step %q: %w", step.Label, err)
	}
	if !ok {
		return r.finishMissing(ctx, runID, step), nil
	}

	r.publish(events.TopicStep, events.StepResolvedEvent{
		Index: step.Index, Label: step.Label, Path: cand.Path, Timestamp: time.Now(),
	})
	r.publish(events.TopicStep, events.StepStartedEvent{
		Index: step.Index, Label: step.Label, Path: cand.Path, Timestamp: time.Now(),
	})
	slog.Info("executing step", "index", step.Index, "label", step.Label, "installer", cand.Path)

	start := time.Now()
	attempts, execErr := r.opts.Executor.Execute(ctx, cand.Path)
	if execErr != nil {
		return r.finishFailed(ctx, runID, step, cand.Path, attempts, execErr), nil
	}

	// Commit progress durably before anything can trigger the reboot. If
	// this write fails the installer has still run; the next invocation
	// will re-run it, which steps are required to tolerate.
	if err := r.opts.Marker.Write(step.Index); err != nil {
		r.finishHistory(ctx, runID, "error", "marker write failed: "+err.Error())
		return Outcome{}, fmt.Errorf("step %q succeeded but progress marker was not advanced: %w", step.Label, err)
	}

	r.recordAttempt(ctx, runID, history.Attempt{
		RunID: runID, StepIndex: step.Index, Label: step.Label,
		Artifact: cand.Path, Attempts: attempts, Result: history.ResultSuccess,
	})
	r.publish(events.TopicStep, events.StepCompletedEvent{
		Index: step.Index, Label: step.Label, Attempts: attempts,
		Duration: time.Since(start), Timestamp: time.Now(),
	})
	slog.Info("step completed", "index", step.Index, "label", step.Label, "attempts", attempts)

	out := Outcome{Kind: RebootRequired, CompletedIndex: step.Index, StepLabel: step.Label}
	r.publish(events.TopicRun, events.RebootRequestedEvent{CompletedIndex: step.Index, Timestamp: time.Now()})
	r.finishHistory(ctx, runID, out.String(), out.Describe())
	r.publish(events.TopicRun, events.RunFinishedEvent{Outcome: out.String(), Timestamp: time.Now()})

	r.triggerReboot(ctx)
	return out, nil
}

// deviceMaintenance runs the health scan and the stale-device cleanup pass.
// Failures here are warnings: diagnostics never block step progression.
func (r *Runner) deviceMaintenance(ctx context.Context) (devices.HealthReport, bool) {
	if r.opts.Health == nil {
		slog.Warn("no device diagnostics configured, skipping health check")
		return devices.HealthReport{AllOK: true}, false
	}

	rep, err := r.opts.Health.CheckHealth(ctx)
	haveHealth := true
	if err != nil {
		haveHealth = false
		if errors.Is(err, devices.ErrNotConfigured) {
			slog.Warn("device enumeration not configured, skipping health check")
		} else {
			slog.Warn("device health check failed", "err", err)
		}
	}
	r.publish(events.TopicRun, events.HealthCheckedEvent{
		AllOK: rep.AllOK, Problems: len(rep.Problems), Timestamp: time.Now(),
	})

	if r.opts.Cleaner != nil && len(rep.Problems) > 0 {
		crep, err := r.opts.Cleaner.Cleanup(ctx, rep.Problems)
		if err != nil {
			slog.Warn("device cleanup incomplete", "err", err)
		}
		r.publish(events.TopicRun, events.CleanupCompletedEvent{
			Disabled: crep.Disabled, Skipped: crep.Skipped, Failed: crep.Failed,
			Aborted: crep.Aborted, Timestamp: time.Now(),
		})
		slog.Info("device cleanup finished",
			"disabled", crep.Disabled, "skipped", crep.Skipped, "failed", crep.Failed)
	}

	return rep, haveHealth
}

// finishComplete clears the marker and closes out an already-finished
// sequence: the idempotent no-op path.
func (r *Runner) finishComplete(ctx context.Context, runID int64, rep devices.HealthReport, haveHealth bool) (Outcome, error) {
	if err := r.opts.Marker.Clear(); err != nil {
		r.finishHistory(ctx, runID, "error", "marker clear failed: "+err.Error())
		return Outcome{}, fmt.Errorf("clearing progress marker: %w", err)
	}

	out := Outcome{Kind: AllDone}
	if haveHealth {
		out.Health = &rep
	}
	if haveHealth && !rep.AllOK {
		slog.Warn("sequence complete but device problems remain", "problems", len(rep.Problems))
	}

	r.finishHistory(ctx, runID, out.String(), out.Describe())
	r.publish(events.TopicRun, events.RunFinishedEvent{Outcome: out.String(), Timestamp: time.Now()})
	slog.Info("all steps complete", "healthy", !haveHealth || rep.AllOK)
	return out, nil
}

func (r *Runner) finishMissing(ctx context.Context, runID int64, step plan.Step) Outcome {
	out := Outcome{Kind: MissingInput, StepIndex: step.Index, StepLabel: step.Label}

	r.recordAttempt(ctx, runID, history.Attempt{
		RunID: runID, StepIndex: step.Index, Label: step.Label, Result: history.ResultMissing,
	})
	r.publish(events.TopicStep, events.StepMissingEvent{
		Index: step.Index, Label: step.Label, Timestamp: time.Now(),
	})
	r.finishHistory(ctx, runID, out.String(), out.Describe())
	r.publish(events.TopicRun, events.RunFinishedEvent{Outcome: out.String(), Timestamp: time.Now()})
	slog.Warn("no installer for step", "index", step.Index, "label", step.Label,
		"intake_dir", r.opts.IntakeDir)
	return out
}

func (r *Runner) finishFailed(ctx context.Context, runID int64, step plan.Step, path string, attempts int, execErr error) Outcome {
	out := Outcome{Kind: StepFailed, StepIndex: step.Index, StepLabel: step.Label, Err: execErr}

	r.recordAttempt(ctx, runID, history.Attempt{
		RunID: runID, StepIndex: step.Index, Label: step.Label,
		Artifact: path, Attempts: attempts, Result: history.ResultFailed, Error: execErr.Error(),
	})
	r.publish(events.TopicStep, events.StepFailedEvent{
		Index: step.Index, Label: step.Label, Attempts: attempts, Err: execErr, Timestamp: time.Now(),
	})
	r.finishHistory(ctx, runID, out.String(), out.Describe())
	r.publish(events.TopicRun, events.RunFinishedEvent{Outcome: out.String(), Timestamp: time.Now()})
	slog.Error("step failed, marker not advanced; rerun to retry",
		"index", step.Index, "label", step.Label, "err", execErr)
	return out
}

// triggerReboot fires the configured reboot trigger. A failure is reported
// but does not change the outcome: the operator reboots manually.
func (r *Runner) triggerReboot(ctx context.Context) {
	if r.opts.Reboot == nil {
		slog.Info("no reboot trigger configured, reboot manually to continue")
		return
	}
	slog.Info("triggering reboot")
	if err := r.opts.Reboot(ctx); err != nil {
		slog.Warn("reboot trigger failed, reboot manually to continue", "err", err)
	}
}

func (r *Runner) publish(topic string, e events.Event) {
	if r.opts.Bus != nil {
		r.opts.Bus.Publish(topic, e)
	}
}

func (r *Runner) startHistory(ctx context.Context) int64 {
	if r.opts.History == nil {
		return 0
	}
	id, err := r.opts.History.StartRun(ctx)
	if err != nil {
		slog.Warn("failed to open run history record", "err", err)
		return 0
	}
	return id
}

func (r *Runner) finishHistory(ctx context.Context, runID int64, outcome, detail string) {
	if r.opts.History == nil || runID == 0 {
		return
	}
	if err := r.opts.History.FinishRun(ctx, runID, outcome, detail); err != nil {
		slog.Warn("failed to close run history record", "err", err)
	}
}

func (r *Runner) recordAttempt(ctx context.Context, runID int64, a history.Attempt) {
	if r.opts.History == nil || runID == 0 {
		return
	}
	if err := r.opts.History.RecordAttempt(ctx, a); err != nil {
		slog.Warn("failed to record step attempt", "err", err)
	}
}
