// Package proc provides child-process plumbing shared by the installer
// executor and the device tooling: process-group isolation, deadlock-free
// output capture, and shutdown cleanup of outstanding subprocesses.
package proc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// Command creates an exec.Cmd with process group isolation.
// The Setpgid: true flag ensures the subprocess is in its own process group,
// allowing for clean termination of the entire subprocess tree.
func Command(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true, // Create new process group for signal propagation
	}
	return cmd
}

// Run executes a command and returns its stdout, stderr, and any error.
// Both pipes are drained concurrently before cmd.Wait() is called,
// preventing deadlocks when subprocess output exceeds pipe buffer capacity.
// The optional Manager tracks the subprocess for shutdown cleanup.
func Run(ctx context.Context, cmd *exec.Cmd, pm *Manager) (stdout []byte, stderr []byte, err error) {
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to start command: %w", err)
	}

	if pm != nil {
		pm.Track(cmd)
		defer pm.Untrack(cmd)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&stdoutBuf, stdoutPipe)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&stderrBuf, stderrPipe)
		return err
	})

	// Drain both pipes fully before calling cmd.Wait().
	copyErr := g.Wait()
	waitErr := cmd.Wait()

	stdout = stdoutBuf.Bytes()
	stderr = stderrBuf.Bytes()

	if waitErr != nil {
		if len(stderr) > 0 {
			return stdout, stderr, fmt.Errorf("command failed: %w (stderr: %s)", waitErr, string(stderr))
		}
		return stdout, stderr, fmt.Errorf("command failed: %w", waitErr)
	}
	if copyErr != nil {
		return stdout, stderr, fmt.Errorf("reading command output: %w", copyErr)
	}

	return stdout, stderr, nil
}

// killProcessGroup kills the entire process group associated with the
// command, terminating all child processes rather than just the immediate
// subprocess.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return fmt.Errorf("process not started")
	}

	// Negative PID addresses the whole process group.
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		return fmt.Errorf("failed to kill process group: %w", err)
	}

	return nil
}

// Manager tracks all running subprocesses and can terminate them all on
// shutdown. This prevents zombie installers and device-tool invocations
// when the operator interrupts a run.
//
// Usage pattern (typically in main):
//
//	pm := proc.NewManager()
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer cancel()
//	go func() {
//	  <-ctx.Done()
//	  pm.KillAll()
//	}()
type Manager struct {
	mu    sync.Mutex
	procs map[int]*exec.Cmd
}

// NewManager creates a new Manager.
func NewManager() *Manager {
	return &Manager{
		procs: make(map[int]*exec.Cmd),
	}
}

// Track registers a subprocess for tracking.
// Should be called after cmd.Start() when cmd.Process is available.
func (pm *Manager) Track(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.procs[cmd.Process.Pid] = cmd
}

// Untrack removes a subprocess from tracking.
// Should be called after cmd.Wait() completes.
func (pm *Manager) Untrack(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.procs, cmd.Process.Pid)
}

// KillAll terminates all tracked subprocesses.
// Called during shutdown to ensure clean termination.
func (pm *Manager) KillAll() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	var errs []error
	for pid, cmd := range pm.procs {
		if err := killProcessGroup(cmd); err != nil {
			errs = append(errs, fmt.Errorf("failed to kill process %d: %w", pid, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors killing processes: %v", errs)
	}

	return nil
}

// Count returns the number of currently tracked processes.
// Useful for tests and monitoring.
func (pm *Manager) Count() int {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return len(pm.procs)
}
