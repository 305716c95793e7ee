package installer

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

// recordingRunner records every invocation and replays scripted results.
type recordingRunner struct {
	calls   [][]string // each call: name followed by args
	results []error
}

func (r *recordingRunner) run(ctx context.Context, name string, args ...string) error {
	r.calls = append(r.calls, append([]string{name}, args...))
	if len(r.results) == 0 {
		return nil
	}
	res := r.results[0]
	r.results = r.results[1:]
	return res
}

func TestExecuteSilentSuccess(t *testing.T) {
	rr := &recordingRunner{results: []error{nil}}
	e := NewWithRunner([]string{"--quiet", "--no-restart"}, rr.run)

	attempts, err := e.Execute(context.Background(), "/intake/chipset.run")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}

	want := [][]string{{"/intake/chipset.run", "--quiet", "--no-restart"}}
	if !reflect.DeepEqual(rr.calls, want) {
		t.Errorf("calls = %v, want %v", rr.calls, want)
	}
}

func TestExecuteFallbackSucceeds(t *testing.T) {
	silentErr := errors.New("exit status 2")
	rr := &recordingRunner{results: []error{silentErr, nil}}
	e := NewWithRunner([]string{"--quiet"}, rr.run)

	attempts, err := e.Execute(context.Background(), "/intake/chipset.run")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}

	want := [][]string{
		{"/intake/chipset.run", "--quiet"},
		{"/intake/chipset.run"}, // fallback drops the silent flags
	}
	if !reflect.DeepEqual(rr.calls, want) {
		t.Errorf("calls = %v, want %v", rr.calls, want)
	}
}

func TestExecuteFallbackFails(t *testing.T) {
	silentErr := errors.New("silent refused")
	fallbackErr := errors.New("exit status 1")
	rr := &recordingRunner{results: []error{silentErr, fallbackErr}}
	e := NewWithRunner([]string{"--quiet"}, rr.run)

	attempts, err := e.Execute(context.Background(), "/intake/chipset.run")
	if err == nil {
		t.Fatal("expected terminal error")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if !errors.Is(err, fallbackErr) {
		t.Errorf("terminal error should wrap the fallback failure, got %v", err)
	}
	// Exactly two attempts: no further retries
	if len(rr.calls) != 2 {
		t.Errorf("expected exactly 2 invocations, got %d", len(rr.calls))
	}
}

func TestExecuteNoSilentFlagsSingleAttempt(t *testing.T) {
	launchErr := fmt.Errorf("no such file")
	rr := &recordingRunner{results: []error{launchErr}}
	e := NewWithRunner(nil, rr.run)

	attempts, err := e.Execute(context.Background(), "/intake/chipset.run")
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1: identical re-invocation is not a fallback", attempts)
	}
	if len(rr.calls) != 1 {
		t.Errorf("expected exactly 1 invocation, got %d", len(rr.calls))
	}
}
