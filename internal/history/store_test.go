package history

import (
	"context"
	"testing"
)

// testStore creates an in-memory store for testing and registers cleanup.
func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewMemoryStore(context.Background())
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func TestStartAndFinishRun(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	runID, err := store.StartRun(ctx)
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	if err := store.FinishRun(ctx, runID, "reboot-required", "completed step 0 (Chipset)"); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := store.RecentRuns(ctx, 5)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	r := runs[0]
	if r.ID != runID {
		t.Errorf("ID = %d, want %d", r.ID, runID)
	}
	if r.Outcome != "reboot-required" {
		t.Errorf("Outcome = %q", r.Outcome)
	}
	if r.FinishedAt.IsZero() {
		t.Error("expected FinishedAt to be set")
	}
	if r.StartedAt.IsZero() {
		t.Error("expected StartedAt to be set")
	}
}

func TestFinishUnknownRun(t *testing.T) {
	store := testStore(t)
	if err := store.FinishRun(context.Background(), 999, "done", ""); err == nil {
		t.Error("expected error finishing unknown run")
	}
}

func TestRecordAndListAttempts(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	runID, err := store.StartRun(ctx)
	if err != nil {
		t.Fatal(err)
	}

	attempts := []Attempt{
		{RunID: runID, StepIndex: 0, Label: "Chipset", Artifact: "/intake/chipset.run", Attempts: 2, Result: ResultSuccess},
		{RunID: runID, StepIndex: 1, Label: "Serial-IO", Attempts: 0, Result: ResultMissing},
	}
	for _, a := range attempts {
		if err := store.RecordAttempt(ctx, a); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}

	got, err := store.AttemptsForRun(ctx, runID)
	if err != nil {
		t.Fatalf("AttemptsForRun: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(got))
	}
	if got[0].Label != "Chipset" || got[0].Attempts != 2 || got[0].Result != ResultSuccess {
		t.Errorf("first attempt: %+v", got[0])
	}
	if got[1].Label != "Serial-IO" || got[1].Result != ResultMissing {
		t.Errorf("second attempt: %+v", got[1])
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestRecentRunsOrderAndLimit(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	var ids []int64
	for n := 0; n < 5; n++ {
		id, err := store.StartRun(ctx)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	runs, err := store.RecentRuns(ctx, 3)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	// Newest first: the last started run leads
	if runs[0].ID != ids[len(ids)-1] {
		t.Errorf("expected newest run %d first, got %d", ids[len(ids)-1], runs[0].ID)
	}
	if runs[0].ID < runs[1].ID || runs[1].ID < runs[2].ID {
		t.Errorf("runs not in descending order: %v", runs)
	}
}

func TestRecentRunsEmptyStore(t *testing.T) {
	store := testStore(t)
	runs, err := store.RecentRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}
