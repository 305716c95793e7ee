package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/aristath/hidmend/internal/proc"
)

func TestConfigInitWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cmd := configInitCmd()
	cmd.SetArgs([]string{path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written config: %v", err)
	}
	for _, want := range []string{"Chipset", "Bluetooth", "silent_args"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("written config missing %q", want)
		}
	}

	// Second init without --force refuses to overwrite
	cmd = configInitCmd()
	cmd.SetArgs([]string{path})
	if err := cmd.Execute(); err == nil {
		t.Error("expected refusal to overwrite existing config")
	}

	// --force overwrites
	cmd = configInitCmd()
	cmd.SetArgs([]string{path, "--force"})
	if err := cmd.Execute(); err != nil {
		t.Errorf("config init --force: %v", err)
	}
}

// TestManagerKillAllOnShutdown verifies tracked installer processes are
// terminated during simulated shutdown.
func TestManagerKillAllOnShutdown(t *testing.T) {
	pm := proc.NewManager()

	cmd := proc.Command(context.Background(), "sleep", "60")
	if err := cmd.Start(); err != nil {
		t.Fatalf("starting subprocess: %v", err)
	}
	pm.Track(cmd)

	if count := pm.Count(); count != 1 {
		t.Errorf("tracked processes = %d, want 1", count)
	}

	if err := pm.KillAll(); err != nil {
		t.Errorf("KillAll: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()
	select {
	case err := <-done:
		if err == nil {
			t.Error("expected the process to be killed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("process did not terminate after KillAll")
	}

	// Killed via SIGKILL to the process group
	if state := cmd.ProcessState; state != nil {
		if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signal() != syscall.SIGKILL {
			t.Errorf("process ended with signal %v, want SIGKILL", ws.Signal())
		}
	}
}
