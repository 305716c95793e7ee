package intake

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFileAt(t *testing.T, dir, name string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("installer"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolve(t *testing.T) {
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		files    map[string]time.Time // name -> mtime
		label    string
		wantOK   bool
		wantName string
	}{
		{
			name:   "no files",
			files:  map[string]time.Time{},
			label:  "Chipset",
			wantOK: false,
		},
		{
			name: "no match for label",
			files: map[string]time.Time{
				"bluetooth-driver.run": base,
			},
			label:  "Chipset",
			wantOK: false,
		},
		{
			name: "case-insensitive substring match",
			files: map[string]time.Time{
				"vendor-CHIPSET-2.1.run": base,
			},
			label:    "chipset",
			wantOK:   true,
			wantName: "vendor-CHIPSET-2.1.run",
		},
		{
			name: "wrong extension ignored",
			files: map[string]time.Time{
				"chipset-notes.txt": base,
			},
			label:  "Chipset",
			wantOK: false,
		},
		{
			name: "latest mtime wins",
			files: map[string]time.Time{
				"chipset-old.run": base.Add(-time.Hour),
				"chipset-new.run": base,
			},
			label:    "Chipset",
			wantOK:   true,
			wantName: "chipset-new.run",
		},
		{
			name: "equal mtime breaks tie by greatest name",
			files: map[string]time.Time{
				"chipset-v1.run": base,
				"chipset-v2.run": base,
			},
			label:    "Chipset",
			wantOK:   true,
			wantName: "chipset-v2.run",
		},
		{
			name: "extension match is case-insensitive",
			files: map[string]time.Time{
				"chipset.RUN": base,
			},
			label:    "Chipset",
			wantOK:   true,
			wantName: "chipset.RUN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, mtime := range tt.files {
				writeFileAt(t, dir, name, mtime)
			}

			p := NewProvider([]string{".run", ".bin"})
			got, ok, err := p.Resolve(tt.label, dir)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if filepath.Base(got.Path) != tt.wantName {
				t.Errorf("resolved %q, want %q", filepath.Base(got.Path), tt.wantName)
			}
		})
	}
}

// TestResolveTieBreakDeterministic pins the tie-break rule: with identical
// modification times, Resolve returns the same candidate on every call.
func TestResolveTieBreakDeterministic(t *testing.T) {
	dir := t.TempDir()
	mtime := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	writeFileAt(t, dir, "serial-io-a.run", mtime)
	writeFileAt(t, dir, "serial-io-b.run", mtime)
	writeFileAt(t, dir, "serial-io-c.run", mtime)

	p := NewProvider([]string{".run"})
	for n := 0; n < 20; n++ {
		got, ok, err := p.Resolve("Serial-IO", dir)
		if err != nil || !ok {
			t.Fatalf("Resolve: ok=%v err=%v", ok, err)
		}
		if filepath.Base(got.Path) != "serial-io-c.run" {
			t.Fatalf("tie-break not deterministic: got %q", filepath.Base(got.Path))
		}
	}
}

func TestResolveNonRecursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	writeFileAt(t, sub, "chipset.run", time.Now())

	p := NewProvider([]string{".run"})
	_, ok, err := p.Resolve("Chipset", dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ok {
		t.Error("nested files must not be resolved")
	}
}

func TestResolveAbsentDirectory(t *testing.T) {
	p := NewProvider([]string{".run"})
	_, ok, err := p.Resolve("Chipset", filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("absent intake dir should not error: %v", err)
	}
	if ok {
		t.Error("absent intake dir should resolve nothing")
	}
}
