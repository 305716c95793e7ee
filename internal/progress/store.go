// Package progress persists the index of the last successfully completed
// step. The marker is the sole source of truth for resumption across
// reboots: it is advanced only after a step completes and is deleted once
// the full sequence is confirmed done.
package progress

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// None is the marker value meaning no step has completed yet.
const None = -1

// ErrCorruptMarker indicates the marker file exists but does not hold a
// parseable step index. Callers treat this as a fresh start but must log a
// warning; silently discarding the marker would hide data loss.
var ErrCorruptMarker = errors.New("corrupt progress marker")

// Store records the last completed step index on durable storage.
type Store interface {
	// Read returns the last completed index, or None if no record exists.
	// A corrupt record returns None together with an error wrapping
	// ErrCorruptMarker.
	Read() (int, error)

	// Write durably replaces the marker with the given index.
	Write(index int) error

	// Clear removes the marker. Clearing an absent marker is a no-op.
	Clear() error
}

// FileStore implements Store with a single-line text file. Writes go to a
// temp file in the same directory followed by a rename, so an interrupted
// write can never be read back as a torn index.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore persisting to the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Read implements Store.
func (s *FileStore) Read() (int, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return None, nil
	}
	if err != nil {
		return None, fmt.Errorf("reading progress marker: %w", err)
	}

	raw := strings.TrimSpace(string(data))
	index, err := strconv.Atoi(raw)
	if err != nil || index < None {
		return None, fmt.Errorf("%w: %q", ErrCorruptMarker, raw)
	}

	return index, nil
}

// Write implements Store.
func (s *FileStore) Write(index int) error {
	if index < 0 {
		return fmt.Errorf("refusing to write negative step index %d", index)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating marker directory: %w", err)
	}

	// Temp file in the same directory so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(dir, ".progress-*")
	if err != nil {
		return fmt.Errorf("creating temp marker: %w", err)
	}
	tmpName := tmp.Name()

	_, writeErr := fmt.Fprintf(tmp, "%d\n", index)
	if writeErr == nil {
		writeErr = tmp.Sync()
	}
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		os.Remove(tmpName)
		if writeErr != nil {
			return fmt.Errorf("writing temp marker: %w", writeErr)
		}
		return fmt.Errorf("closing temp marker: %w", closeErr)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing progress marker: %w", err)
	}

	return nil
}

// Clear implements Store.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing progress marker: %w", err)
	}
	return nil
}
