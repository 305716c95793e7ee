// Package intake resolves a step label to an installer artifact in the
// intake directory. Resolution is a pure function of the label and the
// directory contents; the provider never writes to the directory.
package intake

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Candidate is a resolved installer artifact for a step.
type Candidate struct {
	Path    string
	ModTime time.Time
}

// Provider locates installer candidates by label.
type Provider struct {
	extensions map[string]struct{}
}

// NewProvider creates a Provider recognizing the given filename extensions
// (case-insensitive, leading dot expected, e.g. ".run").
func NewProvider(extensions []string) *Provider {
	exts := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = struct{}{}
	}
	return &Provider{extensions: exts}
}

// Resolve scans dir (non-recursive) for installer files whose name contains
// label case-insensitively. Among matches it picks the latest modification
// time; on an exact timestamp tie the lexicographically greatest filename
// wins, so versioned artifacts resolve to the highest version. Zero matches
// returns ok=false with no error: a missing driver file is an expected,
// user-actionable condition, not a failure.
func (p *Provider) Resolve(label, dir string) (*Candidate, bool, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		// An absent intake directory simply has no candidates.
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("scanning intake directory: %w", err)
	}

	needle := strings.ToLower(label)

	var best *Candidate
	var bestName string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		lower := strings.ToLower(name)

		if _, ok := p.extensions[filepath.Ext(lower)]; !ok {
			continue
		}
		if !strings.Contains(lower, needle) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, false, fmt.Errorf("stat %s: %w", name, err)
		}

		if best == nil || info.ModTime().After(best.ModTime) ||
			(info.ModTime().Equal(best.ModTime) && name > bestName) {
			best = &Candidate{
				Path:    filepath.Join(dir, name),
				ModTime: info.ModTime(),
			}
			bestName = name
		}
	}

	if best == nil {
		return nil, false, nil
	}
	return best, true, nil
}
