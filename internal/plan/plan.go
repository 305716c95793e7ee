// Package plan turns the configured step list into the fixed ordered
// sequence the runner executes. The declared order is the execution order;
// "after" constraints are validated against it, never used to reorder.
package plan

import (
	"fmt"
	"strings"

	"github.com/gammazero/toposort"

	"github.com/aristath/hidmend/internal/config"
)

// Step is one unit of installable work in the fixed sequence.
type Step struct {
	Index int    // Position in the sequence, 0-based, stable across runs
	Label string // Driver category, matched against installer filenames
}

// Build validates the configured steps and returns the ordered sequence.
// Labels must be unique (case-insensitive). Every "after" reference must
// name an existing step that appears earlier in the declared order, and the
// constraint graph must be acyclic.
func Build(steps []config.StepConfig) ([]Step, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("step sequence is empty")
	}

	position := make(map[string]int, len(steps))
	for i, s := range steps {
		if strings.TrimSpace(s.Label) == "" {
			return nil, fmt.Errorf("step %d has an empty label", i)
		}
		key := strings.ToLower(s.Label)
		if prev, exists := position[key]; exists {
			return nil, fmt.Errorf("duplicate step label %q (positions %d and %d)", s.Label, prev, i)
		}
		position[key] = i
	}

	// Build edges for topological sort. Edge (after, step) means the
	// constraint target must come before the step.
	var edges []toposort.Edge
	for i, s := range steps {
		if len(s.After) == 0 {
			edges = append(edges, toposort.Edge{nil, strings.ToLower(s.Label)})
			continue
		}
		for _, after := range s.After {
			dep, exists := position[strings.ToLower(after)]
			if !exists {
				return nil, fmt.Errorf("step %q declares after=%q which is not a configured step", s.Label, after)
			}
			if dep >= i {
				return nil, fmt.Errorf("step %q declares after=%q but %q is not earlier in the sequence", s.Label, after, after)
			}
			edges = append(edges, toposort.Edge{strings.ToLower(after), strings.ToLower(s.Label)})
		}
	}

	// The earlier-position check above already rules out cycles within the
	// declared order; the sort still runs so malformed constraint graphs
	// surface as a single coherent error.
	if _, err := toposort.Toposort(edges); err != nil {
		return nil, fmt.Errorf("step constraints contain cycle: %w", err)
	}

	ordered := make([]Step, len(steps))
	for i, s := range steps {
		ordered[i] = Step{Index: i, Label: s.Label}
	}
	return ordered, nil
}

// LastIndex returns the index of the final step, or -1 for an empty sequence.
func LastIndex(steps []Step) int {
	return len(steps) - 1
}
