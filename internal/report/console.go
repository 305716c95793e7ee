// Package report renders run progress on the operator's terminal. It is a
// pure consumer of the events bus: the runner stays unaware of how, or
// whether, its progress is displayed.
package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aristath/hidmend/internal/events"
)

// Console prints one line per event as a run progresses.
type Console struct {
	w    io.Writer
	wg   sync.WaitGroup
	once sync.Once
}

// NewConsole starts a Console draining events from the bus. Call Wait after
// the bus is closed to flush remaining output.
func NewConsole(w io.Writer, bus *events.Bus) *Console {
	c := &Console{w: w}
	ch := bus.SubscribeAll(64)
	c.wg.Add(1)
	go c.drain(ch)
	return c
}

// Wait blocks until the event channel is drained. The bus must be closed
// first or Wait blocks forever.
func (c *Console) Wait() {
	c.once.Do(c.wg.Wait)
}

func (c *Console) drain(ch <-chan events.Event) {
	defer c.wg.Done()
	for e := range ch {
		c.render(e)
	}
}

func (c *Console) render(e events.Event) {
	switch ev := e.(type) {
	case events.RunStartedEvent:
		if ev.ResumeIndex >= 0 {
			fmt.Fprintln(c.w, styleTitle.Render("Resuming driver maintenance"),
				styleDetail.Render(fmt.Sprintf("(last completed step %d)", ev.ResumeIndex)))
		} else {
			fmt.Fprintln(c.w, styleTitle.Render("Starting driver maintenance"))
		}
	case events.HealthCheckedEvent:
		if ev.AllOK {
			fmt.Fprintf(c.w, "  %s devices healthy\n", styleDone.Render("✓"))
		} else {
			fmt.Fprintf(c.w, "  %s %d device problem(s) detected\n",
				styleWarn.Render("!"), ev.Problems)
		}
	case events.CleanupCompletedEvent:
		line := fmt.Sprintf("  %s cleanup: %d disabled, %d skipped, %d failed",
			styleWarn.Render("!"), ev.Disabled, ev.Skipped, ev.Failed)
		if ev.Aborted {
			line += styleFailed.Render(" (aborted)")
		}
		fmt.Fprintln(c.w, line)
	case events.StepStartedEvent:
		fmt.Fprintf(c.w, "  %s %s %s\n", styleRunning.Render("▶"), ev.Label,
			styleDetail.Render(ev.Path))
	case events.StepCompletedEvent:
		fmt.Fprintf(c.w, "  %s %s %s\n", styleDone.Render("✓"), ev.Label,
			styleDetail.Render(fmt.Sprintf("(%d attempt(s), %s)", ev.Attempts, ev.Duration.Round(100*time.Millisecond))))
	case events.StepMissingEvent:
		fmt.Fprintf(c.w, "  %s %s %s\n", styleWarn.Render("?"), ev.Label,
			styleDetail.Render("no installer found"))
	case events.StepFailedEvent:
		fmt.Fprintf(c.w, "  %s %s: %v\n", styleFailed.Render("✗"),
			styleFailed.Render(ev.Label), ev.Err)
	case events.RebootRequestedEvent:
		fmt.Fprintf(c.w, "  %s reboot required to continue\n", styleWarn.Render("↻"))
	case events.RunFinishedEvent:
		fmt.Fprintln(c.w, styleTitle.Render("Run finished:"), ev.Outcome)
	}
}
