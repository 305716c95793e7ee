package report

import (
	"fmt"
	"io"

	"github.com/aristath/hidmend/internal/history"
	"github.com/aristath/hidmend/internal/plan"
	"github.com/aristath/hidmend/internal/progress"
)

// RenderStatus writes a checklist of the configured steps against the
// current progress marker: completed steps, the step the next invocation
// will run, and the remainder.
func RenderStatus(w io.Writer, steps []plan.Step, marker int) {
	fmt.Fprintln(w, styleTitle.Render("Driver maintenance status"))

	if marker >= plan.LastIndex(steps) {
		for _, s := range steps {
			fmt.Fprintf(w, "  %s %s\n", styleDone.Render("✓"), s.Label)
		}
		if marker > plan.LastIndex(steps) {
			fmt.Fprintln(w, styleWarn.Render("  marker is beyond the final step"))
		}
		fmt.Fprintln(w, styleDetail.Render("  all steps complete; next run clears the marker"))
		return
	}

	for _, s := range steps {
		switch {
		case s.Index <= marker:
			fmt.Fprintf(w, "  %s %s\n", styleDone.Render("✓"), s.Label)
		case s.Index == marker+1:
			fmt.Fprintf(w, "  %s %s %s\n", styleRunning.Render("▶"), s.Label,
				styleDetail.Render("(next)"))
		default:
			fmt.Fprintf(w, "  %s\n", stylePending.Render("● "+s.Label))
		}
	}

	if marker == progress.None {
		fmt.Fprintln(w, styleDetail.Render("  no progress recorded yet"))
	}
}

// RenderHistory writes the most recent runs, newest first.
func RenderHistory(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, styleDetail.Render("  no recorded runs"))
		return
	}

	fmt.Fprintln(w, styleTitle.Render("Recent runs"))
	for _, r := range runs {
		style := styleDone
		switch r.Outcome {
		case "step-failed":
			style = styleFailed
		case "missing-input", "reboot-required":
			style = styleWarn
		}
		line := fmt.Sprintf("  %s %s %s",
			r.StartedAt.Format("2006-01-02 15:04:05"),
			style.Render(r.Outcome), styleDetail.Render(r.Detail))
		fmt.Fprintln(w, line)
	}
}
