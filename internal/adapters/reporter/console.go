package reporter

import (
	"fmt"
	"gpuresize/internal/core/domain"
	"io"
	"time"
)

// Console prints human-readable progress lines.
type Console struct {
	w io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) BatchStarted(mode domain.RunMode, scale float64) {
	fmt.Fprintf(c.w, "Scale factor: %g\n", scale)
	if mode == domain.ModeList {
		fmt.Fprintln(c.w, "Batch processing mode enabled")
	}
}

func (c *Console) ItemStarted(index int, item domain.WorkItem) {
	fmt.Fprintf(c.w, "[%d] Processing: %s\n", index, item.Path)
}

func (c *Console) ItemFinished(r domain.Result) {
	switch {
	case r.OK():
		fmt.Fprintf(c.w, "Output saved to: %s (%s -> %s, %s)\n", r.Output, r.Source, r.Dest, r.Elapsed.Round(time.Microsecond))
	case r.Failure == domain.FailureOpen:
		fmt.Fprintf(c.w, "Unable to open file: %s\n", r.Item.Path)
	default:
		fmt.Fprintf(c.w, "Failed to process %s (%s while %s): %s\n", r.Item.Path, r.Failure, r.Stage, r.Reason())
	}
}

func (c *Console) BatchFinished(stats domain.BatchStats) {
	if stats.Mode == domain.ModeList {
		fmt.Fprintf(c.w, "Batch processing complete. %d of %d images resized in %s.\n",
			stats.Succeeded, stats.Attempted, stats.Elapsed.Round(time.Microsecond))
	}

	if stats.Failed == 0 {
		return
	}

	fmt.Fprintf(c.w, "%d failed:\n", stats.Failed)
	for _, r := range stats.Failures {
		fmt.Fprintf(c.w, "  %s: %s\n", r.Item.Path, r.Failure)
	}
}
