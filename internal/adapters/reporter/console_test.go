package reporter

import (
	"bytes"
	"errors"
	"gpuresize/internal/core/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConsole_BatchStarted(t *testing.T) {
	tests := []struct {
		name string
		mode domain.RunMode
		want string
	}{
		{name: "single", mode: domain.ModeSingle, want: "Scale factor: 0.5\n"},
		{name: "list", mode: domain.ModeList, want: "Scale factor: 0.5\nBatch processing mode enabled\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewConsole(&buf).BatchStarted(tc.mode, 0.5)
			assert.Equal(t, tc.want, buf.String())
		})
	}
}

func TestConsole_Items(t *testing.T) {
	item := domain.WorkItem{Path: "a.pgm", Scale: 0.5}

	tests := []struct {
		name   string
		result domain.Result
		want   string
	}{
		{
			name: "success",
			result: domain.Result{
				Item:    item,
				Output:  "a_resized.pgm",
				Source:  domain.Size{Width: 512, Height: 512},
				Dest:    domain.Size{Width: 256, Height: 256},
				Stage:   domain.StageDone,
				Elapsed: 3 * time.Millisecond,
			},
			want: "Output saved to: a_resized.pgm (512x512 -> 256x256, 3ms)\n",
		},
		{
			name: "unopenable",
			result: domain.Result{
				Item:    item,
				Stage:   domain.StageProbing,
				Failure: domain.FailureOpen,
				Err:     errors.New("no such file"),
			},
			want: "Unable to open file: a.pgm\n",
		},
		{
			name: "degenerate",
			result: domain.Result{
				Item:    item,
				Stage:   domain.StageSizingDestination,
				Failure: domain.FailureSize,
				Err:     domain.ErrDegenerateSize,
			},
			want: "Failed to process a.pgm (size while sizing destination): " + domain.ErrDegenerateSize.Error() + "\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			c := NewConsole(&buf)
			c.ItemStarted(2, item)
			c.ItemFinished(tc.result)
			assert.Equal(t, "[2] Processing: a.pgm\n"+tc.want, buf.String())
		})
	}
}

func TestConsole_BatchFinished(t *testing.T) {
	failed := domain.Result{
		Item:    domain.WorkItem{Path: "missing.pgm"},
		Failure: domain.FailureOpen,
		Err:     errors.New("gone"),
	}

	tests := []struct {
		name  string
		stats domain.BatchStats
		want  string
	}{
		{
			name:  "single success",
			stats: domain.BatchStats{Mode: domain.ModeSingle, Attempted: 1, Succeeded: 1},
			want:  "",
		},
		{
			name: "list with failure",
			stats: domain.BatchStats{
				Mode:      domain.ModeList,
				Attempted: 3,
				Succeeded: 2,
				Failed:    1,
				Failures:  []domain.Result{failed},
				Elapsed:   2 * time.Second,
			},
			want: "Batch processing complete. 2 of 3 images resized in 2s.\n1 failed:\n  missing.pgm: open\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewConsole(&buf).BatchFinished(tc.stats)
			assert.Equal(t, tc.want, buf.String())
		})
	}
}
