package port

import (
	"context"
	"gpuresize/internal/core/domain"
)

type Reporter interface {
	// BatchStarted announces a run before the first item is attempted.
	BatchStarted(mode domain.RunMode, scale float64)
	// ItemStarted is called once per attempted item, index counts from 1.
	ItemStarted(index int, item domain.WorkItem)
	// ItemFinished reports the outcome of a single item.
	ItemFinished(result domain.Result)
	// BatchFinished prints the summary of a run.
	BatchFinished(stats domain.BatchStats)
}

type Notifier interface {
	// NotifyBatch delivers a run summary to an external channel.
	NotifyBatch(ctx context.Context, stats domain.BatchStats) error
}
