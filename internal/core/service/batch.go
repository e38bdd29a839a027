package service

import (
	"context"
	"gpuresize/internal/core/domain"
	"gpuresize/internal/core/port"
	"time"

	"github.com/rs/zerolog/log"
)

type Processor interface {
	Process(ctx context.Context, item domain.WorkItem) domain.Result
}

// BatchDriver feeds work items to a Processor one after another. A failed item never stops the run;
// only an unreadable list or a cancelled context ends it early.
type BatchDriver struct {
	processor Processor
	reporter  port.Reporter
	notifier  port.Notifier
}

// NewBatchDriver creates a driver. notifier may be nil.
func NewBatchDriver(processor Processor, reporter port.Reporter, notifier port.Notifier) *BatchDriver {
	return &BatchDriver{processor: processor, reporter: reporter, notifier: notifier}
}

// RunSingle processes exactly one path under the same isolation policy as a list run.
func (d *BatchDriver) RunSingle(ctx context.Context, path string, scale float64) domain.BatchStats {
	start := time.Now()
	stats := domain.BatchStats{Mode: domain.ModeSingle}

	d.reporter.BatchStarted(domain.ModeSingle, scale)
	d.process(ctx, 1, domain.WorkItem{Path: path, Scale: scale}, &stats)

	d.finish(ctx, &stats, start)
	return stats
}

// RunList processes every non-blank line of the list file at listPath. An unopenable list is fatal
// and returns an error wrapping domain.ErrListUnreadable before any item is attempted.
func (d *BatchDriver) RunList(ctx context.Context, listPath string, scale float64) (domain.BatchStats, error) {
	start := time.Now()
	stats := domain.BatchStats{Mode: domain.ModeList}

	list, err := OpenWorkList(listPath)
	if err != nil {
		log.Error().Err(err).Str("list", listPath).Msg("cannot start batch")
		return stats, err
	}
	defer func() {
		if err := list.Close(); err != nil {
			log.Warn().Err(err).Str("list", listPath).Msg("could not close list file")
		}
	}()

	d.reporter.BatchStarted(domain.ModeList, scale)

	for {
		if err = ctx.Err(); err != nil {
			log.Warn().Int("attempted", stats.Attempted).Msg("batch interrupted")
			break
		}

		path, ok := list.Next()
		if !ok {
			err = list.Err()
			break
		}

		d.process(ctx, stats.Attempted+1, domain.WorkItem{Path: path, Scale: scale}, &stats)
	}

	if err != nil {
		log.Error().Err(err).Str("list", listPath).Int("line", list.Line()).Msg("batch stopped early")
	}

	d.finish(ctx, &stats, start)
	return stats, err
}

func (d *BatchDriver) process(ctx context.Context, index int, item domain.WorkItem, stats *domain.BatchStats) {
	d.reporter.ItemStarted(index, item)
	// cancellation is only observed between items, a started item runs to completion
	res := d.processor.Process(context.WithoutCancel(ctx), item)
	stats.Record(res)
	d.reporter.ItemFinished(res)
}

func (d *BatchDriver) finish(ctx context.Context, stats *domain.BatchStats, start time.Time) {
	stats.Elapsed = time.Since(start)
	d.reporter.BatchFinished(*stats)

	log.Info().
		Str("mode", string(stats.Mode)).
		Int("attempted", stats.Attempted).
		Int("succeeded", stats.Succeeded).
		Int("failed", stats.Failed).
		Dur("elapsed", stats.Elapsed).
		Msg("batch finished")

	if d.notifier == nil {
		return
	}

	// the summary still goes out after an interrupt
	if err := d.notifier.NotifyBatch(context.WithoutCancel(ctx), *stats); err != nil {
		log.Warn().Err(err).Msg("could not deliver batch notification")
	}
}
