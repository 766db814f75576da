package worker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"capprices/internal/amqp"
	"capprices/internal/core"
	"capprices/internal/export"
	applog "capprices/internal/log"
)

// LatestReader returns the most recent run stored locally.
type LatestReader interface {
	LatestMonthly(ctx context.Context) (core.Run, core.MonthlyStats, error)
}

// StatsRelay forwards published monthly statistics to the configured targets.
// It logs through the logger carried by the context.
type StatsRelay struct {
	targets []export.Named[export.StatsWriter]
	latest  LatestReader
}

// NewStatsRelay returns a relay writing to targets. latest may be nil when no
// local store is available for the startup sync.
func NewStatsRelay(targets []export.Named[export.StatsWriter], latest LatestReader) *StatsRelay {
	return &StatsRelay{targets: targets, latest: latest}
}

func logger(ctx context.Context) *applog.Logger {
	return applog.FromContext(ctx).WithComponent(applog.ComponentAMQP)
}

// HandleMessage writes the statistics of msg to every target. The returned
// error collects every target failure, so the broker requeues the message.
// A decoding failure matches amqp.ErrUndecodable and is dropped instead.
func (w *StatsRelay) HandleMessage(ctx context.Context, msg *amqp.MonthlyStatsMessage) error {
	logger(ctx).InfoContext(ctx, "Relaying monthly stats",
		applog.FieldRunID, msg.RunID,
		"entities", len(msg.Entities))

	run, stats, err := msg.Decode()
	if err != nil {
		return fmt.Errorf("decode message %s: %w", msg.RunID, err)
	}
	return w.write(ctx, run, stats)
}

// StartupSync pushes the latest locally stored run to the targets, covering
// messages missed while the worker was down.
func (w *StatsRelay) StartupSync(ctx context.Context) error {
	if w.latest == nil {
		return nil
	}

	run, stats, err := w.latest.LatestMonthly(ctx)
	if errors.Is(err, core.ErrNotFound) {
		logger(ctx).InfoContext(ctx, "No stored run found on startup")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read latest run: %w", err)
	}

	logger(ctx).InfoContext(ctx, "Syncing latest stored run on startup", applog.FieldRunID, run.ID.String())
	return w.write(ctx, run, stats)
}

func (w *StatsRelay) write(ctx context.Context, run core.Run, stats core.MonthlyStats) error {
	var errs error
	for _, target := range w.targets {
		if err := target.Sink.WriteMonthly(ctx, run, stats); err != nil {
			logger(ctx).ErrorContext(ctx, "Failed to relay monthly stats",
				applog.FieldSink, target.Name,
				applog.FieldRunID, run.ID.String(),
				applog.FieldError, err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", target.Name, err))
		}
	}
	return errs
}
