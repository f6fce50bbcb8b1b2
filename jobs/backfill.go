package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/servicebook/servicebook/internal/jobs"
	"github.com/servicebook/servicebook/internal/ledger"
)

// BackfillJob stamps records that were stored without a timestamp.
type BackfillJob struct {
	Controller *ledger.Controller
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// NewBackfillJob initialises the backfill handler.
func NewBackfillJob(ctl *ledger.Controller, logger *slog.Logger, metrics *jobmetrics.Metrics) *BackfillJob {
	return &BackfillJob{Controller: ctl, Logger: logger, Metrics: metrics}
}

// Handle runs the backfill. Records that already carry a timestamp are left alone, so reruns
// write nothing.
func (j *BackfillJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Controller == nil {
		return errors.New("backfill: handler not configured")
	}
	payload, err := decodeMaintenance(t)
	if err != nil {
		return err
	}
	tracker := j.Metrics.Track(TaskBackfillTimestamps)
	defer func() { err = tracker.End(err) }()

	logger := loggerOrDefault(j.Logger).With(slog.String("job", TaskBackfillTimestamps))
	if payload.Reason != "" {
		logger = logger.With(slog.String("reason", payload.Reason))
	}

	fixed, err := j.Controller.Backfill(ctx)
	if err != nil {
		logger.Error("backfill failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddRepaired(TaskBackfillTimestamps, fixed)
	if fixed > 0 {
		if err := j.Controller.Handle(ctx, ledger.ReloadAll(TaskBackfillTimestamps)); err != nil {
			return err
		}
		if err := j.Controller.Touch(ctx); err != nil {
			return err
		}
	}
	logger.Info("backfill completed", slog.Int("vehicles", fixed))
	return nil
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
