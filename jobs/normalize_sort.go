package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/servicebook/servicebook/internal/jobs"
	"github.com/servicebook/servicebook/internal/ledger"
)

// Normalizer renumbers one catalog densely.
type Normalizer interface {
	Normalize(ctx context.Context) (int, error)
}

// NormalizeSortJob re-densifies sort indices left sparse by deletes and old clients.
type NormalizeSortJob struct {
	Controller *ledger.Controller
	Catalogs   map[string]Normalizer
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// NewNormalizeSortJob initialises the handler. catalogs is keyed by collection name for logging.
func NewNormalizeSortJob(ctl *ledger.Controller, catalogs map[string]Normalizer, logger *slog.Logger, metrics *jobmetrics.Metrics) *NormalizeSortJob {
	return &NormalizeSortJob{Controller: ctl, Catalogs: catalogs, Logger: logger, Metrics: metrics}
}

// Handle renumbers companies, vehicles and every catalog.
func (j *NormalizeSortJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Controller == nil {
		return errors.New("normalize sort: handler not configured")
	}
	if _, err := decodeMaintenance(t); err != nil {
		return err
	}
	tracker := j.Metrics.Track(TaskNormalizeSort)
	defer func() { err = tracker.End(err) }()
	logger := loggerOrDefault(j.Logger).With(slog.String("job", TaskNormalizeSort))

	total, err := j.normalizeLedger(ctx)
	if err != nil {
		logger.Error("normalize ledger failed", slog.Any("error", err))
		return err
	}
	for name, c := range j.Catalogs {
		n, err := c.Normalize(ctx)
		if err != nil {
			logger.Error("normalize catalog failed", slog.String("catalog", name), slog.Any("error", err))
			return err
		}
		total += n
	}
	if total > 0 {
		if err := j.Controller.Touch(ctx); err != nil {
			return err
		}
	}
	j.Metrics.AddRepaired(TaskNormalizeSort, total)
	logger.Info("sort indices normalized", slog.Int("rewritten", total))
	return nil
}

func (j *NormalizeSortJob) normalizeLedger(ctx context.Context) (int, error) {
	if err := j.Controller.Reload(ctx); err != nil {
		return 0, err
	}
	updated, writes := ledger.Densify(j.Controller.Snapshot())
	if len(writes) == 0 {
		return 0, nil
	}
	if err := j.Controller.Persist(ctx, writes); err != nil {
		return 0, err
	}
	return len(writes), j.Controller.Handle(ctx, ledger.Merge(TaskNormalizeSort, updated, ledger.ScopeAll))
}
