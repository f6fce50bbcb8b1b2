package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBackfillTimestamps assigns timestamps to records stored without one.
	TaskBackfillTimestamps = "ledger:backfill_timestamps"
	// TaskNormalizeSort renumbers sort indices of companies, vehicles and catalogs densely.
	TaskNormalizeSort = "ledger:normalize_sort"
)

// MaintenancePayload carries scheduling metadata for maintenance tasks.
type MaintenancePayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
	Reason       string    `json:"reason,omitempty"`
}

// NewBackfillTimestampsTask constructs the timestamp backfill task.
func NewBackfillTimestampsTask(payload MaintenancePayload) (*asynq.Task, error) {
	return newMaintenanceTask(TaskBackfillTimestamps, payload)
}

// NewNormalizeSortTask constructs the sort normalization task.
func NewNormalizeSortTask(payload MaintenancePayload) (*asynq.Task, error) {
	return newMaintenanceTask(TaskNormalizeSort, payload)
}

func newMaintenanceTask(typ string, payload MaintenancePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typ, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

func decodeMaintenance(t *asynq.Task) (MaintenancePayload, error) {
	var payload MaintenancePayload
	if len(t.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, asynq.SkipRetry
	}
	return payload, nil
}
