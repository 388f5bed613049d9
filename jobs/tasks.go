package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pos/internal/register"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSaleRecord persists a completed register sale.
	TaskTypeSaleRecord = "sales:record"

	saleRecordMaxRetry = 10
)

// SaleRecordPayload carries the receipt produced by a register checkout.
type SaleRecordPayload struct {
	Receipt register.Receipt `json:"receipt"`
}

// NewSaleRecordTask constructs an Asynq task for receipt. The receipt id is the
// task id, so a sale is queued at most once while it is retained.
func NewSaleRecordTask(receipt register.Receipt) (*asynq.Task, error) {
	data, err := json.Marshal(SaleRecordPayload{Receipt: receipt})
	if err != nil {
		return nil, fmt.Errorf("jobs: encode sale payload: %w", err)
	}
	return asynq.NewTask(TaskTypeSaleRecord, data,
		asynq.TaskID(receipt.ID.String()),
		asynq.MaxRetry(saleRecordMaxRetry),
		asynq.Queue(QueueDefault),
	), nil
}
