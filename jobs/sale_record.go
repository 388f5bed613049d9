package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
	"github.com/odyssey-erp/odyssey-pos/internal/store"
)

const saleRecordJob = "sales_record"

// SaleRecordJob writes completed sales into the record store.
type SaleRecordJob struct {
	store   store.RecordStore
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewSaleRecordJob constructs the sale handler.
func NewSaleRecordJob(records store.RecordStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *SaleRecordJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SaleRecordJob{store: records, logger: logger, metrics: metrics}
}

// Handle processes TaskTypeSaleRecord tasks.
func (j *SaleRecordJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SaleRecordPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		j.logger.Error("sale record: decode payload", slog.Any("error", err))
		j.metrics.AddSkipped("invalid_payload")
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	receipt := payload.Receipt
	if receipt.ID == uuid.Nil || len(receipt.Lines) == 0 {
		j.logger.Error("sale record: incomplete receipt", slog.String("receipt_id", receipt.ID.String()))
		j.metrics.AddSkipped("invalid_payload")
		return fmt.Errorf("incomplete receipt: %w", asynq.SkipRetry)
	}

	tracker := j.metrics.Track(saleRecordJob)
	err := j.store.WithTx(ctx, func(ctx context.Context, tx store.RecordStore) error {
		existing, err := tx.FetchRows(ctx, store.TableSales, store.Filter{"receipt_id": receipt.ID.String()})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return errSaleRecorded
		}
		sale, err := tx.InsertRow(ctx, store.TableSales, store.Row{
			"receipt_id":   receipt.ID.String(),
			"register_id":  receipt.RegisterID,
			"total":        receipt.Total,
			"payment":      receipt.Payment,
			"change_due":   receipt.Change,
			"debt":         receipt.Debt,
			"customer":     receipt.Customer,
			"completed_at": receipt.CompletedAt.UTC(),
		})
		if err != nil {
			return err
		}
		saleID := sale.Int64("id")
		for _, line := range receipt.Lines {
			if _, err := tx.InsertRow(ctx, store.TableSaleLines, store.Row{
				"sale_id":    saleID,
				"product_id": line.ID,
				"name":       line.Name,
				"price":      line.Price,
				"quantity":   line.Quantity,
			}); err != nil {
				return err
			}
		}
		if receipt.IsDebtSale() {
			if _, err := tx.InsertRow(ctx, store.TableCustomerDebts, store.Row{
				"sale_id":    saleID,
				"customer":   receipt.Customer,
				"amount":     receipt.Debt,
				"created_at": receipt.CompletedAt.UTC(),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, errSaleRecorded) || errors.Is(err, store.ErrDuplicate) {
		j.logger.Info("sale record: already stored", slog.String("receipt_id", receipt.ID.String()))
		j.metrics.AddSkipped("duplicate")
		return tracker.End(nil)
	}
	if err != nil {
		j.logger.Error("sale record: persist", slog.String("receipt_id", receipt.ID.String()), slog.Any("error", err))
		return tracker.End(fmt.Errorf("jobs: record sale %s: %w", receipt.ID, err))
	}
	j.metrics.ObserveLag(saleRecordJob, receipt.CompletedAt)
	j.logger.Info("sale recorded",
		slog.String("receipt_id", receipt.ID.String()),
		slog.String("register_id", receipt.RegisterID),
		slog.String("total", receipt.Total.StringFixed(2)),
		slog.Bool("debt", receipt.IsDebtSale()),
	)
	return tracker.End(nil)
}

var errSaleRecorded = errors.New("jobs: sale already recorded")
