package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/meridian-cg/coding-portal/internal/export"
	"github.com/meridian-cg/coding-portal/internal/model"
	"github.com/meridian-cg/coding-portal/pkg/logger"
)

var (
	ErrNothingToExport = errors.New("no reviewed transactions to export")
	ErrExportRejected  = errors.New("erp rejected the export batch")
)

// ErpClient ships export batches. Satisfied by *export.Client.
type ErpClient interface {
	Export(ctx context.Context, batch *export.ExportBatch) (*export.ExportResponse, error)
}

type ExportTransactionRepository interface {
	List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error)
	UpdateStatus(ctx context.Context, id int64, status model.TransactionStatus) error
}

// ExportService pushes reviewed transactions to the ERP and marks them
// exported once the batch is accepted.
type ExportService struct {
	transactionRepo ExportTransactionRepository
	client          ErpClient
	store           TransactionalStore
}

func NewExportService(transactionRepo ExportTransactionRepository, client ErpClient, store TransactionalStore) *ExportService {
	return &ExportService{
		transactionRepo: transactionRepo,
		client:          client,
		store:           store,
	}
}

// ExportStatement collects every reviewed transaction of a statement into one
// batch. Transactions move to exported only after the ERP accepts.
func (s *ExportService) ExportStatement(ctx context.Context, statementID int64) (*export.ExportResponse, error) {
	status := model.TransactionStatusReviewed
	transactions, _, err := s.transactionRepo.List(ctx, model.TransactionFilter{
		StatementID: &statementID,
		Status:      &status,
		Limit:       1000,
	})
	if err != nil {
		return nil, fmt.Errorf("load reviewed transactions: %w", err)
	}
	if len(transactions) == 0 {
		return nil, ErrNothingToExport
	}

	batch := &export.ExportBatch{
		BatchID:     uuid.NewString(),
		StatementID: statementID,
		Lines:       make([]export.ExportLine, 0, len(transactions)),
	}
	for _, tx := range transactions {
		batch.Lines = append(batch.Lines, export.LineFromTransaction(tx))
	}

	resp, err := s.client.Export(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("ship batch: %w", err)
	}
	if resp.Status == export.StatusRejected {
		logger.Warn("ERP rejected export batch",
			"batch_id", batch.BatchID,
			"error_code", resp.ErrorCode,
			"error_message", resp.ErrorMsg)
		return resp, ErrExportRejected
	}

	err = s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, tx := range transactions {
			if err := s.transactionRepo.UpdateStatus(ctx, tx.ID, model.TransactionStatusExported); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mark exported: %w", err)
	}

	logger.Info("Statement exported",
		"statement_id", statementID,
		"batch_id", batch.BatchID,
		"lines", len(batch.Lines))
	return resp, nil
}
