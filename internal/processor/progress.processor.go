package processor

import (
	"context"
	"errors"
	"time"

	"github.com/meridian-cg/coding-portal/internal/model"
	"github.com/meridian-cg/coding-portal/internal/queue"
	"github.com/meridian-cg/coding-portal/pkg/logger"
	"github.com/meridian-cg/coding-portal/pkg/prom"
)

type CompletionRepository interface {
	CompletionCounts(ctx context.Context, cardholderStatementID int64) (*model.CompletionCounts, error)
}

type ProgressRepository interface {
	UpdateCodingProgress(ctx context.Context, cardholderStatementID int64, progress float64) error
}

// ProgressProcessor recomputes a cardholder statement's coding progress from
// the authoritative transaction totals whenever a coding event arrives. The
// recompute reads the full set, so replays and out-of-order events converge
// on the same value.
type ProgressProcessor struct {
	completion  CompletionRepository
	progress    ProgressRepository
	idempotency *IdempotencyService
}

func NewProgressProcessor(completion CompletionRepository, progress ProgressRepository, idempotency *IdempotencyService) *ProgressProcessor {
	return &ProgressProcessor{
		completion:  completion,
		progress:    progress,
		idempotency: idempotency,
	}
}

func (p *ProgressProcessor) GetType() string {
	return "coding-progress"
}

func (p *ProgressProcessor) Process(ctx context.Context, queueMessage *queue.Message) error {
	ev, err := queueMessage.Event()
	if err != nil {
		logger.Error("Failed to decode coding event", "error", err)
		return err // malformed payload heads to the DLQ after retries
	}

	procCtx, err := p.idempotency.AcquireProcessingLock(ctx, queueMessage.ID)
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			return nil
		}
		if errors.Is(err, ErrMaxRetriesExceeded) {
			logger.Error("Giving up on coding event",
				"event_id", queueMessage.ID,
				"cardholder_statement_id", ev.CardholderStatementID)
			return nil // ack so the DLQ move happens upstream
		}
		if errors.Is(err, ErrLockAcquireFailed) {
			return errors.New("lock held by another consumer")
		}
		return err
	}

	defer func() {
		if procCtx.lockAcquired {
			p.idempotency.ReleaseLock(ctx, procCtx)
		}
	}()

	start := time.Now()

	percent, err := p.recompute(ctx, ev.CardholderStatementID)
	if err != nil {
		logger.Error("Failed to recompute coding progress",
			"cardholder_statement_id", ev.CardholderStatementID,
			"error", err)
		if markErr := p.idempotency.MarkFailure(ctx, procCtx, err); markErr != nil {
			logger.Error("Failed to mark failure", "event_id", queueMessage.ID, "error", markErr)
		}
		return err
	}

	prom.AddProgressRecomputeDuration(time.Since(start).Seconds(), ev.Action)

	logger.Info("Coding progress recomputed",
		"cardholder_statement_id", ev.CardholderStatementID,
		"action", ev.Action,
		"progress", percent)

	if markErr := p.idempotency.MarkSuccess(ctx, procCtx); markErr != nil {
		logger.Error("Failed to mark success", "event_id", queueMessage.ID, "error", markErr)
	}
	return nil
}

// recompute reads the completion counts rather than the list-endpoint totals:
// exported transactions are done coding and must keep counting.
func (p *ProgressProcessor) recompute(ctx context.Context, cardholderStatementID int64) (float64, error) {
	counts, err := p.completion.CompletionCounts(ctx, cardholderStatementID)
	if err != nil {
		return 0, err
	}

	percent := 0.0
	if counts.TotalCount > 0 {
		percent = float64(counts.CompletedCount) / float64(counts.TotalCount) * 100
	}

	if err := p.progress.UpdateCodingProgress(ctx, cardholderStatementID, percent); err != nil {
		return 0, err
	}
	return percent, nil
}
