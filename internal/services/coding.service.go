package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/meridian-cg/coding-portal/internal/coding"
	"github.com/meridian-cg/coding-portal/internal/model"
	"github.com/meridian-cg/coding-portal/internal/queue"
	"github.com/meridian-cg/coding-portal/internal/repository"
	"github.com/meridian-cg/coding-portal/pkg/logger"
	"github.com/meridian-cg/coding-portal/pkg/prom"
)

var (
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrReviewRequiresCoded     = errors.New("only coded transactions can be reviewed")
	ErrRejectionReasonRequired = errors.New("rejection reason is required")
)

type TransactionRepository interface {
	Get(ctx context.Context, id int64) (*model.Transaction, error)
	GetMany(ctx context.Context, ids []int64) ([]*model.Transaction, error)
	List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error)
	Totals(ctx context.Context, f model.TransactionFilter) (*model.CodingTotals, error)
	ApplyCoding(ctx context.Context, id int64, p model.CodingPayload, notes string, coderID int64) error
	ApplyCodingBatch(ctx context.Context, ids []int64, p model.CodingPayload, notes string, coderID int64) error
	CreateChildren(ctx context.Context, children []*model.Transaction) ([]*model.Transaction, error)
	UpdateStatus(ctx context.Context, id int64, status model.TransactionStatus) error
	MarkReviewed(ctx context.Context, id int64, reviewerID int64) error
	MarkRejected(ctx context.Context, id int64, reviewerID int64, reason string) error
	SetMerchantKey(ctx context.Context, id int64, key string) error
}

type StatementReader interface {
	StatementForTransaction(ctx context.Context, transactionID int64) (*model.Statement, error)
}

type TransactionalStore interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProgressPublisher pushes coding events onto the recompute stream. Satisfied
// by *queue.Queue.
type ProgressPublisher interface {
	PublishEvent(ctx context.Context, ev queue.CodingEvent) (string, error)
}

// lockStripes bounds the mutation lock table; ids sharing a stripe
// serialize together.
const lockStripes = 256

type CodingService struct {
	transactionRepo TransactionRepository
	statementRepo   StatementReader
	store           TransactionalStore
	publisher       ProgressPublisher
	recent          *coding.RecentTracker
	recentMu        sync.Mutex

	// serializes mutations per transaction id, striped
	locks [lockStripes]sync.Mutex
}

func NewCodingService(transactionRepo TransactionRepository, statementRepo StatementReader, store TransactionalStore, publisher ProgressPublisher) *CodingService {
	return &CodingService{
		transactionRepo: transactionRepo,
		statementRepo:   statementRepo,
		store:           store,
		publisher:       publisher,
		recent:          coding.NewRecentTracker(),
	}
}

func (s *CodingService) lockFor(id int64) *sync.Mutex {
	return &s.locks[uint64(id)%lockStripes]
}

// lockAll acquires the stripes for every id in ascending order so two
// overlapping batches cannot deadlock. The returned func releases them.
func (s *CodingService) lockAll(ids []int64) func() {
	stripes := make([]int, 0, len(ids))
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		idx := int(uint64(id) % lockStripes)
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		stripes = append(stripes, idx)
	}
	sort.Ints(stripes)

	for _, idx := range stripes {
		s.locks[idx].Lock()
	}
	return func() {
		for i := len(stripes) - 1; i >= 0; i-- {
			s.locks[stripes[i]].Unlock()
		}
	}
}

// CodeSingle applies one assignment to one transaction. Validation order is
// lock gate, then variant completeness, then persistence.
func (s *CodingService) CodeSingle(ctx context.Context, id int64, req model.CodingRequest) (*model.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	tx, err := s.loadGated(ctx, id)
	if err != nil {
		prom.AddCodingOperation("code", "rejected")
		return nil, err
	}

	if !req.Assignment.IsComplete() {
		prom.AddCodingOperation("code", "incomplete")
		return nil, coding.ErrIncompleteCoding
	}

	if err := s.transactionRepo.ApplyCoding(ctx, id, req.Assignment.Payload(), req.Notes, req.CoderID); err != nil {
		prom.AddCodingOperation("code", "error")
		return nil, fmt.Errorf("apply coding: %w", err)
	}

	if tx.MerchantKey == "" {
		key := coding.ExtractMerchantKey(tx.Description)
		if err := s.transactionRepo.SetMerchantKey(ctx, id, key); err != nil {
			logger.Warn("Failed to backfill merchant key", "transaction_id", id, "error", err)
		}
	}

	s.recordRecent(req.Assignment)
	s.publish(ctx, id, tx.CardholderStatementID, queue.ActionCoded)
	prom.AddCodingOperation("code", "success")

	return s.transactionRepo.Get(ctx, id)
}

// CodeBatch applies one assignment to many transactions atomically. Every
// transaction must clear the lock gate before any row is written.
func (s *CodingService) CodeBatch(ctx context.Context, req model.BatchCodingRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if !req.Assignment.IsComplete() {
		prom.AddCodingOperation("batch", "incomplete")
		return coding.ErrIncompleteCoding
	}

	unlock := s.lockAll(req.TransactionIDs)
	defer unlock()

	transactions, err := s.transactionRepo.GetMany(ctx, req.TransactionIDs)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	if len(transactions) != len(req.TransactionIDs) {
		return ErrTransactionNotFound
	}

	for _, tx := range transactions {
		if err := s.gate(ctx, tx); err != nil {
			prom.AddCodingOperation("batch", "rejected")
			return err
		}
	}

	err = s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		return s.transactionRepo.ApplyCodingBatch(ctx, req.TransactionIDs, req.Assignment.Payload(), req.Notes, req.CoderID)
	})
	if err != nil {
		prom.AddCodingOperation("batch", "error")
		return fmt.Errorf("apply batch coding: %w", err)
	}

	s.recordRecent(req.Assignment)
	for csID, txID := range statementRepresentatives(transactions) {
		s.publish(ctx, txID, csID, queue.ActionBatch)
	}
	prom.AddCodingOperation("batch", "success")
	return nil
}

// statementRepresentatives picks one transaction id per cardholder statement
// so a batch spanning statements triggers one recompute each.
func statementRepresentatives(transactions []*model.Transaction) map[int64]int64 {
	reps := make(map[int64]int64)
	for _, tx := range transactions {
		if _, ok := reps[tx.CardholderStatementID]; !ok {
			reps[tx.CardholderStatementID] = tx.ID
		}
	}
	return reps
}

// CommitSplit replaces a transaction with coded children. The parent keeps
// its amount and moves to split status; children sum to the parent within
// the allocation tolerance.
func (s *CodingService) CommitSplit(ctx context.Context, id int64, req model.SplitRequest) ([]*model.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	tx, err := s.loadGated(ctx, id)
	if err != nil {
		prom.AddCodingOperation("split", "rejected")
		return nil, err
	}

	var sum float64
	for i := range req.Lines {
		line := &req.Lines[i]
		sum += line.Amount
		if !line.Coding.IsComplete() {
			prom.AddCodingOperation("split", "incomplete")
			return nil, coding.ErrIncompleteLineCoding
		}
	}
	if math.Abs(sum-tx.Amount) > coding.SumTolerance {
		prom.AddCodingOperation("split", "rejected")
		return nil, coding.ErrSplitSumMismatch
	}

	now := time.Now()
	children := make([]*model.Transaction, 0, len(req.Lines))
	for i := range req.Lines {
		line := &req.Lines[i]
		assignment := line.Coding
		children = append(children, &model.Transaction{
			CardholderStatementID: tx.CardholderStatementID,
			ParentTransactionID:   &tx.ID,
			TransactionDate:       tx.TransactionDate,
			PostingDate:           tx.PostingDate,
			Description:           tx.Description,
			Amount:                line.Amount,
			MerchantKey:           tx.MerchantKey,
			Coding:                &assignment,
			Notes:                 line.Notes,
			Status:                model.TransactionStatusCoded,
			CodedAt:               &now,
			CodedByID:             &req.CoderID,
		})
	}

	err = s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		created, err := s.transactionRepo.CreateChildren(ctx, children)
		if err != nil {
			return fmt.Errorf("create split children: %w", err)
		}
		children = created
		return s.transactionRepo.UpdateStatus(ctx, id, model.TransactionStatusSplit)
	})
	if err != nil {
		prom.AddCodingOperation("split", "error")
		return nil, err
	}

	for i := range req.Lines {
		s.recordRecent(req.Lines[i].Coding)
	}
	s.publish(ctx, id, tx.CardholderStatementID, queue.ActionSplit)
	prom.AddCodingOperation("split", "success")
	return children, nil
}

// CodingSuggestion is a previously used assignment for the same merchant,
// plus the ids of uncoded siblings it would also apply to.
type CodingSuggestion struct {
	MerchantKey string                  `json:"merchant_key"`
	Assignment  *model.CodingAssignment `json:"assignment,omitempty"`
	MatchingIDs []int64                 `json:"matching_transaction_ids,omitempty"`
}

// SuggestCoding scans the transaction's cardholder statement for a prior
// assignment under the same merchant key. The scan covers loaded rows only;
// no suggestion is persisted.
func (s *CodingService) SuggestCoding(ctx context.Context, id int64) (*CodingSuggestion, error) {
	tx, err := s.transactionRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	key := tx.MerchantKey
	if key == "" {
		key = coding.ExtractMerchantKey(tx.Description)
	}

	siblings, _, err := s.transactionRepo.List(ctx, model.TransactionFilter{
		CardholderStatementID: &tx.CardholderStatementID,
	})
	if err != nil {
		return nil, fmt.Errorf("load siblings: %w", err)
	}

	suggestion := &CodingSuggestion{MerchantKey: key}
	if prior := coding.FindPreviousCoding(siblings, key); prior != nil {
		suggestion.Assignment = prior
		suggestion.MatchingIDs = coding.MatchingIDs(siblings, key)
	}
	return suggestion, nil
}

// ListTransactions returns one page plus authoritative totals for the whole
// filtered set.
func (s *CodingService) ListTransactions(ctx context.Context, f model.TransactionFilter) (*model.TransactionPage, error) {
	transactions, _, err := s.transactionRepo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	totals, err := s.transactionRepo.Totals(ctx, f)
	if err != nil {
		return nil, err
	}
	return &model.TransactionPage{
		Transactions: transactions,
		CodingTotals: *totals,
	}, nil
}

// Review approves a coded transaction. Only coded transactions qualify.
func (s *CodingService) Review(ctx context.Context, id int64, reviewerID int64) error {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	tx, err := s.loadGated(ctx, id)
	if err != nil {
		return err
	}
	if tx.Status != model.TransactionStatusCoded {
		return ErrReviewRequiresCoded
	}

	if err := s.transactionRepo.MarkReviewed(ctx, id, reviewerID); err != nil {
		return err
	}
	s.publish(ctx, id, tx.CardholderStatementID, queue.ActionReviewed)
	prom.AddCodingOperation("review", "success")
	return nil
}

// Reject sends a transaction back for recoding. A reason is mandatory.
func (s *CodingService) Reject(ctx context.Context, id int64, reviewerID int64, reason string) error {
	if reason == "" {
		return ErrRejectionReasonRequired
	}

	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	tx, err := s.loadGated(ctx, id)
	if err != nil {
		return err
	}

	if err := s.transactionRepo.MarkRejected(ctx, id, reviewerID, reason); err != nil {
		return err
	}
	s.publish(ctx, id, tx.CardholderStatementID, queue.ActionRejected)
	prom.AddCodingOperation("reject", "success")
	return nil
}

// RecentlyUsed returns the most recently applied ids for one reference
// category, newest first.
func (s *CodingService) RecentlyUsed(category coding.RecentCategory) []int64 {
	s.recentMu.Lock()
	defer s.recentMu.Unlock()
	return s.recent.IDs(category)
}

func (s *CodingService) recordRecent(a model.CodingAssignment) {
	s.recentMu.Lock()
	defer s.recentMu.Unlock()
	s.recent.Record(a)
}

func (s *CodingService) loadGated(ctx context.Context, id int64) (*model.Transaction, error) {
	tx, err := s.transactionRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	if err := s.gate(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *CodingService) gate(ctx context.Context, tx *model.Transaction) error {
	st, err := s.statementRepo.StatementForTransaction(ctx, tx.ID)
	if err != nil && !errors.Is(err, repository.ErrStatementNotFound) {
		return fmt.Errorf("load statement: %w", err)
	}
	return coding.GateFor(st, tx).Check()
}

func (s *CodingService) publish(ctx context.Context, transactionID, cardholderStatementID int64, action string) {
	if s.publisher == nil {
		return
	}
	_, err := s.publisher.PublishEvent(ctx, queue.CodingEvent{
		TransactionID:         transactionID,
		CardholderStatementID: cardholderStatementID,
		Action:                action,
	})
	if err != nil {
		// progress is eventually consistent; a missed event only delays it
		logger.Warn("Failed to publish coding event",
			"transaction_id", transactionID, "action", action, "error", err)
	}
}
