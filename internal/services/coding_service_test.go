package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/meridian-cg/coding-portal/internal/coding"
	"github.com/meridian-cg/coding-portal/internal/model"
	"github.com/meridian-cg/coding-portal/internal/queue"
	"github.com/meridian-cg/coding-portal/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Get(ctx context.Context, id int64) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetMany(ctx context.Context, ids []int64) ([]*model.Transaction, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionRepository) Totals(ctx context.Context, f model.TransactionFilter) (*model.CodingTotals, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CodingTotals), args.Error(1)
}

func (m *MockTransactionRepository) ApplyCoding(ctx context.Context, id int64, p model.CodingPayload, notes string, coderID int64) error {
	args := m.Called(ctx, id, p, notes, coderID)
	return args.Error(0)
}

func (m *MockTransactionRepository) ApplyCodingBatch(ctx context.Context, ids []int64, p model.CodingPayload, notes string, coderID int64) error {
	args := m.Called(ctx, ids, p, notes, coderID)
	return args.Error(0)
}

func (m *MockTransactionRepository) CreateChildren(ctx context.Context, children []*model.Transaction) ([]*model.Transaction, error) {
	args := m.Called(ctx, children)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, id int64, status model.TransactionStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockTransactionRepository) MarkReviewed(ctx context.Context, id int64, reviewerID int64) error {
	args := m.Called(ctx, id, reviewerID)
	return args.Error(0)
}

func (m *MockTransactionRepository) MarkRejected(ctx context.Context, id int64, reviewerID int64, reason string) error {
	args := m.Called(ctx, id, reviewerID, reason)
	return args.Error(0)
}

func (m *MockTransactionRepository) SetMerchantKey(ctx context.Context, id int64, key string) error {
	args := m.Called(ctx, id, key)
	return args.Error(0)
}

type MockStatementReader struct {
	mock.Mock
}

func (m *MockStatementReader) StatementForTransaction(ctx context.Context, transactionID int64) (*model.Statement, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Statement), args.Error(1)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishEvent(ctx context.Context, ev queue.CodingEvent) (string, error) {
	args := m.Called(ctx, ev)
	return args.String(0), args.Error(1)
}

func glAssignment(companyID, accountID int64) model.CodingAssignment {
	return model.CodingAssignment{
		Type:        model.CodingTypeGLAccount,
		CompanyID:   &companyID,
		GLAccountID: &accountID,
	}
}

func unlockedStatement() *model.Statement {
	return &model.Statement{ID: 1, Month: 3, Year: 2024, Status: model.StatementStatusInProgress}
}

func lockedStatement(reason string) *model.Statement {
	return &model.Statement{ID: 1, Month: 3, Year: 2024, Status: model.StatementStatusLocked, IsLocked: true, LockReason: reason}
}

func TestCodingService_CodeSingle(t *testing.T) {
	ctx := context.Background()

	t.Run("applies coding and publishes event", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		stRepo := new(MockStatementReader)
		pub := new(MockPublisher)
		svc := NewCodingService(txRepo, stRepo, nil, pub)

		tx := &model.Transaction{
			ID:                    42,
			CardholderStatementID: 7,
			Description:           "HILTON HOTEL 03/14/24",
			MerchantKey:           "HILTON HOTEL",
			Amount:                128.94,
			Status:                model.TransactionStatusUncoded,
		}

		txRepo.On("Get", ctx, int64(42)).Return(tx, nil)
		stRepo.On("StatementForTransaction", ctx, int64(42)).Return(unlockedStatement(), nil)
		txRepo.On("ApplyCoding", ctx, int64(42), mock.Anything, "dinner", int64(9)).Return(nil)
		pub.On("PublishEvent", ctx, queue.CodingEvent{
			TransactionID:         42,
			CardholderStatementID: 7,
			Action:                queue.ActionCoded,
		}).Return("1-0", nil)

		result, err := svc.CodeSingle(ctx, 42, model.CodingRequest{
			Assignment: glAssignment(3, 17),
			Notes:      "dinner",
			CoderID:    9,
		})
		require.NoError(t, err)
		require.NotNil(t, result)

		txRepo.AssertExpectations(t)
		pub.AssertExpectations(t)
	})

	t.Run("payload nulls inactive variant keys", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		stRepo := new(MockStatementReader)
		svc := NewCodingService(txRepo, stRepo, nil, nil)

		tx := &model.Transaction{ID: 42, CardholderStatementID: 7, MerchantKey: "HILTON HOTEL"}
		txRepo.On("Get", ctx, int64(42)).Return(tx, nil)
		stRepo.On("StatementForTransaction", ctx, int64(42)).Return(unlockedStatement(), nil)
		txRepo.On("ApplyCoding", ctx, int64(42), mock.MatchedBy(func(p model.CodingPayload) bool {
			return p.CodingType == model.CodingTypeGLAccount &&
				p.CompanyID != nil && p.GLAccountID != nil &&
				p.JobID == nil && p.EquipmentID == nil
		}), "", int64(9)).Return(nil)

		// a stale job id left on the request struct must not leak through
		assignment := glAssignment(3, 17)
		jobID := int64(55)
		assignment.JobID = &jobID

		_, err := svc.CodeSingle(ctx, 42, model.CodingRequest{Assignment: assignment, CoderID: 9})
		require.NoError(t, err)
		txRepo.AssertExpectations(t)
	})

	t.Run("rejects incomplete assignment before persisting", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		stRepo := new(MockStatementReader)
		svc := NewCodingService(txRepo, stRepo, nil, nil)

		tx := &model.Transaction{ID: 42, CardholderStatementID: 7, MerchantKey: "HILTON HOTEL"}
		txRepo.On("Get", ctx, int64(42)).Return(tx, nil)
		stRepo.On("StatementForTransaction", ctx, int64(42)).Return(unlockedStatement(), nil)

		companyID := int64(3)
		incomplete := model.CodingAssignment{Type: model.CodingTypeGLAccount, CompanyID: &companyID}

		_, err := svc.CodeSingle(ctx, 42, model.CodingRequest{Assignment: incomplete, CoderID: 9})
		assert.ErrorIs(t, err, coding.ErrIncompleteCoding)
		txRepo.AssertNotCalled(t, "ApplyCoding", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("locked statement blocks coding", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		stRepo := new(MockStatementReader)
		svc := NewCodingService(txRepo, stRepo, nil, nil)

		tx := &model.Transaction{ID: 42, CardholderStatementID: 7}
		txRepo.On("Get", ctx, int64(42)).Return(tx, nil)
		stRepo.On("StatementForTransaction", ctx, int64(42)).Return(lockedStatement("month closed"), nil)

		_, err := svc.CodeSingle(ctx, 42, model.CodingRequest{Assignment: glAssignment(3, 17), CoderID: 9})
		assert.True(t, coding.IsLocked(err))
		assert.Contains(t, err.Error(), "month closed")
		txRepo.AssertNotCalled(t, "ApplyCoding", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("locked transaction blocks coding even when statement is open", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		stRepo := new(MockStatementReader)
		svc := NewCodingService(txRepo, stRepo, nil, nil)

		tx := &model.Transaction{ID: 42, CardholderStatementID: 7, IsLocked: true}
		txRepo.On("Get", ctx, int64(42)).Return(tx, nil)
		stRepo.On("StatementForTransaction", ctx, int64(42)).Return(unlockedStatement(), nil)

		_, err := svc.CodeSingle(ctx, 42, model.CodingRequest{Assignment: glAssignment(3, 17), CoderID: 9})
		assert.True(t, coding.IsLocked(err))
	})

	t.Run("backfills a missing merchant key", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		stRepo := new(MockStatementReader)
		svc := NewCodingService(txRepo, stRepo, nil, nil)

		tx := &model.Transaction{
			ID:                    42,
			CardholderStatementID: 7,
			Description:           "REF# 123ABC HILTON HOTEL 03/14/24",
		}
		txRepo.On("Get", ctx, int64(42)).Return(tx, nil)
		stRepo.On("StatementForTransaction", ctx, int64(42)).Return(unlockedStatement(), nil)
		txRepo.On("ApplyCoding", ctx, int64(42), mock.Anything, "", int64(9)).Return(nil)
		txRepo.On("SetMerchantKey", ctx, int64(42), "HILTON HOTEL").Return(nil)

		_, err := svc.CodeSingle(ctx, 42, model.CodingRequest{Assignment: glAssignment(3, 17), CoderID: 9})
		require.NoError(t, err)
		txRepo.AssertExpectations(t)
	})

	t.Run("missing transaction maps to not found", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		stRepo := new(MockStatementReader)
		svc := NewCodingService(txRepo, stRepo, nil, nil)

		txRepo.On("Get", ctx, int64(99)).Return(nil, repository.ErrNotFound)

		_, err := svc.CodeSingle(ctx, 99, model.CodingRequest{Assignment: glAssignment(3, 17), CoderID: 9})
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})
}

func TestCodingService_CodeBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("codes every transaction atomically", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		stRepo := new(MockStatementReader)
		store := new(MockStore)
		pub := new(MockPublisher)
		svc := NewCodingService(txRepo, stRepo, store, pub)

		transactions := []*model.Transaction{
			{ID: 1, CardholderStatementID: 7, MerchantKey: "HILTON HOTEL"},
			{ID: 2, CardholderStatementID: 7, MerchantKey: "HILTON HOTEL"},
		}

		txRepo.On("GetMany", ctx, []int64{1, 2}).Return(transactions, nil)
		stRepo.On("StatementForTransaction", ctx, int64(1)).Return(unlockedStatement(), nil)
		stRepo.On("StatementForTransaction", ctx, int64(2)).Return(unlockedStatement(), nil)
		store.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
		txRepo.On("ApplyCodingBatch", ctx, []int64{1, 2}, mock.Anything, "", int64(9)).Return(nil)
		pub.On("PublishEvent", ctx, queue.CodingEvent{
			TransactionID:         1,
			CardholderStatementID: 7,
			Action:                queue.ActionBatch,
		}).Return("1-0", nil)

		err := svc.CodeBatch(ctx, model.BatchCodingRequest{
			TransactionIDs: []int64{1, 2},
			Assignment:     glAssignment(3, 17),
			CoderID:        9,
		})
		require.NoError(t, err)

		txRepo.AssertExpectations(t)
		pub.AssertExpectations(t)
	})

	t.Run("one locked transaction rejects the whole batch", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		stRepo := new(MockStatementReader)
		store := new(MockStore)
		svc := NewCodingService(txRepo, stRepo, store, nil)

		transactions := []*model.Transaction{
			{ID: 1, CardholderStatementID: 7},
			{ID: 2, CardholderStatementID: 7, IsLocked: true},
		}

		txRepo.On("GetMany", ctx, []int64{1, 2}).Return(transactions, nil)
		stRepo.On("StatementForTransaction", ctx, int64(1)).Return(unlockedStatement(), nil)
		stRepo.On("StatementForTransaction", ctx, int64(2)).Return(unlockedStatement(), nil)

		err := svc.CodeBatch(ctx, model.BatchCodingRequest{
			TransactionIDs: []int64{1, 2},
			Assignment:     glAssignment(3, 17),
			CoderID:        9,
		})
		assert.True(t, coding.IsLocked(err))
		txRepo.AssertNotCalled(t, "ApplyCodingBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing transactions fail the batch", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		stRepo := new(MockStatementReader)
		svc := NewCodingService(txRepo, stRepo, nil, nil)

		txRepo.On("GetMany", ctx, []int64{1, 2, 3}).Return([]*model.Transaction{{ID: 1}}, nil)

		err := svc.CodeBatch(ctx, model.BatchCodingRequest{
			TransactionIDs: []int64{1, 2, 3},
			Assignment:     glAssignment(3, 17),
			CoderID:        9,
		})
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})

	t.Run("incomplete assignment fails before loading anything", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		stRepo := new(MockStatementReader)
		svc := NewCodingService(txRepo, stRepo, nil, nil)

		jobless := model.CodingAssignment{Type: model.CodingTypeJob}
		err := svc.CodeBatch(ctx, model.BatchCodingRequest{
			TransactionIDs: []int64{1, 2},
			Assignment:     jobless,
			CoderID:        9,
		})
		assert.ErrorIs(t, err, coding.ErrIncompleteCoding)
		txRepo.AssertNotCalled(t, "GetMany", mock.Anything, mock.Anything)
	})
}

func TestCodingService_BatchSerializesWithSingle(t *testing.T) {
	ctx := context.Background()

	txRepo := new(MockTransactionRepository)
	stRepo := new(MockStatementReader)
	store := new(MockStore)
	svc := NewCodingService(txRepo, stRepo, store, nil)

	transactions := []*model.Transaction{
		{ID: 1, CardholderStatementID: 7, MerchantKey: "HILTON HOTEL"},
		{ID: 2, CardholderStatementID: 7, MerchantKey: "HILTON HOTEL"},
	}

	batchEntered := make(chan struct{})
	releaseBatch := make(chan struct{})

	txRepo.On("GetMany", ctx, []int64{1, 2}).Return(transactions, nil)
	stRepo.On("StatementForTransaction", ctx, mock.Anything).Return(unlockedStatement(), nil)
	store.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	txRepo.On("ApplyCodingBatch", ctx, []int64{1, 2}, mock.Anything, "", int64(9)).Run(func(mock.Arguments) {
		close(batchEntered)
		<-releaseBatch
	}).Return(nil)
	txRepo.On("Get", ctx, int64(2)).Return(transactions[1], nil)
	txRepo.On("ApplyCoding", ctx, int64(2), mock.Anything, "", int64(9)).Return(nil)

	batchDone := make(chan error, 1)
	go func() {
		batchDone <- svc.CodeBatch(ctx, model.BatchCodingRequest{
			TransactionIDs: []int64{1, 2},
			Assignment:     glAssignment(3, 17),
			CoderID:        9,
		})
	}()
	<-batchEntered

	singleDone := make(chan error, 1)
	go func() {
		_, err := svc.CodeSingle(ctx, 2, model.CodingRequest{Assignment: glAssignment(3, 17), CoderID: 9})
		singleDone <- err
	}()

	// the single coding shares id 2 with the batch and must wait for it
	select {
	case <-singleDone:
		t.Fatal("single coding ran while the batch held its lock")
	case <-time.After(50 * time.Millisecond):
	}

	close(releaseBatch)
	require.NoError(t, <-batchDone)
	require.NoError(t, <-singleDone)
}

func TestCodingService_CommitSplit(t *testing.T) {
	ctx := context.Background()

	parent := func() *model.Transaction {
		return &model.Transaction{
			ID:                    42,
			CardholderStatementID: 7,
			Description:           "HILTON HOTEL 03/14/24",
			MerchantKey:           "HILTON HOTEL",
			Amount:                100.00,
			Status:                model.TransactionStatusUncoded,
		}
	}

	t.Run("creates coded children and marks parent split", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		stRepo := new(MockStatementReader)
		store := new(MockStore)
		pub := new(MockPublisher)
		svc := NewCodingService(txRepo, stRepo, store, pub)

		txRepo.On("Get", ctx, int64(42)).Return(parent(), nil)
		stRepo.On("StatementForTransaction", ctx, int64(42)).Return(unlockedStatement(), nil)
		store.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
		txRepo.On("CreateChildren", ctx, mock.MatchedBy(func(children []*model.Transaction) bool {
			if len(children) != 2 {
				return false
			}
			for _, c := range children {
				if c.ParentTransactionID == nil || *c.ParentTransactionID != 42 {
					return false
				}
				if c.Status != model.TransactionStatusCoded {
					return false
				}
				if c.MerchantKey != "HILTON HOTEL" {
					return false
				}
			}
			return children[0].Amount == 60.00 && children[1].Amount == 40.00
		})).Return([]*model.Transaction{{ID: 101}, {ID: 102}}, nil)
		txRepo.On("UpdateStatus", ctx, int64(42), model.TransactionStatusSplit).Return(nil)
		pub.On("PublishEvent", ctx, queue.CodingEvent{
			TransactionID:         42,
			CardholderStatementID: 7,
			Action:                queue.ActionSplit,
		}).Return("1-0", nil)

		children, err := svc.CommitSplit(ctx, 42, model.SplitRequest{
			Lines: []model.SplitLineRequest{
				{Amount: 60.00, Coding: glAssignment(3, 17)},
				{Amount: 40.00, Coding: glAssignment(3, 18)},
			},
			CoderID: 9,
		})
		require.NoError(t, err)
		assert.Len(t, children, 2)

		txRepo.AssertExpectations(t)
		pub.AssertExpectations(t)
	})

	t.Run("sum outside tolerance is rejected", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		stRepo := new(MockStatementReader)
		svc := NewCodingService(txRepo, stRepo, nil, nil)

		txRepo.On("Get", ctx, int64(42)).Return(parent(), nil)
		stRepo.On("StatementForTransaction", ctx, int64(42)).Return(unlockedStatement(), nil)

		_, err := svc.CommitSplit(ctx, 42, model.SplitRequest{
			Lines: []model.SplitLineRequest{
				{Amount: 60.00, Coding: glAssignment(3, 17)},
				{Amount: 39.98, Coding: glAssignment(3, 18)},
			},
			CoderID: 9,
		})
		assert.ErrorIs(t, err, coding.ErrSplitSumMismatch)
		txRepo.AssertNotCalled(t, "CreateChildren", mock.Anything, mock.Anything)
	})

	t.Run("sum within tolerance passes", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		stRepo := new(MockStatementReader)
		store := new(MockStore)
		svc := NewCodingService(txRepo, stRepo, store, nil)

		txRepo.On("Get", ctx, int64(42)).Return(parent(), nil)
		stRepo.On("StatementForTransaction", ctx, int64(42)).Return(unlockedStatement(), nil)
		store.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
		txRepo.On("CreateChildren", ctx, mock.Anything).Return([]*model.Transaction{{ID: 101}, {ID: 102}}, nil)
		txRepo.On("UpdateStatus", ctx, int64(42), model.TransactionStatusSplit).Return(nil)

		_, err := svc.CommitSplit(ctx, 42, model.SplitRequest{
			Lines: []model.SplitLineRequest{
				{Amount: 60.00, Coding: glAssignment(3, 17)},
				{Amount: 39.99, Coding: glAssignment(3, 18)},
			},
			CoderID: 9,
		})
		require.NoError(t, err)
	})

	t.Run("incomplete line coding is rejected", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		stRepo := new(MockStatementReader)
		svc := NewCodingService(txRepo, stRepo, nil, nil)

		txRepo.On("Get", ctx, int64(42)).Return(parent(), nil)
		stRepo.On("StatementForTransaction", ctx, int64(42)).Return(unlockedStatement(), nil)

		equipmentID := int64(5)
		partial := model.CodingAssignment{Type: model.CodingTypeEquipment, EquipmentID: &equipmentID}

		_, err := svc.CommitSplit(ctx, 42, model.SplitRequest{
			Lines: []model.SplitLineRequest{
				{Amount: 60.00, Coding: glAssignment(3, 17)},
				{Amount: 40.00, Coding: partial},
			},
			CoderID: 9,
		})
		assert.ErrorIs(t, err, coding.ErrIncompleteLineCoding)
	})

	t.Run("fewer than two lines is invalid", func(t *testing.T) {
		svc := NewCodingService(new(MockTransactionRepository), new(MockStatementReader), nil, nil)

		_, err := svc.CommitSplit(ctx, 42, model.SplitRequest{
			Lines:   []model.SplitLineRequest{{Amount: 100.00, Coding: glAssignment(3, 17)}},
			CoderID: 9,
		})
		assert.Error(t, err)
	})
}

func TestCodingService_SuggestCoding(t *testing.T) {
	ctx := context.Background()

	t.Run("finds prior coding under the same merchant key", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		stRepo := new(MockStatementReader)
		svc := NewCodingService(txRepo, stRepo, nil, nil)

		csID := int64(7)
		target := &model.Transaction{ID: 3, CardholderStatementID: csID, MerchantKey: "HILTON HOTEL"}
		prior := glAssignment(3, 17)
		siblings := []*model.Transaction{
			{ID: 1, CardholderStatementID: csID, MerchantKey: "HILTON HOTEL", Status: model.TransactionStatusCoded, Coding: &prior},
			{ID: 2, CardholderStatementID: csID, MerchantKey: "DELTA AIR", Status: model.TransactionStatusUncoded},
			{ID: 3, CardholderStatementID: csID, MerchantKey: "HILTON HOTEL", Status: model.TransactionStatusUncoded},
			{ID: 4, CardholderStatementID: csID, MerchantKey: "HILTON HOTEL", Status: model.TransactionStatusUncoded},
		}

		txRepo.On("Get", ctx, int64(3)).Return(target, nil)
		txRepo.On("List", ctx, model.TransactionFilter{CardholderStatementID: &csID}).Return(siblings, int64(4), nil)

		suggestion, err := svc.SuggestCoding(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, "HILTON HOTEL", suggestion.MerchantKey)
		require.NotNil(t, suggestion.Assignment)
		assert.Equal(t, int64(17), *suggestion.Assignment.GLAccountID)
		assert.Equal(t, []int64{3, 4}, suggestion.MatchingIDs)
	})

	t.Run("no prior coding yields empty suggestion", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		stRepo := new(MockStatementReader)
		svc := NewCodingService(txRepo, stRepo, nil, nil)

		csID := int64(7)
		target := &model.Transaction{ID: 3, CardholderStatementID: csID, MerchantKey: "HILTON HOTEL"}
		txRepo.On("Get", ctx, int64(3)).Return(target, nil)
		txRepo.On("List", ctx, mock.Anything).Return([]*model.Transaction{target}, int64(1), nil)

		suggestion, err := svc.SuggestCoding(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, "HILTON HOTEL", suggestion.MerchantKey)
		assert.Nil(t, suggestion.Assignment)
		assert.Empty(t, suggestion.MatchingIDs)
	})

	t.Run("derives key from description when none stored", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		stRepo := new(MockStatementReader)
		svc := NewCodingService(txRepo, stRepo, nil, nil)

		csID := int64(7)
		target := &model.Transaction{ID: 3, CardholderStatementID: csID, Description: "REF# 123ABC HILTON HOTEL 03/14/24"}
		txRepo.On("Get", ctx, int64(3)).Return(target, nil)
		txRepo.On("List", ctx, mock.Anything).Return([]*model.Transaction{target}, int64(1), nil)

		suggestion, err := svc.SuggestCoding(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, "HILTON HOTEL", suggestion.MerchantKey)
	})
}

func TestCodingService_ListTransactions(t *testing.T) {
	ctx := context.Background()

	txRepo := new(MockTransactionRepository)
	stRepo := new(MockStatementReader)
	svc := NewCodingService(txRepo, stRepo, nil, nil)

	csID := int64(7)
	filter := model.TransactionFilter{CardholderStatementID: &csID, Limit: 50}
	page := []*model.Transaction{{ID: 1}, {ID: 2}}
	totals := &model.CodingTotals{TotalCount: 4, CodedCount: 2, TotalAmount: 185.00, CodedAmount: 125.00}

	txRepo.On("List", ctx, filter).Return(page, int64(4), nil)
	txRepo.On("Totals", ctx, filter).Return(totals, nil)

	result, err := svc.ListTransactions(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, result.Transactions, 2)
	assert.Equal(t, int64(4), result.TotalCount)
	assert.Equal(t, 125.00, result.CodedAmount)
}

func TestCodingService_Review(t *testing.T) {
	ctx := context.Background()

	t.Run("reviews a coded transaction", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		stRepo := new(MockStatementReader)
		pub := new(MockPublisher)
		svc := NewCodingService(txRepo, stRepo, nil, pub)

		tx := &model.Transaction{ID: 42, CardholderStatementID: 7, Status: model.TransactionStatusCoded}
		txRepo.On("Get", ctx, int64(42)).Return(tx, nil)
		stRepo.On("StatementForTransaction", ctx, int64(42)).Return(unlockedStatement(), nil)
		txRepo.On("MarkReviewed", ctx, int64(42), int64(9)).Return(nil)
		pub.On("PublishEvent", ctx, mock.Anything).Return("1-0", nil)

		err := svc.Review(ctx, 42, 9)
		require.NoError(t, err)
		txRepo.AssertExpectations(t)
	})

	t.Run("uncoded transaction cannot be reviewed", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		stRepo := new(MockStatementReader)
		svc := NewCodingService(txRepo, stRepo, nil, nil)

		tx := &model.Transaction{ID: 42, CardholderStatementID: 7, Status: model.TransactionStatusUncoded}
		txRepo.On("Get", ctx, int64(42)).Return(tx, nil)
		stRepo.On("StatementForTransaction", ctx, int64(42)).Return(unlockedStatement(), nil)

		err := svc.Review(ctx, 42, 9)
		assert.ErrorIs(t, err, ErrReviewRequiresCoded)
	})
}

func TestCodingService_Reject(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects with a reason", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		stRepo := new(MockStatementReader)
		pub := new(MockPublisher)
		svc := NewCodingService(txRepo, stRepo, nil, pub)

		tx := &model.Transaction{ID: 42, CardholderStatementID: 7, Status: model.TransactionStatusCoded}
		txRepo.On("Get", ctx, int64(42)).Return(tx, nil)
		stRepo.On("StatementForTransaction", ctx, int64(42)).Return(unlockedStatement(), nil)
		txRepo.On("MarkRejected", ctx, int64(42), int64(9), "wrong account").Return(nil)
		pub.On("PublishEvent", ctx, mock.Anything).Return("1-0", nil)

		err := svc.Reject(ctx, 42, 9, "wrong account")
		require.NoError(t, err)
		txRepo.AssertExpectations(t)
	})

	t.Run("reason is mandatory", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		svc := NewCodingService(txRepo, new(MockStatementReader), nil, nil)

		err := svc.Reject(ctx, 42, 9, "")
		assert.ErrorIs(t, err, ErrRejectionReasonRequired)
		txRepo.AssertNotCalled(t, "MarkRejected", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCodingService_RecentlyUsed(t *testing.T) {
	ctx := context.Background()

	txRepo := new(MockTransactionRepository)
	stRepo := new(MockStatementReader)
	svc := NewCodingService(txRepo, stRepo, nil, nil)

	tx := &model.Transaction{ID: 42, CardholderStatementID: 7, MerchantKey: "HILTON HOTEL"}
	txRepo.On("Get", ctx, int64(42)).Return(tx, nil)
	stRepo.On("StatementForTransaction", ctx, int64(42)).Return(unlockedStatement(), nil)
	txRepo.On("ApplyCoding", ctx, int64(42), mock.Anything, "", int64(9)).Return(nil)

	_, err := svc.CodeSingle(ctx, 42, model.CodingRequest{Assignment: glAssignment(3, 17), CoderID: 9})
	require.NoError(t, err)

	assert.Equal(t, []int64{3}, svc.RecentlyUsed(coding.RecentCompanies))
	assert.Equal(t, []int64{17}, svc.RecentlyUsed(coding.RecentGLAccounts))
	assert.Empty(t, svc.RecentlyUsed(coding.RecentJobs))
}

func TestCodingService_PublishFailureDoesNotFailCoding(t *testing.T) {
	ctx := context.Background()

	txRepo := new(MockTransactionRepository)
	stRepo := new(MockStatementReader)
	pub := new(MockPublisher)
	svc := NewCodingService(txRepo, stRepo, nil, pub)

	tx := &model.Transaction{ID: 42, CardholderStatementID: 7, MerchantKey: "HILTON HOTEL"}
	txRepo.On("Get", ctx, int64(42)).Return(tx, nil)
	stRepo.On("StatementForTransaction", ctx, int64(42)).Return(unlockedStatement(), nil)
	txRepo.On("ApplyCoding", ctx, int64(42), mock.Anything, "", int64(9)).Return(nil)
	pub.On("PublishEvent", ctx, mock.Anything).Return("", errors.New("stream down"))

	_, err := svc.CodeSingle(ctx, 42, model.CodingRequest{Assignment: glAssignment(3, 17), CoderID: 9})
	require.NoError(t, err)
}
