package e2e

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/meridian-cg/coding-portal/internal/model"
	"github.com/meridian-cg/coding-portal/internal/processor"
	"github.com/meridian-cg/coding-portal/internal/queue"
	"github.com/meridian-cg/coding-portal/internal/repository"
	"github.com/meridian-cg/coding-portal/internal/services"
	"github.com/meridian-cg/coding-portal/pkg/pg"
	"github.com/meridian-cg/coding-portal/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testDB = pg.DB

type TestEnvironment struct {
	DB               *pg.DB
	Redis            *miniredis.Miniredis
	RedisAdapter     redis.RedisAdapter
	Queue            *queue.Queue
	TransactionRepo  *repository.TransactionRepository
	StatementRepo    *repository.StatementRepository
	ReferenceRepo    *repository.ReferenceRepository
	CodingService    *services.CodingService
	StatementService *services.StatementService
}

func setupE2EEnvironment(t *testing.T) *TestEnvironment {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&repository.StatementEntity{},
		&repository.CardholderEntity{},
		&repository.CardholderStatementEntity{},
		&repository.TransactionEntity{},
		&repository.CompanyEntity{},
		&repository.GLAccountEntity{},
		&repository.JobEntity{},
		&repository.JobPhaseEntity{},
		&repository.JobCostTypeEntity{},
		&repository.EquipmentEntity{},
		&repository.EquipmentCostCodeEntity{},
		&repository.EquipmentCostTypeEntity{},
	)
	require.NoError(t, err)

	pgDB := &testDB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	mr, err := miniredis.Run()
	require.NoError(t, err)

	// Use unique connection name per test to avoid global adapter caching issues
	connName := fmt.Sprintf("test-%d", time.Now().UnixNano())
	redisAdapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	queueConfig := queue.QueueConfig{
		Name:              "test:progress",
		ConsumerGroup:     "test-group",
		ConsumerName:      "test-consumer",
		MaxRetries:        3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      100 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		EnableDLQ:         true,
	}

	q, err := queue.NewQueue(redisAdapter, queueConfig)
	require.NoError(t, err)

	transactionRepo := repository.NewTransactionRepository(pgDB)
	statementRepo := repository.NewStatementRepository(pgDB)
	referenceRepo := repository.NewReferenceRepository(pgDB)

	codingService := services.NewCodingService(transactionRepo, statementRepo, pgDB, q)
	statementService := services.NewStatementService(statementRepo)

	return &TestEnvironment{
		DB:               pgDB,
		Redis:            mr,
		RedisAdapter:     redisAdapter,
		Queue:            q,
		TransactionRepo:  transactionRepo,
		StatementRepo:    statementRepo,
		ReferenceRepo:    referenceRepo,
		CodingService:    codingService,
		StatementService: statementService,
	}
}

func (env *TestEnvironment) Cleanup() {
	// Stop queue first (gracefully drain messages)
	if env.Queue != nil {
		_ = env.Queue.Stop(5 * time.Second)
	}
	// Give time for any in-flight operations to complete
	time.Sleep(100 * time.Millisecond)
	// Then close Redis
	if env.Redis != nil {
		env.Redis.Close()
	}
}

func (env *TestEnvironment) seedStatement(t *testing.T, locked bool) int64 {
	ctx := context.Background()

	st := &repository.StatementEntity{
		Month:       3,
		Year:        2024,
		ClosingDate: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Status:      string(model.StatementStatusInProgress),
	}
	if locked {
		st.Status = string(model.StatementStatusCompleted)
		st.IsLocked = true
		st.LockReason = "month closed"
	}
	require.NoError(t, env.DB.Write(ctx).Create(st).Error)

	ch := &repository.CardholderEntity{FirstName: "DANA", LastName: "WHITFIELD", IsActive: true}
	require.NoError(t, env.DB.Write(ctx).Create(ch).Error)

	cs := &repository.CardholderStatementEntity{StatementID: st.ID, CardholderID: ch.ID}
	require.NoError(t, env.DB.Write(ctx).Create(cs).Error)
	return cs.ID
}

func (env *TestEnvironment) seedTransaction(t *testing.T, csID int64, amount float64) int64 {
	ctx := context.Background()
	tx := &repository.TransactionEntity{
		CardholderStatementID: csID,
		TransactionDate:       time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
		PostingDate:           time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Description:           "REF# 123ABC HILTON HOTEL 03/14/24",
		Amount:                amount,
		Status:                string(model.TransactionStatusUncoded),
	}
	require.NoError(t, env.DB.Write(ctx).Create(tx).Error)
	return tx.ID
}

func glCoding(companyID, glAccountID int64) model.CodingAssignment {
	return model.CodingAssignment{
		Type:        model.CodingTypeGLAccount,
		CompanyID:   &companyID,
		GLAccountID: &glAccountID,
	}
}

func TestE2E_CodeTransactionAndEnqueue(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	csID := env.seedStatement(t, false)
	txID := env.seedTransaction(t, csID, 125.40)

	coded, err := env.CodingService.CodeSingle(ctx, txID, model.CodingRequest{
		Assignment: glCoding(1, 10),
		Notes:      "client dinner",
		CoderID:    7,
	})
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusCoded, coded.Status)
	require.NotNil(t, coded.Coding)
	assert.Equal(t, model.CodingTypeGLAccount, coded.Coding.Type)

	var saved repository.TransactionEntity
	err = env.DB.Read(ctx).First(&saved, txID).Error
	require.NoError(t, err)
	assert.Equal(t, string(model.TransactionStatusCoded), saved.Status)
	require.NotNil(t, saved.GLAccountID)
	assert.Equal(t, int64(10), *saved.GLAccountID)
	assert.Equal(t, "HILTON HOTEL", saved.MerchantKey)

	stats, err := env.Queue.GetStats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TotalMessages, int64(1))
}

func TestE2E_LockedStatementBlocksCoding(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	csID := env.seedStatement(t, true)
	txID := env.seedTransaction(t, csID, 50.00)

	_, err := env.CodingService.CodeSingle(ctx, txID, model.CodingRequest{
		Assignment: glCoding(1, 10),
		CoderID:    7,
	})
	require.Error(t, err)

	var saved repository.TransactionEntity
	require.NoError(t, env.DB.Read(ctx).First(&saved, txID).Error)
	assert.Equal(t, string(model.TransactionStatusUncoded), saved.Status)
	assert.Nil(t, saved.GLAccountID)
}

func TestE2E_SplitAllocation(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	csID := env.seedStatement(t, false)
	txID := env.seedTransaction(t, csID, 100.00)

	children, err := env.CodingService.CommitSplit(ctx, txID, model.SplitRequest{
		Lines: []model.SplitLineRequest{
			{Amount: 60.00, Coding: glCoding(1, 10)},
			{Amount: 40.00, Coding: glCoding(1, 11)},
		},
		CoderID: 7,
	})
	require.NoError(t, err)
	require.Len(t, children, 2)

	var parent repository.TransactionEntity
	require.NoError(t, env.DB.Read(ctx).First(&parent, txID).Error)
	assert.Equal(t, string(model.TransactionStatusSplit), parent.Status)

	var stored []repository.TransactionEntity
	require.NoError(t, env.DB.Read(ctx).Where("parent_transaction_id = ?", txID).Find(&stored).Error)
	require.Len(t, stored, 2)
	sum := 0.0
	for _, c := range stored {
		assert.Equal(t, string(model.TransactionStatusCoded), c.Status)
		assert.Equal(t, csID, c.CardholderStatementID)
		sum += c.Amount
	}
	assert.InDelta(t, 100.00, sum, 0.001)
}

func TestE2E_EventConsumption(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	csID := env.seedStatement(t, false)
	txID := env.seedTransaction(t, csID, 75.25)

	_, err := env.CodingService.CodeSingle(ctx, txID, model.CodingRequest{
		Assignment: glCoding(1, 10),
		CoderID:    7,
	})
	require.NoError(t, err)

	received := make(chan *queue.CodingEvent, 1)
	handler := func(ctx context.Context, qMsg *queue.Message) error {
		ev, err := qMsg.Event()
		assert.NoError(t, err)
		received <- ev
		return nil
	}

	err = env.Queue.Consume(handler)
	require.NoError(t, err)

	select {
	case ev := <-received:
		assert.Equal(t, txID, ev.TransactionID)
		assert.Equal(t, csID, ev.CardholderStatementID)
		assert.Equal(t, queue.ActionCoded, ev.Action)
	case <-time.After(3 * time.Second):
		t.Fatal("coding event not consumed within timeout")
	}
}

func TestE2E_ProgressRecompute(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	csID := env.seedStatement(t, false)
	txID := env.seedTransaction(t, csID, 75.25)
	env.seedTransaction(t, csID, 14.99)

	_, err := env.CodingService.CodeSingle(ctx, txID, model.CodingRequest{
		Assignment: glCoding(1, 10),
		CoderID:    7,
	})
	require.NoError(t, err)

	idempotency := processor.NewIdempotencyService(env.RedisAdapter, processor.DefaultIdempotencyConfig())
	progressProcessor := processor.NewProgressProcessor(env.TransactionRepo, env.StatementRepo, idempotency)

	done := make(chan error, 1)
	err = env.Queue.Consume(func(ctx context.Context, qMsg *queue.Message) error {
		procErr := progressProcessor.Process(ctx, qMsg)
		done <- procErr
		return procErr
	})
	require.NoError(t, err)

	select {
	case procErr := <-done:
		require.NoError(t, procErr)
	case <-time.After(3 * time.Second):
		t.Fatal("progress event not processed within timeout")
	}

	var cs repository.CardholderStatementEntity
	require.NoError(t, env.DB.Read(ctx).First(&cs, csID).Error)
	assert.InDelta(t, 50.0, cs.CodingProgress, 0.001)
}

func TestE2E_ProgressCountsExported(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	csID := env.seedStatement(t, false)
	firstID := env.seedTransaction(t, csID, 75.25)
	secondID := env.seedTransaction(t, csID, 14.99)

	for _, id := range []int64{firstID, secondID} {
		_, err := env.CodingService.CodeSingle(ctx, id, model.CodingRequest{
			Assignment: glCoding(1, 10),
			CoderID:    7,
		})
		require.NoError(t, err)
	}
	require.NoError(t, env.TransactionRepo.UpdateStatus(ctx, firstID, model.TransactionStatusExported))

	idempotency := processor.NewIdempotencyService(env.RedisAdapter, processor.DefaultIdempotencyConfig())
	progressProcessor := processor.NewProgressProcessor(env.TransactionRepo, env.StatementRepo, idempotency)

	done := make(chan error, 2)
	err := env.Queue.Consume(func(ctx context.Context, qMsg *queue.Message) error {
		procErr := progressProcessor.Process(ctx, qMsg)
		done <- procErr
		return procErr
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		select {
		case procErr := <-done:
			require.NoError(t, procErr)
		case <-time.After(3 * time.Second):
			t.Fatal("progress event not processed within timeout")
		}
	}

	// an exported transaction stays complete, progress never regresses
	var cs repository.CardholderStatementEntity
	require.NoError(t, env.DB.Read(ctx).First(&cs, csID).Error)
	assert.InDelta(t, 100.0, cs.CodingProgress, 0.001)
}

func TestE2E_ReviewAndReject(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	csID := env.seedStatement(t, false)
	txID := env.seedTransaction(t, csID, 42.00)
	otherID := env.seedTransaction(t, csID, 18.50)

	for _, id := range []int64{txID, otherID} {
		_, err := env.CodingService.CodeSingle(ctx, id, model.CodingRequest{
			Assignment: glCoding(1, 10),
			CoderID:    7,
		})
		require.NoError(t, err)
	}

	require.NoError(t, env.CodingService.Review(ctx, txID, 9))
	var reviewed repository.TransactionEntity
	require.NoError(t, env.DB.Read(ctx).First(&reviewed, txID).Error)
	assert.Equal(t, string(model.TransactionStatusReviewed), reviewed.Status)
	require.NotNil(t, reviewed.ReviewedByID)
	assert.Equal(t, int64(9), *reviewed.ReviewedByID)

	require.NoError(t, env.CodingService.Reject(ctx, otherID, 9, "wrong account"))
	var rejected repository.TransactionEntity
	require.NoError(t, env.DB.Read(ctx).First(&rejected, otherID).Error)
	assert.Equal(t, string(model.TransactionStatusRejected), rejected.Status)
	assert.Equal(t, "wrong account", rejected.RejectionReason)
}

func TestE2E_ListTransactionsWithTotals(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	csID := env.seedStatement(t, false)

	var ids []int64
	for i := 0; i < 5; i++ {
		ids = append(ids, env.seedTransaction(t, csID, 10.00))
	}

	_, err := env.CodingService.CodeSingle(ctx, ids[0], model.CodingRequest{
		Assignment: glCoding(1, 10),
		CoderID:    7,
	})
	require.NoError(t, err)

	page, err := env.CodingService.ListTransactions(ctx, model.TransactionFilter{
		CardholderStatementID: &csID,
		Limit:                 10,
	})
	require.NoError(t, err)
	assert.Len(t, page.Transactions, 5)
	assert.Equal(t, int64(5), page.TotalCount)
	assert.Equal(t, int64(1), page.CodedCount)
	assert.InDelta(t, 50.00, page.TotalAmount, 0.001)
	assert.InDelta(t, 10.00, page.CodedAmount, 0.001)
}

func TestE2E_BatchCoding(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	csID := env.seedStatement(t, false)

	var ids []int64
	for i := 0; i < 3; i++ {
		ids = append(ids, env.seedTransaction(t, csID, 20.00))
	}

	err := env.CodingService.CodeBatch(ctx, model.BatchCodingRequest{
		TransactionIDs: ids,
		Assignment:     glCoding(1, 10),
		CoderID:        7,
	})
	require.NoError(t, err)

	var count int64
	env.DB.Read(ctx).Model(&repository.TransactionEntity{}).
		Where("status = ?", string(model.TransactionStatusCoded)).Count(&count)
	assert.Equal(t, int64(3), count)
}
