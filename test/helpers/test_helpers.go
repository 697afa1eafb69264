package helpers

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/meridian-cg/coding-portal/internal/model"
	"github.com/meridian-cg/coding-portal/internal/repository"
	"github.com/meridian-cg/coding-portal/pkg/pg"
	"github.com/meridian-cg/coding-portal/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func SetupTestDB(t *testing.T) *pg.DB {
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

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return pgDB
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	adapter, err := redis.NewRedisAdapter("test", "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestStatement(t *testing.T, db *pg.DB, month, year int, locked bool) *repository.StatementEntity {
	ctx := context.Background()
	st := &repository.StatementEntity{
		Month:       month,
		Year:        year,
		ClosingDate: time.Date(year, time.Month(month), 28, 0, 0, 0, 0, time.UTC),
		Status:      string(model.StatementStatusInProgress),
		IsLocked:    locked,
	}
	if locked {
		st.Status = string(model.StatementStatusCompleted)
		st.LockReason = "month closed"
	}
	err := db.Write(ctx).Create(st).Error
	require.NoError(t, err)
	return st
}

func CreateTestCardholderStatement(t *testing.T, db *pg.DB, statementID int64) *repository.CardholderStatementEntity {
	ctx := context.Background()
	ch := &repository.CardholderEntity{
		FirstName: "DANA",
		LastName:  "WHITFIELD",
		IsActive:  true,
	}
	err := db.Write(ctx).Create(ch).Error
	require.NoError(t, err)

	cs := &repository.CardholderStatementEntity{
		StatementID:  statementID,
		CardholderID: ch.ID,
	}
	err = db.Write(ctx).Create(cs).Error
	require.NoError(t, err)
	return cs
}

func CreateTestTransaction(t *testing.T, db *pg.DB, cardholderStatementID int64, amount float64, description string) *repository.TransactionEntity {
	ctx := context.Background()
	tx := &repository.TransactionEntity{
		CardholderStatementID: cardholderStatementID,
		TransactionDate:       time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
		PostingDate:           time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Description:           description,
		Amount:                amount,
		Status:                string(model.TransactionStatusUncoded),
		CreatedAt:             time.Now(),
	}
	err := db.Write(ctx).Create(tx).Error
	require.NoError(t, err)
	return tx
}

func CreateTestGLAccount(t *testing.T, db *pg.DB, companyID *int64, code string) *repository.GLAccountEntity {
	ctx := context.Background()
	acct := &repository.GLAccountEntity{
		CompanyID:   companyID,
		AccountCode: code,
		IsActive:    true,
	}
	err := db.Write(ctx).Create(acct).Error
	require.NoError(t, err)
	return acct
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func Ptr[T any](v T) *T {
	return &v
}
