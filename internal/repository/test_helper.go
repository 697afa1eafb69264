package repository

import (
	"reflect"
	"testing"
	"time"

	"github.com/meridian-cg/coding-portal/internal/model"
	"github.com/meridian-cg/coding-portal/pkg/pg"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testDB struct {
	*pg.DB
	rawDB *gorm.DB
}

func setupTestDB(t *testing.T) *testDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&StatementEntity{},
		&CardholderEntity{},
		&CardholderStatementEntity{},
		&TransactionEntity{},
		&CompanyEntity{},
		&GLAccountEntity{},
		&JobEntity{},
		&JobPhaseEntity{},
		&JobCostTypeEntity{},
		&EquipmentEntity{},
		&EquipmentCostCodeEntity{},
		&EquipmentCostTypeEntity{},
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

	return &testDB{
		DB:    pgDB,
		rawDB: db,
	}
}

// seedCardholderStatement seeds a statement, cardholder, and the joining
// cardholder statement, returning the cardholder statement id.
func seedCardholderStatement(t *testing.T, db *testDB) int64 {
	st := &StatementEntity{
		Month:       3,
		Year:        2024,
		ClosingDate: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Status:      string(model.StatementStatusInProgress),
	}
	require.NoError(t, db.rawDB.Create(st).Error)

	ch := &CardholderEntity{FirstName: "DANA", LastName: "WHITFIELD", IsActive: true}
	require.NoError(t, db.rawDB.Create(ch).Error)

	cs := &CardholderStatementEntity{StatementID: st.ID, CardholderID: ch.ID}
	require.NoError(t, db.rawDB.Create(cs).Error)
	return cs.ID
}

func seedTransaction(t *testing.T, db *testDB, csID int64, amount float64, status model.TransactionStatus) *TransactionEntity {
	e := &TransactionEntity{
		CardholderStatementID: csID,
		TransactionDate:       time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
		PostingDate:           time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Description:           "REF# 123ABC HILTON HOTEL 03/14/24",
		Amount:                amount,
		MerchantKey:           "HILTON HOTEL",
		Status:                string(status),
	}
	require.NoError(t, db.rawDB.Create(e).Error)
	return e
}
