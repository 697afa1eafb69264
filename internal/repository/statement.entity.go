package repository

import (
	"time"

	"github.com/meridian-cg/coding-portal/internal/model"
)

type StatementEntity struct {
	ID          int64     `db:"id"           gorm:"primaryKey;autoIncrement;column:id"`
	Month       int       `db:"month"        gorm:"column:month;not null"`
	Year        int       `db:"year"         gorm:"column:year;not null"`
	ClosingDate time.Time `db:"closing_date" gorm:"column:closing_date"`
	Status      string    `db:"status"       gorm:"column:status;not null;default:pending"`

	IsLocked   bool       `db:"is_locked"    gorm:"column:is_locked;not null;default:false"`
	LockReason string     `db:"lock_reason"  gorm:"column:lock_reason"`
	LockedAt   *time.Time `db:"locked_at"    gorm:"column:locked_at"`
	LockedByID *int64     `db:"locked_by_id" gorm:"column:locked_by_id"`

	CreatedAt time.Time `db:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (StatementEntity) TableName() string {
	return "statements"
}

type CardholderStatementEntity struct {
	ID               int64      `db:"id"                gorm:"primaryKey;autoIncrement;column:id"`
	StatementID      int64      `db:"statement_id"      gorm:"column:statement_id;not null;index"`
	CardholderID     int64      `db:"cardholder_id"     gorm:"column:cardholder_id;not null;index"`
	TotalAmount      float64    `db:"total_amount"      gorm:"column:total_amount;not null;default:0"`
	TransactionCount int        `db:"transaction_count" gorm:"column:transaction_count;not null;default:0"`
	CodingProgress   float64    `db:"coding_progress"   gorm:"column:coding_progress;not null;default:0"`
	CompletedAt      *time.Time `db:"completed_at"      gorm:"column:completed_at"`
	CreatedAt        time.Time  `db:"created_at"        gorm:"column:created_at;autoCreateTime"`
}

func (CardholderStatementEntity) TableName() string {
	return "cardholder_statements"
}

type CardholderEntity struct {
	ID         int64  `db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	FirstName  string `db:"first_name"  gorm:"column:first_name;not null"`
	LastName   string `db:"last_name"   gorm:"column:last_name;not null"`
	EmployeeID string `db:"employee_id" gorm:"column:employee_id"`
	Department string `db:"department"  gorm:"column:department"`
	IsActive   bool   `db:"is_active"   gorm:"column:is_active;not null;default:true"`
}

func (CardholderEntity) TableName() string {
	return "cardholders"
}

func toStatementEntity(s *model.Statement) *StatementEntity {
	if s == nil {
		return nil
	}
	return &StatementEntity{
		ID:          s.ID,
		Month:       s.Month,
		Year:        s.Year,
		ClosingDate: s.ClosingDate,
		Status:      string(s.Status),
		IsLocked:    s.IsLocked,
		LockReason:  s.LockReason,
		LockedAt:    s.LockedAt,
		LockedByID:  s.LockedByID,
		CreatedAt:   s.CreatedAt,
	}
}

func toStatementModel(e *StatementEntity) *model.Statement {
	if e == nil {
		return nil
	}
	return &model.Statement{
		ID:          e.ID,
		Month:       e.Month,
		Year:        e.Year,
		ClosingDate: e.ClosingDate,
		Status:      model.StatementStatus(e.Status),
		IsLocked:    e.IsLocked,
		LockReason:  e.LockReason,
		LockedAt:    e.LockedAt,
		LockedByID:  e.LockedByID,
		CreatedAt:   e.CreatedAt,
	}
}

func toCardholderStatementModel(e *CardholderStatementEntity) *model.CardholderStatement {
	if e == nil {
		return nil
	}
	return &model.CardholderStatement{
		ID:               e.ID,
		StatementID:      e.StatementID,
		CardholderID:     e.CardholderID,
		TotalAmount:      e.TotalAmount,
		TransactionCount: e.TransactionCount,
		CodingProgress:   e.CodingProgress,
		CompletedAt:      e.CompletedAt,
		CreatedAt:        e.CreatedAt,
	}
}

func toCardholderModel(e *CardholderEntity) *model.Cardholder {
	if e == nil {
		return nil
	}
	return &model.Cardholder{
		ID:         e.ID,
		FullName:   e.FirstName + " " + e.LastName,
		FirstName:  e.FirstName,
		LastName:   e.LastName,
		EmployeeID: e.EmployeeID,
		Department: e.Department,
		IsActive:   e.IsActive,
	}
}
