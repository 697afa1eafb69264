package model

import (
	"errors"
	"time"
)

// StatementStatus is the lifecycle state of an imported statement batch.
type StatementStatus string

const (
	StatementStatusPending    StatementStatus = "pending"
	StatementStatusInProgress StatementStatus = "in_progress"
	StatementStatusCompleted  StatementStatus = "completed"
	StatementStatusLocked     StatementStatus = "locked"
)

// Statement is a periodic batch of card transactions. Locking a statement
// freezes coding on every transaction under it.
type Statement struct {
	ID          int64           `json:"id"`
	Month       int             `json:"month"`
	Year        int             `json:"year"`
	ClosingDate time.Time       `json:"closing_date"`
	Status      StatementStatus `json:"status"`

	IsLocked   bool       `json:"is_locked"`
	LockReason string     `json:"lock_reason,omitempty"`
	LockedAt   *time.Time `json:"locked_at,omitempty"`
	LockedByID *int64     `json:"locked_by_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (Statement) TableName() string { return "statements" }

// CardholderStatement is one cardholder's slice of a statement. Coding
// progress is recomputed asynchronously after every coding mutation.
type CardholderStatement struct {
	ID               int64       `json:"id"`
	StatementID      int64       `json:"statement_id"`
	Statement        *Statement  `json:"-"`
	CardholderID     int64       `json:"cardholder_id"`
	Cardholder       *Cardholder `json:"-"`
	TotalAmount      float64     `json:"total_amount"`
	TransactionCount int         `json:"transaction_count"`
	CodingProgress   float64     `json:"coding_progress"`
	CompletedAt      *time.Time  `json:"completed_at,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

func (CardholderStatement) TableName() string { return "cardholder_statements" }

type Cardholder struct {
	ID         int64  `json:"id"`
	FullName   string `json:"full_name"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	EmployeeID string `json:"employee_id,omitempty"`
	Department string `json:"department,omitempty"`
	IsActive   bool   `json:"is_active"`
}

func (Cardholder) TableName() string { return "cardholders" }

// LockRequest locks a statement against further coding.
type LockRequest struct {
	Reason   string
	LockerID int64
}

func (r LockRequest) Validate() error {
	if r.Reason == "" {
		return errors.New("lock reason is required")
	}
	return nil
}
