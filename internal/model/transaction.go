package model

import (
	"errors"
	"time"
)

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus string

const (
	TransactionStatusUncoded  TransactionStatus = "uncoded"
	TransactionStatusCoded    TransactionStatus = "coded"
	TransactionStatusReviewed TransactionStatus = "reviewed"
	TransactionStatusRejected TransactionStatus = "rejected"
	// split marks a parent whose amount now lives on its coded children.
	TransactionStatusSplit    TransactionStatus = "split"
	TransactionStatusExported TransactionStatus = "exported"
)

// IsCoded reports whether the transaction counts toward coding progress.
func (s TransactionStatus) IsCoded() bool {
	return s == TransactionStatusCoded || s == TransactionStatusReviewed
}

type Transaction struct {
	ID                    int64                `json:"id"`
	CardholderStatementID int64                `json:"cardholder_statement_id"`
	CardholderStatement   *CardholderStatement `json:"-"`
	// ParentTransactionID is set on children created by a split commit.
	ParentTransactionID *int64 `json:"parent_transaction_id,omitempty"`

	TransactionDate time.Time `json:"transaction_date"`
	PostingDate     time.Time `json:"posting_date"`
	Description     string    `json:"description"`
	Amount          float64   `json:"amount"`
	MerchantKey     string    `json:"merchant_key,omitempty"`

	Coding *CodingAssignment `json:"coding,omitempty"`
	Notes  string            `json:"notes,omitempty"`

	Status          TransactionStatus `json:"status"`
	IsLocked        bool              `json:"is_locked"`
	CodedAt         *time.Time        `json:"coded_at,omitempty"`
	CodedByID       *int64            `json:"coded_by_id,omitempty"`
	ReviewedAt      *time.Time        `json:"reviewed_at,omitempty"`
	ReviewedByID    *int64            `json:"reviewed_by_id,omitempty"`
	RejectionReason string            `json:"rejection_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (Transaction) TableName() string { return "transactions" }

// CodingRequest is the input for coding a single transaction.
type CodingRequest struct {
	Assignment CodingAssignment
	Notes      string
	CoderID    int64
}

func (r CodingRequest) Validate() error {
	if !r.Assignment.Type.Valid() {
		return errors.New("coding_type is required")
	}
	return nil
}

// BatchCodingRequest applies one assignment to many transactions atomically.
type BatchCodingRequest struct {
	TransactionIDs []int64
	Assignment     CodingAssignment
	Notes          string
	CoderID        int64
}

func (r BatchCodingRequest) Validate() error {
	if len(r.TransactionIDs) == 0 {
		return errors.New("transaction_ids is required")
	}
	if !r.Assignment.Type.Valid() {
		return errors.New("coding_type is required")
	}
	return nil
}

// SplitLineRequest is one allocation line of a split commit.
type SplitLineRequest struct {
	Amount float64          `json:"amount"`
	Coding CodingAssignment `json:"coding"`
	Notes  string           `json:"notes,omitempty"`
}

// SplitRequest replaces a transaction with coded child allocations.
type SplitRequest struct {
	Lines   []SplitLineRequest `json:"lines"`
	CoderID int64              `json:"coder_id"`
}

func (r SplitRequest) Validate() error {
	if len(r.Lines) < 2 {
		return errors.New("a split needs at least two lines")
	}
	return nil
}

// TransactionFilter controls coding list queries.
type TransactionFilter struct {
	CardholderStatementID *int64
	CardholderID          *int64
	StatementID           *int64
	Status                *TransactionStatus
	DateFrom              *time.Time
	DateTo                *time.Time
	Skip                  int
	Limit                 int // default 100
}

// CodingTotals are the authoritative aggregates for the full filtered set,
// not just the returned page.
type CodingTotals struct {
	TotalCount  int64   `json:"total_count"`
	TotalAmount float64 `json:"total_amount"`
	CodedCount  int64   `json:"coded_count"`
	CodedAmount float64 `json:"coded_amount"`
}

// CompletionCounts feed the progress recompute. Exported rows stay counted
// so a later coding event on the same statement cannot walk progress back.
type CompletionCounts struct {
	TotalCount     int64
	CompletedCount int64
}

// TransactionPage is one page of coding transactions plus set-wide totals.
type TransactionPage struct {
	Transactions []*Transaction `json:"transactions"`
	CodingTotals
}
