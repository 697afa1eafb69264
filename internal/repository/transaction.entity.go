package repository

import (
	"time"

	"github.com/meridian-cg/coding-portal/internal/model"
)

// TransactionEntity is the flat persisted form of a transaction. Coding is
// stored as nullable foreign-key columns plus the coding_type discriminator;
// the mapper reassembles the tagged variant on read.
type TransactionEntity struct {
	ID                    int64  `db:"id"                      gorm:"primaryKey;autoIncrement;column:id"`
	CardholderStatementID int64  `db:"cardholder_statement_id" gorm:"column:cardholder_statement_id;not null;index"`
	ParentTransactionID   *int64 `db:"parent_transaction_id"   gorm:"column:parent_transaction_id;index"`

	TransactionDate time.Time `db:"transaction_date" gorm:"column:transaction_date;not null;index"`
	PostingDate     time.Time `db:"posting_date"     gorm:"column:posting_date"`
	Description     string    `db:"description"      gorm:"column:description;not null"`
	Amount          float64   `db:"amount"           gorm:"column:amount;not null"`
	MerchantKey     string    `db:"merchant_key"     gorm:"column:merchant_key;index"`

	CodingType          string `db:"coding_type"            gorm:"column:coding_type"`
	CompanyID           *int64 `db:"company_id"             gorm:"column:company_id"`
	GLAccountID         *int64 `db:"gl_account_id"          gorm:"column:gl_account_id"`
	JobID               *int64 `db:"job_id"                 gorm:"column:job_id"`
	JobPhaseID          *int64 `db:"job_phase_id"           gorm:"column:job_phase_id"`
	JobCostTypeID       *int64 `db:"job_cost_type_id"       gorm:"column:job_cost_type_id"`
	EquipmentID         *int64 `db:"equipment_id"           gorm:"column:equipment_id"`
	EquipmentCostCodeID *int64 `db:"equipment_cost_code_id" gorm:"column:equipment_cost_code_id"`
	EquipmentCostTypeID *int64 `db:"equipment_cost_type_id" gorm:"column:equipment_cost_type_id"`

	Notes           string     `db:"notes"            gorm:"column:notes"`
	Status          string     `db:"status"           gorm:"column:status;not null;default:uncoded;index"`
	IsLocked        bool       `db:"is_locked"        gorm:"column:is_locked;not null;default:false"`
	CodedAt         *time.Time `db:"coded_at"         gorm:"column:coded_at"`
	CodedByID       *int64     `db:"coded_by_id"      gorm:"column:coded_by_id"`
	ReviewedAt      *time.Time `db:"reviewed_at"      gorm:"column:reviewed_at"`
	ReviewedByID    *int64     `db:"reviewed_by_id"   gorm:"column:reviewed_by_id"`
	RejectionReason string     `db:"rejection_reason" gorm:"column:rejection_reason"`

	CreatedAt time.Time `db:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

func toTransactionEntity(t *model.Transaction) *TransactionEntity {
	if t == nil {
		return nil
	}
	e := &TransactionEntity{
		ID:                    t.ID,
		CardholderStatementID: t.CardholderStatementID,
		ParentTransactionID:   t.ParentTransactionID,
		TransactionDate:       t.TransactionDate,
		PostingDate:           t.PostingDate,
		Description:           t.Description,
		Amount:                t.Amount,
		MerchantKey:           t.MerchantKey,
		Notes:                 t.Notes,
		Status:                string(t.Status),
		IsLocked:              t.IsLocked,
		CodedAt:               t.CodedAt,
		CodedByID:             t.CodedByID,
		ReviewedAt:            t.ReviewedAt,
		ReviewedByID:          t.ReviewedByID,
		RejectionReason:       t.RejectionReason,
		CreatedAt:             t.CreatedAt,
	}
	if t.Coding != nil {
		p := t.Coding.Payload()
		e.CodingType = string(p.CodingType)
		e.CompanyID = p.CompanyID
		e.GLAccountID = p.GLAccountID
		e.JobID = p.JobID
		e.JobPhaseID = p.JobPhaseID
		e.JobCostTypeID = p.JobCostTypeID
		e.EquipmentID = p.EquipmentID
		e.EquipmentCostCodeID = p.EquipmentCostCodeID
		e.EquipmentCostTypeID = p.EquipmentCostTypeID
	}
	return e
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	t := &model.Transaction{
		ID:                    e.ID,
		CardholderStatementID: e.CardholderStatementID,
		ParentTransactionID:   e.ParentTransactionID,
		TransactionDate:       e.TransactionDate,
		PostingDate:           e.PostingDate,
		Description:           e.Description,
		Amount:                e.Amount,
		MerchantKey:           e.MerchantKey,
		Notes:                 e.Notes,
		Status:                model.TransactionStatus(e.Status),
		IsLocked:              e.IsLocked,
		CodedAt:               e.CodedAt,
		CodedByID:             e.CodedByID,
		ReviewedAt:            e.ReviewedAt,
		ReviewedByID:          e.ReviewedByID,
		RejectionReason:       e.RejectionReason,
		CreatedAt:             e.CreatedAt,
	}
	if e.CodingType != "" {
		t.Coding = &model.CodingAssignment{
			Type:                model.CodingType(e.CodingType),
			CompanyID:           e.CompanyID,
			GLAccountID:         e.GLAccountID,
			JobID:               e.JobID,
			JobPhaseID:          e.JobPhaseID,
			JobCostTypeID:       e.JobCostTypeID,
			EquipmentID:         e.EquipmentID,
			EquipmentCostCodeID: e.EquipmentCostCodeID,
			EquipmentCostTypeID: e.EquipmentCostTypeID,
		}
	}
	return t
}

func toTransactionModels(entities []*TransactionEntity) []*model.Transaction {
	if entities == nil {
		return nil
	}
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		models[i] = toTransactionModel(e)
	}
	return models
}
