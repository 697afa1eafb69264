package repository

import (
	"context"
	"errors"
	"time"

	"github.com/meridian-cg/coding-portal/internal/model"
	"github.com/meridian-cg/coding-portal/pkg/pg"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a transaction does not exist.
	ErrNotFound = errors.New("transaction not found")
)

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

func (r *TransactionRepository) Get(ctx context.Context, id int64) (*model.Transaction, error) {
	var entity TransactionEntity
	err := r.Read(ctx).WithContext(ctx).First(&entity, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toTransactionModel(&entity), nil
}

func (r *TransactionRepository) GetMany(ctx context.Context, ids []int64) ([]*model.Transaction, error) {
	var entities []*TransactionEntity
	if err := r.Read(ctx).WithContext(ctx).Where("id IN ?", ids).Find(&entities).Error; err != nil {
		return nil, err
	}
	return toTransactionModels(entities), nil
}

func (r *TransactionRepository) List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	q := r.filtered(ctx, r.Read(ctx).WithContext(ctx).Model(&TransactionEntity{}), f)

	// Count before pagination
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	skip := f.Skip
	if skip < 0 {
		skip = 0
	}

	var entities []*TransactionEntity
	err := q.Order("transaction_date DESC, id DESC").Limit(limit).Offset(skip).Find(&entities).Error
	if err != nil {
		return nil, 0, err
	}

	return toTransactionModels(entities), total, nil
}

// Totals aggregates the full filtered set in one query so progress never
// depends on which page is loaded. A transaction counts as coded once it is
// coded or reviewed.
func (r *TransactionRepository) Totals(ctx context.Context, f model.TransactionFilter) (*model.CodingTotals, error) {
	q := r.filtered(ctx, r.Read(ctx).WithContext(ctx).Model(&TransactionEntity{}), f)

	var totals model.CodingTotals
	err := q.Select(
		"COUNT(*) AS total_count, " +
			"COALESCE(SUM(amount), 0) AS total_amount, " +
			"COALESCE(SUM(CASE WHEN status IN ('coded', 'reviewed') THEN 1 ELSE 0 END), 0) AS coded_count, " +
			"COALESCE(SUM(CASE WHEN status IN ('coded', 'reviewed') THEN amount ELSE 0 END), 0) AS coded_amount",
	).Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

// CompletionCounts feeds the progress recompute for one cardholder statement.
// Coded, reviewed and exported rows all count as complete, so exporting never
// pushes progress backwards.
func (r *TransactionRepository) CompletionCounts(ctx context.Context, cardholderStatementID int64) (*model.CompletionCounts, error) {
	q := r.filtered(ctx, r.Read(ctx).WithContext(ctx).Model(&TransactionEntity{}), model.TransactionFilter{
		CardholderStatementID: &cardholderStatementID,
	})

	var counts model.CompletionCounts
	err := q.Select(
		"COUNT(*) AS total_count, " +
			"COALESCE(SUM(CASE WHEN status IN ('coded', 'reviewed', 'exported') THEN 1 ELSE 0 END), 0) AS completed_count",
	).Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return &counts, nil
}

// ApplyCoding writes the full flat payload so foreign keys of inactive
// variants are explicitly nulled, never left stale from an earlier coding.
func (r *TransactionRepository) ApplyCoding(ctx context.Context, id int64, p model.CodingPayload, notes string, coderID int64) error {
	res := r.Write(ctx).WithContext(ctx).Model(&TransactionEntity{}).
		Where("id = ?", id).
		Updates(codingColumns(p, notes, coderID))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyCodingBatch stamps one payload onto many transactions in a single
// statement.
func (r *TransactionRepository) ApplyCodingBatch(ctx context.Context, ids []int64, p model.CodingPayload, notes string, coderID int64) error {
	res := r.Write(ctx).WithContext(ctx).Model(&TransactionEntity{}).
		Where("id IN ?", ids).
		Updates(codingColumns(p, notes, coderID))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != int64(len(ids)) {
		return ErrNotFound
	}
	return nil
}

func codingColumns(p model.CodingPayload, notes string, coderID int64) map[string]interface{} {
	now := time.Now()
	return map[string]interface{}{
		"coding_type":            string(p.CodingType),
		"company_id":             p.CompanyID,
		"gl_account_id":          p.GLAccountID,
		"job_id":                 p.JobID,
		"job_phase_id":           p.JobPhaseID,
		"job_cost_type_id":       p.JobCostTypeID,
		"equipment_id":           p.EquipmentID,
		"equipment_cost_code_id": p.EquipmentCostCodeID,
		"equipment_cost_type_id": p.EquipmentCostTypeID,
		"notes":                  notes,
		"status":                 string(model.TransactionStatusCoded),
		"coded_at":               &now,
		"coded_by_id":            &coderID,
		"reviewed_at":            nil,
		"reviewed_by_id":         nil,
		"rejection_reason":       "",
	}
}

// CreateChildren inserts the coded sub-transactions of a split.
func (r *TransactionRepository) CreateChildren(ctx context.Context, children []*model.Transaction) ([]*model.Transaction, error) {
	entities := make([]*TransactionEntity, len(children))
	for i, c := range children {
		entities[i] = toTransactionEntity(c)
	}
	if err := r.Write(ctx).WithContext(ctx).Create(entities).Error; err != nil {
		return nil, err
	}
	return toTransactionModels(entities), nil
}

func (r *TransactionRepository) UpdateStatus(ctx context.Context, id int64, status model.TransactionStatus) error {
	res := r.Write(ctx).WithContext(ctx).Model(&TransactionEntity{}).
		Where("id = ?", id).
		Update("status", string(status))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TransactionRepository) MarkReviewed(ctx context.Context, id int64, reviewerID int64) error {
	now := time.Now()
	res := r.Write(ctx).WithContext(ctx).Model(&TransactionEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":           string(model.TransactionStatusReviewed),
			"reviewed_at":      &now,
			"reviewed_by_id":   &reviewerID,
			"rejection_reason": "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkRejected sends a coded transaction back for recoding.
func (r *TransactionRepository) MarkRejected(ctx context.Context, id int64, reviewerID int64, reason string) error {
	now := time.Now()
	res := r.Write(ctx).WithContext(ctx).Model(&TransactionEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":           string(model.TransactionStatusRejected),
			"reviewed_at":      &now,
			"reviewed_by_id":   &reviewerID,
			"rejection_reason": reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TransactionRepository) SetLocked(ctx context.Context, id int64, locked bool) error {
	res := r.Write(ctx).WithContext(ctx).Model(&TransactionEntity{}).
		Where("id = ?", id).
		Update("is_locked", locked)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetMerchantKey backfills the derived grouping key after ingestion.
func (r *TransactionRepository) SetMerchantKey(ctx context.Context, id int64, key string) error {
	return r.Write(ctx).WithContext(ctx).Model(&TransactionEntity{}).
		Where("id = ?", id).
		Update("merchant_key", key).Error
}

func (r *TransactionRepository) filtered(ctx context.Context, q *gorm.DB, f model.TransactionFilter) *gorm.DB {
	if f.CardholderStatementID != nil {
		q = q.Where("cardholder_statement_id = ?", *f.CardholderStatementID)
	}
	if f.StatementID != nil {
		q = q.Where("cardholder_statement_id IN (?)",
			r.Read(ctx).Model(&CardholderStatementEntity{}).
				Select("id").Where("statement_id = ?", *f.StatementID))
	}
	if f.CardholderID != nil {
		q = q.Where("cardholder_statement_id IN (?)",
			r.Read(ctx).Model(&CardholderStatementEntity{}).
				Select("id").Where("cardholder_id = ?", *f.CardholderID))
	}
	if f.Status != nil {
		q = q.Where("status = ?", string(*f.Status))
	}
	if f.DateFrom != nil {
		q = q.Where("transaction_date >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("transaction_date < ?", *f.DateTo)
	}
	// split parents stay out of coding lists unless asked for explicitly;
	// their children carry the amounts
	if f.Status == nil {
		q = q.Where("status <> ?", string(model.TransactionStatusSplit))
	}
	return q
}
