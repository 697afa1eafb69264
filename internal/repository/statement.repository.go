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
	// ErrStatementNotFound is returned when a statement does not exist.
	ErrStatementNotFound = errors.New("statement not found")
)

type StatementRepository struct {
	*pg.DB
}

func NewStatementRepository(db *pg.DB) *StatementRepository {
	return &StatementRepository{
		db,
	}
}

func (r *StatementRepository) Get(ctx context.Context, id int64) (*model.Statement, error) {
	var entity StatementEntity
	err := r.Read(ctx).WithContext(ctx).First(&entity, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStatementNotFound
	}
	if err != nil {
		return nil, err
	}
	return toStatementModel(&entity), nil
}

func (r *StatementRepository) List(ctx context.Context) ([]*model.Statement, error) {
	var entities []*StatementEntity
	err := r.Read(ctx).WithContext(ctx).
		Order("year DESC, month DESC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	models := make([]*model.Statement, len(entities))
	for i, e := range entities {
		models[i] = toStatementModel(e)
	}
	return models, nil
}

// Lock freezes coding for every transaction under the statement.
func (r *StatementRepository) Lock(ctx context.Context, id int64, reason string, lockerID int64) error {
	now := time.Now()
	res := r.Write(ctx).WithContext(ctx).Model(&StatementEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_locked":    true,
			"lock_reason":  reason,
			"locked_at":    &now,
			"locked_by_id": &lockerID,
			"status":       string(model.StatementStatusLocked),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatementNotFound
	}
	return nil
}

func (r *StatementRepository) Unlock(ctx context.Context, id int64) error {
	res := r.Write(ctx).WithContext(ctx).Model(&StatementEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_locked":    false,
			"lock_reason":  "",
			"locked_at":    nil,
			"locked_by_id": nil,
			"status":       string(model.StatementStatusInProgress),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatementNotFound
	}
	return nil
}

func (r *StatementRepository) GetCardholderStatement(ctx context.Context, id int64) (*model.CardholderStatement, error) {
	var entity CardholderStatementEntity
	err := r.Read(ctx).WithContext(ctx).First(&entity, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStatementNotFound
	}
	if err != nil {
		return nil, err
	}

	cs := toCardholderStatementModel(&entity)

	var st StatementEntity
	if err := r.Read(ctx).WithContext(ctx).First(&st, entity.StatementID).Error; err == nil {
		cs.Statement = toStatementModel(&st)
	}
	var ch CardholderEntity
	if err := r.Read(ctx).WithContext(ctx).First(&ch, entity.CardholderID).Error; err == nil {
		cs.Cardholder = toCardholderModel(&ch)
	}
	return cs, nil
}

func (r *StatementRepository) ListCardholderStatements(ctx context.Context, statementID int64) ([]*model.CardholderStatement, error) {
	var entities []*CardholderStatementEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("statement_id = ?", statementID).
		Order("id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	models := make([]*model.CardholderStatement, len(entities))
	for i, e := range entities {
		models[i] = toCardholderStatementModel(e)
	}
	return models, nil
}

// UpdateCodingProgress stores the recomputed percentage and stamps
// completed_at when coding reaches 100%.
func (r *StatementRepository) UpdateCodingProgress(ctx context.Context, cardholderStatementID int64, progress float64) error {
	updates := map[string]interface{}{
		"coding_progress": progress,
	}
	if progress >= 100 {
		now := time.Now()
		updates["completed_at"] = &now
	} else {
		updates["completed_at"] = nil
	}

	res := r.Write(ctx).WithContext(ctx).Model(&CardholderStatementEntity{}).
		Where("id = ?", cardholderStatementID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatementNotFound
	}
	return nil
}

// StatementForTransaction resolves the owning statement of a transaction for
// lock checks.
func (r *StatementRepository) StatementForTransaction(ctx context.Context, transactionID int64) (*model.Statement, error) {
	var entity StatementEntity
	err := r.Read(ctx).WithContext(ctx).
		Joins("JOIN cardholder_statements cs ON cs.statement_id = statements.id").
		Joins("JOIN transactions t ON t.cardholder_statement_id = cs.id").
		Where("t.id = ?", transactionID).
		First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStatementNotFound
	}
	if err != nil {
		return nil, err
	}
	return toStatementModel(&entity), nil
}
