package repository

import (
	"context"

	"github.com/meridian-cg/coding-portal/internal/model"
	"github.com/meridian-cg/coding-portal/pkg/pg"
	"gorm.io/gorm"
)

type ReferenceRepository struct {
	*pg.DB
}

func NewReferenceRepository(db *pg.DB) *ReferenceRepository {
	return &ReferenceRepository{
		db,
	}
}

func (r *ReferenceRepository) Companies(ctx context.Context, f model.ReferenceFilter) ([]*model.Company, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&CompanyEntity{})
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}

	var entities []*CompanyEntity
	if err := q.Order("code ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	out := make([]*model.Company, len(entities))
	for i, e := range entities {
		out[i] = toCompanyModel(e)
	}
	return out, nil
}

// GLAccounts is scoped per company; selecting a company narrows the account
// list to that company's chart.
func (r *ReferenceRepository) GLAccounts(ctx context.Context, f model.ReferenceFilter) ([]*model.GLAccount, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&GLAccountEntity{})
	if f.CompanyID != nil {
		q = q.Where("company_id = ?", *f.CompanyID)
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if f.Search != "" {
		q = searchClause(q, f.Search, "account_code", "description")
	}

	var entities []*GLAccountEntity
	if err := q.Order("account_code ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	out := make([]*model.GLAccount, len(entities))
	for i, e := range entities {
		out[i] = toGLAccountModel(e)
	}
	return out, nil
}

func (r *ReferenceRepository) Jobs(ctx context.Context, f model.ReferenceFilter) ([]*model.Job, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&JobEntity{})
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if f.Search != "" {
		q = searchClause(q, f.Search, "job_number", "name")
	}

	var entities []*JobEntity
	if err := q.Order("job_number ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	out := make([]*model.Job, len(entities))
	for i, e := range entities {
		out[i] = toJobModel(e)
	}
	return out, nil
}

func (r *ReferenceRepository) JobPhases(ctx context.Context, jobID int64) ([]*model.JobPhase, error) {
	var entities []*JobPhaseEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("phase_code ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	out := make([]*model.JobPhase, len(entities))
	for i, e := range entities {
		out[i] = toJobPhaseModel(e)
	}
	return out, nil
}

func (r *ReferenceRepository) JobCostTypes(ctx context.Context) ([]*model.JobCostType, error) {
	var entities []*JobCostTypeEntity
	if err := r.Read(ctx).WithContext(ctx).Order("code ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	out := make([]*model.JobCostType, len(entities))
	for i, e := range entities {
		out[i] = toJobCostTypeModel(e)
	}
	return out, nil
}

func (r *ReferenceRepository) Equipment(ctx context.Context, f model.ReferenceFilter) ([]*model.Equipment, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&EquipmentEntity{})
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if f.Search != "" {
		q = searchClause(q, f.Search, "equipment_number", "description")
	}

	var entities []*EquipmentEntity
	if err := q.Order("equipment_number ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	out := make([]*model.Equipment, len(entities))
	for i, e := range entities {
		out[i] = toEquipmentModel(e)
	}
	return out, nil
}

func (r *ReferenceRepository) EquipmentCostCodes(ctx context.Context) ([]*model.EquipmentCostCode, error) {
	var entities []*EquipmentCostCodeEntity
	if err := r.Read(ctx).WithContext(ctx).Order("code ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	out := make([]*model.EquipmentCostCode, len(entities))
	for i, e := range entities {
		out[i] = toEquipmentCostCodeModel(e)
	}
	return out, nil
}

func (r *ReferenceRepository) EquipmentCostTypes(ctx context.Context) ([]*model.EquipmentCostType, error) {
	var entities []*EquipmentCostTypeEntity
	if err := r.Read(ctx).WithContext(ctx).Order("code ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	out := make([]*model.EquipmentCostType, len(entities))
	for i, e := range entities {
		out[i] = toEquipmentCostTypeModel(e)
	}
	return out, nil
}

func searchClause(q *gorm.DB, term string, columns ...string) *gorm.DB {
	pattern := "%" + term + "%"
	clause := ""
	args := make([]interface{}, 0, len(columns))
	for i, col := range columns {
		if i > 0 {
			clause += " OR "
		}
		clause += col + " LIKE ?"
		args = append(args, pattern)
	}
	return q.Where(clause, args...)
}
