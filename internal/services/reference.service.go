package services

import (
	"context"

	"github.com/meridian-cg/coding-portal/internal/model"
)

type ReferenceRepository interface {
	Companies(ctx context.Context, f model.ReferenceFilter) ([]*model.Company, error)
	GLAccounts(ctx context.Context, f model.ReferenceFilter) ([]*model.GLAccount, error)
	Jobs(ctx context.Context, f model.ReferenceFilter) ([]*model.Job, error)
	JobPhases(ctx context.Context, jobID int64) ([]*model.JobPhase, error)
	JobCostTypes(ctx context.Context) ([]*model.JobCostType, error)
	Equipment(ctx context.Context, f model.ReferenceFilter) ([]*model.Equipment, error)
	EquipmentCostCodes(ctx context.Context) ([]*model.EquipmentCostCode, error)
	EquipmentCostTypes(ctx context.Context) ([]*model.EquipmentCostType, error)
}

// ReferenceService serves the accounting reference data coders pick from.
type ReferenceService struct {
	repo ReferenceRepository
}

func NewReferenceService(repo ReferenceRepository) *ReferenceService {
	return &ReferenceService{repo: repo}
}

func (s *ReferenceService) Companies(ctx context.Context, f model.ReferenceFilter) ([]*model.Company, error) {
	return s.repo.Companies(ctx, f)
}

func (s *ReferenceService) GLAccounts(ctx context.Context, f model.ReferenceFilter) ([]*model.GLAccount, error) {
	return s.repo.GLAccounts(ctx, f)
}

func (s *ReferenceService) Jobs(ctx context.Context, f model.ReferenceFilter) ([]*model.Job, error) {
	return s.repo.Jobs(ctx, f)
}

func (s *ReferenceService) JobPhases(ctx context.Context, jobID int64) ([]*model.JobPhase, error) {
	return s.repo.JobPhases(ctx, jobID)
}

func (s *ReferenceService) JobCostTypes(ctx context.Context) ([]*model.JobCostType, error) {
	return s.repo.JobCostTypes(ctx)
}

func (s *ReferenceService) Equipment(ctx context.Context, f model.ReferenceFilter) ([]*model.Equipment, error) {
	return s.repo.Equipment(ctx, f)
}

func (s *ReferenceService) EquipmentCostCodes(ctx context.Context) ([]*model.EquipmentCostCode, error) {
	return s.repo.EquipmentCostCodes(ctx)
}

func (s *ReferenceService) EquipmentCostTypes(ctx context.Context) ([]*model.EquipmentCostType, error) {
	return s.repo.EquipmentCostTypes(ctx)
}
