package repository

import (
	"context"
	"testing"

	"github.com/meridian-cg/coding-portal/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedReferenceData(t *testing.T, db *testDB) {
	companies := []*CompanyEntity{
		{Code: "100", Name: "Meridian Construction", IsActive: true},
		{Code: "200", Name: "Meridian Equipment", IsActive: false},
	}
	require.NoError(t, db.rawDB.Create(&companies).Error)

	accounts := []*GLAccountEntity{
		{CompanyID: &companies[0].ID, AccountCode: "6100", Description: "Travel", IsActive: true},
		{CompanyID: &companies[0].ID, AccountCode: "6200", Description: "Meals", IsActive: true},
		{CompanyID: &companies[1].ID, AccountCode: "5100", Description: "Parts", IsActive: true},
	}
	require.NoError(t, db.rawDB.Create(&accounts).Error)

	jobs := []*JobEntity{
		{JobNumber: "24-001", Name: "Riverside Plant", IsActive: true},
		{JobNumber: "24-002", Name: "Harbor Terminal", IsActive: true},
	}
	require.NoError(t, db.rawDB.Create(&jobs).Error)

	phases := []*JobPhaseEntity{
		{JobID: jobs[0].ID, PhaseCode: "010", Description: "Sitework"},
		{JobID: jobs[0].ID, PhaseCode: "020", Description: "Concrete"},
		{JobID: jobs[1].ID, PhaseCode: "010", Description: "Demolition"},
	}
	require.NoError(t, db.rawDB.Create(&phases).Error)

	equipment := []*EquipmentEntity{
		{EquipmentNumber: "EX-14", Description: "Excavator", IsActive: true},
		{EquipmentNumber: "CR-02", Description: "Crane", IsActive: true},
	}
	require.NoError(t, db.rawDB.Create(&equipment).Error)
}

func TestReferenceRepository_CompaniesActiveOnly(t *testing.T) {
	db := setupTestDB(t)
	seedReferenceData(t, db)
	repo := NewReferenceRepository(db.DB)
	ctx := context.Background()

	all, err := repo.Companies(ctx, model.ReferenceFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := repo.Companies(ctx, model.ReferenceFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "100", active[0].Code)
}

func TestReferenceRepository_GLAccountsScopedToCompany(t *testing.T) {
	db := setupTestDB(t)
	seedReferenceData(t, db)
	repo := NewReferenceRepository(db.DB)
	ctx := context.Background()

	companies, err := repo.Companies(ctx, model.ReferenceFilter{ActiveOnly: true})
	require.NoError(t, err)
	companyID := companies[0].ID

	accounts, err := repo.GLAccounts(ctx, model.ReferenceFilter{CompanyID: &companyID})
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "6100", accounts[0].AccountCode)
	assert.Equal(t, "6200", accounts[1].AccountCode)
}

func TestReferenceRepository_JobSearch(t *testing.T) {
	db := setupTestDB(t)
	seedReferenceData(t, db)
	repo := NewReferenceRepository(db.DB)
	ctx := context.Background()

	jobs, err := repo.Jobs(ctx, model.ReferenceFilter{Search: "Harbor"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "24-002", jobs[0].JobNumber)

	jobs, err = repo.Jobs(ctx, model.ReferenceFilter{Search: "24-0"})
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestReferenceRepository_JobPhasesScopedToJob(t *testing.T) {
	db := setupTestDB(t)
	seedReferenceData(t, db)
	repo := NewReferenceRepository(db.DB)
	ctx := context.Background()

	jobs, err := repo.Jobs(ctx, model.ReferenceFilter{Search: "Riverside"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	phases, err := repo.JobPhases(ctx, jobs[0].ID)
	require.NoError(t, err)
	assert.Len(t, phases, 2)
}

func TestReferenceRepository_EquipmentSearch(t *testing.T) {
	db := setupTestDB(t)
	seedReferenceData(t, db)
	repo := NewReferenceRepository(db.DB)
	ctx := context.Background()

	equipment, err := repo.Equipment(ctx, model.ReferenceFilter{Search: "Crane"})
	require.NoError(t, err)
	require.Len(t, equipment, 1)
	assert.Equal(t, "CR-02", equipment[0].EquipmentNumber)
}
