package repository

import "github.com/meridian-cg/coding-portal/internal/model"

// Reference-data entities map one-to-one onto their models; they exist so
// the repository layer owns every gorm tag in one place.

type CompanyEntity struct {
	ID       int64  `db:"id"        gorm:"primaryKey;autoIncrement;column:id"`
	Code     string `db:"code"      gorm:"column:code;not null;uniqueIndex"`
	Name     string `db:"name"      gorm:"column:name;not null"`
	IsActive bool   `db:"is_active" gorm:"column:is_active;not null;default:true"`
}

func (CompanyEntity) TableName() string { return "companies" }

type GLAccountEntity struct {
	ID          int64  `db:"id"           gorm:"primaryKey;autoIncrement;column:id"`
	CompanyID   *int64 `db:"company_id"   gorm:"column:company_id;index"`
	AccountCode string `db:"account_code" gorm:"column:account_code;not null"`
	Description string `db:"description"  gorm:"column:description"`
	IsActive    bool   `db:"is_active"    gorm:"column:is_active;not null;default:true"`
}

func (GLAccountEntity) TableName() string { return "gl_accounts" }

type JobEntity struct {
	ID        int64  `db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	JobNumber string `db:"job_number" gorm:"column:job_number;not null"`
	Name      string `db:"name"       gorm:"column:name"`
	IsActive  bool   `db:"is_active"  gorm:"column:is_active;not null;default:true"`
}

func (JobEntity) TableName() string { return "jobs" }

type JobPhaseEntity struct {
	ID          int64  `db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	JobID       int64  `db:"job_id"      gorm:"column:job_id;not null;index"`
	PhaseCode   string `db:"phase_code"  gorm:"column:phase_code;not null"`
	Description string `db:"description" gorm:"column:description"`
}

func (JobPhaseEntity) TableName() string { return "job_phases" }

type JobCostTypeEntity struct {
	ID          int64  `db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	Code        string `db:"code"        gorm:"column:code;not null"`
	Description string `db:"description" gorm:"column:description"`
}

func (JobCostTypeEntity) TableName() string { return "job_cost_types" }

type EquipmentEntity struct {
	ID              int64  `db:"id"               gorm:"primaryKey;autoIncrement;column:id"`
	EquipmentNumber string `db:"equipment_number" gorm:"column:equipment_number;not null"`
	Description     string `db:"description"      gorm:"column:description"`
	IsActive        bool   `db:"is_active"        gorm:"column:is_active;not null;default:true"`
}

func (EquipmentEntity) TableName() string { return "equipment" }

type EquipmentCostCodeEntity struct {
	ID          int64  `db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	Code        string `db:"code"        gorm:"column:code;not null"`
	Description string `db:"description" gorm:"column:description"`
}

func (EquipmentCostCodeEntity) TableName() string { return "equipment_cost_codes" }

type EquipmentCostTypeEntity struct {
	ID          int64  `db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	Code        string `db:"code"        gorm:"column:code;not null"`
	Description string `db:"description" gorm:"column:description"`
}

func (EquipmentCostTypeEntity) TableName() string { return "equipment_cost_types" }

func toCompanyModel(e *CompanyEntity) *model.Company {
	return &model.Company{ID: e.ID, Code: e.Code, Name: e.Name, IsActive: e.IsActive}
}

func toGLAccountModel(e *GLAccountEntity) *model.GLAccount {
	return &model.GLAccount{
		ID:          e.ID,
		CompanyID:   e.CompanyID,
		AccountCode: e.AccountCode,
		Description: e.Description,
		IsActive:    e.IsActive,
	}
}

func toJobModel(e *JobEntity) *model.Job {
	return &model.Job{ID: e.ID, JobNumber: e.JobNumber, Name: e.Name, IsActive: e.IsActive}
}

func toJobPhaseModel(e *JobPhaseEntity) *model.JobPhase {
	return &model.JobPhase{ID: e.ID, JobID: e.JobID, PhaseCode: e.PhaseCode, Description: e.Description}
}

func toJobCostTypeModel(e *JobCostTypeEntity) *model.JobCostType {
	return &model.JobCostType{ID: e.ID, Code: e.Code, Description: e.Description}
}

func toEquipmentModel(e *EquipmentEntity) *model.Equipment {
	return &model.Equipment{
		ID:              e.ID,
		EquipmentNumber: e.EquipmentNumber,
		Description:     e.Description,
		IsActive:        e.IsActive,
	}
}

func toEquipmentCostCodeModel(e *EquipmentCostCodeEntity) *model.EquipmentCostCode {
	return &model.EquipmentCostCode{ID: e.ID, Code: e.Code, Description: e.Description}
}

func toEquipmentCostTypeModel(e *EquipmentCostTypeEntity) *model.EquipmentCostType {
	return &model.EquipmentCostType{ID: e.ID, Code: e.Code, Description: e.Description}
}
