package model

// Reference data for the three coding schemes. All of it is read-mostly and
// refreshed on demand; the portal never mutates it.

type Company struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

func (Company) TableName() string { return "companies" }

type GLAccount struct {
	ID          int64  `json:"id"`
	CompanyID   *int64 `json:"company_id,omitempty"`
	AccountCode string `json:"account_code"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
}

func (GLAccount) TableName() string { return "gl_accounts" }

type Job struct {
	ID        int64  `json:"id"`
	JobNumber string `json:"job_number"`
	Name      string `json:"name,omitempty"`
	IsActive  bool   `json:"is_active"`
}

func (Job) TableName() string { return "jobs" }

type JobPhase struct {
	ID          int64  `json:"id"`
	JobID       int64  `json:"job_id"`
	PhaseCode   string `json:"phase_code"`
	Description string `json:"description,omitempty"`
}

func (JobPhase) TableName() string { return "job_phases" }

type JobCostType struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

func (JobCostType) TableName() string { return "job_cost_types" }

type Equipment struct {
	ID              int64  `json:"id"`
	EquipmentNumber string `json:"equipment_number"`
	Description     string `json:"description,omitempty"`
	IsActive        bool   `json:"is_active"`
}

func (Equipment) TableName() string { return "equipment" }

type EquipmentCostCode struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

func (EquipmentCostCode) TableName() string { return "equipment_cost_codes" }

type EquipmentCostType struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

func (EquipmentCostType) TableName() string { return "equipment_cost_types" }

// ReferenceFilter narrows reference-data lists. CompanyID applies to GL
// accounts, JobID to phases, Search to jobs and equipment.
type ReferenceFilter struct {
	CompanyID  *int64
	JobID      *int64
	Search     string
	ActiveOnly bool
}
