package model

// CodingType selects which accounting scheme a transaction is coded against.
type CodingType string

const (
	CodingTypeGLAccount CodingType = "gl_account"
	CodingTypeJob       CodingType = "job"
	CodingTypeEquipment CodingType = "equipment"
)

func (t CodingType) Valid() bool {
	switch t {
	case CodingTypeGLAccount, CodingTypeJob, CodingTypeEquipment:
		return true
	}
	return false
}

// CodingAssignment is the polymorphic accounting code carried by a coded
// transaction. Exactly one variant is active at a time; fields belonging to
// the other variants are nil. CompanyID is shared between the GL and Job
// variants.
//
// Required fields per variant:
//
//	gl_account: CompanyID, GLAccountID
//	job:        JobID (phase and cost type optional)
//	equipment:  EquipmentID, EquipmentCostCodeID, EquipmentCostTypeID
//
// The Job/Equipment asymmetry (optional vs required sub-fields) mirrors the
// accounting policy this portal was built around and must not be "fixed".
type CodingAssignment struct {
	Type CodingType `json:"coding_type"`

	CompanyID   *int64 `json:"company_id,omitempty"`
	GLAccountID *int64 `json:"gl_account_id,omitempty"`

	JobID         *int64 `json:"job_id,omitempty"`
	JobPhaseID    *int64 `json:"job_phase_id,omitempty"`
	JobCostTypeID *int64 `json:"job_cost_type_id,omitempty"`

	EquipmentID         *int64 `json:"equipment_id,omitempty"`
	EquipmentCostCodeID *int64 `json:"equipment_cost_code_id,omitempty"`
	EquipmentCostTypeID *int64 `json:"equipment_cost_type_id,omitempty"`
}

// SetType switches the active variant and clears every field that does not
// belong to the new one. CompanyID survives a switch between gl_account and
// job because both variants own it.
func (a *CodingAssignment) SetType(t CodingType) {
	a.Type = t
	switch t {
	case CodingTypeGLAccount:
		a.JobID, a.JobPhaseID, a.JobCostTypeID = nil, nil, nil
		a.EquipmentID, a.EquipmentCostCodeID, a.EquipmentCostTypeID = nil, nil, nil
	case CodingTypeJob:
		a.GLAccountID = nil
		a.EquipmentID, a.EquipmentCostCodeID, a.EquipmentCostTypeID = nil, nil, nil
	case CodingTypeEquipment:
		a.CompanyID, a.GLAccountID = nil, nil
		a.JobID, a.JobPhaseID, a.JobCostTypeID = nil, nil, nil
	}
}

// IsComplete reports whether every required field of the active variant is
// populated.
func (a *CodingAssignment) IsComplete() bool {
	if a == nil {
		return false
	}
	switch a.Type {
	case CodingTypeGLAccount:
		return a.CompanyID != nil && a.GLAccountID != nil
	case CodingTypeJob:
		return a.JobID != nil
	case CodingTypeEquipment:
		return a.EquipmentID != nil && a.EquipmentCostCodeID != nil && a.EquipmentCostTypeID != nil
	}
	return false
}

// CodingPayload is the flat persistable form of an assignment. Every foreign
// key is present and explicitly nil when it does not belong to the active
// variant, so a re-code can never leave stale cross-variant ids behind.
type CodingPayload struct {
	CodingType          CodingType `json:"coding_type"`
	CompanyID           *int64     `json:"company_id"`
	GLAccountID         *int64     `json:"gl_account_id"`
	JobID               *int64     `json:"job_id"`
	JobPhaseID          *int64     `json:"job_phase_id"`
	JobCostTypeID       *int64     `json:"job_cost_type_id"`
	EquipmentID         *int64     `json:"equipment_id"`
	EquipmentCostCodeID *int64     `json:"equipment_cost_code_id"`
	EquipmentCostTypeID *int64     `json:"equipment_cost_type_id"`
}

// Payload emits the flat record for persistence, nulling all foreign keys of
// inactive variants regardless of what the struct currently holds.
func (a *CodingAssignment) Payload() CodingPayload {
	p := CodingPayload{CodingType: a.Type}
	switch a.Type {
	case CodingTypeGLAccount:
		p.CompanyID = a.CompanyID
		p.GLAccountID = a.GLAccountID
	case CodingTypeJob:
		p.CompanyID = a.CompanyID
		p.JobID = a.JobID
		p.JobPhaseID = a.JobPhaseID
		p.JobCostTypeID = a.JobCostTypeID
	case CodingTypeEquipment:
		p.EquipmentID = a.EquipmentID
		p.EquipmentCostCodeID = a.EquipmentCostCodeID
		p.EquipmentCostTypeID = a.EquipmentCostTypeID
	}
	return p
}

// Populated reports whether the assignment carries at least one reference id,
// used when scanning for copy-coding sources.
func (a *CodingAssignment) Populated() bool {
	if a == nil {
		return false
	}
	return a.CompanyID != nil || a.GLAccountID != nil ||
		a.JobID != nil || a.JobPhaseID != nil || a.JobCostTypeID != nil ||
		a.EquipmentID != nil || a.EquipmentCostCodeID != nil || a.EquipmentCostTypeID != nil
}
