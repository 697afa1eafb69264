package handlers

import (
	"context"
	"strconv"

	"github.com/fasthttp/router"
	"github.com/meridian-cg/coding-portal/internal/model"
	xhttp "github.com/meridian-cg/coding-portal/pkg/http"
)

type ReferenceService interface {
	Companies(ctx context.Context, f model.ReferenceFilter) ([]*model.Company, error)
	GLAccounts(ctx context.Context, f model.ReferenceFilter) ([]*model.GLAccount, error)
	Jobs(ctx context.Context, f model.ReferenceFilter) ([]*model.Job, error)
	JobPhases(ctx context.Context, jobID int64) ([]*model.JobPhase, error)
	JobCostTypes(ctx context.Context) ([]*model.JobCostType, error)
	Equipment(ctx context.Context, f model.ReferenceFilter) ([]*model.Equipment, error)
	EquipmentCostCodes(ctx context.Context) ([]*model.EquipmentCostCode, error)
	EquipmentCostTypes(ctx context.Context) ([]*model.EquipmentCostType, error)
}

type ReferenceHandler struct {
	svc ReferenceService
}

func RegisterReferenceRoutes(e *router.Group, h *ReferenceHandler) {
	e.GET("/reference/companies", h.ListCompanies)
	e.GET("/reference/gl-accounts", h.ListGLAccounts)
	e.GET("/reference/jobs", h.ListJobs)
	e.GET("/reference/jobs/{id}/phases", h.ListJobPhases)
	e.GET("/reference/job-cost-types", h.ListJobCostTypes)
	e.GET("/reference/equipment", h.ListEquipment)
	e.GET("/reference/equipment-cost-codes", h.ListEquipmentCostCodes)
	e.GET("/reference/equipment-cost-types", h.ListEquipmentCostTypes)
}

func NewReferenceHandler(svc ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{svc: svc}
}

func referenceFilter(ctx *xhttp.RequestCtx) model.ReferenceFilter {
	var f model.ReferenceFilter
	if v := query(ctx, "company_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.CompanyID = &id
		}
	}
	f.Search = query(ctx, "search")
	f.ActiveOnly = query(ctx, "active_only") == "true"
	return f
}

// Reference lookups degrade to empty lists so a flaky reference table never
// blocks the coding screen.
func (h *ReferenceHandler) ListCompanies(ctx *xhttp.RequestCtx) {
	items, err := h.svc.Companies(ctx, referenceFilter(ctx))
	if err != nil {
		items = []*model.Company{}
	}
	writeJSON(ctx, 200, items)
}

func (h *ReferenceHandler) ListGLAccounts(ctx *xhttp.RequestCtx) {
	items, err := h.svc.GLAccounts(ctx, referenceFilter(ctx))
	if err != nil {
		items = []*model.GLAccount{}
	}
	writeJSON(ctx, 200, items)
}

func (h *ReferenceHandler) ListJobs(ctx *xhttp.RequestCtx) {
	items, err := h.svc.Jobs(ctx, referenceFilter(ctx))
	if err != nil {
		items = []*model.Job{}
	}
	writeJSON(ctx, 200, items)
}

func (h *ReferenceHandler) ListJobPhases(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid job id")
		return
	}
	items, err := h.svc.JobPhases(ctx, id)
	if err != nil {
		items = []*model.JobPhase{}
	}
	writeJSON(ctx, 200, items)
}

func (h *ReferenceHandler) ListJobCostTypes(ctx *xhttp.RequestCtx) {
	items, err := h.svc.JobCostTypes(ctx)
	if err != nil {
		items = []*model.JobCostType{}
	}
	writeJSON(ctx, 200, items)
}

func (h *ReferenceHandler) ListEquipment(ctx *xhttp.RequestCtx) {
	items, err := h.svc.Equipment(ctx, referenceFilter(ctx))
	if err != nil {
		items = []*model.Equipment{}
	}
	writeJSON(ctx, 200, items)
}

func (h *ReferenceHandler) ListEquipmentCostCodes(ctx *xhttp.RequestCtx) {
	items, err := h.svc.EquipmentCostCodes(ctx)
	if err != nil {
		items = []*model.EquipmentCostCode{}
	}
	writeJSON(ctx, 200, items)
}

func (h *ReferenceHandler) ListEquipmentCostTypes(ctx *xhttp.RequestCtx) {
	items, err := h.svc.EquipmentCostTypes(ctx)
	if err != nil {
		items = []*model.EquipmentCostType{}
	}
	writeJSON(ctx, 200, items)
}
