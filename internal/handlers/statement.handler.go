package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/meridian-cg/coding-portal/internal/export"
	"github.com/meridian-cg/coding-portal/internal/model"
	xhttp "github.com/meridian-cg/coding-portal/pkg/http"
)

type StatementService interface {
	Get(ctx context.Context, id int64) (*model.Statement, error)
	List(ctx context.Context) ([]*model.Statement, error)
	Lock(ctx context.Context, id int64, req model.LockRequest) error
	Unlock(ctx context.Context, id int64) error
	GetCardholderStatement(ctx context.Context, id int64) (*model.CardholderStatement, error)
	ListCardholderStatements(ctx context.Context, statementID int64) ([]*model.CardholderStatement, error)
}

type ExportService interface {
	ExportStatement(ctx context.Context, statementID int64) (*export.ExportResponse, error)
}

type StatementHandler struct {
	svc       StatementService
	exportSvc ExportService
}

func RegisterStatementRoutes(e *router.Group, h *StatementHandler) {
	e.GET("/statements", h.ListStatements)
	e.GET("/statements/{id}", h.GetStatement)
	e.POST("/statements/{id}/lock", h.LockStatement)
	e.POST("/statements/{id}/unlock", h.UnlockStatement)
	e.POST("/statements/{id}/export", h.ExportStatement)
	e.GET("/statements/{id}/cardholders", h.ListCardholderStatements)
	e.GET("/cardholder-statements/{id}", h.GetCardholderStatement)
}

func NewStatementHandler(svc StatementService, exportSvc ExportService) *StatementHandler {
	return &StatementHandler{svc: svc, exportSvc: exportSvc}
}

type lockRequest struct {
	Reason   string `json:"reason"`
	LockerID int64  `json:"locker_id"`
}

func (h *StatementHandler) ListStatements(ctx *xhttp.RequestCtx) {
	statements, err := h.svc.List(ctx)
	if err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 200, statements)
}

func (h *StatementHandler) GetStatement(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid statement id")
		return
	}

	st, err := h.svc.Get(ctx, id)
	if err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 200, st)
}

func (h *StatementHandler) LockStatement(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid statement id")
		return
	}

	var req lockRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	if err := h.svc.Lock(ctx, id, model.LockRequest{Reason: req.Reason, LockerID: req.LockerID}); err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]string{"status": string(model.StatementStatusLocked)})
}

func (h *StatementHandler) UnlockStatement(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid statement id")
		return
	}

	if err := h.svc.Unlock(ctx, id); err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]string{"status": string(model.StatementStatusInProgress)})
}

func (h *StatementHandler) ExportStatement(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid statement id")
		return
	}

	resp, err := h.exportSvc.ExportStatement(ctx, id)
	if err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 200, resp)
}

func (h *StatementHandler) ListCardholderStatements(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid statement id")
		return
	}

	cardholders, err := h.svc.ListCardholderStatements(ctx, id)
	if err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 200, cardholders)
}

func (h *StatementHandler) GetCardholderStatement(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid cardholder statement id")
		return
	}

	cs, err := h.svc.GetCardholderStatement(ctx, id)
	if err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 200, cs)
}
