package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/fasthttp/router"
	"github.com/meridian-cg/coding-portal/internal/coding"
	"github.com/meridian-cg/coding-portal/internal/model"
	"github.com/meridian-cg/coding-portal/internal/services"
	xhttp "github.com/meridian-cg/coding-portal/pkg/http"
)

type CodingService interface {
	CodeSingle(ctx context.Context, id int64, req model.CodingRequest) (*model.Transaction, error)
	CodeBatch(ctx context.Context, req model.BatchCodingRequest) error
	CommitSplit(ctx context.Context, id int64, req model.SplitRequest) ([]*model.Transaction, error)
	SuggestCoding(ctx context.Context, id int64) (*services.CodingSuggestion, error)
	ListTransactions(ctx context.Context, f model.TransactionFilter) (*model.TransactionPage, error)
	Review(ctx context.Context, id int64, reviewerID int64) error
	Reject(ctx context.Context, id int64, reviewerID int64, reason string) error
	RecentlyUsed(category coding.RecentCategory) []int64
}

type CodingHandler struct {
	svc CodingService
}

func RegisterCodingRoutes(e *router.Group, h *CodingHandler) {
	e.GET("/coding/transactions", h.ListTransactions)
	e.PUT("/coding/transactions/{id}", h.CodeTransaction)
	e.POST("/coding/transactions/batch", h.CodeBatch)
	e.POST("/coding/transactions/{id}/split", h.SplitTransaction)
	e.GET("/coding/transactions/{id}/suggestion", h.SuggestCoding)
	e.PUT("/coding/transactions/{id}/review", h.ReviewTransaction)
	e.PUT("/coding/transactions/{id}/reject", h.RejectTransaction)
	e.GET("/coding/recent/{category}", h.RecentlyUsed)
}

func NewCodingHandler(svc CodingService) *CodingHandler {
	return &CodingHandler{svc: svc}
}

type codingRequest struct {
	Coding  model.CodingAssignment `json:"coding"`
	Notes   string                 `json:"notes"`
	CoderID int64                  `json:"coder_id"`
}

type batchCodingRequest struct {
	TransactionIDs []int64                `json:"transaction_ids"`
	Coding         model.CodingAssignment `json:"coding"`
	Notes          string                 `json:"notes"`
	CoderID        int64                  `json:"coder_id"`
}

type rejectRequest struct {
	Reason     string `json:"reason"`
	ReviewerID int64  `json:"reviewer_id"`
}

type reviewRequest struct {
	ReviewerID int64 `json:"reviewer_id"`
}

type recentResponse struct {
	Category string  `json:"category"`
	IDs      []int64 `json:"ids"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *CodingHandler) ListTransactions(ctx *xhttp.RequestCtx) {
	var f model.TransactionFilter

	if v := query(ctx, "cardholder_statement_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.CardholderStatementID = &id
		}
	}
	if v := query(ctx, "cardholder_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.CardholderID = &id
		}
	}
	if v := query(ctx, "statement_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.StatementID = &id
		}
	}
	if v := query(ctx, "status"); v != "" {
		status := model.TransactionStatus(v)
		f.Status = &status
	}
	if v := query(ctx, "date_from"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.DateFrom = &t
		}
	}
	if v := query(ctx, "date_to"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.DateTo = &t
		}
	}
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Limit = n
		}
	}
	if v := query(ctx, "skip"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Skip = n
		}
	}

	page, err := h.svc.ListTransactions(ctx, f)
	if err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 200, page)
}

func (h *CodingHandler) CodeTransaction(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid transaction id")
		return
	}

	var req codingRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	tx, err := h.svc.CodeSingle(ctx, id, model.CodingRequest{
		Assignment: req.Coding,
		Notes:      req.Notes,
		CoderID:    req.CoderID,
	})
	if err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 200, tx)
}

func (h *CodingHandler) CodeBatch(ctx *xhttp.RequestCtx) {
	var req batchCodingRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	err := h.svc.CodeBatch(ctx, model.BatchCodingRequest{
		TransactionIDs: req.TransactionIDs,
		Assignment:     req.Coding,
		Notes:          req.Notes,
		CoderID:        req.CoderID,
	})
	if err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]int{"coded": len(req.TransactionIDs)})
}

func (h *CodingHandler) SplitTransaction(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid transaction id")
		return
	}

	var req model.SplitRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	children, err := h.svc.CommitSplit(ctx, id, req)
	if err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 201, children)
}

func (h *CodingHandler) SuggestCoding(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid transaction id")
		return
	}

	suggestion, err := h.svc.SuggestCoding(ctx, id)
	if err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 200, suggestion)
}

func (h *CodingHandler) ReviewTransaction(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid transaction id")
		return
	}

	var req reviewRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	if err := h.svc.Review(ctx, id, req.ReviewerID); err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]string{"status": string(model.TransactionStatusReviewed)})
}

func (h *CodingHandler) RejectTransaction(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid transaction id")
		return
	}

	var req rejectRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	if err := h.svc.Reject(ctx, id, req.ReviewerID, req.Reason); err != nil {
		writeError(ctx, statusFor(err), err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]string{"status": string(model.TransactionStatusRejected)})
}

func (h *CodingHandler) RecentlyUsed(ctx *xhttp.RequestCtx) {
	category := coding.RecentCategory(param(ctx, "category"))
	switch category {
	case coding.RecentCompanies, coding.RecentGLAccounts, coding.RecentJobs, coding.RecentEquipment:
	default:
		writeError(ctx, 400, "unknown category")
		return
	}
	writeJSON(ctx, 200, recentResponse{
		Category: string(category),
		IDs:      h.svc.RecentlyUsed(category),
	})
}

/* -------------------------------- Helpers ------------------------------------ */

// statusFor maps domain errors onto HTTP codes. Locked resources answer 423
// so clients can tell a frozen statement apart from bad input.
func statusFor(err error) int {
	switch {
	case coding.IsLocked(err):
		return 423
	case errors.Is(err, services.ErrTransactionNotFound), errors.Is(err, services.ErrStatementNotFound):
		return 404
	default:
		return 400
	}
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	return json.Unmarshal(ctx.PostBody(), dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

// writeError emits the {"detail": ...} envelope every error response uses.
func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"detail": msg})
}

func param(ctx *xhttp.RequestCtx, name string) string {
	if v, ok := ctx.UserValue(name).(string); ok {
		return v
	}
	return ""
}

func pathInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	return strconv.ParseInt(param(ctx, name), 10, 64)
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func parseTime(s string) (time.Time, error) {
	// Accept RFC3339 or YYYY-MM-DD
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
