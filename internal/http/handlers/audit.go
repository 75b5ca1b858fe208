package handlers

import (
	"net/http"

	"github.com/dropDatabas3/gatekeeper/internal/domain/repository"
	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	httperrors "github.com/dropDatabas3/gatekeeper/internal/http/errors"
	"github.com/dropDatabas3/gatekeeper/internal/http/middlewares"
	"github.com/dropDatabas3/gatekeeper/internal/observability/logger"
)

type AuditController struct {
	dir Directory
}

func NewAuditController(dir Directory) *AuditController {
	return &AuditController{dir: dir}
}

// List GET /api/audit-logs?actor_id=&action=&outcome=&limit=&offset=
func (c *AuditController) List(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("AuditController.List"))
	limit, ok1 := queryInt(r, "limit")
	offset, ok2 := queryInt(r, "offset")
	if !ok1 || !ok2 {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("limit and offset must be non-negative integers"))
		return
	}
	q := r.URL.Query()
	outcome := types.Outcome(q.Get("outcome"))
	switch outcome {
	case "", types.OutcomeSuccess, types.OutcomeDenied, types.OutcomeError:
	default:
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("outcome must be success, denied or error"))
		return
	}
	entries, err := c.dir.AuditLogs(r.Context(), middlewares.GetToken(r.Context()), repository.AuditFilter{
		ActorID: q.Get("actor_id"),
		Action:  q.Get("action"),
		Outcome: outcome,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		fail(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, auditResponses(entries))
}
