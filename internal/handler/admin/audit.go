package admin

import (
	"net/http"
	"strconv"

	"github.com/zerotrust/platform/internal/domain"
	"github.com/zerotrust/platform/internal/handler"
	"github.com/zerotrust/platform/internal/service"
)

const defaultAuditLimit = 100

// AuditAdminHandler serves the audit log.
type AuditAdminHandler struct {
	svc *service.AdminService
}

// NewAuditAdminHandler creates a new AuditAdminHandler.
func NewAuditAdminHandler(svc *service.AdminService) *AuditAdminHandler {
	return &AuditAdminHandler{svc: svc}
}

// List handles GET /admin/audit?limit=N.
func (h *AuditAdminHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > domain.AuditRetention {
			handler.RespondError(w, domain.ErrValidation("limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	entries, err := h.svc.ListAudit(r.Context(), limit)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, entries)
}
