package admin

import (
	"net/http"

	"github.com/zerotrust/platform/internal/domain"
	"github.com/zerotrust/platform/internal/handler"
	"github.com/zerotrust/platform/internal/service"
)

// UserAdminHandler handles user management.
type UserAdminHandler struct {
	svc *service.AdminService
}

// NewUserAdminHandler creates a new UserAdminHandler.
func NewUserAdminHandler(svc *service.AdminService) *UserAdminHandler {
	return &UserAdminHandler{svc: svc}
}

// List handles GET /admin/users.
func (h *UserAdminHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, users)
}

// Create handles POST /admin/users.
func (h *UserAdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	var input service.CreateUserInput
	if err := handler.DecodeJSON(r, &input); err != nil {
		handler.RespondBadBody(w)
		return
	}

	user, err := h.svc.CreateUser(r.Context(), actor, input)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusCreated, user)
}

// Update handles PATCH /admin/users/{id}.
func (h *UserAdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	id, err := idParam(r, "user")
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	var patch domain.UserPatch
	if err := handler.DecodeJSON(r, &patch); err != nil {
		handler.RespondBadBody(w)
		return
	}

	user, err := h.svc.UpdateUser(r.Context(), actor, id, patch)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, user)
}

// ChangeRole handles PATCH /admin/users/{id}/role.
func (h *UserAdminHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	id, err := idParam(r, "user")
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	var body struct {
		Role domain.Role `json:"role"`
	}
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.RespondBadBody(w)
		return
	}

	user, err := h.svc.ChangeRole(r.Context(), actor, id, body.Role)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, user)
}

// ToggleStatus handles POST /admin/users/{id}/toggle-status.
func (h *UserAdminHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	id, err := idParam(r, "user")
	if err != nil {
		handler.RespondError(w, err)
		return
	}

	user, err := h.svc.ToggleStatus(r.Context(), actor, id)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, user)
}

// Delete handles DELETE /admin/users/{id}.
func (h *UserAdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	id, err := idParam(r, "user")
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	if err := h.svc.DeleteUser(r.Context(), actor, id); err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusNoContent, nil)
}
