package admin

import (
	"net/http"

	"github.com/zerotrust/platform/internal/handler"
	"github.com/zerotrust/platform/internal/service"
)

// DeviceAdminHandler handles device approval.
type DeviceAdminHandler struct {
	svc *service.AdminService
}

// NewDeviceAdminHandler creates a new DeviceAdminHandler.
func NewDeviceAdminHandler(svc *service.AdminService) *DeviceAdminHandler {
	return &DeviceAdminHandler{svc: svc}
}

// List handles GET /admin/devices.
func (h *DeviceAdminHandler) List(w http.ResponseWriter, r *http.Request) {
	devices, err := h.svc.ListDevices(r.Context())
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, devices)
}

// Approve handles POST /admin/devices/{id}/approve.
func (h *DeviceAdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	id, err := idParam(r, "device")
	if err != nil {
		handler.RespondError(w, err)
		return
	}

	d, err := h.svc.ApproveDevice(r.Context(), actor, id)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, d)
}

// Deny handles POST /admin/devices/{id}/deny.
func (h *DeviceAdminHandler) Deny(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	id, err := idParam(r, "device")
	if err != nil {
		handler.RespondError(w, err)
		return
	}

	if err := h.svc.DenyDevice(r.Context(), actor, id); err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusNoContent, nil)
}
