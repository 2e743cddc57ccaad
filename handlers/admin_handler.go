package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"seatgrid/services"
)

type AdminHandler struct {
	reservations *services.ReservationService
}

func NewAdminHandler(reservations *services.ReservationService) *AdminHandler {
	return &AdminHandler{reservations: reservations}
}

// Reset serves POST /api/reset: wipes every hold and booking back to
// available. Intentionally left without an auth check: this endpoint exists
// for demo/test-harness reset between runs, not as production admin
// surface, and is expected to be firewalled at the deployment boundary.
func (h *AdminHandler) Reset(e *core.RequestEvent) error {
	if err := h.reservations.ResetAll(e.Request.Context()); err != nil {
		return writeDomainError(e, err)
	}
	return e.JSON(http.StatusOK, map[string]any{"success": true, "status": "reset"})
}
