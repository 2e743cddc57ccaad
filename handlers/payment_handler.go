package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"seatgrid/security"
	"seatgrid/services"
)

type PaymentHandler struct {
	reservations *services.ReservationService
	gate         *security.AuthGate
}

func NewPaymentHandler(reservations *services.ReservationService, gate *security.AuthGate) *PaymentHandler {
	return &PaymentHandler{reservations: reservations, gate: gate}
}

type purchaseRequest struct {
	SeatID         string `json:"seatId"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// Purchase serves POST /api/pay: promotes a held seat to a permanent
// booking and returns a receipt. Safe to retry with the same
// idempotencyKey; retries return the original receipt unchanged.
func (h *PaymentHandler) Purchase(e *core.RequestEvent) error {
	ctx := e.Request.Context()

	userID, err := h.gate.Authenticate(e.Request)
	if err != nil {
		return writeDomainError(e, err)
	}

	var req purchaseRequest
	if err := e.BindBody(&req); err != nil || req.SeatID == "" || req.IdempotencyKey == "" {
		return apis.NewBadRequestError("invalid request", err)
	}

	receipt, err := h.reservations.Purchase(ctx, req.IdempotencyKey, req.SeatID, userID)
	if err != nil {
		return writeDomainError(e, err)
	}

	return e.JSON(http.StatusOK, receipt)
}
