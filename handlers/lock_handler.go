package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"seatgrid/security"
	"seatgrid/services"
)

type LockHandler struct {
	reservations *services.ReservationService
	gate         *security.AuthGate
	limiter      *security.RateLimiter
	holdBucket   security.Bucket
}

func NewLockHandler(reservations *services.ReservationService, gate *security.AuthGate, limiter *security.RateLimiter, holdBucket security.Bucket) *LockHandler {
	return &LockHandler{
		reservations: reservations,
		gate:         gate,
		limiter:      limiter,
		holdBucket:   holdBucket,
	}
}

type lockRequest struct {
	SeatID string `json:"seatId"`
}

type releaseRequest struct {
	SeatID string `json:"seatId"`
	UserID string `json:"userId"`
}

// Lock serves POST /api/lock: acquires a time-bounded exclusive hold.
func (h *LockHandler) Lock(e *core.RequestEvent) error {
	ctx := e.Request.Context()

	userID, err := h.gate.Authenticate(e.Request)
	if err != nil {
		return writeDomainError(e, err)
	}

	if err := h.limiter.Allow(ctx, h.holdBucket, security.KeyFromRequest(e.Request)); err != nil {
		return writeDomainError(e, err)
	}

	var req lockRequest
	if err := e.BindBody(&req); err != nil || req.SeatID == "" {
		return apis.NewBadRequestError("invalid request", err)
	}

	if err := h.reservations.Hold(ctx, req.SeatID, userID); err != nil {
		return writeDomainError(e, err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"success": true,
		"seatId":  req.SeatID,
		"status":  "locked",
	})
}

// Release serves POST /api/release: voluntarily relinquishes a hold.
// Deliberately unauthenticated and permissive — releases fire on
// navigation events (tab close, back button) and must not fail under
// races with TTL expiry or concurrent purchases, so the caller's user_id
// is taken from the body rather than a bearer token.
func (h *LockHandler) Release(e *core.RequestEvent) error {
	ctx := e.Request.Context()

	var req releaseRequest
	if err := e.BindBody(&req); err != nil || req.SeatID == "" || req.UserID == "" {
		return apis.NewBadRequestError("invalid request", err)
	}

	if err := h.reservations.Release(ctx, req.SeatID, req.UserID); err != nil {
		return writeDomainError(e, err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"success": true,
		"seatId":  req.SeatID,
		"status":  "released",
	})
}
