package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"seatgrid/internal/status"
	"seatgrid/security"
	"seatgrid/services"
)

type SeatHandler struct {
	reservations *services.ReservationService
	limiter      *security.RateLimiter
}

func NewSeatHandler(reservations *services.ReservationService, limiter *security.RateLimiter) *SeatHandler {
	return &SeatHandler{reservations: reservations, limiter: limiter}
}

// GetSeats serves GET /api/seats: a full-venue snapshot merging the durable
// seat catalog with the current HSS lock/sold state.
func (h *SeatHandler) GetSeats(e *core.RequestEvent) error {
	views, err := h.reservations.Snapshot(e.Request.Context())
	if err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "failed to build seat snapshot", err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"seats": views,
	})
}

func writeDomainError(e *core.RequestEvent, err error) error {
	switch {
	case errors.Is(err, status.ErrSeatUnavailable):
		return apis.NewApiError(http.StatusConflict, err.Error(), nil)
	case errors.Is(err, status.ErrLockExpiredOrStolen), errors.Is(err, status.ErrAlreadySold):
		return apis.NewApiError(http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, status.ErrUnauthenticated):
		return apis.NewUnauthorizedError(err.Error(), nil)
	case errors.Is(err, status.ErrForbidden):
		return apis.NewForbiddenError(err.Error(), nil)
	case errors.Is(err, status.ErrRateLimited):
		return apis.NewApiError(http.StatusTooManyRequests, err.Error(), nil)
	case errors.Is(err, status.ErrInvalidPayload):
		return apis.NewBadRequestError(err.Error(), nil)
	case errors.Is(err, status.ErrNotFound):
		return apis.NewNotFoundError(err.Error(), nil)
	default:
		return apis.NewApiError(http.StatusInternalServerError, "internal error", err)
	}
}
