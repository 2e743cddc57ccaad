// Package status defines the sentinel errors surfaced by the reservation
// core and mapped to HTTP responses at the request surface.
package status

import "errors"

var (
	// ErrSeatUnavailable means the seat is currently LOCKED by another user
	// or already SOLD. Maps to HTTP 409.
	ErrSeatUnavailable = errors.New("seat: unavailable")

	// ErrLockExpiredOrStolen means a purchase was attempted without an
	// active LOCKED entry for the caller. Maps to HTTP 400.
	ErrLockExpiredOrStolen = errors.New("seat: lock expired or stolen")

	// ErrAlreadySold means the DRS shows the seat booked but no receipt
	// exists for the given idempotency key. Indicates a prior successful
	// purchase whose receipt was not preserved; an operator alert.
	ErrAlreadySold = errors.New("seat: already sold")

	// ErrRateLimited means the token bucket for the caller's key is empty.
	ErrRateLimited = errors.New("rate limit: exceeded")

	// ErrUnauthenticated means no bearer token was presented.
	ErrUnauthenticated = errors.New("auth: missing credentials")

	// ErrForbidden means the bearer token failed signature verification.
	ErrForbidden = errors.New("auth: invalid credentials")

	// ErrInvalidPayload means the request body was malformed or had the
	// wrong field types.
	ErrInvalidPayload = errors.New("request: invalid payload")

	// ErrInternal wraps transport or store failures not otherwise classified.
	ErrInternal = errors.New("internal error")

	// ErrNotFound means the referenced seat, payment, or record does not exist.
	ErrNotFound = errors.New("not found")
)
