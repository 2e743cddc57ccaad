package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"seatgrid/security"
	"seatgrid/services"
)

type AuthHandler struct {
	auth    *services.AuthService
	limiter *security.RateLimiter
	bucket  security.Bucket
}

func NewAuthHandler(auth *services.AuthService, limiter *security.RateLimiter, bucket security.Bucket) *AuthHandler {
	return &AuthHandler{auth: auth, limiter: limiter, bucket: bucket}
}

type registerRequest struct {
	Email string `json:"email"`
}

// Register serves POST /api/auth/register: issues a one-time verification
// code for the given email. No account exists yet — that happens at
// verify-register once the caller supplies a password. The code itself is
// delivered out-of-band (email/SMS) and never appears in this response.
func (h *AuthHandler) Register(e *core.RequestEvent) error {
	ctx := e.Request.Context()

	if err := h.limiter.Allow(ctx, h.bucket, security.KeyFromRequest(e.Request)); err != nil {
		return writeDomainError(e, err)
	}

	var req registerRequest
	if err := e.BindBody(&req); err != nil || req.Email == "" {
		return apis.NewBadRequestError("invalid request", err)
	}

	if err := h.auth.Register(ctx, req.Email); err != nil {
		return writeDomainError(e, err)
	}

	return e.JSON(http.StatusOK, map[string]any{"success": true})
}

type verifyRequest struct {
	Email    string `json:"email"`
	OTP      string `json:"otp"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

// VerifyRegistration serves POST /api/auth/verify-register: consumes the
// one-time code, creates the account, and issues a bearer token so the
// caller can proceed without a separate login call.
func (h *AuthHandler) VerifyRegistration(e *core.RequestEvent) error {
	ctx := e.Request.Context()

	if err := h.limiter.Allow(ctx, h.bucket, security.KeyFromRequest(e.Request)); err != nil {
		return writeDomainError(e, err)
	}

	var req verifyRequest
	if err := e.BindBody(&req); err != nil || req.Email == "" || req.OTP == "" || req.Password == "" {
		return apis.NewBadRequestError("invalid request", err)
	}

	token, userID, err := h.auth.VerifyRegistration(ctx, req.Email, req.OTP, req.Password, req.Phone)
	if err != nil {
		return writeDomainError(e, err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"userId":  userID,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login serves POST /api/auth/login and returns a bearer token for use on
// every subsequent hold/release/purchase call.
func (h *AuthHandler) Login(e *core.RequestEvent) error {
	ctx := e.Request.Context()

	if err := h.limiter.Allow(ctx, h.bucket, security.KeyFromRequest(e.Request)); err != nil {
		return writeDomainError(e, err)
	}

	var req loginRequest
	if err := e.BindBody(&req); err != nil || req.Email == "" || req.Password == "" {
		return apis.NewBadRequestError("invalid request", err)
	}

	token, userID, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return writeDomainError(e, err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"userId":  userID,
	})
}
