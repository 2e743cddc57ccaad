package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"seatgrid/internal/status"
	"seatgrid/security"
	"seatgrid/utils"
)

const otpKeyPrefix = "otp:"

// AuthService backs the Authentication Gate's register/login endpoints: a
// one-time code held in the HSS gates account creation in the DRS, and
// bearer tokens are minted by security.AuthGate.
type AuthService struct {
	app        core.App
	redis      *redis.Client
	gate       *security.AuthGate
	bcryptCost int
	otpTTL     time.Duration
}

func NewAuthService(app core.App, redisClient *redis.Client, gate *security.AuthGate, bcryptCost int, otpTTL time.Duration) *AuthService {
	return &AuthService{
		app:        app,
		redis:      redisClient,
		gate:       gate,
		bcryptCost: bcryptCost,
		otpTTL:     otpTTL,
	}
}

// Register issues a one-time verification code for a pending registration.
// No account is created yet — that waits for VerifyRegistration to supply
// the password. Code delivery is an external collaborator (email/SMS); it
// is never returned to the caller, only logged here as a delivery stand-in.
func (s *AuthService) Register(ctx context.Context, email string) error {
	code, err := utils.GenerateOTP(6)
	if err != nil {
		return fmt.Errorf("%w: %v", status.ErrInternal, err)
	}
	if err := s.redis.Set(ctx, otpKeyPrefix+email, code, s.otpTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", status.ErrInternal, err)
	}

	log.Printf("auth: verification code for %s issued (out-of-band delivery not wired in this deployment): %s", email, code)
	return nil
}

// VerifyRegistration consumes the one-time code, creates the account with
// the now-supplied password, and issues a bearer token so the caller can
// proceed without a separate Login round trip. The code is single-use: a
// correct guess after the key already expired or was consumed is
// indistinguishable from a wrong guess.
func (s *AuthService) VerifyRegistration(ctx context.Context, email, code, password, phone string) (token, userID string, err error) {
	stored, err := s.redis.Get(ctx, otpKeyPrefix+email).Result()
	if errors.Is(err, redis.Nil) {
		return "", "", status.ErrForbidden
	}
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", status.ErrInternal, err)
	}
	if stored != code {
		return "", "", status.ErrForbidden
	}
	s.redis.Del(ctx, otpKeyPrefix+email)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", status.ErrInternal, err)
	}

	userID, err = utils.GenerateCode(8)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", status.ErrInternal, err)
	}

	collection, err := s.app.FindCollectionByNameOrId("accounts")
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", status.ErrInternal, err)
	}

	record := core.NewRecord(collection)
	record.Set("user_id", userID)
	record.Set("email", email)
	record.Set("phone", phone)
	record.Set("password_hash", string(hash))
	record.Set("verified", true)
	if err := s.app.Save(record); err != nil {
		return "", "", fmt.Errorf("%w: %v", status.ErrInvalidPayload, err)
	}

	token, err = s.gate.Issue(userID, email)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", status.ErrInternal, err)
	}
	return token, userID, nil
}

// Login checks credentials against the DRS account store and, on success,
// issues a bearer token via AuthGate.
func (s *AuthService) Login(ctx context.Context, email, password string) (token, userID string, err error) {
	record, err := s.app.FindFirstRecordByFilter("accounts", "email = {:email}", map[string]any{"email": email})
	if err != nil {
		return "", "", status.ErrForbidden
	}
	if !record.GetBool("verified") {
		return "", "", status.ErrForbidden
	}

	hash := record.GetString("password_hash")
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", "", status.ErrForbidden
	}

	userID = record.GetString("user_id")
	token, err = s.gate.Issue(userID, email)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", status.ErrInternal, err)
	}
	return token, userID, nil
}
