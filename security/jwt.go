package security

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"seatgrid/internal/status"
)

// Claims is the payload encoded into bearer tokens issued by AuthGate.
// UserID is the stable external identity handlers must use for every
// authorization decision — never a user_id carried in a request body.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// AuthGate validates bearer tokens carried in the Authorization header and
// issues new ones for successful register/login flows. The token is
// HMAC-signed; invalid or missing tokens never reach the Reservation Core.
type AuthGate struct {
	secret []byte
	ttl    time.Duration
}

func NewAuthGate(secret string, ttl time.Duration) *AuthGate {
	return &AuthGate{secret: []byte(secret), ttl: ttl}
}

// Issue mints a signed bearer token encoding userID and email.
func (g *AuthGate) Issue(userID, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(g.secret)
}

// Authenticate extracts and validates the bearer token from an HTTP
// request, returning the caller's user_id. It returns status.ErrUnauthenticated
// when no token is present and status.ErrForbidden when the token fails
// signature or expiry verification.
func (g *AuthGate) Authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", status.ErrUnauthenticated
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", status.ErrUnauthenticated
	}
	raw := strings.TrimPrefix(header, "Bearer ")
	if raw == "" {
		return "", status.ErrUnauthenticated
	}

	claims, err := g.parse(raw)
	if err != nil {
		return "", status.ErrForbidden
	}

	if claims.UserID == "" {
		return "", status.ErrForbidden
	}

	return claims.UserID, nil
}

func (g *AuthGate) parse(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return g.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
