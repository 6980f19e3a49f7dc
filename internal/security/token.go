package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token scopes.
const (
	ScopeUser  = "user"
	ScopeAdmin = "admin"
)

const tokenIssuer = "growtrade"

// ErrInvalidToken is returned for malformed, expired or mis-scoped tokens.
var ErrInvalidToken = errors.New("security: invalid token")

// Claims carries the authenticated user id.
type Claims struct {
	UserID uint64 `json:"user_id"`
	Scope  string `json:"scope"`
	jwt.RegisteredClaims
}

// GenerateUserToken signs a member session token.
func GenerateUserToken(secret string, userID uint64, expiry time.Duration) (string, error) {
	return generateToken(secret, userID, ScopeUser, expiry)
}

// GenerateAdminToken signs an admin console token.
func GenerateAdminToken(secret string, userID uint64, expiry time.Duration) (string, error) {
	return generateToken(secret, userID, ScopeAdmin, expiry)
}

func generateToken(secret string, userID uint64, scope string, expiry time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("security: empty jwt secret")
	}
	if userID == 0 {
		return "", errors.New("security: missing user id")
	}
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	now := time.Now().UTC()
	claims := Claims{
		UserID: userID,
		Scope:  scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("security: sign token: %w", err)
	}
	return signed, nil
}

// ParseUserToken validates a member token.
func ParseUserToken(secret, token string) (*Claims, error) {
	return parseToken(secret, token, ScopeUser)
}

// ParseAdminToken validates an admin token.
func ParseAdminToken(secret, token string) (*Claims, error) {
	return parseToken(secret, token, ScopeAdmin)
}

func parseToken(secret, token, scope string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.UserID == 0 || claims.Scope != scope {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
