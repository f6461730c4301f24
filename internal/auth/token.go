package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	relay_errors "github.com/customeros/metricsrelay/internal/errors"
)

const bearerPrefix = "bearer "

// Claims are the token fields the relay cares about.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// ExtractBearerToken strips an optional, case insensitive "Bearer " prefix.
func ExtractBearerToken(authorization string) string {
	token := strings.TrimSpace(authorization)
	if len(token) >= len(bearerPrefix) && strings.EqualFold(token[:len(bearerPrefix)], bearerPrefix) {
		token = strings.TrimSpace(token[len(bearerPrefix):])
	}
	return token
}

// DecodeToken reads the claims of a bearer token without verifying its signature or expiry.
// The identity service is the one that decides whether the token is trusted.
func DecodeToken(authorization string) (*Claims, error) {
	raw := ExtractBearerToken(authorization)
	if raw == "" {
		return nil, relay_errors.InvalidToken(relay_errors.ErrMissingToken)
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, relay_errors.InvalidToken(err)
	}
	claims.Email = strings.ToLower(strings.TrimSpace(claims.Email))
	if claims.Email == "" {
		return nil, relay_errors.InvalidToken(relay_errors.ErrMissingEmail)
	}
	return claims, nil
}
