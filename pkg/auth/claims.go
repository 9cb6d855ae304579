// Package auth provides JWT-based authentication for mangoo-engine.
// It validates bearer tokens issued by the identity provider (AWS Cognito
// style) against its published JWKS endpoint.
package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for storing the raw JWT token string.
	TokenKey contextKey = "token"
)

// Claims represents the JWT claims issued by the identity provider.
// It embeds RegisteredClaims for standard JWT fields (sub, iss, exp, aud)
// and adds the Cognito-specific claims the platform consumes.
type Claims struct {
	jwt.RegisteredClaims
	Email    string   `json:"email,omitempty"`
	Username string   `json:"cognito:username,omitempty"`
	Name     string   `json:"name,omitempty"`
	Groups   []string `json:"cognito:groups,omitempty"`
}

// IsAdmin returns true if the token carries the admin group.
func (c *Claims) IsAdmin() bool {
	for _, g := range c.Groups {
		if g == "admin" {
			return true
		}
	}
	return false
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetToken retrieves the raw JWT token string from the request context.
// Returns empty string and false if token is not present.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// UserIDFromContext extracts the subject id from JWT claims in context.
// Returns empty string and false if not authenticated.
func UserIDFromContext(ctx context.Context) (string, bool) {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}
