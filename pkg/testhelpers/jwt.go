// Package testhelpers provides utilities for testing mangoo-engine components.
package testhelpers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// GenerateTestJWT creates a test JWT token for use when verification is
// disabled. The token has a valid structure but no signature (alg: none).
// Groups map onto the cognito:groups claim; pass "admin" to exercise
// admin-only endpoints.
func GenerateTestJWT(sub, email string, groups ...string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))

	claims := map[string]any{
		"sub":              sub,
		"email":            email,
		"cognito:username": email,
		"exp":              time.Now().Add(time.Hour).Unix(),
	}
	if len(groups) > 0 {
		claims["cognito:groups"] = groups
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		panic(fmt.Sprintf("failed to marshal test claims: %v", err))
	}

	return fmt.Sprintf("%s.%s.", header, base64.RawURLEncoding.EncodeToString(payload))
}

// GenerateTestJWTWithBearer returns the token with "Bearer " prefix for the
// Authorization header.
func GenerateTestJWTWithBearer(sub, email string, groups ...string) string {
	return "Bearer " + GenerateTestJWT(sub, email, groups...)
}
