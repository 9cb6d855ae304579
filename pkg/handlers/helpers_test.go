package handlers

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/mangoo-ai/mangoo-engine/pkg/auth"
)

// newTestAuthService builds an AuthService in development mode: tokens are
// parsed but signatures are not verified, so testhelpers.GenerateTestJWT
// output is accepted.
func newTestAuthService(t *testing.T) auth.AuthService {
	t.Helper()

	verifier, err := auth.NewJWKSVerifier(context.Background(), &auth.JWKSConfig{
		EnableVerification: false,
	})
	if err != nil {
		t.Fatalf("failed to create verifier: %v", err)
	}

	return auth.NewAuthService(verifier, zap.NewNop())
}
