package config

import (
	"strings"
	"testing"
)

func TestApplyDerived_JWKSURLFromIssuer(t *testing.T) {
	cfg := &Config{}
	cfg.Auth.EnableVerification = true
	cfg.Auth.Issuer = "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_abc123"

	if err := cfg.applyDerived(); err != nil {
		t.Fatalf("applyDerived failed: %v", err)
	}

	want := "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_abc123/.well-known/jwks.json"
	if cfg.Auth.JWKSURL != want {
		t.Errorf("expected derived JWKS URL %q, got %q", want, cfg.Auth.JWKSURL)
	}
}

func TestApplyDerived_ExplicitJWKSURLWins(t *testing.T) {
	cfg := &Config{}
	cfg.Auth.Issuer = "https://issuer.example.com"
	cfg.Auth.JWKSURL = "https://keys.example.com/jwks.json"

	if err := cfg.applyDerived(); err != nil {
		t.Fatalf("applyDerived failed: %v", err)
	}
	if cfg.Auth.JWKSURL != "https://keys.example.com/jwks.json" {
		t.Errorf("explicit JWKS URL must not be overwritten, got %q", cfg.Auth.JWKSURL)
	}
}

func TestApplyDerived_VerificationWithoutIssuerFails(t *testing.T) {
	cfg := &Config{}
	cfg.Auth.EnableVerification = true

	err := cfg.applyDerived()
	if err == nil {
		t.Fatal("expected error when verification is enabled without issuer")
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "mangoo",
		Password: "secret",
		Database: "mangoo",
		SSLMode:  "require",
	}

	got := cfg.ConnectionString()
	for _, part := range []string{"host=db.internal", "port=5433", "user=mangoo", "password=secret", "dbname=mangoo", "sslmode=require"} {
		if !strings.Contains(got, part) {
			t.Errorf("connection string missing %q: %s", part, got)
		}
	}
}
