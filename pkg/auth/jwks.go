package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// TokenVerifier defines the interface for JWT token validation.
// This abstraction enables testing with mock implementations.
type TokenVerifier interface {
	// VerifyToken validates a JWT token string and returns the claims.
	// Returns an error if the token is invalid, expired, signed by an
	// unknown key, or carries the wrong issuer or audience.
	VerifyToken(tokenString string) (*Claims, error)
}

// JWKSConfig contains configuration for the JWKS verifier.
type JWKSConfig struct {
	// EnableVerification controls whether JWT signatures are verified.
	// Set to false for development mode (parses tokens without verification).
	EnableVerification bool
	// Issuer is the expected "iss" claim.
	Issuer string
	// JWKSURL is the key set endpoint of the issuer.
	JWKSURL string
	// Audience is the expected "aud" claim (the app client id).
	Audience string
	// RefreshInterval bounds how long signing keys are cached before a
	// background refresh. Zero falls back to one hour.
	RefreshInterval time.Duration
}

// JWKSVerifier validates JWT tokens against the issuer's published JSON
// Web Key Set. Keys are cached and refreshed in the background on the
// configured interval rather than held for the process lifetime.
type JWKSVerifier struct {
	keyfunc keyfunc.Keyfunc
	config  *JWKSConfig
}

// NewJWKSVerifier creates a new JWKS verifier with the given configuration.
// If EnableVerification is true, it fetches the key set eagerly and returns
// an error if the endpoint cannot be loaded.
func NewJWKSVerifier(ctx context.Context, config *JWKSConfig) (*JWKSVerifier, error) {
	v := &JWKSVerifier{config: config}

	if !config.EnableVerification {
		return v, nil
	}

	refresh := config.RefreshInterval
	if refresh == 0 {
		refresh = time.Hour
	}

	storage, err := jwkset.NewStorageFromHTTP(config.JWKSURL, jwkset.HTTPClientStorageOptions{
		Ctx:             ctx,
		RefreshInterval: refresh,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS storage for %s: %w", config.JWKSURL, err)
	}

	kf, err := keyfunc.New(keyfunc.Options{
		Ctx:     ctx,
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create keyfunc for %s: %w", config.JWKSURL, err)
	}

	v.keyfunc = kf
	return v, nil
}

// VerifyToken validates a JWT token and returns the claims.
// If verification is disabled, it parses the token without signature validation.
// Otherwise it verifies the RSA signature using the issuer's JWKS public keys
// along with the issuer, audience, and expiry claims.
func (v *JWKSVerifier) VerifyToken(tokenString string) (*Claims, error) {
	if !v.config.EnableVerification {
		return v.parseUnverifiedToken(tokenString)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
	}
	if v.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.config.Issuer))
	}
	if v.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.config.Audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, v.keyfunc.Keyfunc, opts...)
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}

	return claims, nil
}

// parseUnverifiedToken parses a JWT without verifying the signature.
// Used in development mode when EnableVerification is false.
func (v *JWKSVerifier) parseUnverifiedToken(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, _, err := parser.ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}

	return claims, nil
}

// Ensure JWKSVerifier implements TokenVerifier at compile time.
var _ TokenVerifier = (*JWKSVerifier)(nil)
