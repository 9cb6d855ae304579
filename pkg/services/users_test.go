package services

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mangoo-ai/mangoo-engine/pkg/apperrors"
	"github.com/mangoo-ai/mangoo-engine/pkg/auth"
	"github.com/mangoo-ai/mangoo-engine/pkg/models"
)

func testClaims(sub, email string) *auth.Claims {
	return &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: sub},
		Email:            email,
		Username:         "someone",
		Name:             "Some One",
	}
}

func TestUserService_Register_Success(t *testing.T) {
	repo := &mockUserRepository{}
	svc := NewUserService(repo, zap.NewNop())

	user, err := svc.Register(context.Background(), testClaims("sub-1", "a@b.com"))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.ID != "sub-1" || user.Email != "a@b.com" {
		t.Errorf("unexpected user: %+v", user)
	}
	if user.LastLogin == nil {
		t.Error("expected last login to be set")
	}
	if repo.capturedUser == nil {
		t.Fatal("expected upsert to be called")
	}
}

func TestUserService_Register_NoSubject(t *testing.T) {
	svc := NewUserService(&mockUserRepository{}, zap.NewNop())

	_, err := svc.Register(context.Background(), testClaims("", "a@b.com"))
	if !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestUserService_Register_FallsBackToEmailUsername(t *testing.T) {
	repo := &mockUserRepository{}
	svc := NewUserService(repo, zap.NewNop())

	claims := testClaims("sub-1", "a@b.com")
	claims.Username = ""

	user, err := svc.Register(context.Background(), claims)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Username != "a@b.com" {
		t.Errorf("expected email fallback for username, got %q", user.Username)
	}
}

func TestUserService_UpdateRole_InvalidRole(t *testing.T) {
	repo := &mockUserRepository{}
	svc := NewUserService(repo, zap.NewNop())

	err := svc.UpdateRole(context.Background(), "sub-1", "superuser")
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if repo.capturedRole != "" {
		t.Error("repository must not be called for an invalid role")
	}
}

func TestUserService_UpdateRole_Valid(t *testing.T) {
	repo := &mockUserRepository{}
	svc := NewUserService(repo, zap.NewNop())

	if err := svc.UpdateRole(context.Background(), "sub-1", models.RoleAdmin); err != nil {
		t.Fatalf("UpdateRole failed: %v", err)
	}
	if repo.capturedRole != models.RoleAdmin {
		t.Errorf("expected role admin, got %q", repo.capturedRole)
	}
}
