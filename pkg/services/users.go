package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mangoo-ai/mangoo-engine/pkg/apperrors"
	"github.com/mangoo-ai/mangoo-engine/pkg/auth"
	"github.com/mangoo-ai/mangoo-engine/pkg/models"
	"github.com/mangoo-ai/mangoo-engine/pkg/repositories"
)

// UserService manages user records derived from identity provider claims.
type UserService interface {
	// Register upserts the user identified by the token claims. Profile
	// fields from the token overwrite the stored copy; role and active
	// flag are preserved.
	Register(ctx context.Context, claims *auth.Claims) (*models.User, error)

	// GetByID returns the user record for the given subject.
	GetByID(ctx context.Context, userID string) (*models.User, error)

	// UpdateRole changes a user's role. Admin only, enforced by the caller.
	UpdateRole(ctx context.Context, userID string, role string) error
}

type userService struct {
	users  repositories.UserRepository
	logger *zap.Logger
}

// NewUserService creates a new UserService.
func NewUserService(users repositories.UserRepository, logger *zap.Logger) UserService {
	return &userService{users: users, logger: logger}
}

var _ UserService = (*userService)(nil)

func (s *userService) Register(ctx context.Context, claims *auth.Claims) (*models.User, error) {
	if claims == nil || claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", apperrors.ErrUnauthorized)
	}

	now := time.Now()
	user := &models.User{
		ID:        claims.Subject,
		Email:     claims.Email,
		Username:  claims.Username,
		FullName:  claims.Name,
		LastLogin: &now,
	}
	if user.Username == "" {
		user.Username = claims.Email
	}

	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("role", user.Role))

	return user, nil
}

func (s *userService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *userService) UpdateRole(ctx context.Context, userID string, role string) error {
	if role != models.RoleUser && role != models.RoleAdmin {
		return fmt.Errorf("%w: invalid role %q", apperrors.ErrValidation, role)
	}
	return s.users.UpdateRole(ctx, userID, role)
}
