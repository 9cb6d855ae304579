package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mangoo-ai/mangoo-engine/pkg/apperrors"
	"github.com/mangoo-ai/mangoo-engine/pkg/database"
	"github.com/mangoo-ai/mangoo-engine/pkg/models"
)

// UserRepository provides data access for platform users.
type UserRepository interface {
	// Upsert creates the user on first login or bumps last_login on
	// subsequent logins. The user's ID is the identity provider subject.
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateRole(ctx context.Context, id, role string) error
}

type userRepository struct {
	db *database.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *database.DB) UserRepository {
	return &userRepository{db: db}
}

var _ UserRepository = (*userRepository)(nil)

func (r *userRepository) Upsert(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.UpdatedAt = now
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	metadataJSON, err := json.Marshal(user.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if user.Metadata == nil {
		metadataJSON = []byte("{}")
	}

	query := `
		INSERT INTO users (
			id, email, username, full_name, role, is_active, metadata,
			created_at, updated_at, last_login
		) VALUES ($1, $2, $3, $4, $5, true, $6, $7, $8, $9)
		ON CONFLICT (id)
		DO UPDATE SET
			email = EXCLUDED.email,
			username = EXCLUDED.username,
			full_name = EXCLUDED.full_name,
			updated_at = EXCLUDED.updated_at,
			last_login = EXCLUDED.last_login
		RETURNING role, is_active, created_at`

	err = r.db.QueryRow(ctx, query,
		user.ID, user.Email, user.Username, user.FullName, user.Role,
		metadataJSON, user.CreatedAt, user.UpdatedAt, user.LastLogin,
	).Scan(&user.Role, &user.IsActive, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, email, username, full_name, role, is_active, metadata,
		       created_at, updated_at, last_login
		FROM users
		WHERE id = $1`

	var u models.User
	var metadataJSON []byte
	err := r.db.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.Email, &u.Username, &u.FullName, &u.Role, &u.IsActive,
		&metadataJSON, &u.CreatedAt, &u.UpdatedAt, &u.LastLogin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &u.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &u, nil
}

func (r *userRepository) UpdateRole(ctx context.Context, id, role string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET role = $2, updated_at = $3 WHERE id = $1`,
		id, role, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}
