package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/school-auth-service/internal/domain"
	"github.com/prperemyshlev/school-auth-service/internal/utils"
	"github.com/prperemyshlev/school-auth-service/pkg/database"
)

// resetTokenRepository implements ResetTokenRepository interface
type resetTokenRepository struct {
	db *database.Postgres
}

// NewResetTokenRepository creates a new reset token repository
func NewResetTokenRepository(db *database.Postgres) ResetTokenRepository {
	return &resetTokenRepository{db: db}
}

// Create stores a new reset token
func (r *resetTokenRepository) Create(ctx context.Context, token *domain.TempResetToken) error {
	query := `
		INSERT INTO temp_reset_tokens (id, token, expire_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if token.ID == "" {
		token.ID = uuid.New().String()
	}

	now := utils.StorageTime(time.Now())
	if token.CreatedAt.IsZero() {
		token.CreatedAt = now
	}
	if token.UpdatedAt.IsZero() {
		token.UpdatedAt = now
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		token.ID,
		token.Token,
		token.ExpireAt,
		token.CreatedAt,
		token.UpdatedAt,
	)

	if err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return fmt.Errorf("reset token already exists: %w", ErrDuplicateToken)
		}
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	return nil
}

// GetByToken retrieves a reset token by its value
func (r *resetTokenRepository) GetByToken(ctx context.Context, token string) (*domain.TempResetToken, error) {
	query := `
		SELECT id, token, expire_at, created_at, updated_at
		FROM temp_reset_tokens
		WHERE token = $1
	`

	resetToken := &domain.TempResetToken{}
	err := r.db.DB.QueryRowContext(ctx, query, token).Scan(
		&resetToken.ID,
		&resetToken.Token,
		&resetToken.ExpireAt,
		&resetToken.CreatedAt,
		&resetToken.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reset token not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}

	return resetToken, nil
}
