package repository

import (
	"context"
	"time"

	"github.com/prperemyshlev/school-auth-service/internal/domain"
)

// UserRepository defines methods for user operations.
// Soft-deleted users are never returned.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
	// Delete removes the user record outright; it undoes a failed registration
	Delete(ctx context.Context, id string) error
}

// CredentialsRepository defines methods for user credentials operations
type CredentialsRepository interface {
	Create(ctx context.Context, credentials *domain.UserCredentials) error
	GetByUserID(ctx context.Context, userID string) (*domain.UserCredentials, error)
	GetByOtpRef(ctx context.Context, otpRef string) (*domain.UserCredentials, error)
	// UpdateSecurity replaces the otp challenge of a record; nil clears it
	UpdateSecurity(ctx context.Context, id string, security *domain.Security) error
}

// SessionRepository defines methods for login session operations
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByAccessToken(ctx context.Context, accessToken string) (*domain.Session, error)
	GetByUserID(ctx context.Context, userID string) ([]*domain.Session, error)
	UpdateStatus(ctx context.Context, id string, status domain.SessionStatus) error
}

// ResetTokenRepository defines methods for password reset token operations
type ResetTokenRepository interface {
	Create(ctx context.Context, token *domain.TempResetToken) error
	GetByToken(ctx context.Context, token string) (*domain.TempResetToken, error)
}
