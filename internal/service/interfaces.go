package service

import (
	"context"
	"time"

	"github.com/prperemyshlev/school-auth-service/internal/domain"
)

// AuthService composes credential checks, otp challenges, sessions and
// password reset into the externally visible flows
type AuthService interface {
	Register(ctx context.Context, email, password string) (*domain.User, error)
	VerifyCredentials(ctx context.Context, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	LoginWithOTP(ctx context.Context, email, password string) (*OTPChallenge, error)
	VerifyOTPAndLogin(ctx context.Context, otpRef string, otp int) (*LoginResult, error)
	ResendOTP(ctx context.Context, otpRef string) (*OTPChallenge, error)
	ForgotPassword(ctx context.Context, email string) (*domain.TempResetToken, error)
	ValidateResetToken(ctx context.Context, token string) (*domain.TempResetToken, error)
	Logout(ctx context.Context, token string) error
	ValidateToken(ctx context.Context, token string) (*domain.TokenClaims, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	ListSessions(ctx context.Context, userID string) ([]*domain.Session, error)
}

// OTPManager drives the otp challenge stored on a credentials record
type OTPManager interface {
	IssueChallenge(ctx context.Context, user *domain.User) (*domain.Security, error)
	Resend(ctx context.Context, otpRef string) (*domain.Security, error)
	// Verify returns the id of the user the challenge belongs to
	Verify(ctx context.Context, otpRef string, otp int) (string, error)
}

// SessionManager records login sessions
type SessionManager interface {
	CreateSession(ctx context.Context, userID, token string, ttl time.Duration) (*domain.Session, error)
	GetSession(ctx context.Context, token string) (*domain.Session, error)
	ListSessions(ctx context.Context, userID string) ([]*domain.Session, error)
	RevokeSession(ctx context.Context, token string) (*domain.Session, error)
}

// ResetIssuer issues and checks password reset tokens
type ResetIssuer interface {
	Issue(ctx context.Context, email string) (*domain.TempResetToken, error)
	Validate(ctx context.Context, token string) (*domain.TempResetToken, error)
}

// TokenBlacklist remembers revoked token ids until they would expire anyway
type TokenBlacklist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
