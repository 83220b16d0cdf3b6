package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/school-auth-service/internal/domain"
	"github.com/prperemyshlev/school-auth-service/internal/repository"
	"github.com/prperemyshlev/school-auth-service/internal/utils"
	"github.com/prperemyshlev/school-auth-service/pkg/observability"
	"go.uber.org/zap"
)

const (
	loginMethodPassword = "password"
	loginMethodOTP      = "otp"
)

// AuthConfig holds the orchestrator settings
type AuthConfig struct {
	BcryptCost int
	SessionTTL time.Duration
}

// AuthDeps are the collaborators of the auth service. Blacklist and
// Metrics may be nil.
type AuthDeps struct {
	Users       repository.UserRepository
	Credentials repository.CredentialsRepository
	Verifier    utils.PasswordVerifier
	Tokens      *utils.JWTManager
	OTP         OTPManager
	Sessions    SessionManager
	Resets      ResetIssuer
	Blacklist   TokenBlacklist
	Clock       utils.Clock
	Metrics     *observability.AuthMetrics
	Logger      *zap.Logger
}

// authService implements AuthService interface
type authService struct {
	users       repository.UserRepository
	credentials repository.CredentialsRepository
	verifier    utils.PasswordVerifier
	tokens      *utils.JWTManager
	otp         OTPManager
	sessions    SessionManager
	resets      ResetIssuer
	blacklist   TokenBlacklist
	clock       utils.Clock
	metrics     *observability.AuthMetrics
	logger      *zap.Logger
	cfg         AuthConfig
}

// NewAuthService creates a new auth service
func NewAuthService(deps AuthDeps, cfg AuthConfig) AuthService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	return &authService{
		users:       deps.Users,
		credentials: deps.Credentials,
		verifier:    deps.Verifier,
		tokens:      deps.Tokens,
		otp:         deps.OTP,
		sessions:    deps.Sessions,
		resets:      deps.Resets,
		blacklist:   deps.Blacklist,
		clock:       deps.Clock,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		cfg:         cfg,
	}
}

// Register creates an active user with bcrypt-hashed credentials
func (s *authService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	email = utils.NormalizeEmail(email)
	if !utils.ValidateEmail(email) {
		return nil, domain.ErrInvalidEmail
	}
	if !utils.ValidatePassword(password) {
		return nil, domain.ErrWeakPassword
	}

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil, domain.ErrUserExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check user existence: %w", err)
	}

	passwordHash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	now := utils.StorageTime(s.clock.Now())
	user := &domain.User{
		Email:     email,
		Status:    domain.UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	credentials := &domain.UserCredentials{
		UserID:    user.ID,
		Password:  passwordHash,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.credentials.Create(ctx, credentials); err != nil {
		// a user without credentials would hold the email forever
		if delErr := s.users.Delete(context.WithoutCancel(ctx), user.ID); delErr != nil {
			s.logger.Error("failed to roll back user after credentials failure",
				zap.String("user_id", user.ID), zap.Error(delErr))
		}
		return nil, fmt.Errorf("failed to create credentials: %w", err)
	}

	return user, nil
}

// VerifyCredentials checks an email and password without writing anything.
// Unknown email, missing credentials and a wrong password are reported alike.
func (s *authService) VerifyCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	credentials, err := s.credentials.GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}

	if !s.verifier.Verify(password, credentials.Password) {
		return nil, domain.ErrInvalidCredentials
	}

	return user, nil
}

// Login authenticates with a password and opens a session directly
func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.VerifyCredentials(ctx, email, password)
	if err != nil {
		s.metrics.RecordLogin(ctx, loginMethodPassword, observability.OutcomeFailure)
		return nil, err
	}

	result, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLogin(ctx, loginMethodPassword, observability.OutcomeSuccess)
	return result, nil
}

// LoginWithOTP authenticates with a password and issues an otp challenge.
// On a failed email the challenge is still returned next to an
// ErrNotificationFailed error.
func (s *authService) LoginWithOTP(ctx context.Context, email, password string) (*OTPChallenge, error) {
	user, err := s.VerifyCredentials(ctx, email, password)
	if err != nil {
		s.metrics.RecordLogin(ctx, loginMethodOTP, observability.OutcomeFailure)
		return nil, err
	}

	security, err := s.otp.IssueChallenge(ctx, user)
	if security == nil {
		return nil, err
	}

	return newOTPChallenge(security), err
}

// VerifyOTPAndLogin completes an otp-gated login
func (s *authService) VerifyOTPAndLogin(ctx context.Context, otpRef string, otp int) (*LoginResult, error) {
	userID, err := s.otp.Verify(ctx, otpRef, otp)
	if err != nil {
		s.metrics.RecordLogin(ctx, loginMethodOTP, observability.OutcomeFailure)
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrOtpNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	result, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLogin(ctx, loginMethodOTP, observability.OutcomeSuccess)
	return result, nil
}

// ResendOTP replaces the code of a pending challenge
func (s *authService) ResendOTP(ctx context.Context, otpRef string) (*OTPChallenge, error) {
	security, err := s.otp.Resend(ctx, otpRef)
	if security == nil {
		return nil, err
	}
	return newOTPChallenge(security), err
}

// ForgotPassword issues a reset token for the email
func (s *authService) ForgotPassword(ctx context.Context, email string) (*domain.TempResetToken, error) {
	return s.resets.Issue(ctx, email)
}

// ValidateResetToken checks a reset token before a password change
func (s *authService) ValidateResetToken(ctx context.Context, token string) (*domain.TempResetToken, error) {
	return s.resets.Validate(ctx, token)
}

// Logout revokes the session of the token and blacklists the token for the
// rest of its lifetime
func (s *authService) Logout(ctx context.Context, token string) error {
	claims, err := s.ValidateToken(ctx, token)
	if err != nil {
		return err
	}

	if _, err := s.sessions.RevokeSession(ctx, token); err != nil {
		return err
	}

	if s.blacklist != nil {
		ttl := claims.ExpiresAt().Sub(s.clock.Now())
		if err := s.blacklist.Revoke(ctx, claims.ID, ttl); err != nil {
			// the revoked session still rejects the token
			s.logger.Warn("failed to blacklist token", zap.String("user_id", claims.UserID), zap.Error(err))
		}
	}

	return nil
}

// ValidateToken checks the signature and expiry of an access token and that
// its session is still current
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.TokenClaims, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token blacklist: %w", err)
		}
		if revoked {
			return nil, domain.ErrTokenRevoked
		}
	}

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	switch session.Status {
	case domain.SessionStatusRevoked:
		return nil, domain.ErrTokenRevoked
	case domain.SessionStatusExpired:
		return nil, domain.ErrTokenExpired
	}

	return claims, nil
}

// GetUser returns a user by id
func (s *authService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListSessions returns the user's sessions, newest first
func (s *authService) ListSessions(ctx context.Context, userID string) ([]*domain.Session, error) {
	return s.sessions.ListSessions(ctx, userID)
}
