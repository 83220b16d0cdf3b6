package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prperemyshlev/school-auth-service/internal/domain"
)

// LoginResult is returned by every flow that ends in a new session
type LoginResult struct {
	Session *domain.Session
	User    *domain.User
	// TokenExpiresIn is the lifetime of Session.AccessToken
	TokenExpiresIn time.Duration
}

// OTPChallenge is what the caller needs to complete an otp-gated login.
// The code itself is only ever delivered by email.
type OTPChallenge struct {
	OTPRef    string
	ExpiresAt time.Time
}

func newOTPChallenge(security *domain.Security) *OTPChallenge {
	return &OTPChallenge{OTPRef: security.OTPRef, ExpiresAt: security.ExpiredAt}
}

// startSession issues a token for the user and records the session
func (s *authService) startSession(ctx context.Context, user *domain.User) (*LoginResult, error) {
	token, err := s.tokens.Issue(user.Profile())
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	session, err := s.sessions.CreateSession(ctx, user.ID, token, s.cfg.SessionTTL)
	if err != nil {
		return nil, err
	}

	loginAt := session.LoginAt
	user.LastLoginAt = &loginAt

	return &LoginResult{
		Session:        session,
		User:           user,
		TokenExpiresIn: s.tokens.AccessTokenExpiry(),
	}, nil
}
