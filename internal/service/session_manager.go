package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/school-auth-service/internal/domain"
	"github.com/prperemyshlev/school-auth-service/internal/repository"
	"github.com/prperemyshlev/school-auth-service/internal/utils"
	"go.uber.org/zap"
)

type sessionManager struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
	clock    utils.Clock
	logger   *zap.Logger
}

// NewSessionManager creates a new session manager
func NewSessionManager(
	sessions repository.SessionRepository,
	users repository.UserRepository,
	clock utils.Clock,
	logger *zap.Logger,
) SessionManager {
	return &sessionManager{
		sessions: sessions,
		users:    users,
		clock:    clock,
		logger:   logger,
	}
}

// CreateSession records a login for an already issued token and stamps the
// user's last login. Several current sessions per user are allowed.
func (m *sessionManager) CreateSession(ctx context.Context, userID, token string, ttl time.Duration) (*domain.Session, error) {
	now := utils.StorageTime(m.clock.Now())
	session := &domain.Session{
		UserID:      userID,
		AccessToken: token,
		Status:      domain.SessionStatusCurrent,
		LoginAt:     now,
		ExpireAt:    now.Add(ttl),
	}

	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := m.users.UpdateLastLogin(ctx, userID, now); err != nil {
		// the session is already recorded
		m.logger.Warn("failed to update last login", zap.String("user_id", userID), zap.Error(err))
	}

	return session, nil
}

// GetSession returns the session of a token with its status computed now
func (m *sessionManager) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	session, err := m.sessions.GetByAccessToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session.Status = session.EffectiveStatus(m.clock.Now())
	return session, nil
}

// ListSessions returns the user's sessions, newest first
func (m *sessionManager) ListSessions(ctx context.Context, userID string) ([]*domain.Session, error) {
	sessions, err := m.sessions.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	now := m.clock.Now()
	for _, s := range sessions {
		s.Status = s.EffectiveStatus(now)
	}

	return sessions, nil
}

// RevokeSession marks the session of a token as revoked
func (m *sessionManager) RevokeSession(ctx context.Context, token string) (*domain.Session, error) {
	session, err := m.sessions.GetByAccessToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err := m.sessions.UpdateStatus(ctx, session.ID, domain.SessionStatusRevoked); err != nil {
		return nil, fmt.Errorf("failed to revoke session: %w", err)
	}

	session.Status = domain.SessionStatusRevoked
	return session, nil
}
