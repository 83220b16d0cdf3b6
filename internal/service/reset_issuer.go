package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/school-auth-service/internal/domain"
	"github.com/prperemyshlev/school-auth-service/internal/notify"
	"github.com/prperemyshlev/school-auth-service/internal/repository"
	"github.com/prperemyshlev/school-auth-service/internal/utils"
	"github.com/prperemyshlev/school-auth-service/pkg/observability"
	"go.uber.org/zap"
)

const maxTokenAttempts = 3

// ResetConfig holds the password reset token settings
type ResetConfig struct {
	TTL         time.Duration
	TokenLength int
}

type resetIssuer struct {
	users    repository.UserRepository
	tokens   repository.ResetTokenRepository
	notifier notify.Notifier
	clock    utils.Clock
	metrics  *observability.AuthMetrics
	logger   *zap.Logger
	cfg      ResetConfig

	newToken func(n int) (string, error)
}

// NewResetIssuer creates a new password reset issuer
func NewResetIssuer(
	users repository.UserRepository,
	tokens repository.ResetTokenRepository,
	notifier notify.Notifier,
	clock utils.Clock,
	metrics *observability.AuthMetrics,
	logger *zap.Logger,
	cfg ResetConfig,
) ResetIssuer {
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Hour
	}
	if cfg.TokenLength <= 0 {
		cfg.TokenLength = 40
	}
	return &resetIssuer{
		users:    users,
		tokens:   tokens,
		notifier: notifier,
		clock:    clock,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		newToken: utils.RandomAlphanumeric,
	}
}

// Issue creates a reset token for an active user and emails it
func (r *resetIssuer) Issue(ctx context.Context, email string) (*domain.TempResetToken, error) {
	user, err := r.users.GetByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.IsActive() {
		return nil, domain.ErrUserNotFound
	}

	var record *domain.TempResetToken
	for attempt := 1; ; attempt++ {
		token, err := r.newToken(r.cfg.TokenLength)
		if err != nil {
			return nil, err
		}

		now := utils.StorageTime(r.clock.Now())
		record = &domain.TempResetToken{
			Token:     token,
			ExpireAt:  now.Add(r.cfg.TTL),
			CreatedAt: now,
			UpdatedAt: now,
		}

		err = r.tokens.Create(ctx, record)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicateToken) || attempt == maxTokenAttempts {
			return nil, fmt.Errorf("failed to store reset token: %w", err)
		}
	}

	r.metrics.RecordResetIssued(ctx)

	body, err := notify.ResetMessage(record.Token)
	if err == nil {
		err = r.notifier.Send(ctx, user.Email, notify.ResetSubject, body)
	}
	if err != nil {
		r.metrics.RecordNotificationFailure(ctx, "reset")
		r.logger.Warn("failed to send reset token", zap.String("user_id", user.ID), zap.Error(err))
		return record, fmt.Errorf("%w: %w", domain.ErrNotificationFailed, err)
	}

	return record, nil
}

// Validate checks that a reset token exists and is not past its expiry
func (r *resetIssuer) Validate(ctx context.Context, token string) (*domain.TempResetToken, error) {
	if token == "" {
		return nil, domain.ErrResetTokenNotFound
	}

	record, err := r.tokens.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrResetTokenNotFound
		}
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}

	if record.IsExpiredAt(r.clock.Now()) {
		return nil, domain.ErrResetTokenExpired
	}

	return record, nil
}
