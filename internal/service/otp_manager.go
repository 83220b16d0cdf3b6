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

// maxRefAttempts bounds reference redraws on a store-level collision
const maxRefAttempts = 5

// OTPConfig holds the otp challenge settings
type OTPConfig struct {
	TTL             time.Duration
	RefLength       int
	ConsumeOnVerify bool
}

type otpManager struct {
	credentials repository.CredentialsRepository
	users       repository.UserRepository
	notifier    notify.Notifier
	clock       utils.Clock
	metrics     *observability.AuthMetrics
	logger      *zap.Logger
	cfg         OTPConfig

	newCode func() (int, error)
	newRef  func(n int) (string, error)
}

// NewOTPManager creates a new otp challenge manager
func NewOTPManager(
	credentials repository.CredentialsRepository,
	users repository.UserRepository,
	notifier notify.Notifier,
	clock utils.Clock,
	metrics *observability.AuthMetrics,
	logger *zap.Logger,
	cfg OTPConfig,
) OTPManager {
	if cfg.RefLength <= 0 {
		cfg.RefLength = 6
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Minute
	}
	return &otpManager{
		credentials: credentials,
		users:       users,
		notifier:    notifier,
		clock:       clock,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		newCode:     utils.RandomOTP,
		newRef:      utils.RandomAlphanumeric,
	}
}

// IssueChallenge overwrites any pending challenge of the user with a new
// code and reference, then emails both
func (m *otpManager) IssueChallenge(ctx context.Context, user *domain.User) (*domain.Security, error) {
	creds, err := m.credentials.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}

	var security *domain.Security
	for attempt := 1; ; attempt++ {
		ref, err := m.newRef(m.cfg.RefLength)
		if err != nil {
			return nil, err
		}
		security, err = m.newSecurity(ref)
		if err != nil {
			return nil, err
		}

		err = m.credentials.UpdateSecurity(ctx, creds.ID, security)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicateOtpRef) || attempt == maxRefAttempts {
			return nil, fmt.Errorf("failed to store otp challenge: %w", err)
		}
	}

	m.metrics.RecordOTPIssued(ctx, "issue")
	return security, m.send(ctx, user.Email, security.OTP, security.OTPRef)
}

// Resend draws a new code under the same reference
func (m *otpManager) Resend(ctx context.Context, otpRef string) (*domain.Security, error) {
	creds, err := m.lookup(ctx, otpRef)
	if err != nil {
		return nil, err
	}

	user, err := m.users.GetByID(ctx, creds.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrOtpNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	security, err := m.newSecurity(otpRef)
	if err != nil {
		return nil, err
	}
	if err := m.credentials.UpdateSecurity(ctx, creds.ID, security); err != nil {
		return nil, fmt.Errorf("failed to store otp challenge: %w", err)
	}

	m.metrics.RecordOTPIssued(ctx, "resend")
	return security, m.send(ctx, user.Email, security.OTP, "")
}

// Verify checks a submitted code. A challenge is still valid at the exact
// instant it expires.
func (m *otpManager) Verify(ctx context.Context, otpRef string, otp int) (string, error) {
	creds, err := m.lookup(ctx, otpRef)
	if err != nil {
		m.metrics.RecordOTPVerification(ctx, observability.OutcomeFailure)
		return "", err
	}

	if creds.Security.IsExpiredAt(m.clock.Now()) {
		m.metrics.RecordOTPVerification(ctx, observability.OutcomeFailure)
		return "", domain.ErrOtpExpired
	}
	if creds.Security.OTP != otp {
		m.metrics.RecordOTPVerification(ctx, observability.OutcomeFailure)
		return "", domain.ErrOtpMismatch
	}

	if m.cfg.ConsumeOnVerify {
		if err := m.credentials.UpdateSecurity(ctx, creds.ID, nil); err != nil {
			return "", fmt.Errorf("failed to consume otp challenge: %w", err)
		}
	}

	m.metrics.RecordOTPVerification(ctx, observability.OutcomeSuccess)
	return creds.UserID, nil
}

func (m *otpManager) lookup(ctx context.Context, otpRef string) (*domain.UserCredentials, error) {
	if otpRef == "" {
		return nil, domain.ErrOtpNotFound
	}

	creds, err := m.credentials.GetByOtpRef(ctx, otpRef)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrOtpNotFound
		}
		return nil, fmt.Errorf("failed to get otp challenge: %w", err)
	}
	if creds.Security == nil {
		return nil, domain.ErrOtpNotFound
	}

	return creds, nil
}

func (m *otpManager) newSecurity(ref string) (*domain.Security, error) {
	code, err := m.newCode()
	if err != nil {
		return nil, err
	}

	now := utils.StorageTime(m.clock.Now())
	return &domain.Security{
		OTP:         code,
		OTPRef:      ref,
		GeneratedAt: now,
		ExpiredAt:   now.Add(m.cfg.TTL),
	}, nil
}

// send delivers the code; the reference is only mailed on first issuance
func (m *otpManager) send(ctx context.Context, to string, otp int, otpRef string) error {
	body, err := notify.OTPMessage(otp, otpRef)
	if err == nil {
		err = m.notifier.Send(ctx, to, notify.OTPSubject, body)
	}
	if err != nil {
		m.metrics.RecordNotificationFailure(ctx, "otp")
		m.logger.Warn("failed to send otp", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("%w: %w", domain.ErrNotificationFailed, err)
	}
	return nil
}
