package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels shared by the auth counters
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuthMetrics counts authentication events. A nil *AuthMetrics records nothing.
type AuthMetrics struct {
	logins               metric.Int64Counter
	otpIssued            metric.Int64Counter
	otpVerifications     metric.Int64Counter
	resetTokensIssued    metric.Int64Counter
	notificationFailures metric.Int64Counter
}

// NewAuthMetrics registers the auth counters on the given meter
func NewAuthMetrics(meter metric.Meter) (*AuthMetrics, error) {
	m := &AuthMetrics{}
	var err error

	if m.logins, err = meter.Int64Counter("auth_logins_total",
		metric.WithDescription("Login attempts by method and outcome")); err != nil {
		return nil, fmt.Errorf("failed to create logins counter: %w", err)
	}
	if m.otpIssued, err = meter.Int64Counter("auth_otp_issued_total",
		metric.WithDescription("One-time codes issued, including resends")); err != nil {
		return nil, fmt.Errorf("failed to create otp issued counter: %w", err)
	}
	if m.otpVerifications, err = meter.Int64Counter("auth_otp_verifications_total",
		metric.WithDescription("One-time code verifications by outcome")); err != nil {
		return nil, fmt.Errorf("failed to create otp verifications counter: %w", err)
	}
	if m.resetTokensIssued, err = meter.Int64Counter("auth_reset_tokens_issued_total",
		metric.WithDescription("Password reset tokens issued")); err != nil {
		return nil, fmt.Errorf("failed to create reset tokens counter: %w", err)
	}
	if m.notificationFailures, err = meter.Int64Counter("auth_notification_failures_total",
		metric.WithDescription("Emails that could not be delivered")); err != nil {
		return nil, fmt.Errorf("failed to create notification failures counter: %w", err)
	}

	return m, nil
}

// RecordLogin counts a login attempt; method is "password" or "otp"
func (m *AuthMetrics) RecordLogin(ctx context.Context, method, outcome string) {
	if m == nil {
		return
	}
	m.logins.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	))
}

// RecordOTPIssued counts an issued code; kind is "issue" or "resend"
func (m *AuthMetrics) RecordOTPIssued(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.otpIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordOTPVerification counts a verification attempt
func (m *AuthMetrics) RecordOTPVerification(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.otpVerifications.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordResetIssued counts an issued reset token
func (m *AuthMetrics) RecordResetIssued(ctx context.Context) {
	if m == nil {
		return
	}
	m.resetTokensIssued.Add(ctx, 1)
}

// RecordNotificationFailure counts an undelivered email; kind is "otp" or "reset"
func (m *AuthMetrics) RecordNotificationFailure(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.notificationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
