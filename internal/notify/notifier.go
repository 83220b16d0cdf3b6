// Package notify delivers the one-time codes and reset tokens to users.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Notifier sends an HTML email. Implementations are built once at startup
// with their credentials.
type Notifier interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// LogNotifier writes messages to the logger instead of delivering them.
// Used in development and with the memory store.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that only logs
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the message
func (n *LogNotifier) Send(_ context.Context, to, subject, htmlBody string) error {
	n.logger.Info("email not delivered, log notifier in use",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", htmlBody),
	)
	return nil
}
