// Package mailer delivers transactional email. The orchestrators depend only
// on the Mailer contract; delivery failures surface as errors so callers can
// map them to the delivery taxonomy.
package mailer

import (
	"context"
	"log/slog"
)

// Mailer sends a single HTML message out of band.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// LogMailer writes messages to the structured logger instead of a transport.
// Used in development and tests, where the OTP must be observable somewhere.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer constructs a logging mailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send writes the message to the logger.
func (m *LogMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	if m == nil || m.logger == nil {
		return nil
	}
	m.logger.Info("outbound email", "to", to, "subject", subject, "body", htmlBody)
	return nil
}
