package email

import (
	"context"
	"fmt"
	"log/slog"

	"biblioteca/pkg/platform/circuit"
	"biblioteca/pkg/platform/sentinel"
)

// BreakerMailer stops dialing a failing relay. While the breaker is open and
// cooling down, Send fails fast with sentinel.ErrUnavailable.
type BreakerMailer struct {
	next    Mailer
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewBreakerMailer(next Mailer, breaker *circuit.Breaker, logger *slog.Logger) *BreakerMailer {
	return &BreakerMailer{next: next, breaker: breaker, logger: logger}
}

func (m *BreakerMailer) Send(ctx context.Context, msg Message) error {
	if !m.breaker.Allow() {
		return fmt.Errorf("mail relay %s: %w", m.breaker.Name(), sentinel.ErrUnavailable)
	}
	if err := m.next.Send(ctx, msg); err != nil {
		if _, change := m.breaker.RecordFailure(); change.Opened {
			m.logger.WarnContext(ctx, "mail circuit opened", "breaker", m.breaker.Name(), "error", err)
		}
		return err
	}
	if _, change := m.breaker.RecordSuccess(); change.Closed {
		m.logger.InfoContext(ctx, "mail circuit closed", "breaker", m.breaker.Name())
	}
	return nil
}
