// Package notify delivers opportunity digests and operational alerts to chat
// channels (Telegram, Discord). Messages can be filtered by event type so
// operators receive only the alerts they care about.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Event types understood by the notifier.
const (
	EventArbDetected = "arb_detected"
	EventScanFailed  = "scan_failed"
	EventTest        = "test"
)

// TestMessage is sent by the notify-test mode to confirm channel wiring.
const TestMessage = "✅ Test from ENG Arb Notifier — your Telegram is wired up."

// Sender is the interface that each notification channel must implement.
// Message bodies are Telegram-flavoured HTML; senders for other formats
// convert as needed.
type Sender interface {
	// Send delivers a notification. An empty title sends message as-is.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders. Notify only
// forwards events in the allowed set; an empty set allows everything.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that will deliver to the given senders.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether any sender is configured.
func (n *Notifier) Enabled() bool {
	return len(n.senders) > 0
}

// Allows reports whether event would be forwarded by Notify.
func (n *Notifier) Allows(event string) bool {
	return len(n.events) == 0 || n.events[event]
}

// Notify sends a notification to all senders if the event type is allowed.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if !n.Allows(event) {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// SendTest delivers TestMessage to every sender regardless of filters.
func (n *Notifier) SendTest(ctx context.Context) error {
	if !n.Enabled() {
		return errors.New("notify: no senders configured")
	}
	return n.dispatch(ctx, "", TestMessage)
}

// dispatch sends to every sender. A single sender failure does not prevent
// delivery to the remaining senders; failures are combined into one error.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.Int("bytes", len(message)),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}
