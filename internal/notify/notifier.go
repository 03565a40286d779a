// Package notify delivers operator alerts for notable market events such as
// circuit breaker halts, news shocks, and resets. Delivery is best effort:
// every configured channel is tried and failures are logged, never returned
// to the round pipeline.
package notify

import (
	"context"
	"log/slog"
	"strings"
)

// Sender is one delivery channel.
type Sender interface {
	// Send delivers one alert with a short subject line and a body.
	Send(ctx context.Context, subject, body string) error
	// Name identifies the channel in logs.
	Name() string
}

// Notifier fans alerts out to all configured senders, filtered by event
// name. An empty filter lets every event through.
type Notifier struct {
	senders []Sender
	allowed map[string]bool
	logger  *slog.Logger
}

// NewNotifier builds a Notifier delivering to senders, forwarding only the
// listed event names.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// subjects maps event names onto human-readable subject lines.
var subjects = map[string]string{
	"circuit_breaker": "Circuit breaker",
	"news":            "News shock",
	"reset":           "Simulation reset",
	"resume":          "Trading resumed",
}

// Notify delivers text to every sender if the event passes the filter.
func (n *Notifier) Notify(ctx context.Context, event, text string) {
	if len(n.allowed) > 0 && !n.allowed[event] {
		n.logger.DebugContext(ctx, "event filtered", slog.String("event", event))
		return
	}

	subject, ok := subjects[event]
	if !ok {
		subject = event
	}

	for _, s := range n.senders {
		if err := s.Send(ctx, subject, text); err != nil {
			n.logger.ErrorContext(ctx, "alert delivery failed",
				slog.String("sender", s.Name()),
				slog.Any("error", err))
			continue
		}
		n.logger.DebugContext(ctx, "alert delivered",
			slog.String("sender", s.Name()),
			slog.String("event", event))
	}
}
