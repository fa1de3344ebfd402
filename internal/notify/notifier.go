// Package notify provides a multi-channel notification system. Events are
// dispatched to all registered senders (generic webhook, Telegram, Discord)
// and can be filtered by event type so operators receive only the alerts they
// care about.
package notify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/marketsync/internal/domain"
)

// Event types.
const (
	EventActionExecuted  = "action.executed"
	EventActionSimulated = "action.simulated"
	EventActionSkipped   = "action.skipped"
	EventActionBlocked   = "action.blocked"
	EventActionFailed    = "action.failed"
	EventRunStopped      = "run.stopped"
)

// ActionEvent maps an action status to its event type.
func ActionEvent(status domain.ActionStatus) string {
	return "action." + string(status)
}

// Event is one outbound notification.
type Event struct {
	Type         string               `json:"type"`
	StrategyHash string               `json:"strategyHash"`
	Kind         string               `json:"kind"`
	Mode         string               `json:"mode"`
	Title        string               `json:"title"`
	Message      string               `json:"message"`
	Action       *domain.ActionRecord `json:"action,omitempty"`
	At           time.Time            `json:"at"`
}

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers ev, retrying per the sender's own policy, and reports
	// the outcome. It never panics on delivery failure.
	Send(ctx context.Context, ev Event) domain.DeliveryReport
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches events to one or more Senders. It maintains a set of
// allowed event types; Notify only forwards events whose type is in the
// allowed set.
type Notifier struct {
	senders []Sender
	events  map[string]bool // allowed event types
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that will deliver to the given senders. Only
// events whose type appears in the events slice will be forwarded by Notify.
// If events is empty, all event types are allowed.
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
	return n != nil && len(n.senders) > 0
}

// Notify sends ev to all senders if its type is allowed and returns one
// report per sender. A single sender failure does not prevent delivery to
// the remaining senders.
func (n *Notifier) Notify(ctx context.Context, ev Event) []domain.DeliveryReport {
	if !n.Enabled() {
		return nil
	}
	if len(n.events) > 0 && !n.events[ev.Type] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", ev.Type),
		)
		return nil
	}

	reports := make([]domain.DeliveryReport, 0, len(n.senders))
	for _, s := range n.senders {
		r := s.Send(ctx, ev)
		if r.OK {
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("event", ev.Type),
				slog.Int("attempts", r.Attempts),
			)
		} else {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("event", ev.Type),
				slog.Int("attempts", r.Attempts),
				slog.String("error", r.Error),
			)
		}
		reports = append(reports, r)
	}
	return reports
}
