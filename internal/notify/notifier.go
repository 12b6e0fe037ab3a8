// Package notify announces finished ingestion runs on chat channels. Messages
// go to every registered sender (Telegram, Discord) and can be filtered by
// event type so operators receive only the alerts they care about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/alanyoungcy/tradefetch/internal/domain"
)

// Event types emitted for runs.
const (
	EventRunCompleted = "run_completed"
	EventRunFailed    = "run_failed"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders. It maintains a set
// of allowed event types; Notify only forwards messages whose event type is in
// the allowed set.
type Notifier struct {
	senders []Sender
	events  map[string]bool // allowed event types
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that will deliver to the given senders. Only
// events whose type appears in the events slice will be forwarded by Notify.
// If events is empty, all event types are allowed.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
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

// Notify sends a notification to all senders only if the event type is in the
// allowed list.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}

	return n.dispatch(ctx, title, message)
}

// NotifyRun announces a finished run as run_completed or run_failed.
func (n *Notifier) NotifyRun(ctx context.Context, run domain.Run) error {
	event := EventRunCompleted
	title := "tradefetch run completed"
	if run.Status == domain.RunStatusFailed {
		event = EventRunFailed
		title = "tradefetch run failed"
	}
	return n.Notify(ctx, event, title, FormatRun(run))
}

// FormatRun renders the run counters as plain text lines.
func FormatRun(run domain.Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s\n", run.ID)
	fmt.Fprintf(&b, "wallets: %d\n", run.Stats.WalletsProcessed)

	platforms := make([]string, 0, len(run.Stats.Fetched))
	for p := range run.Stats.Fetched {
		platforms = append(platforms, string(p))
	}
	for p := range run.Stats.Inserted {
		if _, ok := run.Stats.Fetched[p]; !ok {
			platforms = append(platforms, string(p))
		}
	}
	sort.Strings(platforms)
	for _, p := range platforms {
		fmt.Fprintf(&b, "%s: fetched %d, inserted %d\n",
			p, run.Stats.Fetched[domain.Platform(p)], run.Stats.Inserted[domain.Platform(p)])
	}

	fmt.Fprintf(&b, "errors: %d\n", run.Stats.Errors)
	fmt.Fprintf(&b, "elapsed: %s", run.Stats.Elapsed.Round(time.Second))
	if run.Error != nil {
		fmt.Fprintf(&b, "\nerror: %s", *run.Error)
	}
	return b.String()
}

// dispatch iterates over all senders and sends the notification. Errors from
// individual senders are collected and returned as a combined error; a single
// sender failure does not prevent delivery to the remaining senders.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		} else {
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("title", title),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
