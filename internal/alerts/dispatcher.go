package alerts

import (
	"context"
	"strings"

	"github.com/HerbHall/havenwatch/internal/event"
	"github.com/HerbHall/havenwatch/pkg/models"
	"go.uber.org/zap"
)

// Dispatcher handles alert events from the bus and delivers notifications
// for alerts at or above a minimum severity to every configured notifier.
type Dispatcher struct {
	notifiers   []Notifier
	minSeverity models.Severity
	logger      *zap.Logger
}

// NewDispatcher creates a Dispatcher. An unknown minSeverity falls back to
// HIGH.
func NewDispatcher(minSeverity models.Severity, logger *zap.Logger, notifiers ...Notifier) *Dispatcher {
	if minSeverity.Rank() < 0 {
		minSeverity = models.SeverityHigh
	}
	return &Dispatcher{
		notifiers:   notifiers,
		minSeverity: minSeverity,
		logger:      logger,
	}
}

// Subscribe registers the dispatcher for every alert topic and returns a
// function that removes the subscriptions.
func (d *Dispatcher) Subscribe(bus *event.Bus) (unsubscribe func()) {
	unsubs := []func(){
		bus.Subscribe(TopicCreated, d.HandleAlertEvent),
		bus.Subscribe(TopicAcknowledged, d.HandleAlertEvent),
		bus.Subscribe(TopicResolved, d.HandleAlertEvent),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// HandleAlertEvent processes an alert event from the event bus.
func (d *Dispatcher) HandleAlertEvent(ctx context.Context, e event.Event) {
	alert, ok := e.Payload.(*models.Alert)
	if !ok {
		d.logger.Warn("unexpected payload type for alert event",
			zap.String("topic", e.Topic),
		)
		return
	}
	if alert.Severity.Rank() < d.minSeverity.Rank() {
		return
	}

	n := Notification{
		EventType: strings.TrimPrefix(e.Topic, "alerts."),
		Alert:     alert,
		Timestamp: e.Timestamp,
	}
	for _, notifier := range d.notifiers {
		if err := notifier.Notify(ctx, n); err != nil {
			notificationsTotal.WithLabelValues(notifier.Type(), "error").Inc()
			d.logger.Warn("notification delivery failed",
				zap.String("notifier", notifier.Type()),
				zap.Int64("alert_id", alert.ID),
				zap.Error(err),
			)
			continue
		}
		notificationsTotal.WithLabelValues(notifier.Type(), "ok").Inc()
		d.logger.Debug("notification delivered",
			zap.String("notifier", notifier.Type()),
			zap.Int64("alert_id", alert.ID),
			zap.String("event_type", n.EventType),
		)
	}
}
