package alerts

import (
	"context"
	"time"

	"github.com/HerbHall/havenwatch/pkg/models"
)

// Notification is one alert lifecycle event handed to a Notifier.
type Notification struct {
	EventType string        `json:"event_type"`
	Alert     *models.Alert `json:"alert"`
	Timestamp time.Time     `json:"timestamp"`
}

// Notifier delivers alert notifications through a specific channel type.
type Notifier interface {
	// Notify sends a notification. EventType is "created", "acknowledged"
	// or "resolved".
	Notify(ctx context.Context, n Notification) error
	// Type returns the notifier type identifier ("webhook", "redis_stream").
	Type() string
}
