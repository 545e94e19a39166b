package ws

import (
	"time"

	"github.com/HerbHall/havenwatch/pkg/models"
)

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageAlertCreated      MessageType = "alert.created"
	MessageAlertAcknowledged MessageType = "alert.acknowledged"
	MessageAlertResolved     MessageType = "alert.resolved"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type       MessageType `json:"type"`
	ResidentID int64       `json:"resident_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Data       any         `json:"data"`
}

// AlertData is the payload for alert.* messages.
type AlertData struct {
	Alert *models.Alert `json:"alert"`
}
