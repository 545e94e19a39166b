package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
)

// Compile-time interface guard.
var _ Notifier = (*StreamNotifier)(nil)

// DefaultStream is the Redis stream alert events are appended to.
const DefaultStream = "havenwatch:alerts"

// streamMaxLen caps the stream length (approximate trimming).
const streamMaxLen = 10000

// StreamNotifier appends alert events to a Redis stream with XADD so that
// downstream consumers can read them with consumer groups.
type StreamNotifier struct {
	client redis.UniversalClient
	stream string
}

// NewStreamNotifier creates a StreamNotifier. An empty stream name uses
// DefaultStream.
func NewStreamNotifier(client redis.UniversalClient, stream string) *StreamNotifier {
	if stream == "" {
		stream = DefaultStream
	}
	return &StreamNotifier{client: client, stream: stream}
}

// Notify appends the notification to the stream.
func (s *StreamNotifier) Notify(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n.Alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	_, err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"event_type":  n.EventType,
			"alert_id":    strconv.FormatInt(n.Alert.ID, 10),
			"resident_id": strconv.FormatInt(n.Alert.ResidentID, 10),
			"severity":    string(n.Alert.Severity),
			"alert":       string(payload),
			"timestamp":   n.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("XADD %s: %w", s.stream, err)
	}
	return nil
}

// Type returns the notifier type identifier.
func (s *StreamNotifier) Type() string {
	return "redis_stream"
}
