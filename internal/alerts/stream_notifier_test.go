package alerts

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/havenwatch/pkg/models"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestStreamNotifier_Notify(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()
	notifier := NewStreamNotifier(client, "")

	require.NoError(t, notifier.Notify(ctx, testNotification()))

	msgs, err := client.XRange(ctx, DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	values := msgs[0].Values
	assert.Equal(t, "created", values["event_type"])
	assert.Equal(t, "7", values["alert_id"])
	assert.Equal(t, "3", values["resident_id"])
	assert.Equal(t, "CRITICAL", values["severity"])

	var a models.Alert
	require.NoError(t, json.Unmarshal([]byte(values["alert"].(string)), &a))
	assert.Equal(t, int64(7), a.ID)
	assert.Equal(t, models.AlertStatusActive, a.Status)
}

func TestStreamNotifier_CustomStream(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()
	notifier := NewStreamNotifier(client, "facility:alerts")

	require.NoError(t, notifier.Notify(ctx, testNotification()))
	require.NoError(t, notifier.Notify(ctx, testNotification()))

	n, err := client.XLen(ctx, "facility:alerts").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, "redis_stream", notifier.Type())
}

func TestStreamNotifier_ServerDown(t *testing.T) {
	mr, client := newTestRedis(t)
	mr.Close()

	err := NewStreamNotifier(client, "").Notify(context.Background(), testNotification())
	assert.Error(t, err)
}
