package event

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestPublish_TopicAndAllSubscribers(t *testing.T) {
	bus := NewBus(zap.NewNop())
	var topicHits, allHits int

	bus.Subscribe("alerts.created", func(_ context.Context, _ Event) { topicHits++ })
	bus.Subscribe("alerts.resolved", func(_ context.Context, _ Event) { t.Error("wrong topic delivered") })
	bus.SubscribeAll(func(_ context.Context, _ Event) { allHits++ })

	if err := bus.Publish(context.Background(), Event{Topic: "alerts.created"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if topicHits != 1 || allHits != 1 {
		t.Errorf("hits = (%d, %d), want (1, 1)", topicHits, allHits)
	}
}

func TestPublish_StampsTimestamp(t *testing.T) {
	bus := NewBus(zap.NewNop())
	var got Event
	bus.SubscribeAll(func(_ context.Context, e Event) { got = e })

	_ = bus.Publish(context.Background(), Event{Topic: "x"})
	if got.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	_ = bus.Publish(context.Background(), Event{Topic: "x", Timestamp: fixed})
	if !got.Timestamp.Equal(fixed) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, fixed)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(zap.NewNop())
	var hits int
	unsub := bus.Subscribe("t", func(_ context.Context, _ Event) { hits++ })
	unsubAll := bus.SubscribeAll(func(_ context.Context, _ Event) { hits++ })

	unsub()
	unsubAll()
	_ = bus.Publish(context.Background(), Event{Topic: "t"})
	if hits != 0 {
		t.Errorf("hits = %d after unsubscribe, want 0", hits)
	}
}

func TestPublish_RecoversPanic(t *testing.T) {
	bus := NewBus(zap.NewNop())
	var after bool
	bus.Subscribe("t", func(_ context.Context, _ Event) { panic("boom") })
	bus.Subscribe("t", func(_ context.Context, _ Event) { after = true })

	_ = bus.Publish(context.Background(), Event{Topic: "t"})
	if !after {
		t.Error("handler after panicking handler was not called")
	}
}

func TestPublishAsync(t *testing.T) {
	bus := NewBus(zap.NewNop())
	var wg sync.WaitGroup
	var hits atomic.Int32
	wg.Add(2)
	bus.Subscribe("t", func(_ context.Context, _ Event) { hits.Add(1); wg.Done() })
	bus.SubscribeAll(func(_ context.Context, _ Event) { hits.Add(1); wg.Done() })

	bus.PublishAsync(context.Background(), Event{Topic: "t"})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async handlers not called")
	}
	if hits.Load() != 2 {
		t.Errorf("hits = %d, want 2", hits.Load())
	}
}
