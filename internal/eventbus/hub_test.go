package eventbus

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestHub_PublishDeliversAndUnsubscribes(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	ch := hub.Subscribe(ctx, 4)

	hub.Publish(Event{Type: TypePostGenerated, Data: map[string]any{"id": "p1"}})

	select {
	case evt := <-ch:
		if evt.Type != TypePostGenerated || evt.Timestamp == 0 || evt.Data["id"] != "p1" {
			t.Fatalf("unexpected event: %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatalf("event not delivered")
	}

	cancel()
	for range ch {
	}
	if n := hub.Subscribers(); n != 0 {
		t.Fatalf("subscribers=%d after cancel", n)
	}
}

func TestHub_SlowConsumerDoesNotBlock(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = hub.Subscribe(ctx, 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.Publish(Event{Type: TypeFeedRefreshed})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked on slow consumer")
	}

	var nilHub *Hub
	nilHub.Publish(Event{Type: TypeFeedRefreshed})
}

func TestHub_TypeFilterAndDropCount(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	only := hub.Subscribe(ctx, 1, TypeReviewsChanged)

	hub.Publish(Event{Type: TypePostGenerated})
	hub.Publish(Event{Type: TypeReviewsChanged})
	hub.Publish(Event{Type: TypeReviewsChanged})

	evt := <-only
	if evt.Type != TypeReviewsChanged {
		t.Fatalf("filtered subscriber got %q", evt.Type)
	}
	if got := hub.Dropped(); got != 1 {
		t.Fatalf("dropped=%d want 1", got)
	}

	cancel()
	for range only {
	}
}
