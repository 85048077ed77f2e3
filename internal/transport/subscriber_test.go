package transport

import (
	"context"
	"testing"
	"time"
)

func TestMemorySubscriberDeliversInOrder(t *testing.T) {
	sub := NewMemorySubscriber(4)
	sub.Publish([]byte("one"))
	sub.Publish([]byte("two"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msgs := sub.Messages(ctx)

	first := <-msgs
	second := <-msgs
	if string(first) != "one" || string(second) != "two" {
		t.Fatalf("unexpected delivery order: %q, %q", first, second)
	}
}

func TestMemorySubscriberStopsOnContextCancel(t *testing.T) {
	sub := NewMemorySubscriber(1)
	ctx, cancel := context.WithCancel(context.Background())
	msgs := sub.Messages(ctx)
	cancel()

	select {
	case _, ok := <-msgs:
		if ok {
			t.Fatalf("expected channel to close after context cancellation")
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for channel to close")
	}
}
