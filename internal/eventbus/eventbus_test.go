package eventbus

import (
	"context"
	"testing"
)

type ping struct{ N int }

func TestPublishSubscribe(t *testing.T) {
	topic := New[ping]()

	// No subscribers: must not panic.
	topic.Publish(context.Background(), ping{N: 1})

	var got []int
	unsub := topic.Subscribe(func(ctx context.Context, e ping) {
		got = append(got, e.N)
	})
	topic.Publish(context.Background(), ping{N: 2})
	topic.Publish(context.Background(), ping{N: 3})

	unsub()
	topic.Publish(context.Background(), ping{N: 4})

	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Fatalf("unexpected deliveries: %v", got)
	}
}

func TestSubscriptionOrder(t *testing.T) {
	topic := New[ping]()
	var order []string
	topic.Subscribe(func(ctx context.Context, e ping) { order = append(order, "a") })
	topic.Subscribe(func(ctx context.Context, e ping) { order = append(order, "b") })
	topic.Publish(context.Background(), ping{})
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("handlers ran out of order: %v", order)
	}
}

func TestUnsubscribeMiddle(t *testing.T) {
	topic := New[ping]()
	var count int
	topic.Subscribe(func(ctx context.Context, e ping) { count++ })
	unsub := topic.Subscribe(func(ctx context.Context, e ping) { count += 10 })
	topic.Subscribe(func(ctx context.Context, e ping) { count += 100 })

	unsub()
	unsub() // second call is a no-op
	topic.Publish(context.Background(), ping{})
	if count != 101 {
		t.Fatalf("expected 101 after unsubscribing middle handler, got %d", count)
	}
}
