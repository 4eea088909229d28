// Package eventbus provides a minimal typed in-process pub/sub primitive.
// Each event type gets its own Topic, so dispatch needs no reflection and
// a publish with zero subscribers is nearly free.
package eventbus

import (
	"context"
	"sync"
)

// Handler processes events of type T. Handlers run synchronously on the
// publishing goroutine, in subscription order.
type Handler[T any] func(context.Context, T)

// Topic dispatches events of one type to its subscribers.
type Topic[T any] struct {
	mu       sync.RWMutex
	handlers []entry[T]
	nextID   int
}

type entry[T any] struct {
	id int
	fn Handler[T]
}

// New creates a Topic for events of type T.
func New[T any]() *Topic[T] { return &Topic[T]{} }

// Subscribe registers h and returns a function that removes it again.
func (t *Topic[T]) Subscribe(h Handler[T]) (unsubscribe func()) {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.handlers = append(t.handlers, entry[T]{id: id, fn: h})
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, e := range t.handlers {
			if e.id == id {
				t.handlers = append(t.handlers[:i], t.handlers[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers e to every current subscriber. Subscribers added or
// removed during delivery take effect on the next publish.
func (t *Topic[T]) Publish(ctx context.Context, e T) {
	if t == nil {
		return
	}
	t.mu.RLock()
	if len(t.handlers) == 0 {
		t.mu.RUnlock()
		return
	}
	copied := append([]entry[T](nil), t.handlers...)
	t.mu.RUnlock()
	for _, h := range copied {
		h.fn(ctx, e)
	}
}
