package eventbus

import (
	"context"
	"sync"

	"github.com/noticias/core/internal/pkg/metrics"
)

// Local dispatches synchronously within the process.
type Local struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]Handler
	closed bool
}

func NewLocal() *Local {
	return &Local{subs: make(map[string]map[int]Handler)}
}

func (b *Local) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	handlers := make([]Handler, 0, len(b.subs[e.Topic]))
	for _, h := range b.subs[e.Topic] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, e)
	}
	metrics.EventsPublished.WithLabelValues("local", e.Topic, "success").Inc()
	return nil
}

func (b *Local) Subscribe(topic string, h Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.subs[topic][id] = h

	return func() {
		b.mu.Lock()
		delete(b.subs[topic], id)
		b.mu.Unlock()
	}, nil
}

func (b *Local) Close() error {
	b.mu.Lock()
	b.closed = true
	b.subs = make(map[string]map[int]Handler)
	b.mu.Unlock()
	return nil
}
