package bus

import (
	"context"
	"sync"
)

// Memory is an in-process Bus. It delivers synchronously to every handler on
// the topic, including ones registered by the publisher itself, so it models
// a bus that echoes publications back to their origin. Tests use it to run
// several "processes" inside one binary.
type Memory struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]Handler
}

// NewMemory builds an empty in-process bus.
func NewMemory() *Memory {
	return &Memory{subs: make(map[string]map[int]Handler)}
}

// Publish invokes every handler subscribed to topic with payload.
func (b *Memory) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs[topic]))
	for _, h := range b.subs[topic] {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	// Handlers run outside the lock so they may subscribe or unsubscribe.
	for _, h := range handlers {
		h(payload)
	}
	return nil
}

// Subscribe registers h for topic.
func (b *Memory) Subscribe(topic string, h Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]Handler)
	}
	b.subs[topic][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[topic], id)
		if len(b.subs[topic]) == 0 {
			delete(b.subs, topic)
		}
	}, nil
}
