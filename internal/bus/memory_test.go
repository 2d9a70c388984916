package bus

import (
	"context"
	"testing"
)

func TestMemoryPublishReachesAllSubscribers(t *testing.T) {
	b := NewMemory()

	var got1, got2 [][]byte
	unsub1, err := b.Subscribe("lobby", func(p []byte) { got1 = append(got1, p) })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub1()
	if _, err := b.Subscribe("lobby", func(p []byte) { got2 = append(got2, p) }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := b.Publish(context.Background(), "lobby", []byte("x")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(got1) != 1 || len(got2) != 1 {
		t.Fatalf("expected both handlers to fire, got %d and %d", len(got1), len(got2))
	}
}

func TestMemoryTopicsAreIsolated(t *testing.T) {
	b := NewMemory()

	var got int
	if _, err := b.Subscribe("lobby", func([]byte) { got++ }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	_ = b.Publish(context.Background(), "other", []byte("x"))
	if got != 0 {
		t.Fatalf("handler fired for foreign topic")
	}
}

func TestMemoryUnsubscribe(t *testing.T) {
	b := NewMemory()

	var got int
	unsub, err := b.Subscribe("lobby", func([]byte) { got++ })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	_ = b.Publish(context.Background(), "lobby", []byte("x"))
	unsub()
	_ = b.Publish(context.Background(), "lobby", []byte("x"))

	if got != 1 {
		t.Fatalf("expected exactly one delivery, got %d", got)
	}
}

func TestMemoryUnsubscribeFromHandler(t *testing.T) {
	b := NewMemory()

	var unsub func()
	var got int
	unsub, err := b.Subscribe("lobby", func([]byte) {
		got++
		unsub()
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// Must not deadlock, and the second publish must not be delivered.
	_ = b.Publish(context.Background(), "lobby", []byte("x"))
	_ = b.Publish(context.Background(), "lobby", []byte("x"))

	if got != 1 {
		t.Fatalf("expected exactly one delivery, got %d", got)
	}
}
