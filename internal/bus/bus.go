// Package bus abstracts the publish-subscribe channel used to replicate
// room state between server processes.
package bus

import "context"

// Handler receives the raw payload of one published message.
type Handler func(payload []byte)

// Bus is a topic-keyed publish-subscribe channel. Delivery is at-least-once
// at best; there is no ordering guarantee across publishers and a publisher
// may or may not hear its own messages back, depending on the implementation.
type Bus interface {
	// Publish sends payload to every subscriber of topic. Fire-and-forget:
	// a returned error means the message may be lost, nothing more.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a handler for topic and returns a function that
	// cancels the subscription.
	Subscribe(topic string, h Handler) (func(), error)
}
