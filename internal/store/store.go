// Package store defines the persistent key-value storage consumed by the
// relay: per-instance connection counters that survive process restarts.
package store

import "context"

// Store tracks how many connections each server instance currently holds.
type Store interface {
	// AddConnection increments the counter for instance and returns the new
	// value.
	AddConnection(ctx context.Context, instance string) (int64, error)

	// RemoveConnection decrements the counter for instance, never below
	// zero, and returns the new value.
	RemoveConnection(ctx context.Context, instance string) (int64, error)

	// Connections returns the current counter for instance; zero for an
	// unknown instance.
	Connections(ctx context.Context, instance string) (int64, error)

	// Close releases the underlying storage.
	Close() error
}
