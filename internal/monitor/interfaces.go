package monitor

import (
	"context"
	"log/slog"
)

// Logger defines the logging interface used by the monitor
type Logger = *slog.Logger

// DeliveryMode defines how records are distributed to feed subscribers.
type DeliveryMode int

const (
	// Broadcast: every subscriber receives every record (fan-out).
	Broadcast DeliveryMode = iota
	// Queue: each record is delivered to exactly one feed subscriber (competing consumers).
	Queue
)

func (m DeliveryMode) String() string {
	switch m {
	case Broadcast:
		return "broadcast"
	case Queue:
		return "queue"
	default:
		return "unknown"
	}
}

// ParseDeliveryMode returns Queue for "queue" and Broadcast for anything else.
func ParseDeliveryMode(s string) DeliveryMode {
	switch s {
	case "queue":
		return Queue
	default:
		return Broadcast
	}
}

// Frame is one encoded record as written to the feed. A frame is shared by
// every subscriber that receives it and must not be modified.
type Frame []byte

// RecordQueue holds frames for competing feed subscribers.
type RecordQueue interface {
	// Enqueue adds a frame without blocking; ErrQueueFull when at capacity
	Enqueue(f Frame) error

	// Next blocks until a frame is available, the queue closes or ctx ends
	Next(ctx context.Context) (Frame, error)

	IsFull() bool
	Len() int
	Close() error
}

// ConsumerRegistry fans frames out to live subscribers.
type ConsumerRegistry interface {
	// Register creates a subscriber with a buffer of the given size
	Register(buffer int) (string, <-chan Frame)

	// Unregister removes a subscriber and closes its channel. Unknown IDs are ignored.
	Unregister(id string)

	// Broadcast offers f to every subscriber without blocking and returns how
	// many subscribers missed it because their buffer was full
	Broadcast(f Frame) int

	Count() int
	Close() error
}
