package monitor

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

type subscriber struct {
	ch     chan Frame
	missed atomic.Uint64
}

// BroadcastRegistry is the in-memory ConsumerRegistry.
type BroadcastRegistry struct {
	mu     sync.RWMutex
	subs   map[string]*subscriber
	logger Logger
}

func NewBroadcastRegistry(logger Logger) *BroadcastRegistry {
	return &BroadcastRegistry{
		subs:   make(map[string]*subscriber),
		logger: logger,
	}
}

// Register adds a subscriber. A buffer below 1 is raised to 1.
func (r *BroadcastRegistry) Register(buffer int) (string, <-chan Frame) {
	sub := &subscriber{ch: make(chan Frame, max(buffer, 1))}
	id := uuid.New().String()

	r.mu.Lock()
	r.subs[id] = sub
	n := len(r.subs)
	r.mu.Unlock()

	r.logger.Info("subscriber registered", "subscriber_id", id, "buffer", cap(sub.ch), "total_subscribers", n)
	return id, sub.ch
}

func (r *BroadcastRegistry) Unregister(id string) {
	r.mu.Lock()
	sub, ok := r.subs[id]
	if ok {
		close(sub.ch)
		delete(r.subs, id)
	}
	n := len(r.subs)
	r.mu.Unlock()

	if ok {
		r.logger.Info("subscriber unregistered", "subscriber_id", id, "missed_frames", sub.missed.Load(), "remaining_subscribers", n)
	}
}

// Broadcast holds the read lock while sending so Unregister cannot close a
// channel mid-send.
func (r *BroadcastRegistry) Broadcast(f Frame) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	missed := 0
	for _, sub := range r.subs {
		select {
		case sub.ch <- f:
		default:
			sub.missed.Add(1)
			missed++
		}
	}
	return missed
}

func (r *BroadcastRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Close disconnects every subscriber.
func (r *BroadcastRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, sub := range r.subs {
		close(sub.ch)
		delete(r.subs, id)
	}
	return nil
}
