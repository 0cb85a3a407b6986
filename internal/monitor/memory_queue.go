package monitor

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrQueueClosed = errors.New("monitor: queue is closed")
	ErrQueueFull   = errors.New("monitor: queue full")
)

const defaultQueueSize = 10000

// MemoryRecordQueue is a bounded in-memory RecordQueue
type MemoryRecordQueue struct {
	queue     chan Frame
	size      int
	logger    Logger
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryRecordQueue creates a new in-memory record queue
func NewMemoryRecordQueue(size int, logger Logger) *MemoryRecordQueue {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &MemoryRecordQueue{
		queue:  make(chan Frame, size),
		size:   size,
		logger: logger,
		done:   make(chan struct{}),
	}
}

func (q *MemoryRecordQueue) closed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

// Enqueue adds a copy of f to the queue
func (q *MemoryRecordQueue) Enqueue(f Frame) error {
	if q.closed() {
		return ErrQueueClosed
	}

	select {
	case q.queue <- append(Frame(nil), f...):
		return nil
	default:
		q.logger.Warn("queue full, record dropped", "queue_size", q.size, "pending_records", len(q.queue))
		return ErrQueueFull
	}
}

// Next waits for a record
func (q *MemoryRecordQueue) Next(ctx context.Context) (Frame, error) {
	select {
	case msg := <-q.queue:
		return msg, nil
	case <-q.done:
		return nil, ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// IsFull reports whether the next Enqueue would be rejected
func (q *MemoryRecordQueue) IsFull() bool {
	return q.closed() || len(q.queue) >= q.size
}

// Len returns the current number of records in the queue
func (q *MemoryRecordQueue) Len() int {
	if q.closed() {
		return 0
	}
	return len(q.queue)
}

// Close closes the queue. Pending records are discarded.
func (q *MemoryRecordQueue) Close() error {
	q.closeOnce.Do(func() {
		close(q.done)
		for {
			select {
			case <-q.queue:
			default:
				return
			}
		}
	})
	return nil
}
