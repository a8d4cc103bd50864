// Package queue buffers offer records between the request path and the
// persistence workers.
//
// Enqueue never blocks: when the buffer is full the record is dropped and
// the caller gets ErrFull.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/loanoffer/internal/domain/model"
	"github.com/okian/loanoffer/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Item is one queued record plus the time it was accepted.
type Item struct {
	Record     model.OfferRecord
	EnqueuedAt time.Time
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a record. It returns ErrFull or ErrClosed when the record
	// was not accepted.
	Enqueue(ctx context.Context, rec model.OfferRecord) error

	// Dequeue returns a channel that receives items as they become
	// available. The channel is closed after Close once the buffer drains.
	Dequeue(ctx context.Context) <-chan Item

	// Len returns the current number of queued items.
	Len(ctx context.Context) int

	// Close stops accepting records. Already queued items stay readable.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	items    chan Item
	capacity int
	now      func() time.Time
	mu       sync.RWMutex
	closed   bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan Item, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a record to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, rec model.OfferRecord) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueDropped("closed")
		return fmt.Errorf("offer %s: %w", rec.RequestID, ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueDropped("context_cancelled")
		return fmt.Errorf("offer %s: %w", rec.RequestID, err)
	}

	select {
	case q.items <- Item{Record: rec, EnqueuedAt: q.now()}:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.items))
		return nil
	default:
		metrics.RecordQueueDropped("full")
		return fmt.Errorf("offer %s: %w", rec.RequestID, ErrFull)
	}
}

// PersistOffer enqueues rec for asynchronous persistence.
func (q *InMemoryQueue) PersistOffer(ctx context.Context, rec model.OfferRecord) error {
	return q.Enqueue(ctx, rec)
}

// Dequeue returns a channel that will receive items as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Item {
	out := make(chan Item)
	go func() {
		defer close(out)
		for item := range q.items {
			select {
			case out <- item:
				metrics.RecordQueueDequeue()
				metrics.RecordQueueWait(float64(q.now().Sub(item.EnqueuedAt).Microseconds()) / 1000)
				metrics.UpdateQueueSize(len(q.items))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued items.
func (q *InMemoryQueue) Len(context.Context) int {
	size := len(q.items)
	metrics.UpdateQueueSize(size)
	return size
}

// Capacity returns the configured capacity.
func (q *InMemoryQueue) Capacity() int {
	return q.capacity
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
