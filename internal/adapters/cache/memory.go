package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/loanoffer/internal/domain/model"
	"github.com/okian/loanoffer/pkg/metrics"
)

// node is one entry in the recency list.
type node struct {
	key     string
	value   model.LoanOfferResponse
	expires time.Time // zero means no expiry
	prev    *node
	next    *node
}

func (n *node) reset() {
	*n = node{}
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithMaxEntries bounds the cache. When full, the least recently written
// entry is evicted. Zero or negative means unbounded.
func WithMaxEntries(n int) MemoryOption {
	return func(m *Memory) {
		m.maxSize = n
	}
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// Memory is an in-process Cache. Entries live in a map for lookup and a
// doubly linked list ordered by write time (head is newest) for eviction.
type Memory struct {
	mu      sync.Mutex
	items   map[string]*node
	head    *node
	tail    *node
	maxSize int
	size    atomic.Int64
	pool    sync.Pool
	now     func() time.Time
}

var _ Cache = (*Memory)(nil)

// NewMemory creates an in-memory cache holding at most 10000 entries unless
// WithMaxEntries says otherwise.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		items:   make(map[string]*node),
		maxSize: 10000,
		now:     time.Now,
	}
	m.pool.New = func() any { return &node{} }
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns a copy of the cached response.
func (m *Memory) Get(_ context.Context, key string) (model.LoanOfferResponse, error) {
	if err := checkKey(key); err != nil {
		return model.LoanOfferResponse{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.items[key]
	if ok && m.expired(n) {
		m.remove(n)
		ok = false
	}
	if !ok {
		metrics.RecordCacheLookup(BackendMemory, "miss")
		return model.LoanOfferResponse{}, ErrMiss
	}
	metrics.RecordCacheLookup(BackendMemory, "hit")
	return clone(n.value), nil
}

// Set stores resp under key, replacing any previous value.
func (m *Memory) Set(_ context.Context, key string, resp model.LoanOfferResponse, ttl time.Duration) error {
	if err := checkKey(key); err != nil {
		return err
	}
	var expires time.Time
	if ttl > 0 {
		expires = m.now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if n, ok := m.items[key]; ok {
		n.value = clone(resp)
		n.expires = expires
		m.unlink(n)
		m.pushFront(n)
		return nil
	}
	if m.maxSize > 0 && len(m.items) >= m.maxSize {
		m.remove(m.tail)
	}
	n := m.pool.Get().(*node)
	n.key = key
	n.value = clone(resp)
	n.expires = expires
	m.pushFront(n)
	m.items[key] = n
	m.size.Add(1)
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (m *Memory) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.items[key]; ok {
		m.remove(n)
	}
	return nil
}

// Size returns the number of entries, including expired ones not yet
// observed.
func (m *Memory) Size() int64 {
	return m.size.Load()
}

func (m *Memory) expired(n *node) bool {
	return !n.expires.IsZero() && !m.now().Before(n.expires)
}

// remove must be called with m.mu held.
func (m *Memory) remove(n *node) {
	if n == nil {
		return
	}
	m.unlink(n)
	delete(m.items, n.key)
	n.reset()
	m.pool.Put(n)
	m.size.Add(-1)
}

func (m *Memory) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		m.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		m.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

func (m *Memory) pushFront(n *node) {
	n.next = m.head
	if m.head != nil {
		m.head.prev = n
	}
	m.head = n
	if m.tail == nil {
		m.tail = n
	}
}
