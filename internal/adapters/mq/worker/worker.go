// Package worker drains the persistence queue and writes offer records to
// every configured sink.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/loanoffer/internal/adapters/mq/queue"
	"github.com/okian/loanoffer/internal/adapters/repository"
	"github.com/okian/loanoffer/internal/domain/model"
	"github.com/okian/loanoffer/pkg/logger"
	"github.com/okian/loanoffer/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultRetries        = 2
	defaultBackoff        = 50 * time.Millisecond
	poolShutdownTimeout   = 30 * time.Second
	defaultWorkersPerCore = 2
)

// Sink is one destination for offer records.
type Sink interface {
	Name() string
	Write(ctx context.Context, rec model.OfferRecord) error
}

// Queue defines how workers receive records.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Item
}

// Worker processes queued records.
type Worker interface {
	// Run starts the worker loop until the queue closes or ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining.
	Shutdown(ctx context.Context) error
}

// Stats counts processed records across workers.
type Stats struct {
	processed atomic.Int64
	failed    atomic.Int64
}

// Processed returns how many records were written to every sink.
func (s *Stats) Processed() int64 { return s.processed.Load() }

// Failed returns how many records failed on at least one sink.
func (s *Stats) Failed() int64 { return s.failed.Load() }

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	sinks   []Sink
	name    string
	retries int
	backoff time.Duration
	stats   *Stats

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, sinks []Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		sinks:    sinks,
		name:     "worker",
		retries:  defaultRetries,
		backoff:  defaultBackoff,
		stats:    &Stats{},
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Stats returns the worker's counters.
func (w *InMemoryWorker) Stats() *Stats {
	return w.stats
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case item, ok := <-items:
			if !ok {
				return
			}
			if err := w.process(ctx, item); err != nil {
				w.logger.Error(ctx, "offer record not fully persisted",
					logger.String("request_id", item.Record.RequestID),
					logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process writes one record to every sink. A failing sink does not stop the
// others; all failures are joined.
func (w *InMemoryWorker) process(ctx context.Context, item queue.Item) error {
	metrics.IncWorkerActive()
	start := time.Now()
	defer func() {
		metrics.DecWorkerActive()
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	ctx = logger.WithRequestID(ctx, item.Record.RequestID)
	var errs []error
	for _, s := range w.sinks {
		err := w.write(ctx, s, item.Record)
		metrics.RecordSinkWrite(s.Name(), err == nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	if len(errs) > 0 {
		w.stats.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "sink_write")
		return errors.Join(errs...)
	}
	w.stats.processed.Add(1)
	return nil
}

func (w *InMemoryWorker) write(ctx context.Context, s Sink, rec model.OfferRecord) error {
	var err error
	for attempt := 0; attempt <= w.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * w.backoff):
			}
			w.logger.Debug(ctx, "retrying sink write",
				logger.String("sink", s.Name()),
				logger.Int("attempt", attempt))
		}
		if err = s.Write(ctx, rec); err == nil {
			return nil
		}
	}
	return err
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	stats   *Stats
	logger  logger.Logger
}

// NewPool creates a worker pool. A workerCount below one means two workers
// per CPU.
func NewPool(workerCount int, q Queue, sinks []Sink, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkersPerCore
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		stats:   &Stats{},
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(q, sinks, wopts...)
		w.stats = p.stats
		p.workers[i] = w
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Stats returns counters shared by every worker in the pool.
func (p *Pool) Stats() *Stats {
	return p.stats
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain it. Workers
// still running when ctx (or the pool's own 30s limit) expires are stopped
// and their remaining records are lost.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			close(w.shutdown)
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
		}
	}
	if timedOut {
		return fmt.Errorf("persistence drain: %w", shutdownCtx.Err())
	}
	return nil
}

// StoreSink writes records to a repository. A duplicate request id counts
// as success so retries stay idempotent.
type StoreSink struct {
	store repository.OfferStore
}

// NewStoreSink wraps store.
func NewStoreSink(store repository.OfferStore) *StoreSink {
	return &StoreSink{store: store}
}

// Name implements Sink.
func (s *StoreSink) Name() string { return "repository" }

// Write implements Sink.
func (s *StoreSink) Write(ctx context.Context, rec model.OfferRecord) error {
	err := s.store.SaveOffer(ctx, rec)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil
	}
	return err
}
