// Package service wires the offer pipeline to its storage, cache and
// persistence adapters and implements the dependencies of the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/loanoffer/internal/adapters/cache"
	"github.com/okian/loanoffer/internal/adapters/mq/kafka"
	"github.com/okian/loanoffer/internal/adapters/mq/queue"
	"github.com/okian/loanoffer/internal/adapters/mq/worker"
	"github.com/okian/loanoffer/internal/adapters/repository"
	"github.com/okian/loanoffer/internal/config"
	"github.com/okian/loanoffer/internal/domain/behavior"
	"github.com/okian/loanoffer/internal/domain/model"
	"github.com/okian/loanoffer/internal/domain/offer"
	"github.com/okian/loanoffer/internal/domain/optimizer"
	"github.com/okian/loanoffer/internal/domain/ranking"
	"github.com/okian/loanoffer/internal/domain/risk"
	"github.com/okian/loanoffer/internal/pipeline"
	"github.com/okian/loanoffer/pkg/logger"
	"github.com/okian/loanoffer/pkg/metrics"
)

// ErrNotStarted is returned by calls made before Start or after Stop. It
// matches model.ErrDataUnavailable so callers can treat it as an outage.
var ErrNotStarted = fmt.Errorf("service not started: %w", model.ErrDataUnavailable)

// pinger is implemented by backends that can report their health.
type pinger interface {
	Ping(ctx context.Context) error
}

// Service implements the API dependencies for offer generation.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Core components
	store     repository.Store
	cache     cache.Cache
	queue     *queue.InMemoryQueue
	pool      *worker.Pool
	pipeline  *pipeline.Pipeline
	writer    kafka.MessageWriter
	extra     []worker.Sink
	pipeOpts  []pipeline.Option
	sinkNames []string

	// Cleanup in reverse order of creation.
	closers    []func() error
	poolCancel context.CancelFunc

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig replaces the default configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore injects a repository instead of building one from config.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithCache injects a response cache instead of building one from config.
func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithMessageWriter injects the Kafka writer used by the kafka sink.
func WithMessageWriter(w kafka.MessageWriter) Option {
	return func(s *Service) {
		s.writer = w
	}
}

// WithSinks adds persistence sinks next to the configured ones.
func WithSinks(sinks ...worker.Sink) Option {
	return func(s *Service) {
		s.extra = append(s.extra, sinks...)
	}
}

// WithPipelineOptions passes options through to the offer pipeline.
func WithPipelineOptions(opts ...pipeline.Option) Option {
	return func(s *Service) {
		s.pipeOpts = append(s.pipeOpts, opts...)
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:    config.New(context.Background()),
		logger: nil, // resolved in Start
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds every backend and the pipeline, then starts the
// persistence workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting offer service...")

	if err := s.build(ctx); err != nil {
		s.closeAll(ctx)
		return err
	}

	// Workers outlive the start context so Stop can drain them.
	poolCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.poolCancel = cancel
	s.pool.Start(poolCtx)

	s.started = true
	s.logger.Info(ctx, "offer service started",
		logger.String("store", s.cfg.Persistence.Store),
		logger.String("cache", s.cfg.Cache.Backend),
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queue.Capacity()),
		logger.Any("sinks", s.sinkNames),
	)
	return nil
}

func (s *Service) build(ctx context.Context) error {
	cfg := s.cfg

	if s.store == nil {
		store, err := s.buildStore(ctx)
		if err != nil {
			return err
		}
		s.store = store
	}
	if s.cache == nil {
		s.cache = s.buildCache()
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(cfg.Persistence.QueueSize))
	sinks, err := s.buildSinks()
	if err != nil {
		return err
	}
	s.pool = worker.NewPool(cfg.Persistence.Workers, s.queue, sinks,
		worker.WithRetries(cfg.Persistence.Retries),
		worker.WithBackoff(cfg.Persistence.Backoff),
	)

	components, err := BuildComponents(cfg, repository.NewProfileFetcher(s.store))
	if err != nil {
		return err
	}
	opts := []pipeline.Option{
		pipeline.WithPersister(s.queue),
		pipeline.WithLogger(s.logger.Named("pipeline")),
		pipeline.WithOptimizeConcurrency(cfg.Offers.OptimizeConcurrency),
	}
	s.pipeline, err = pipeline.New(components, append(opts, s.pipeOpts...)...)
	return err
}

func (s *Service) buildStore(ctx context.Context) (repository.Store, error) {
	cfg := s.cfg
	switch cfg.Persistence.Store {
	case config.BackendPostgres:
		pg, err := repository.NewPostgres(repository.PostgresConfig{
			DSN:             cfg.Postgres.DSN,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Postgres.ConnMaxIdleTime,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		s.closers = append(s.closers, pg.Close)
		if err := pg.Ping(ctx); err != nil {
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		if cfg.Postgres.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		s.logger.Info(ctx, "using postgres store")
		return pg, nil
	default:
		opts := []repository.Option{repository.WithMaxOffers(cfg.Persistence.MaxRecords)}
		if cfg.Persistence.SeedSamples {
			opts = append(opts, repository.WithProfiles(repository.SampleProfiles()...))
		}
		s.logger.Info(ctx, "using memory store")
		return repository.NewMemoryStore(opts...), nil
	}
}

func (s *Service) buildCache() cache.Cache {
	cfg := s.cfg
	switch cfg.Cache.Backend {
	case config.BackendRedis:
		client := cache.NewRedisClient(cache.RedisConfig{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		s.closers = append(s.closers, client.Close)
		return cache.NewRedis(client)
	case config.BackendNone:
		return nil
	default:
		return cache.NewMemory(cache.WithMaxEntries(cfg.Cache.MaxEntries))
	}
}

func (s *Service) buildSinks() ([]worker.Sink, error) {
	var sinks []worker.Sink
	if s.cfg.HasSink(config.SinkRepository) {
		sinks = append(sinks, worker.NewStoreSink(s.store))
	}
	if s.cfg.HasSink(config.SinkKafka) {
		if s.writer == nil {
			w, err := kafka.NewWriter(kafka.Config{
				Brokers:      s.cfg.Kafka.Brokers,
				Topic:        s.cfg.Kafka.Topic,
				BatchTimeout: s.cfg.Kafka.BatchTimeout,
			})
			if err != nil {
				return nil, fmt.Errorf("kafka writer: %w", err)
			}
			s.writer = w
		}
		pub := kafka.NewPublisher(s.writer)
		s.closers = append(s.closers, pub.Close)
		sinks = append(sinks, pub)
	}
	sinks = append(sinks, s.extra...)

	s.sinkNames = s.sinkNames[:0]
	for _, sink := range sinks {
		s.sinkNames = append(s.sinkNames, sink.Name())
	}
	return sinks, nil
}

// BuildComponents assembles the pipeline stages described by cfg.
func BuildComponents(cfg *config.Config, fetcher pipeline.ProfileFetcher) (pipeline.Components, error) {
	roi, err := risk.NewROICalculator(
		risk.WithROIBounds(cfg.ROI.Base, cfg.ROI.Min, cfg.ROI.Max),
		risk.WithRiskRangeMultiplier(cfg.ROI.RiskRangeMultiplier),
	)
	if err != nil {
		return pipeline.Components{}, fmt.Errorf("roi calculator: %w", err)
	}
	riskScorer, err := risk.NewScorer(roi, risk.WithWeights(cfg.Risk))
	if err != nil {
		return pipeline.Components{}, fmt.Errorf("risk scorer: %w", err)
	}
	behaviorScorer, err := behavior.NewScorer(
		behavior.WithConversionBounds(cfg.Behavior.MinConversion, cfg.Behavior.MaxConversion),
	)
	if err != nil {
		return pipeline.Components{}, fmt.Errorf("behavior scorer: %w", err)
	}
	generator, err := offer.NewGenerator(roi,
		offer.WithTenures(cfg.Offers.Tenures),
		offer.WithFeePercent(cfg.Offers.FeePercent),
	)
	if err != nil {
		return pipeline.Components{}, fmt.Errorf("offer generator: %w", err)
	}
	registry, err := cfg.Matrices.Build()
	if err != nil {
		return pipeline.Components{}, fmt.Errorf("term matrices: %w", err)
	}
	opt, err := optimizer.NewOptimizer(registry, optimizer.WithLevelScales(map[model.RiskLevel]float64{
		model.RiskLow:    cfg.Offers.ImpactScales.Low,
		model.RiskMedium: cfg.Offers.ImpactScales.Medium,
		model.RiskHigh:   cfg.Offers.ImpactScales.High,
	}))
	if err != nil {
		return pipeline.Components{}, fmt.Errorf("optimizer: %w", err)
	}
	ranker, err := ranking.NewRanker(cfg.Ranking)
	if err != nil {
		return pipeline.Components{}, fmt.Errorf("ranker: %w", err)
	}
	return pipeline.Components{
		Fetcher:   fetcher,
		Risk:      riskScorer,
		Behavior:  behaviorScorer,
		Generator: generator,
		Optimizer: opt,
		Ranker:    ranker,
	}, nil
}

// Stop drains the persistence queue and releases every backend. Records
// still queued when ctx expires are lost.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping offer service...")

	err := s.pool.Shutdown(ctx)
	if err != nil {
		s.logger.Warn(ctx, "persistence queue not fully drained", logger.Error(err))
	}
	s.poolCancel()
	s.closeAll(ctx)

	s.started = false
	s.logger.Info(ctx, "offer service stopped",
		logger.Int64("persisted", s.pool.Stats().Processed()),
		logger.Int64("failed", s.pool.Stats().Failed()),
	)
	return err
}

func (s *Service) closeAll(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn(ctx, "error closing backend", logger.Error(err))
		}
	}
	s.closers = nil
}

// GenerateOffers returns offers for req. A response cached for an identical
// request is returned as is and reported as a hit.
func (s *Service) GenerateOffers(ctx context.Context, req model.LoanOfferRequest) (model.LoanOfferResponse, bool, error) {
	s.mu.RLock()
	started, p, c := s.started, s.pipeline, s.cache
	s.mu.RUnlock()
	if !started {
		return model.LoanOfferResponse{}, false, ErrNotStarted
	}
	if err := req.Validate(); err != nil {
		return model.LoanOfferResponse{}, false, err
	}

	key := cache.ApplicantKey(req)
	if resp, ok := s.lookup(ctx, c, key); ok {
		return resp, true, nil
	}

	if d := s.cfg.HTTP.RequestTimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	resp, err := p.GenerateOffers(ctx, req)
	if err != nil {
		return model.LoanOfferResponse{}, false, err
	}

	if c != nil {
		ttl := s.cfg.Cache.TTL
		for _, k := range []string{key, cache.RequestKey(resp.RequestID)} {
			if err := c.Set(ctx, k, resp, ttl); err != nil {
				metrics.RecordErrorByComponent("service", "cache_set")
				s.logger.Warn(ctx, "cache write failed", logger.String("key", k), logger.Error(err))
			}
		}
	}
	return resp, false, nil
}

// GetOffer returns a previously generated response by request id, from the
// cache when possible and otherwise from the repository.
func (s *Service) GetOffer(ctx context.Context, requestID string) (model.LoanOfferResponse, error) {
	s.mu.RLock()
	started, store, c := s.started, s.store, s.cache
	s.mu.RUnlock()
	if !started {
		return model.LoanOfferResponse{}, ErrNotStarted
	}
	if requestID == "" {
		return model.LoanOfferResponse{}, fmt.Errorf("request id is required: %w", model.ErrInvalidInput)
	}

	if resp, ok := s.lookup(ctx, c, cache.RequestKey(requestID)); ok {
		return resp, nil
	}

	rec, err := store.GetOffer(ctx, requestID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return model.LoanOfferResponse{}, fmt.Errorf("offer %s: %w", requestID, model.ErrOfferNotFound)
	case err != nil:
		return model.LoanOfferResponse{}, fmt.Errorf("offer %s: %w: %w", requestID, model.ErrDataUnavailable, err)
	}
	return responseFromRecord(rec), nil
}

// ListOffers returns up to limit stored responses for an applicant, newest
// first. An applicant with no history gets an empty slice.
func (s *Service) ListOffers(ctx context.Context, applicantID string, limit int) ([]model.LoanOfferResponse, error) {
	s.mu.RLock()
	started, store := s.started, s.store
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}
	if applicantID == "" {
		return nil, fmt.Errorf("applicant id is required: %w", model.ErrInvalidInput)
	}

	recs, err := store.ListByApplicant(ctx, applicantID, limit)
	switch {
	case errors.Is(err, repository.ErrInvalidLimit):
		return nil, fmt.Errorf("limit %d: %w", limit, model.ErrInvalidInput)
	case err != nil:
		return nil, fmt.Errorf("offers for %s: %w: %w", applicantID, model.ErrDataUnavailable, err)
	}
	out := make([]model.LoanOfferResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, responseFromRecord(rec))
	}
	return out, nil
}

// lookup reads key from c. Entries that no longer decode are evicted so the
// next request regenerates them.
func (s *Service) lookup(ctx context.Context, c cache.Cache, key string) (model.LoanOfferResponse, bool) {
	if c == nil {
		return model.LoanOfferResponse{}, false
	}
	resp, err := c.Get(ctx, key)
	switch {
	case err == nil:
		return resp, true
	case errors.Is(err, cache.ErrMiss):
	case errors.Is(err, cache.ErrCorrupt):
		metrics.RecordErrorByComponent("service", "cache_corrupt")
		s.logger.Warn(ctx, "evicting corrupt cache entry", logger.String("key", key), logger.Error(err))
		if err := c.Delete(ctx, key); err != nil {
			s.logger.Warn(ctx, "cache eviction failed", logger.String("key", key), logger.Error(err))
		}
	default:
		metrics.RecordErrorByComponent("service", "cache_get")
		s.logger.Warn(ctx, "cache lookup failed", logger.String("key", key), logger.Error(err))
	}
	return model.LoanOfferResponse{}, false
}

func responseFromRecord(rec model.OfferRecord) model.LoanOfferResponse {
	return model.LoanOfferResponse{
		RequestID:   rec.RequestID,
		ApplicantID: rec.ApplicantID,
		Offers:      rec.Offers,
		GeneratedAt: rec.CreatedAt,
	}
}

// Health pings every backend that supports it.
func (s *Service) Health(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	var errs []error
	for name, b := range map[string]any{"store": s.store, "cache": s.cache} {
		if p, ok := b.(pinger); ok {
			if err := p.Ping(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":      s.started,
		"store":        s.cfg.Persistence.Store,
		"cacheBackend": s.cfg.Cache.Backend,
		"queueSize":    s.cfg.Persistence.QueueSize,
	}
	if !s.started {
		return stats
	}

	queueLen := s.queue.Len(ctx)
	stats["queueLength"] = queueLen
	stats["workerCount"] = s.pool.Size()
	stats["persisted"] = s.pool.Stats().Processed()
	stats["persistFailed"] = s.pool.Stats().Failed()
	stats["storedOffers"] = s.store.Count(ctx)
	stats["sinks"] = append([]string(nil), s.sinkNames...)
	if m, ok := s.cache.(*cache.Memory); ok {
		stats["cacheEntries"] = m.Size()
	}

	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateWorkerCount(s.pool.Size())
	return stats
}
