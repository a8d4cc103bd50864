// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New(ctx) builds a Config holding every default.
//   - Load(ctx) layers a YAML file and the environment over those defaults.
//   - Validate reports problems wrapped with ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/loanoffer/internal/domain/behavior"
	"github.com/okian/loanoffer/internal/domain/offer"
	"github.com/okian/loanoffer/internal/domain/optimizer"
	"github.com/okian/loanoffer/internal/domain/ranking"
	"github.com/okian/loanoffer/internal/domain/risk"
	"github.com/okian/loanoffer/pkg/logger"
)

// Backend and sink names accepted in configuration.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendNone     = "none"

	SinkRepository = "repository"
	SinkKafka      = "kafka"
)

// Config contains process configuration.
type Config struct {
	HTTP        HTTPConfig        `koanf:"http"`
	Log         LogConfig         `koanf:"log"`
	Risk        risk.Weights      `koanf:"risk"`
	ROI         ROIConfig         `koanf:"roi"`
	Behavior    BehaviorConfig    `koanf:"behavior"`
	Matrices    optimizer.Specs   `koanf:"matrices"`
	Ranking     ranking.Weights   `koanf:"ranking"`
	Offers      OffersConfig      `koanf:"offers"`
	Persistence PersistenceConfig `koanf:"persistence"`
	Cache       CacheConfig       `koanf:"cache"`
	Postgres    PostgresConfig    `koanf:"postgres"`
	Redis       RedisConfig       `koanf:"redis"`
	Kafka       KafkaConfig       `koanf:"kafka"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RequestTimeout bounds one offer generation, fetch included.
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level controls verbosity: debug, info, warn, error.
	Level string `koanf:"level"`
	// Format is text or json.
	Format string `koanf:"format"`
}

// ROIConfig bounds the risk-adjusted rate, in percent.
type ROIConfig struct {
	Base                float64 `koanf:"base"`
	Min                 float64 `koanf:"min"`
	Max                 float64 `koanf:"max"`
	RiskRangeMultiplier float64 `koanf:"risk_range_multiplier"`
}

// BehaviorConfig bounds the conversion probability.
type BehaviorConfig struct {
	MinConversion float64 `koanf:"min_conversion"`
	MaxConversion float64 `koanf:"max_conversion"`
}

// OffersConfig shapes the candidate menu and the optimize fan-out.
type OffersConfig struct {
	Tenures             []int   `koanf:"tenures"`
	FeePercent          float64 `koanf:"fee_percent"`
	OptimizeConcurrency int     `koanf:"optimize_concurrency"`

	// ImpactScales weight the aggregated adjustment impact per risk level.
	ImpactScales ImpactScales `koanf:"impact_scales"`
}

// ImpactScales holds one multiplier per risk level.
type ImpactScales struct {
	Low    float64 `koanf:"low"`
	Medium float64 `koanf:"medium"`
	High   float64 `koanf:"high"`
}

// PersistenceConfig sizes the asynchronous offer-record pipeline.
type PersistenceConfig struct {
	// Store selects the repository backend: memory or postgres.
	Store string `koanf:"store"`
	// MaxRecords bounds the memory store; zero keeps everything.
	MaxRecords int           `koanf:"max_records"`
	QueueSize  int           `koanf:"queue_size"`
	Workers    int           `koanf:"workers"`
	Retries    int           `koanf:"retries"`
	Backoff    time.Duration `koanf:"backoff"`
	// Sinks lists where records are written: repository, kafka.
	Sinks []string `koanf:"sinks"`
	// SeedSamples loads the built-in sample applicants into the memory store.
	SeedSamples bool `koanf:"seed_samples"`
}

// CacheConfig selects the response cache.
type CacheConfig struct {
	// Backend is memory, redis or none.
	Backend    string        `koanf:"backend"`
	TTL        time.Duration `koanf:"ttl"`
	MaxEntries int           `koanf:"max_entries"`
}

// PostgresConfig configures the SQL repository.
type PostgresConfig struct {
	DSN             string        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	// Migrate creates the schema on startup.
	Migrate bool `koanf:"migrate"`
}

// RedisConfig configures the Redis cache backend.
type RedisConfig struct {
	Addr         string        `koanf:"addr"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// KafkaConfig configures the offer event publisher.
type KafkaConfig struct {
	Brokers      []string      `koanf:"brokers"`
	Topic        string        `koanf:"topic"`
	BatchTimeout time.Duration `koanf:"batch_timeout"`
}

// New creates a Config holding the defaults. Context is accepted first to
// satisfy the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":9080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  2 * time.Second,
		},
		Log:  LogConfig{Level: "info", Format: "text"},
		Risk: risk.DefaultWeights(),
		ROI: ROIConfig{
			Base:                risk.DefaultBaseROI,
			Min:                 risk.DefaultMinROI,
			Max:                 risk.DefaultMaxROI,
			RiskRangeMultiplier: risk.DefaultRiskRangeMult,
		},
		Behavior: BehaviorConfig{
			MinConversion: behavior.DefaultMinConversion,
			MaxConversion: behavior.DefaultMaxConversion,
		},
		Matrices: optimizer.DefaultSpecs(),
		Ranking:  ranking.DefaultWeights(),
		Offers: OffersConfig{
			Tenures:             offer.DefaultTenures(),
			FeePercent:          offer.DefaultFeePercent,
			OptimizeConcurrency: runtime.GOMAXPROCS(0),
			ImpactScales:        ImpactScales{Low: 0.8, Medium: 1.0, High: 1.2},
		},
		Persistence: PersistenceConfig{
			Store:       BackendMemory,
			MaxRecords:  100_000,
			QueueSize:   10_000,
			Workers:     runtime.NumCPU() * 2,
			Retries:     2,
			Backoff:     50 * time.Millisecond,
			Sinks:       []string{SinkRepository},
			SeedSamples: true,
		},
		Cache: CacheConfig{
			Backend:    BackendMemory,
			TTL:        5 * time.Minute,
			MaxEntries: 10_000,
		},
		Postgres: PostgresConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		},
		Kafka: KafkaConfig{
			Topic:        "loan-offers",
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Validate checks cross-field rules the domain constructors cannot see and
// the domain rules that are cheap to check before wiring.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr must not be empty: %w", ErrInvalidConfig)
	}
	if c.HTTP.RequestTimeout < 0 {
		return fmt.Errorf("http.request_timeout must not be negative: %w", ErrInvalidConfig)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w: %w", ErrInvalidConfig, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json: %w", c.Log.Format, ErrInvalidConfig)
	}
	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("risk: %w: %w", ErrInvalidConfig, err)
	}
	if err := c.Ranking.Validate(); err != nil {
		return fmt.Errorf("ranking: %w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.Matrices.Build(); err != nil {
		return fmt.Errorf("matrices: %w: %w", ErrInvalidConfig, err)
	}
	if len(c.Offers.Tenures) == 0 {
		return fmt.Errorf("offers.tenures must not be empty: %w", ErrInvalidConfig)
	}

	switch c.Persistence.Store {
	case BackendMemory:
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required for the postgres store: %w", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("persistence.store %q is unknown: %w", c.Persistence.Store, ErrInvalidConfig)
	}
	if c.Persistence.QueueSize <= 0 {
		return fmt.Errorf("persistence.queue_size must be positive: %w", ErrInvalidConfig)
	}
	if c.Persistence.Retries < 0 {
		return fmt.Errorf("persistence.retries must not be negative: %w", ErrInvalidConfig)
	}
	for _, s := range c.Persistence.Sinks {
		switch strings.TrimSpace(s) {
		case SinkRepository:
		case SinkKafka:
			if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
				return fmt.Errorf("kafka sink needs brokers and a topic: %w", ErrInvalidConfig)
			}
		default:
			return fmt.Errorf("persistence sink %q is unknown: %w", s, ErrInvalidConfig)
		}
	}

	switch c.Cache.Backend {
	case BackendMemory, BackendNone:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the redis cache: %w", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("cache.backend %q is unknown: %w", c.Cache.Backend, ErrInvalidConfig)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative: %w", ErrInvalidConfig)
	}
	return nil
}

// HasSink reports whether name is among the configured persistence sinks.
func (c *Config) HasSink(name string) bool {
	for _, s := range c.Persistence.Sinks {
		if strings.TrimSpace(s) == name {
			return true
		}
	}
	return false
}
