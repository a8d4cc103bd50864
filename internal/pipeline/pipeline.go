// Package pipeline orchestrates offer generation: fetch the applicant, score
// risk and behavior concurrently, generate candidates, optimize them
// concurrently, and rank the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/loanoffer/internal/domain/model"
	"github.com/okian/loanoffer/pkg/logger"
	"github.com/okian/loanoffer/pkg/metrics"
)

// Stage names used in metrics and logs.
const (
	StageFetch    = "fetch"
	StageScore    = "score"
	StageGenerate = "generate"
	StageOptimize = "optimize"
	StageRank     = "rank"
)

// ProfileFetcher loads applicant facts from a backing store.
type ProfileFetcher interface {
	FetchApplicantProfile(ctx context.Context, applicantID string) (*model.ApplicantProfile, error)
}

// RiskAssessor scores credit risk.
type RiskAssessor interface {
	Assess(ctx context.Context, p *model.ApplicantProfile) (model.RiskAssessment, error)
}

// BehaviorAnalyzer scores price sensitivity and conversion.
type BehaviorAnalyzer interface {
	Analyze(ctx context.Context, p *model.ApplicantProfile) (model.BehaviorProfile, error)
}

// CandidateGenerator produces base offers.
type CandidateGenerator interface {
	Generate(req model.LoanOfferRequest, assessment model.RiskAssessment) ([]model.BaseOffer, error)
}

// TermOptimizer adjusts one base offer.
type TermOptimizer interface {
	Optimize(ctx context.Context, base model.BaseOffer, risk model.RiskAssessment, bp model.BehaviorProfile) (model.OptimizedOffer, error)
}

// OfferRanker orders optimized offers.
type OfferRanker interface {
	Rank(offers []model.OptimizedOffer) []model.RankedOffer
}

// OfferPersister stores generated offers. Calls are fire-and-forget from the
// pipeline's point of view: an error is logged and counted, never returned.
type OfferPersister interface {
	PersistOffer(ctx context.Context, rec model.OfferRecord) error
}

// Components are the collaborators every pipeline needs.
type Components struct {
	Fetcher   ProfileFetcher
	Risk      RiskAssessor
	Behavior  BehaviorAnalyzer
	Generator CandidateGenerator
	Optimizer TermOptimizer
	Ranker    OfferRanker
}

func (c Components) validate() error {
	switch {
	case c.Fetcher == nil:
		return fmt.Errorf("profile fetcher is required: %w", model.ErrInvalidConfig)
	case c.Risk == nil:
		return fmt.Errorf("risk assessor is required: %w", model.ErrInvalidConfig)
	case c.Behavior == nil:
		return fmt.Errorf("behavior analyzer is required: %w", model.ErrInvalidConfig)
	case c.Generator == nil:
		return fmt.Errorf("candidate generator is required: %w", model.ErrInvalidConfig)
	case c.Optimizer == nil:
		return fmt.Errorf("term optimizer is required: %w", model.ErrInvalidConfig)
	case c.Ranker == nil:
		return fmt.Errorf("offer ranker is required: %w", model.ErrInvalidConfig)
	}
	return nil
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPersister sets where generated offers are recorded.
func WithPersister(p OfferPersister) Option {
	return func(pl *Pipeline) { pl.persister = p }
}

// WithLogger sets the pipeline logger.
func WithLogger(l logger.Logger) Option {
	return func(pl *Pipeline) {
		if l != nil {
			pl.log = l
		}
	}
}

// WithOptimizeConcurrency bounds how many offers are optimized at once.
func WithOptimizeConcurrency(n int) Option {
	return func(pl *Pipeline) {
		if n > 0 {
			pl.concurrency = n
		}
	}
}

// WithIDGenerator overrides request id generation.
func WithIDGenerator(fn func() string) Option {
	return func(pl *Pipeline) {
		if fn != nil {
			pl.newID = fn
		}
	}
}

// WithClock overrides the time source used for timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(pl *Pipeline) {
		if now != nil {
			pl.now = now
		}
	}
}

// Pipeline is the offer generation orchestrator. It holds no mutable state
// and is safe for concurrent use.
type Pipeline struct {
	c           Components
	persister   OfferPersister
	log         logger.Logger
	concurrency int
	newID       func() string
	now         func() time.Time
}

// New validates the components and applies options.
func New(c Components, opts ...Option) (*Pipeline, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		c:           c,
		log:         logger.Discard(),
		concurrency: runtime.GOMAXPROCS(0),
		newID:       uuid.NewString,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// GenerateOffers runs every stage for req. The first fatal error from any
// stage is returned; persistence failures are not fatal.
func (p *Pipeline) GenerateOffers(ctx context.Context, req model.LoanOfferRequest) (model.LoanOfferResponse, error) {
	start := p.now()
	requestID := p.newID()
	ctx = logger.WithRequestID(ctx, requestID)

	resp, risk, err := p.run(ctx, requestID, req)
	elapsed := p.now().Sub(start)
	metrics.RecordPipelineLatency(float64(elapsed.Microseconds()) / 1000)
	metrics.RecordOfferRequest(outcome(err))
	if err != nil {
		p.log.Warn(ctx, "offer generation failed",
			logger.String("applicant_id", req.ApplicantID),
			logger.Duration("elapsed", elapsed),
			logger.Error(err))
		return model.LoanOfferResponse{}, err
	}

	resp.GenerationDurationMs = elapsed.Milliseconds()
	metrics.RecordOffersGenerated(len(resp.Offers))
	p.log.Info(ctx, "offers generated",
		logger.String("applicant_id", req.ApplicantID),
		logger.Int("offers", len(resp.Offers)),
		logger.String("risk_level", string(risk.RiskLevel)),
		logger.Duration("elapsed", elapsed))

	p.persist(ctx, model.NewOfferRecord(req, risk, resp))
	return resp, nil
}

func (p *Pipeline) run(ctx context.Context, requestID string, req model.LoanOfferRequest) (model.LoanOfferResponse, model.RiskAssessment, error) {
	var (
		risk model.RiskAssessment
		resp model.LoanOfferResponse
	)
	if err := req.Validate(); err != nil {
		return resp, risk, err
	}

	profile, err := timed(StageFetch, func() (*model.ApplicantProfile, error) {
		return p.fetch(ctx, req.ApplicantID)
	})
	if err != nil {
		return resp, risk, err
	}
	p.log.Debug(ctx, "profile fetched", logger.String("applicant_id", req.ApplicantID))

	type scores struct {
		risk     model.RiskAssessment
		behavior model.BehaviorProfile
	}
	sc, err := timed(StageScore, func() (scores, error) {
		var s scores
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			a, err := p.c.Risk.Assess(gctx, profile)
			if err != nil {
				return fmt.Errorf("risk scoring: %w", err)
			}
			s.risk = a
			return nil
		})
		g.Go(func() error {
			b, err := p.c.Behavior.Analyze(gctx, profile)
			if err != nil {
				return fmt.Errorf("behavior scoring: %w", err)
			}
			s.behavior = b
			return nil
		})
		return s, g.Wait()
	})
	if err != nil {
		return resp, risk, err
	}
	risk = sc.risk
	metrics.RecordRiskAssessment(string(risk.RiskLevel), risk.RiskScore)
	metrics.RecordConversionProbability(sc.behavior.ConversionProbability)
	p.log.Debug(ctx, "applicant scored",
		logger.Float64("risk_score", risk.RiskScore),
		logger.String("risk_level", string(risk.RiskLevel)),
		logger.Float64("conversion_probability", sc.behavior.ConversionProbability))

	base, err := timed(StageGenerate, func() ([]model.BaseOffer, error) {
		return p.c.Generator.Generate(req, risk)
	})
	if err != nil {
		return resp, risk, fmt.Errorf("generate candidates: %w", err)
	}

	optimized, err := timed(StageOptimize, func() ([]model.OptimizedOffer, error) {
		return p.optimizeAll(ctx, base, risk, sc.behavior)
	})
	if err != nil {
		return resp, risk, err
	}

	ranked, _ := timed(StageRank, func() ([]model.RankedOffer, error) {
		return p.c.Ranker.Rank(optimized), nil
	})

	resp = model.LoanOfferResponse{
		RequestID:   requestID,
		ApplicantID: req.ApplicantID,
		Offers:      ranked,
		GeneratedAt: p.now().UTC(),
	}
	return resp, risk, nil
}

func (p *Pipeline) fetch(ctx context.Context, applicantID string) (*model.ApplicantProfile, error) {
	profile, err := p.c.Fetcher.FetchApplicantProfile(ctx, applicantID)
	switch {
	case err == nil && profile == nil:
		return nil, fmt.Errorf("applicant %s: %w", applicantID, model.ErrApplicantNotFound)
	case err == nil:
		return profile, nil
	case errors.Is(err, model.ErrApplicantNotFound),
		errors.Is(err, model.ErrDataUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("fetch applicant %s: %w", applicantID, err)
	default:
		return nil, fmt.Errorf("fetch applicant %s: %w: %w", applicantID, model.ErrDataUnavailable, err)
	}
}

// optimizeAll optimizes every base offer concurrently. Results keep the
// order of base; the first failure cancels the remaining work.
func (p *Pipeline) optimizeAll(ctx context.Context, base []model.BaseOffer, risk model.RiskAssessment, bp model.BehaviorProfile) ([]model.OptimizedOffer, error) {
	out := make([]model.OptimizedOffer, len(base))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, b := range base {
		g.Go(func() error {
			o, err := p.c.Optimizer.Optimize(gctx, b, risk, bp)
			if err != nil {
				return fmt.Errorf("optimize %d-month offer: %w", b.TenureMonths, err)
			}
			out[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, o := range out {
		recordAdjustments(o)
	}
	return out, nil
}

func (p *Pipeline) persist(ctx context.Context, rec model.OfferRecord) {
	if p.persister == nil {
		return
	}
	if err := p.persister.PersistOffer(ctx, rec); err != nil {
		metrics.RecordErrorByComponent("pipeline", "persist")
		p.log.Warn(ctx, "offer record not persisted",
			logger.String("applicant_id", rec.ApplicantID),
			logger.Error(err))
	}
}

func recordAdjustments(o model.OptimizedOffer) {
	for _, t := range model.TermTypes() {
		_, ok := o.Adjustment(t)
		metrics.RecordTermAdjustment(string(t), ok)
	}
}

func timed[T any](stage string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	metrics.RecordStageLatency(stage, float64(time.Since(start).Microseconds())/1000)
	return v, err
}

// outcome labels a pipeline result for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, model.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, model.ErrApplicantNotFound):
		return "not_found"
	case errors.Is(err, model.ErrDataUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
