package optimizer

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/loanoffer/internal/domain/model"
	"github.com/okian/loanoffer/internal/domain/money"
)

// DefaultLevelScales weights the aggregated impact by risk level.
func DefaultLevelScales() map[model.RiskLevel]float64 {
	return map[model.RiskLevel]float64{
		model.RiskLow:    0.8,
		model.RiskMedium: 1.0,
		model.RiskHigh:   1.2,
	}
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithLevelScales overrides the per-level impact scales.
func WithLevelScales(scales map[model.RiskLevel]float64) Option {
	return func(o *Optimizer) {
		o.scales = make(map[model.RiskLevel]float64, len(scales))
		for k, v := range scales {
			o.scales[k] = v
		}
	}
}

// Optimizer applies every registered matrix to a base offer.
type Optimizer struct {
	registry *Registry
	scales   map[model.RiskLevel]float64
}

// NewOptimizer builds an optimizer over reg.
func NewOptimizer(reg *Registry, opts ...Option) (*Optimizer, error) {
	if reg == nil {
		return nil, fmt.Errorf("matrix registry is required: %w", model.ErrInvalidConfig)
	}
	o := &Optimizer{registry: reg, scales: DefaultLevelScales()}
	for _, opt := range opts {
		opt(o)
	}
	for _, level := range []model.RiskLevel{model.RiskLow, model.RiskMedium, model.RiskHigh} {
		if s, ok := o.scales[level]; !ok || s < 0 || math.IsNaN(s) {
			return nil, fmt.Errorf("impact scale for %s must be non-negative: %w", level, model.ErrInvalidConfig)
		}
	}
	return o, nil
}

// Optimize runs all four matrices against base. Adjustments that fail
// validation, or that would push a term to a non-positive value, are
// dropped and the term keeps its base value.
func (o *Optimizer) Optimize(ctx context.Context, base model.BaseOffer, risk model.RiskAssessment, bp model.BehaviorProfile) (model.OptimizedOffer, error) {
	if err := ctx.Err(); err != nil {
		return model.OptimizedOffer{}, fmt.Errorf("optimize %d-month offer: %w", base.TenureMonths, err)
	}

	terms := offerTerms{
		rate:   base.Rate,
		feePct: feePercent(base),
		tenure: float64(base.TenureMonths),
		amount: base.Amount,
	}

	accepted := make([]model.TermAdjustment, 0, len(model.TermTypes()))
	totalImpact := 0.0
	for _, t := range model.TermTypes() {
		m, ok := o.registry.Get(t)
		if !ok {
			continue
		}
		adj := m.Adjustment(bp)
		if !m.Validate(adj) || !terms.apply(t, adj.Delta()) {
			continue
		}
		accepted = append(accepted, adj)
		totalImpact += adj.Impact
	}

	amount := money.Round(terms.amount)
	tenure := int(math.Round(terms.tenure))
	return model.OptimizedOffer{
		BaseOffer:             base,
		AdjustedRate:          terms.rate,
		AdjustedFee:           money.PercentOf(amount, terms.feePct),
		AdjustedTenureMonths:  tenure,
		AdjustedAmount:        amount,
		AdjustedInstallment:   money.Installment(amount, terms.rate, tenure),
		Adjustments:           accepted,
		RiskImpact:            model.Clamp(totalImpact*o.scales[risk.RiskLevel], 0, 1),
		ConversionProbability: bp.ConversionProbability,
	}, nil
}

type offerTerms struct {
	rate   float64
	feePct float64
	tenure float64
	amount float64
}

// apply shifts one term by delta and reports whether the shift was kept.
func (t *offerTerms) apply(tt model.TermType, delta float64) bool {
	var target *float64
	switch tt {
	case model.TermRate:
		target = &t.rate
	case model.TermFee:
		target = &t.feePct
	case model.TermTenure:
		target = &t.tenure
	case model.TermAmount:
		target = &t.amount
	default:
		return false
	}
	next := *target + delta
	if next <= 0 && delta != 0 {
		return false
	}
	*target = next
	return true
}

func feePercent(b model.BaseOffer) float64 {
	if b.Amount <= 0 {
		return 0
	}
	return b.ProcessingFee / b.Amount * 100
}
