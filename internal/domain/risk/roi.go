package risk

import (
	"fmt"
	"math"

	"github.com/okian/loanoffer/internal/domain/model"
)

// Default rate band, in percent.
const (
	DefaultBaseROI       = 12.0
	DefaultMinROI        = 8.0
	DefaultMaxROI        = 24.0
	DefaultRiskRangeMult = 0.25

	minStep       = 0.001
	stepFraction  = 0.01
	lowRiskDelta  = -0.5
	highRiskDelta = 1.0
)

// ROIOption configures an ROICalculator.
type ROIOption func(*ROICalculator)

// WithROIBounds sets the base, minimum and maximum rate.
func WithROIBounds(base, minROI, maxROI float64) ROIOption {
	return func(c *ROICalculator) {
		c.base, c.min, c.max = base, minROI, maxROI
	}
}

// WithRiskRangeMultiplier sets how wide the band grows with risk.
func WithRiskRangeMultiplier(m float64) ROIOption {
	return func(c *ROICalculator) { c.multiplier = m }
}

// ROICalculator turns a risk score into an interest-rate band.
type ROICalculator struct {
	base       float64
	min        float64
	max        float64
	multiplier float64
}

// NewROICalculator validates the bounds: min < max, base within them and a
// positive multiplier.
func NewROICalculator(opts ...ROIOption) (*ROICalculator, error) {
	c := &ROICalculator{
		base:       DefaultBaseROI,
		min:        DefaultMinROI,
		max:        DefaultMaxROI,
		multiplier: DefaultRiskRangeMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	switch {
	case !(c.min < c.max):
		return nil, fmt.Errorf("roi min %.4f must be below max %.4f: %w", c.min, c.max, model.ErrInvalidConfig)
	case c.base < c.min || c.base > c.max:
		return nil, fmt.Errorf("roi base %.4f outside [%.4f, %.4f]: %w", c.base, c.min, c.max, model.ErrInvalidConfig)
	case !(c.multiplier > 0):
		return nil, fmt.Errorf("roi risk range multiplier must be positive: %w", model.ErrInvalidConfig)
	}
	return c, nil
}

// Bounds returns the configured minimum and maximum rate.
func (c *ROICalculator) Bounds() (minROI, maxROI float64) {
	return c.min, c.max
}

// Range derives the band for a risk score in [0,1]:
// base ± base*score*multiplier, clipped to the configured bounds.
// A nil score means the caller never computed one.
func (c *ROICalculator) Range(score *float64) (model.ROIRange, error) {
	if score == nil {
		return model.ROIRange{}, fmt.Errorf("risk score is required: %w", model.ErrInvalidInput)
	}
	if math.IsNaN(*score) || *score < 0 || *score > 1 {
		return model.ROIRange{}, fmt.Errorf("risk score %v outside [0, 1]: %w", *score, model.ErrInvalidInput)
	}
	width := c.base * *score * c.multiplier
	lo := math.Max(c.base-width, c.min)
	hi := math.Min(c.base+width, c.max)
	return model.ROIRange{
		Min:      lo,
		Max:      hi,
		Midpoint: (lo + hi) / 2,
		Step:     math.Max(width*stepFraction, minStep),
	}, nil
}

// AdjustROI nudges roi by a per-level delta and clamps it to the bounds.
func (c *ROICalculator) AdjustROI(roi float64, level model.RiskLevel) (float64, error) {
	if math.IsNaN(roi) || roi < c.min || roi > c.max {
		return 0, fmt.Errorf("roi %.4f outside [%.4f, %.4f]: %w", roi, c.min, c.max, model.ErrInvalidInput)
	}
	var delta float64
	switch level {
	case model.RiskLow:
		delta = lowRiskDelta
	case model.RiskHigh:
		delta = highRiskDelta
	case model.RiskMedium:
	default:
		return 0, fmt.Errorf("unknown risk level %q: %w", level, model.ErrInvalidInput)
	}
	return model.Clamp(roi+delta, c.min, c.max), nil
}
