// Package behavior estimates how an applicant responds to pricing: price
// sensitivity, likelihood of conversion and long-term value.
package behavior

import (
	"context"
	"fmt"

	"github.com/okian/loanoffer/internal/domain/model"
)

// Option configures a Scorer.
type Option func(*Scorer)

// WithConversionBounds sets the band conversion probabilities are clamped to.
func WithConversionBounds(minP, maxP float64) Option {
	return func(s *Scorer) {
		s.minConversion, s.maxConversion = minP, maxP
	}
}

// Scorer builds a BehaviorProfile from an applicant profile.
type Scorer struct {
	minConversion float64
	maxConversion float64
}

// NewScorer validates that the conversion bounds are probabilities with
// min <= max.
func NewScorer(opts ...Option) (*Scorer, error) {
	s := &Scorer{minConversion: DefaultMinConversion, maxConversion: DefaultMaxConversion}
	for _, opt := range opts {
		opt(s)
	}
	if s.minConversion < 0 || s.maxConversion > 1 || s.minConversion > s.maxConversion {
		return nil, fmt.Errorf("conversion bounds [%v, %v] must lie within [0, 1] with min <= max: %w",
			s.minConversion, s.maxConversion, model.ErrInvalidInput)
	}
	return s, nil
}

// Analyze scores p. Missing fields use the documented defaults; only a nil
// profile is an error.
func (s *Scorer) Analyze(ctx context.Context, p *model.ApplicantProfile) (model.BehaviorProfile, error) {
	if p == nil {
		return model.BehaviorProfile{}, fmt.Errorf("applicant profile is nil: %w", model.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return model.BehaviorProfile{}, fmt.Errorf("behavior analysis: %w", err)
	}
	sens := Sensitivity(p)
	return model.BehaviorProfile{
		PriceSensitivity:      sens,
		ConversionProbability: Conversion(p, sens, s.minConversion, s.maxConversion),
		LongTermValue:         LongTermValue(p),
	}, nil
}
