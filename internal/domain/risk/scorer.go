// Package risk scores applicant credit risk and derives the matching
// interest-rate band.
package risk

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/loanoffer/internal/domain/model"
)

const (
	minCreditScore   = 300.0
	creditScoreSpan  = 600.0
	foirCeiling      = 0.5
	utilizationLimit = 0.3
	neutralComponent = 0.5
	maxComponent     = 1.0
	scorePrecision   = 1e9

	weightTolerance = 1e-9
)

// Weights assigns each risk factor its share of the score. They must sum to 1.
type Weights struct {
	CreditScore      float64 `koanf:"credit_score"`
	FOIR             float64 `koanf:"foir"`
	Utilization      float64 `koanf:"utilization"`
	RepaymentHistory float64 `koanf:"repayment_history"`
	IncomeStability  float64 `koanf:"income_stability"`
}

// DefaultWeights returns the standard factor weights.
func DefaultWeights() Weights {
	return Weights{
		CreditScore:      0.30,
		FOIR:             0.25,
		Utilization:      0.15,
		RepaymentHistory: 0.20,
		IncomeStability:  0.10,
	}
}

// For returns the weight of f.
func (w Weights) For(f model.RiskFactor) float64 {
	switch f {
	case model.FactorCreditScore:
		return w.CreditScore
	case model.FactorFOIR:
		return w.FOIR
	case model.FactorUtilization:
		return w.Utilization
	case model.FactorRepaymentHistory:
		return w.RepaymentHistory
	case model.FactorIncomeStability:
		return w.IncomeStability
	}
	return 0
}

// Validate rejects negative weights and sums further than 1e-9 from 1.
func (w Weights) Validate() error {
	sum := 0.0
	for _, f := range model.RiskFactors() {
		v := w.For(f)
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("weight for %s must be non-negative: %w", f, model.ErrInvalidConfig)
		}
		sum += v
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("risk weights sum to %.12f, want 1: %w", sum, model.ErrInvalidConfig)
	}
	return nil
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithWeights overrides the default factor weights.
func WithWeights(w Weights) Option {
	return func(s *Scorer) { s.weights = w }
}

// Scorer computes a RiskAssessment from an applicant profile.
type Scorer struct {
	weights Weights
	roi     *ROICalculator
}

// NewScorer builds a scorer whose assessments carry the band from roi.
func NewScorer(roi *ROICalculator, opts ...Option) (*Scorer, error) {
	if roi == nil {
		return nil, fmt.Errorf("roi calculator is required: %w", model.ErrInvalidConfig)
	}
	s := &Scorer{weights: DefaultWeights(), roi: roi}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.weights.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Assess scores p. Missing fields fall back to the max-risk or neutral
// defaults; only a nil profile is an error.
func (s *Scorer) Assess(ctx context.Context, p *model.ApplicantProfile) (model.RiskAssessment, error) {
	if p == nil {
		return model.RiskAssessment{}, fmt.Errorf("applicant profile is nil: %w", model.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return model.RiskAssessment{}, fmt.Errorf("risk assessment: %w", err)
	}

	components := Components(p)
	score := 0.0
	var flagged []model.RiskFactor
	explanations := make(map[model.RiskFactor]string)
	for _, f := range model.RiskFactors() {
		w := s.weights.For(f)
		c := components[f]
		score += w * c
		// a factor is flagged when its impact exceeds its own weight
		if c > w {
			flagged = append(flagged, f)
			explanations[f] = explain(f, p, w)
		}
	}
	// fixed precision keeps scores that land on a level threshold stable
	score = model.Clamp(math.Round(score*scorePrecision)/scorePrecision, 0, 1)

	band, err := s.roi.Range(&score)
	if err != nil {
		return model.RiskAssessment{}, err
	}
	return model.NewRiskAssessment(score, band, flagged, explanations), nil
}

// Components returns every factor's impact in [0,1], where 1 is maximal risk.
func Components(p *model.ApplicantProfile) map[model.RiskFactor]float64 {
	out := map[model.RiskFactor]float64{
		model.FactorCreditScore:      maxComponent,
		model.FactorFOIR:             maxComponent,
		model.FactorUtilization:      maxComponent,
		model.FactorRepaymentHistory: neutralComponent,
		model.FactorIncomeStability:  neutralComponent,
	}
	if p.CreditScore != nil && !math.IsNaN(*p.CreditScore) {
		out[model.FactorCreditScore] = model.Clamp(1-(*p.CreditScore-minCreditScore)/creditScoreSpan, 0, 1)
	}
	if dti, ok := p.DebtToIncome(); ok {
		out[model.FactorFOIR] = model.Clamp(dti/foirCeiling, 0, 1)
		out[model.FactorUtilization] = model.Clamp(dti/utilizationLimit, 0, 1)
	}
	return out
}

func explain(f model.RiskFactor, p *model.ApplicantProfile, weight float64) string {
	switch f {
	case model.FactorCreditScore:
		if p.CreditScore == nil {
			return "Credit score not provided; scored as maximum risk"
		}
		threshold := minCreditScore + creditScoreSpan*(1-weight)
		return fmt.Sprintf("Credit score of %.0f is below the preferred threshold of %.0f", *p.CreditScore, threshold)
	case model.FactorFOIR:
		dti, ok := p.DebtToIncome()
		if !ok {
			return "Monthly income not provided; fixed obligations cannot be assessed"
		}
		return fmt.Sprintf("Debt-to-income ratio of %.2f exceeds the recommended threshold of %.2f", dti, weight*foirCeiling)
	case model.FactorUtilization:
		dti, ok := p.DebtToIncome()
		if !ok {
			return "Monthly income not provided; utilization cannot be assessed"
		}
		return fmt.Sprintf("Debt utilization of %.2f exceeds the recommended threshold of %.2f", dti, weight*utilizationLimit)
	case model.FactorRepaymentHistory:
		return "Repayment history unavailable; a neutral estimate was used"
	case model.FactorIncomeStability:
		if p.EmploymentTenureMonths != nil {
			return fmt.Sprintf("Income stability not verified (employment tenure %d months); a neutral estimate was used", *p.EmploymentTenureMonths)
		}
		return "Income stability unavailable; a neutral estimate was used"
	}
	return string(f)
}
