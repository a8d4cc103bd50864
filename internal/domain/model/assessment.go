package model

import (
	"fmt"
	"math"
)

// RiskLevel buckets a risk score. Higher scores are riskier.
type RiskLevel string

// Risk levels.
const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Level thresholds: LOW [0,0.3), MEDIUM [0.3,0.7), HIGH [0.7,1].
const (
	MediumRiskThreshold = 0.3
	HighRiskThreshold   = 0.7
)

// RiskLevelFor derives the level from a score alone.
func RiskLevelFor(score float64) RiskLevel {
	switch {
	case score >= HighRiskThreshold:
		return RiskHigh
	case score >= MediumRiskThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// RiskFactor names one input to the risk score.
type RiskFactor string

// Risk factors in evaluation order.
const (
	FactorCreditScore      RiskFactor = "CREDIT_SCORE"
	FactorFOIR             RiskFactor = "FOIR"
	FactorUtilization      RiskFactor = "UTILIZATION"
	FactorRepaymentHistory RiskFactor = "REPAYMENT_HISTORY"
	FactorIncomeStability  RiskFactor = "INCOME_STABILITY"
)

// RiskFactors lists every factor in evaluation order.
func RiskFactors() []RiskFactor {
	return []RiskFactor{
		FactorCreditScore,
		FactorFOIR,
		FactorUtilization,
		FactorRepaymentHistory,
		FactorIncomeStability,
	}
}

// stepTolerance absorbs float error when counting whole steps in a band.
const stepTolerance = 1e-9

// ROIRange is an interest-rate band in percent.
type ROIRange struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Midpoint float64 `json:"midpoint"`
	Step     float64 `json:"step"`
}

// Contains reports whether roi lies inside the band.
func (r ROIRange) Contains(roi float64) bool {
	return roi >= r.Min && roi <= r.Max
}

// RoundToStep snaps roi onto the band's step grid, anchored at Min. When the
// band is not a whole number of steps wide, the last grid point below Max is
// the ceiling.
func (r ROIRange) RoundToStep(roi float64) (float64, error) {
	if math.IsNaN(roi) || !r.Contains(roi) {
		return 0, fmt.Errorf("roi %.4f outside [%.4f, %.4f]: %w", roi, r.Min, r.Max, ErrInvalidInput)
	}
	if r.Step <= 0 {
		return roi, nil
	}
	steps := math.Round((roi - r.Min) / r.Step)
	maxSteps := math.Floor((r.Max-r.Min)/r.Step + stepTolerance)
	return r.Min + math.Min(steps, maxSteps)*r.Step, nil
}

// RiskAssessment is the output of risk scoring.
type RiskAssessment struct {
	RiskScore    float64               `json:"risk_score"`
	RiskLevel    RiskLevel             `json:"risk_level"`
	ROIRange     ROIRange              `json:"roi_range"`
	RiskFactors  []RiskFactor          `json:"risk_factors"`
	Explanations map[RiskFactor]string `json:"explanations"`
}

// NewRiskAssessment copies factors and explanations so the result does not
// alias caller state.
func NewRiskAssessment(score float64, roi ROIRange, factors []RiskFactor, explanations map[RiskFactor]string) RiskAssessment {
	fs := make([]RiskFactor, len(factors))
	copy(fs, factors)
	ex := make(map[RiskFactor]string, len(explanations))
	for k, v := range explanations {
		ex[k] = v
	}
	return RiskAssessment{
		RiskScore:    score,
		RiskLevel:    RiskLevelFor(score),
		ROIRange:     roi,
		RiskFactors:  fs,
		Explanations: ex,
	}
}

// HasFactor reports whether f was flagged.
func (a RiskAssessment) HasFactor(f RiskFactor) bool {
	for _, x := range a.RiskFactors {
		if x == f {
			return true
		}
	}
	return false
}

// PriceSensitivity describes how strongly an applicant reacts to price.
type PriceSensitivity struct {
	Sensitivity float64 `json:"sensitivity"`
	Confidence  float64 `json:"confidence"`
}

// BehaviorProfile is the output of behavior scoring.
type BehaviorProfile struct {
	PriceSensitivity      PriceSensitivity `json:"price_sensitivity"`
	ConversionProbability float64          `json:"conversion_probability"`
	LongTermValue         float64          `json:"long_term_value"`
}

// Clamp bounds v to [lo, hi]. NaN becomes lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
