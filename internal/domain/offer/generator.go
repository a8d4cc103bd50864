// Package offer generates the base loan-term candidates an applicant is
// offered before optimization.
package offer

import (
	"fmt"
	"math"

	"github.com/okian/loanoffer/internal/domain/model"
	"github.com/okian/loanoffer/internal/domain/money"
)

// Defaults for the candidate menu.
const (
	DefaultFeePercent = 2.0
)

// DefaultTenures is the standard tenure menu, in months.
func DefaultTenures() []int {
	return []int{3, 6, 9, 12, 18, 24, 36}
}

// RateAdjuster nudges a rate by risk level.
type RateAdjuster interface {
	AdjustROI(roi float64, level model.RiskLevel) (float64, error)
}

// TenureGate decides whether a tenure is offered for a request.
type TenureGate func(req model.LoanOfferRequest, assessment model.RiskAssessment, tenureMonths int) bool

// AllowAllTenures is the default gate: every tenure on the menu is offered.
func AllowAllTenures(model.LoanOfferRequest, model.RiskAssessment, int) bool { return true }

// Option configures a Generator.
type Option func(*Generator)

// WithTenures replaces the tenure menu.
func WithTenures(months []int) Option {
	return func(g *Generator) {
		g.tenures = append([]int(nil), months...)
	}
}

// WithFeePercent sets the processing fee as a percentage of the amount.
func WithFeePercent(pct float64) Option {
	return func(g *Generator) { g.feePercent = pct }
}

// WithTenureGate installs a gate deciding which tenures are offered.
func WithTenureGate(gate TenureGate) Option {
	return func(g *Generator) {
		if gate != nil {
			g.gate = gate
		}
	}
}

// Generator builds one BaseOffer per accepted tenure.
type Generator struct {
	rates      RateAdjuster
	tenures    []int
	feePercent float64
	gate       TenureGate
}

// NewGenerator validates the tenure menu (non-empty, positive, unique) and
// the fee percentage.
func NewGenerator(rates RateAdjuster, opts ...Option) (*Generator, error) {
	if rates == nil {
		return nil, fmt.Errorf("rate adjuster is required: %w", model.ErrInvalidConfig)
	}
	g := &Generator{
		rates:      rates,
		tenures:    DefaultTenures(),
		feePercent: DefaultFeePercent,
		gate:       AllowAllTenures,
	}
	for _, opt := range opts {
		opt(g)
	}
	if len(g.tenures) == 0 {
		return nil, fmt.Errorf("tenure menu is empty: %w", model.ErrInvalidConfig)
	}
	seen := make(map[int]struct{}, len(g.tenures))
	for _, t := range g.tenures {
		if t <= 0 {
			return nil, fmt.Errorf("tenure %d must be positive: %w", t, model.ErrInvalidConfig)
		}
		if _, dup := seen[t]; dup {
			return nil, fmt.Errorf("tenure %d listed twice: %w", t, model.ErrInvalidConfig)
		}
		seen[t] = struct{}{}
	}
	if g.feePercent < 0 || math.IsNaN(g.feePercent) {
		return nil, fmt.Errorf("fee percent must be non-negative: %w", model.ErrInvalidConfig)
	}
	return g, nil
}

// Tenures returns a copy of the menu.
func (g *Generator) Tenures() []int {
	return append([]int(nil), g.tenures...)
}

// FeePercent returns the configured processing fee percentage.
func (g *Generator) FeePercent() float64 {
	return g.feePercent
}

// Generate builds candidates in menu order. Every candidate carries the
// requested amount, the band midpoint adjusted for the risk level, and the
// processing fee.
func (g *Generator) Generate(req model.LoanOfferRequest, assessment model.RiskAssessment) ([]model.BaseOffer, error) {
	if req.RequestedAmount <= 0 || math.IsNaN(req.RequestedAmount) {
		return nil, fmt.Errorf("requested amount must be positive: %w", model.ErrInvalidInput)
	}
	rate, err := g.rates.AdjustROI(assessment.ROIRange.Midpoint, assessment.RiskLevel)
	if err != nil {
		return nil, fmt.Errorf("base rate: %w", err)
	}
	amount := money.Round(req.RequestedAmount)
	fee := money.PercentOf(amount, g.feePercent)

	offers := make([]model.BaseOffer, 0, len(g.tenures))
	for _, tenure := range g.tenures {
		if !g.gate(req, assessment, tenure) {
			continue
		}
		offers = append(offers, model.BaseOffer{
			Amount:             amount,
			TenureMonths:       tenure,
			Rate:               rate,
			ProcessingFee:      fee,
			MonthlyInstallment: money.Installment(amount, rate, tenure),
		})
	}
	return offers, nil
}
