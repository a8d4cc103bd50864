package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// BaseOffer is one candidate set of loan terms before optimization.
type BaseOffer struct {
	Amount             float64 `json:"amount"`
	TenureMonths       int     `json:"tenure_months"`
	Rate               float64 `json:"rate"`
	ProcessingFee      float64 `json:"processing_fee"`
	MonthlyInstallment float64 `json:"monthly_installment"`
}

// TermType names the loan term a matrix adjusts.
type TermType string

// Term types in the order matrices are applied.
const (
	TermRate   TermType = "RATE"
	TermFee    TermType = "FEE"
	TermTenure TermType = "TENURE"
	TermAmount TermType = "AMOUNT"
)

// TermTypes lists every term type in application order.
func TermTypes() []TermType {
	return []TermType{TermRate, TermFee, TermTenure, TermAmount}
}

// TermAdjustment is the result of running one term matrix.
type TermAdjustment struct {
	TermType      TermType `json:"term_type"`
	BaseValue     float64  `json:"base_value"`
	AdjustedValue float64  `json:"adjusted_value"`
	Impact        float64  `json:"impact"`
}

// Delta is AdjustedValue - BaseValue.
func (a TermAdjustment) Delta() float64 {
	return a.AdjustedValue - a.BaseValue
}

// OptimizedOffer is a BaseOffer with the accepted term adjustments applied.
// Terms whose adjustment failed validation keep the base offer's value.
type OptimizedOffer struct {
	BaseOffer             BaseOffer        `json:"base_offer"`
	AdjustedRate          float64          `json:"adjusted_rate"`
	AdjustedFee           float64          `json:"adjusted_fee"`
	AdjustedTenureMonths  int              `json:"adjusted_tenure_months"`
	AdjustedAmount        float64          `json:"adjusted_amount"`
	AdjustedInstallment   float64          `json:"adjusted_installment"`
	Adjustments           []TermAdjustment `json:"adjustments"`
	RiskImpact            float64          `json:"risk_impact"`
	ConversionProbability float64          `json:"conversion_probability"`
}

// Adjustment returns the accepted adjustment for t, if any.
func (o OptimizedOffer) Adjustment(t TermType) (TermAdjustment, bool) {
	for _, a := range o.Adjustments {
		if a.TermType == t {
			return a, true
		}
	}
	return TermAdjustment{}, false
}

// RankedOffer is an OptimizedOffer with its ranking score and position.
type RankedOffer struct {
	Offer OptimizedOffer `json:"offer"`
	Score float64        `json:"score"`
	Rank  int            `json:"rank"`
}

// LoanOfferRequest is the single entry point's input.
type LoanOfferRequest struct {
	ApplicantID           string  `json:"applicant_id"`
	RequestedAmount       float64 `json:"requested_amount"`
	PreferredTenureMonths int     `json:"preferred_tenure_months"`
	Purpose               string  `json:"purpose"`
	Source                string  `json:"source"`
}

// Validate checks that every field is present and sane.
func (r LoanOfferRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.ApplicantID) == "":
		return fmt.Errorf("applicant_id is required: %w", ErrInvalidInput)
	case math.IsNaN(r.RequestedAmount) || math.IsInf(r.RequestedAmount, 0) || r.RequestedAmount <= 0:
		return fmt.Errorf("requested_amount must be positive: %w", ErrInvalidInput)
	case r.PreferredTenureMonths <= 0:
		return fmt.Errorf("preferred_tenure_months must be positive: %w", ErrInvalidInput)
	case strings.TrimSpace(r.Purpose) == "":
		return fmt.Errorf("purpose is required: %w", ErrInvalidInput)
	case strings.TrimSpace(r.Source) == "":
		return fmt.Errorf("source is required: %w", ErrInvalidInput)
	}
	return nil
}

// LoanOfferResponse is the pipeline's result.
type LoanOfferResponse struct {
	RequestID            string        `json:"request_id"`
	ApplicantID          string        `json:"applicant_id"`
	Offers               []RankedOffer `json:"offers"`
	GenerationDurationMs int64         `json:"generation_duration_ms"`
	GeneratedAt          time.Time     `json:"generated_at"`
}

// OfferRecord is what gets persisted for every generated response.
type OfferRecord struct {
	RequestID   string           `json:"request_id"`
	ApplicantID string           `json:"applicant_id"`
	Request     LoanOfferRequest `json:"request"`
	RiskScore   float64          `json:"risk_score"`
	RiskLevel   RiskLevel        `json:"risk_level"`
	Offers      []RankedOffer    `json:"offers"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NewOfferRecord builds the persisted form of a response.
func NewOfferRecord(req LoanOfferRequest, risk RiskAssessment, resp LoanOfferResponse) OfferRecord {
	offers := make([]RankedOffer, len(resp.Offers))
	copy(offers, resp.Offers)
	return OfferRecord{
		RequestID:   resp.RequestID,
		ApplicantID: req.ApplicantID,
		Request:     req,
		RiskScore:   risk.RiskScore,
		RiskLevel:   risk.RiskLevel,
		Offers:      offers,
		CreatedAt:   resp.GeneratedAt,
	}
}
