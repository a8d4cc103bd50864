// Package types contains the wire shapes shared by the HTTP API and its
// clients.
package types

import (
	"time"

	"github.com/okian/loanoffer/internal/domain/model"
)

// OfferRequest is the body of POST /v1/offers.
type OfferRequest struct {
	ApplicantID           string  `json:"applicant_id"`
	RequestedAmount       float64 `json:"requested_amount"`
	PreferredTenureMonths int     `json:"preferred_tenure_months"`
	Purpose               string  `json:"purpose"`
	Source                string  `json:"source"`
}

// ToModel converts the body to the pipeline's request.
func (r OfferRequest) ToModel() model.LoanOfferRequest {
	return model.LoanOfferRequest{
		ApplicantID:           r.ApplicantID,
		RequestedAmount:       r.RequestedAmount,
		PreferredTenureMonths: r.PreferredTenureMonths,
		Purpose:               r.Purpose,
		Source:                r.Source,
	}
}

// Adjustment is one accepted term change.
type Adjustment struct {
	Term   string  `json:"term"`
	From   float64 `json:"from"`
	To     float64 `json:"to"`
	Impact float64 `json:"impact"`
}

// Offer is one ranked offer as returned to callers. Final terms are the
// optimized ones; Base* fields hold the candidate they came from.
type Offer struct {
	Rank                  int          `json:"rank"`
	Score                 float64      `json:"score"`
	Amount                float64      `json:"amount"`
	TenureMonths          int          `json:"tenure_months"`
	Rate                  float64      `json:"rate"`
	ProcessingFee         float64      `json:"processing_fee"`
	MonthlyInstallment    float64      `json:"monthly_installment"`
	ConversionProbability float64      `json:"conversion_probability"`
	RiskImpact            float64      `json:"risk_impact"`
	BaseAmount            float64      `json:"base_amount"`
	BaseTenureMonths      int          `json:"base_tenure_months"`
	BaseRate              float64      `json:"base_rate"`
	Adjustments           []Adjustment `json:"adjustments"`
}

// OfferResponse is the body returned by both offer endpoints.
type OfferResponse struct {
	RequestID            string    `json:"request_id"`
	ApplicantID          string    `json:"applicant_id"`
	Offers               []Offer   `json:"offers"`
	GenerationDurationMs int64     `json:"generation_duration_ms"`
	GeneratedAt          time.Time `json:"generated_at"`
}

// NewOfferResponse flattens a pipeline response for the wire.
func NewOfferResponse(resp model.LoanOfferResponse) OfferResponse {
	out := OfferResponse{
		RequestID:            resp.RequestID,
		ApplicantID:          resp.ApplicantID,
		Offers:               make([]Offer, 0, len(resp.Offers)),
		GenerationDurationMs: resp.GenerationDurationMs,
		GeneratedAt:          resp.GeneratedAt,
	}
	for _, ro := range resp.Offers {
		o := ro.Offer
		adj := make([]Adjustment, 0, len(o.Adjustments))
		for _, a := range o.Adjustments {
			adj = append(adj, Adjustment{
				Term:   string(a.TermType),
				From:   a.BaseValue,
				To:     a.AdjustedValue,
				Impact: a.Impact,
			})
		}
		out.Offers = append(out.Offers, Offer{
			Rank:                  ro.Rank,
			Score:                 ro.Score,
			Amount:                o.AdjustedAmount,
			TenureMonths:          o.AdjustedTenureMonths,
			Rate:                  o.AdjustedRate,
			ProcessingFee:         o.AdjustedFee,
			MonthlyInstallment:    o.AdjustedInstallment,
			ConversionProbability: o.ConversionProbability,
			RiskImpact:            o.RiskImpact,
			BaseAmount:            o.BaseOffer.Amount,
			BaseTenureMonths:      o.BaseOffer.TenureMonths,
			BaseRate:              o.BaseOffer.Rate,
			Adjustments:           adj,
		})
	}
	return out
}

// OfferHistoryResponse is the body of GET /v1/applicants/{applicantId}/offers.
type OfferHistoryResponse struct {
	ApplicantID string          `json:"applicant_id"`
	Responses   []OfferResponse `json:"responses"`
}

// NewOfferHistoryResponse flattens stored responses, keeping their order.
func NewOfferHistoryResponse(applicantID string, resps []model.LoanOfferResponse) OfferHistoryResponse {
	out := OfferHistoryResponse{
		ApplicantID: applicantID,
		Responses:   make([]OfferResponse, 0, len(resps)),
	}
	for _, r := range resps {
		out.Responses = append(out.Responses, NewOfferResponse(r))
	}
	return out
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
