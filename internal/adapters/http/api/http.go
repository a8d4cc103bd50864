// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/loanoffer/internal/domain/model"
	"github.com/okian/loanoffer/internal/domain/types"
)

// maxBodyBytes bounds a POST /v1/offers body.
const maxBodyBytes = 64 << 10

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// GenerateOffers runs the pipeline. The bool reports a cache hit.
	GenerateOffers(ctx context.Context, req model.LoanOfferRequest) (model.LoanOfferResponse, bool, error)

	// GetOffer returns a previously generated response.
	GetOffer(ctx context.Context, requestID string) (model.LoanOfferResponse, error)

	// ListOffers returns an applicant's stored responses, newest first.
	ListOffers(ctx context.Context, applicantID string, limit int) ([]model.LoanOfferResponse, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	offersHandler *OffersHandler
}

// NewServer creates a new API server with all handlers. health may be nil,
// in which case /healthz always reports ok.
func NewServer(deps Dependencies, statsProvider StatsProvider, health HealthChecker) *Server {
	return &Server{
		healthHandler: NewHealthHandler(health),
		statsHandler:  NewStatsHandler(statsProvider),
		offersHandler: NewOffersHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", MetricsMiddleware(s.healthHandler.HandleMetrics, "metrics"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /v1/offers", MetricsMiddleware(s.offersHandler.HandlePostOffers, "offers"))
	mux.HandleFunc("GET /v1/offers/{requestId}", MetricsMiddleware(s.offersHandler.HandleGetOffer, "offer"))
	mux.HandleFunc("GET /v1/applicants/{applicantId}/offers", MetricsMiddleware(s.offersHandler.HandleListOffers, "applicant_offers"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, types.ErrorResponse{Code: code, Message: msg})
}

// writeDomainError translates pipeline and service errors to HTTP.
func writeDomainError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		// internal details stay in the logs
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, err)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge, "body_too_large"
	case errors.Is(err, model.ErrApplicantNotFound), errors.Is(err, model.ErrOfferNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, model.ErrDataUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
