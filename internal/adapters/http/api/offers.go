package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/loanoffer/internal/domain/types"
)

// cacheHeader reports whether a response came from the response cache.
const cacheHeader = "X-Cache"

// History page size bounds for GET /v1/applicants/{applicantId}/offers.
const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// OffersHandler serves the offer endpoints.
type OffersHandler struct {
	deps Dependencies
}

// NewOffersHandler creates a new offers handler.
func NewOffersHandler(deps Dependencies) *OffersHandler {
	return &OffersHandler{deps: deps}
}

// HandlePostOffers handles POST /v1/offers requests.
func (h *OffersHandler) HandlePostOffers(w http.ResponseWriter, r *http.Request) {
	req, err := decodeOfferRequest(w, r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp, hit, err := h.deps.GenerateOffers(r.Context(), req.ToModel())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if hit {
		w.Header().Set(cacheHeader, "hit")
	} else {
		w.Header().Set(cacheHeader, "miss")
	}
	writeJSON(w, http.StatusOK, types.NewOfferResponse(resp))
}

// HandleGetOffer handles GET /v1/offers/{requestId} requests.
func (h *OffersHandler) HandleGetOffer(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("requestId"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", ErrBadRequest)
		return
	}
	resp, err := h.deps.GetOffer(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewOfferResponse(resp))
}

// HandleListOffers handles GET /v1/applicants/{applicantId}/offers requests.
func (h *OffersHandler) HandleListOffers(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("applicantId"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", ErrBadRequest)
		return
	}
	limit, err := historyLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resps, err := h.deps.ListOffers(r.Context(), id, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewOfferHistoryResponse(id, resps))
}

func historyLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxHistoryLimit {
		return 0, fmt.Errorf("%w: limit must be between 1 and %d", ErrBadRequest, maxHistoryLimit)
	}
	return n, nil
}

func decodeOfferRequest(w http.ResponseWriter, r *http.Request) (types.OfferRequest, error) {
	var req types.OfferRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, tooLarge.Limit)
		}
		return req, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return req, fmt.Errorf("%w: trailing data after JSON body", ErrBadRequest)
	}
	return req, nil
}
