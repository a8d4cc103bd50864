// Package cache stores generated offer responses for a bounded time.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/loanoffer/internal/domain/model"
)

// Sentinel kinds for cache errors.
var (
	ErrMiss        = errors.New("cache miss")
	ErrInvalidKey  = errors.New("invalid cache key")
	ErrUnavailable = errors.New("cache unavailable")
	ErrCorrupt     = errors.New("corrupt cache entry")
)

// Backend names used in metrics.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Cache keeps offer responses by key. A ttl of zero or less means the entry
// does not expire on its own.
type Cache interface {
	// Get returns ErrMiss when key is absent or expired and ErrCorrupt when
	// the stored value cannot be decoded.
	Get(ctx context.Context, key string) (model.LoanOfferResponse, error)
	Set(ctx context.Context, key string, resp model.LoanOfferResponse, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RequestKey is the key a response is stored under by request id.
func RequestKey(requestID string) string {
	return "offers:request:" + requestID
}

// ApplicantKey is the key for the most recent response to an equivalent
// request: same applicant, amount and preferred tenure.
func ApplicantKey(req model.LoanOfferRequest) string {
	return fmt.Sprintf("offers:applicant:%s:%s:%d",
		req.ApplicantID,
		strconv.FormatFloat(req.RequestedAmount, 'f', 2, 64),
		req.PreferredTenureMonths)
}

func checkKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	return nil
}

// clone deep-copies the slices of resp so cached values never alias caller
// state.
func clone(resp model.LoanOfferResponse) model.LoanOfferResponse {
	if resp.Offers == nil {
		return resp
	}
	offers := make([]model.RankedOffer, len(resp.Offers))
	for i, o := range resp.Offers {
		if o.Offer.Adjustments != nil {
			o.Offer.Adjustments = append([]model.TermAdjustment(nil), o.Offer.Adjustments...)
		}
		offers[i] = o
	}
	resp.Offers = offers
	return resp
}
