// Package repository stores applicant profiles and generated offer records.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/loanoffer/internal/domain/model"
)

// ProfileStore reads applicant profiles.
type ProfileStore interface {
	// GetProfile returns ErrNotFound if the applicant is unknown.
	GetProfile(ctx context.Context, applicantID string) (*model.ApplicantProfile, error)
}

// OfferStore keeps every generated offer response.
type OfferStore interface {
	// SaveOffer returns ErrDuplicate if the request id was already stored.
	SaveOffer(ctx context.Context, rec model.OfferRecord) error

	// GetOffer returns ErrNotFound if the request id is unknown.
	GetOffer(ctx context.Context, requestID string) (model.OfferRecord, error)

	// ListByApplicant returns up to limit records, newest first.
	ListByApplicant(ctx context.Context, applicantID string, limit int) ([]model.OfferRecord, error)
}

// Store is a full repository backend.
type Store interface {
	ProfileStore
	OfferStore

	// Count returns the number of stored offer records.
	Count(ctx context.Context) int
}

// ProfileFetcher adapts a ProfileStore to the pipeline's fetch contract,
// translating ErrNotFound into model.ErrApplicantNotFound.
type ProfileFetcher struct {
	store ProfileStore
}

// NewProfileFetcher wraps s.
func NewProfileFetcher(s ProfileStore) *ProfileFetcher {
	return &ProfileFetcher{store: s}
}

// FetchApplicantProfile loads one applicant.
func (f *ProfileFetcher) FetchApplicantProfile(ctx context.Context, applicantID string) (*model.ApplicantProfile, error) {
	p, err := f.store.GetProfile(ctx, applicantID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("applicant %s: %w", applicantID, model.ErrApplicantNotFound)
	}
	return p, err
}

func validateRecord(rec model.OfferRecord) error {
	if rec.RequestID == "" || rec.ApplicantID == "" {
		return fmt.Errorf("request_id and applicant_id are required: %w", ErrInvalidRecord)
	}
	return nil
}
