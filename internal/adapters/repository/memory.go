package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/loanoffer/internal/domain/model"
)

// MemoryStore is an in-process Store. Profiles are seeded at construction;
// offer records are kept in insertion order so the oldest can be evicted.
type MemoryStore struct {
	mu          sync.RWMutex
	profiles    map[string]*model.ApplicantProfile
	offers      map[string]model.OfferRecord
	byApplicant map[string][]string // applicant id -> request ids, oldest first
	order       []string
	maxOffers   int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store and applies opts.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		profiles:    make(map[string]*model.ApplicantProfile),
		offers:      make(map[string]model.OfferRecord),
		byApplicant: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetProfile returns a copy of the stored profile.
func (s *MemoryStore) GetProfile(ctx context.Context, applicantID string) (*model.ApplicantProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[applicantID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", applicantID, ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

// PutProfile inserts or replaces a profile.
func (s *MemoryStore) PutProfile(_ context.Context, p *model.ApplicantProfile) error {
	if p == nil || p.ApplicantID == "" {
		return fmt.Errorf("applicant_id is required: %w", ErrInvalidRecord)
	}
	cp := *p
	s.mu.Lock()
	s.profiles[p.ApplicantID] = &cp
	s.mu.Unlock()
	return nil
}

// SaveOffer stores rec.
func (s *MemoryStore) SaveOffer(ctx context.Context, rec model.OfferRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateRecord(rec); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.offers[rec.RequestID]; exists {
		return fmt.Errorf("offer %s: %w", rec.RequestID, ErrDuplicate)
	}
	if s.maxOffers > 0 && len(s.order) >= s.maxOffers {
		s.evictOldest()
	}
	s.offers[rec.RequestID] = rec
	s.order = append(s.order, rec.RequestID)
	s.byApplicant[rec.ApplicantID] = append(s.byApplicant[rec.ApplicantID], rec.RequestID)
	return nil
}

// evictOldest must be called with s.mu held.
func (s *MemoryStore) evictOldest() {
	if len(s.order) == 0 {
		return
	}
	id := s.order[0]
	s.order = s.order[1:]
	rec, ok := s.offers[id]
	if !ok {
		return
	}
	delete(s.offers, id)
	ids := s.byApplicant[rec.ApplicantID]
	for i, x := range ids {
		if x == id {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(s.byApplicant, rec.ApplicantID)
	} else {
		s.byApplicant[rec.ApplicantID] = ids
	}
}

// GetOffer returns the record for requestID.
func (s *MemoryStore) GetOffer(ctx context.Context, requestID string) (model.OfferRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.OfferRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.offers[requestID]
	if !ok {
		return model.OfferRecord{}, fmt.Errorf("offer %s: %w", requestID, ErrNotFound)
	}
	return rec, nil
}

// ListByApplicant returns up to limit records, newest first.
func (s *MemoryStore) ListByApplicant(ctx context.Context, applicantID string, limit int) ([]model.OfferRecord, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byApplicant[applicantID]
	out := make([]model.OfferRecord, 0, min(limit, len(ids)))
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.offers[ids[i]])
	}
	return out, nil
}

// Count returns the number of stored offer records.
func (s *MemoryStore) Count(context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.offers)
}
