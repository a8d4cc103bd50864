package repository

import "github.com/okian/loanoffer/internal/domain/model"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithProfiles seeds the store with applicant profiles.
func WithProfiles(profiles ...*model.ApplicantProfile) Option {
	return func(s *MemoryStore) {
		for _, p := range profiles {
			if p == nil || p.ApplicantID == "" {
				continue
			}
			cp := *p
			s.profiles[p.ApplicantID] = &cp
		}
	}
}

// WithMaxOffers bounds how many offer records are retained. The oldest
// record is evicted first. Zero or negative means unbounded.
func WithMaxOffers(n int) Option {
	return func(s *MemoryStore) {
		s.maxOffers = n
	}
}
