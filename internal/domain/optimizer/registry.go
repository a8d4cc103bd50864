package optimizer

import (
	"fmt"

	"github.com/okian/loanoffer/internal/domain/model"
)

// Registry holds exactly one matrix per term type.
type Registry struct {
	matrices map[model.TermType]Matrix
}

// NewRegistry requires every term type to be covered exactly once.
func NewRegistry(matrices ...Matrix) (*Registry, error) {
	r := &Registry{matrices: make(map[model.TermType]Matrix, len(matrices))}
	for _, m := range matrices {
		if m == nil {
			return nil, fmt.Errorf("nil matrix: %w", model.ErrInvalidConfig)
		}
		if _, dup := r.matrices[m.Type()]; dup {
			return nil, fmt.Errorf("duplicate %s matrix: %w", m.Type(), model.ErrInvalidConfig)
		}
		r.matrices[m.Type()] = m
	}
	for _, t := range model.TermTypes() {
		if _, ok := r.matrices[t]; !ok {
			return nil, fmt.Errorf("missing %s matrix: %w", t, model.ErrInvalidConfig)
		}
	}
	return r, nil
}

// Get returns the matrix for t.
func (r *Registry) Get(t model.TermType) (Matrix, bool) {
	m, ok := r.matrices[t]
	return m, ok
}

// MatrixSpec describes one matrix in configuration terms.
type MatrixSpec struct {
	Base    float64   `koanf:"base"`
	Min     float64   `koanf:"min"`
	Max     float64   `koanf:"max"`
	Range   float64   `koanf:"range"`
	Options []float64 `koanf:"options"`
}

// Specs groups the four matrix descriptions.
type Specs struct {
	Rate   MatrixSpec `koanf:"rate"`
	Fee    MatrixSpec `koanf:"fee"`
	Tenure MatrixSpec `koanf:"tenure"`
	Amount MatrixSpec `koanf:"amount"`
}

// DefaultSpecs returns the standard matrix settings. Rate and fee are in
// percent, tenure in months, amount in currency units.
func DefaultSpecs() Specs {
	return Specs{
		Rate: MatrixSpec{Base: 12, Min: 8, Max: 24, Range: 2},
		Fee:  MatrixSpec{Base: 2, Min: 0.5, Max: 3, Range: 0.5},
		Tenure: MatrixSpec{
			Base: 12, Min: 3, Max: 36, Range: 6,
			Options: []float64{3, 6, 9, 12, 18, 24, 36},
		},
		Amount: MatrixSpec{
			Base: 500000, Min: 50000, Max: 2000000, Range: 250000,
			Options: []float64{50000, 100000, 250000, 500000, 750000, 1000000, 1500000, 2000000},
		},
	}
}

// Build validates every spec and assembles the registry.
func (s Specs) Build() (*Registry, error) {
	rate, err := s.Rate.constraints(model.TermRate)
	if err != nil {
		return nil, err
	}
	fee, err := s.Fee.constraints(model.TermFee)
	if err != nil {
		return nil, err
	}
	tc, err := s.Tenure.constraints(model.TermTenure)
	if err != nil {
		return nil, err
	}
	tenure, err := NewTenureMatrix(tc, s.Tenure.Options)
	if err != nil {
		return nil, err
	}
	ac, err := s.Amount.constraints(model.TermAmount)
	if err != nil {
		return nil, err
	}
	amount, err := NewAmountMatrix(ac, s.Amount.Options)
	if err != nil {
		return nil, err
	}
	return NewRegistry(NewRateMatrix(rate), NewFeeMatrix(fee), tenure, amount)
}

func (m MatrixSpec) constraints(t model.TermType) (TermConstraints, error) {
	c, err := NewTermConstraints(m.Min, m.Max, m.Base, m.Range)
	if err != nil {
		return TermConstraints{}, fmt.Errorf("%s matrix: %w", t, err)
	}
	return c, nil
}
