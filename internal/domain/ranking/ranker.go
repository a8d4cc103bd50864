// Package ranking scores optimized offers and orders them for presentation.
package ranking

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/loanoffer/internal/domain/model"
)

const (
	weightTolerance = 1e-4

	rateShare     = 0.7
	amountShare   = 0.3
	rateScale     = 100.0
	amountCeiling = 1_000_000.0
)

// Weights splits the ranking score between conversion, risk and value.
type Weights struct {
	Conversion float64 `koanf:"conversion"`
	Risk       float64 `koanf:"risk"`
	Value      float64 `koanf:"value"`
}

// DefaultWeights returns the standard ranking weights.
func DefaultWeights() Weights {
	return Weights{Conversion: 0.4, Risk: 0.3, Value: 0.3}
}

// Validate requires non-negative weights summing to 1 within 1e-4.
func (w Weights) Validate() error {
	for _, v := range []float64{w.Conversion, w.Risk, w.Value} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("ranking weights must be non-negative: %w", model.ErrInvalidConfig)
		}
	}
	if sum := w.Conversion + w.Risk + w.Value; math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("ranking weights sum to %.6f, want 1: %w", sum, model.ErrInvalidConfig)
	}
	return nil
}

// Ranker orders optimized offers by a weighted score.
type Ranker struct {
	weights Weights
}

// NewRanker validates w.
func NewRanker(w Weights) (*Ranker, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Ranker{weights: w}, nil
}

// Score is conversion*p + risk*(1-impact) + value*(0.7*rate/100 + 0.3*min(1, amount/1e6)),
// using the base offer's rate and amount.
func (r *Ranker) Score(o model.OptimizedOffer) float64 {
	value := rateShare*(o.BaseOffer.Rate/rateScale) +
		amountShare*math.Min(1, o.BaseOffer.Amount/amountCeiling)
	return r.weights.Conversion*o.ConversionProbability +
		r.weights.Risk*math.Max(0, 1-o.RiskImpact) +
		r.weights.Value*value
}

// Rank scores offers, sorts them by descending score and assigns ranks
// 1..N. Offers with equal scores keep their input order. The input slice is
// not modified.
func (r *Ranker) Rank(offers []model.OptimizedOffer) []model.RankedOffer {
	ranked := make([]model.RankedOffer, len(offers))
	for i, o := range offers {
		ranked[i] = model.RankedOffer{Offer: o, Score: r.Score(o)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}
