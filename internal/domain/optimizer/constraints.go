// Package optimizer adjusts loan terms within bounded ranges using an
// applicant's behavior profile. Each term is handled by its own matrix.
package optimizer

import (
	"fmt"
	"math"

	"github.com/okian/loanoffer/internal/domain/model"
)

// TermConstraints bounds the adjustment of one term.
type TermConstraints struct {
	Min             float64
	Max             float64
	Base            float64
	AdjustmentRange float64
}

// NewTermConstraints requires min <= base <= max, a non-negative range, and
// base ± range to stay within [min, max].
func NewTermConstraints(minV, maxV, base, rng float64) (TermConstraints, error) {
	for _, v := range []float64{minV, maxV, base, rng} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return TermConstraints{}, fmt.Errorf("term constraints must be finite: %w", model.ErrInvalidConfig)
		}
	}
	switch {
	case minV > maxV:
		return TermConstraints{}, fmt.Errorf("min %v above max %v: %w", minV, maxV, model.ErrInvalidConfig)
	case base < minV || base > maxV:
		return TermConstraints{}, fmt.Errorf("base %v outside [%v, %v]: %w", base, minV, maxV, model.ErrInvalidConfig)
	case rng < 0:
		return TermConstraints{}, fmt.Errorf("adjustment range %v is negative: %w", rng, model.ErrInvalidConfig)
	case base-rng < minV:
		return TermConstraints{}, fmt.Errorf("base-range %v below min %v: %w", base-rng, minV, model.ErrInvalidConfig)
	case base+rng > maxV:
		return TermConstraints{}, fmt.Errorf("base+range %v above max %v: %w", base+rng, maxV, model.ErrInvalidConfig)
	}
	return TermConstraints{Min: minV, Max: maxV, Base: base, AdjustmentRange: rng}, nil
}

// Contains reports whether v lies in [Min, Max].
func (c TermConstraints) Contains(v float64) bool {
	return v >= c.Min && v <= c.Max
}
