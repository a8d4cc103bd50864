package optimizer

import (
	"fmt"
	"math"

	"github.com/okian/loanoffer/internal/domain/model"
)

const (
	longTermValueScale = 1_000_000.0
	rangeTolerance     = 1e-9
)

// Matrix bounds and adjusts a single loan term.
type Matrix interface {
	Type() model.TermType
	Constraints() TermConstraints
	// Adjustment proposes a new value for the term from the behavior profile.
	Adjustment(bp model.BehaviorProfile) model.TermAdjustment
	// Validate reports whether adj may be applied. A false result means the
	// term keeps its base value.
	Validate(adj model.TermAdjustment) bool
}

// rawAdjustment is -sensitivity * range * confidence * m, where m dampens the
// move: (1 - conversion) for the rate, (1 - value factor) for other terms.
func rawAdjustment(t model.TermType, c TermConstraints, bp model.BehaviorProfile) float64 {
	damping := 1 - math.Min(1, bp.LongTermValue/longTermValueScale)
	if t == model.TermRate {
		damping = 1 - bp.ConversionProbability
	}
	ps := bp.PriceSensitivity
	return -ps.Sensitivity * c.AdjustmentRange * ps.Confidence * damping
}

func impact(adj float64, c TermConstraints) float64 {
	if c.AdjustmentRange == 0 {
		return 0
	}
	return model.Clamp(math.Abs(adj)/c.AdjustmentRange, 0, 1)
}

func withinRange(adj model.TermAdjustment, c TermConstraints) bool {
	return c.Contains(adj.AdjustedValue) &&
		math.Abs(adj.AdjustedValue-c.Base) <= c.AdjustmentRange+rangeTolerance
}

// continuousMatrix clamps base+adjustment to the bounds.
type continuousMatrix struct {
	termType    model.TermType
	constraints TermConstraints
}

// NewRateMatrix builds the interest-rate matrix (percent).
func NewRateMatrix(c TermConstraints) Matrix {
	return &continuousMatrix{termType: model.TermRate, constraints: c}
}

// NewFeeMatrix builds the processing-fee matrix (percent of amount).
func NewFeeMatrix(c TermConstraints) Matrix {
	return &continuousMatrix{termType: model.TermFee, constraints: c}
}

func (m *continuousMatrix) Type() model.TermType          { return m.termType }
func (m *continuousMatrix) Constraints() TermConstraints { return m.constraints }

func (m *continuousMatrix) Adjustment(bp model.BehaviorProfile) model.TermAdjustment {
	c := m.constraints
	adj := rawAdjustment(m.termType, c, bp)
	return model.TermAdjustment{
		TermType:      m.termType,
		BaseValue:     c.Base,
		AdjustedValue: model.Clamp(c.Base+adj, c.Min, c.Max),
		Impact:        impact(adj, c),
	}
}

func (m *continuousMatrix) Validate(adj model.TermAdjustment) bool {
	return adj.TermType == m.termType &&
		adj.BaseValue == m.constraints.Base &&
		withinRange(adj, m.constraints)
}

// discreteMatrix snaps base+adjustment to the nearest configured option.
type discreteMatrix struct {
	termType    model.TermType
	constraints TermConstraints
	options     []float64
}

// NewTenureMatrix builds the tenure matrix over the given month options.
func NewTenureMatrix(c TermConstraints, options []float64) (Matrix, error) {
	return newDiscreteMatrix(model.TermTenure, c, options)
}

// NewAmountMatrix builds the loan-amount matrix over the given amounts.
func NewAmountMatrix(c TermConstraints, options []float64) (Matrix, error) {
	return newDiscreteMatrix(model.TermAmount, c, options)
}

func newDiscreteMatrix(t model.TermType, c TermConstraints, options []float64) (Matrix, error) {
	if len(options) == 0 {
		return nil, fmt.Errorf("%s matrix needs at least one option: %w", t, model.ErrInvalidConfig)
	}
	hasBase := false
	for _, o := range options {
		if !c.Contains(o) {
			return nil, fmt.Errorf("%s option %v outside [%v, %v]: %w", t, o, c.Min, c.Max, model.ErrInvalidConfig)
		}
		if o == c.Base {
			hasBase = true
		}
	}
	if !hasBase {
		return nil, fmt.Errorf("%s base %v is not an option: %w", t, c.Base, model.ErrInvalidConfig)
	}
	return &discreteMatrix{termType: t, constraints: c, options: append([]float64(nil), options...)}, nil
}

func (m *discreteMatrix) Type() model.TermType          { return m.termType }
func (m *discreteMatrix) Constraints() TermConstraints { return m.constraints }

func (m *discreteMatrix) Adjustment(bp model.BehaviorProfile) model.TermAdjustment {
	c := m.constraints
	adj := rawAdjustment(m.termType, c, bp)
	return model.TermAdjustment{
		TermType:      m.termType,
		BaseValue:     c.Base,
		AdjustedValue: m.nearest(c.Base + adj),
		Impact:        impact(adj, c),
	}
}

// nearest returns the option closest to target. On a tie the option listed
// first wins.
func (m *discreteMatrix) nearest(target float64) float64 {
	best := m.options[0]
	bestDist := math.Abs(best - target)
	for _, o := range m.options[1:] {
		if d := math.Abs(o - target); d < bestDist {
			best, bestDist = o, d
		}
	}
	return best
}

func (m *discreteMatrix) Validate(adj model.TermAdjustment) bool {
	if adj.TermType != m.termType || adj.BaseValue != m.constraints.Base || !withinRange(adj, m.constraints) {
		return false
	}
	for _, o := range m.options {
		if o == adj.AdjustedValue {
			return true
		}
	}
	return false
}
