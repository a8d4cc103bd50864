package behavior

import "github.com/okian/loanoffer/internal/domain/model"

const (
	incomeWeight = 0.4
	dtiWeight    = 0.4
	ageWeight    = 0.2

	defaultFactor = 0.5

	confidenceWeightIncome     = 1.0
	confidenceWeightDebt       = 1.0
	confidenceWeightAge        = 1.0
	confidenceWeightEmployment = 0.8
	confidenceInputs           = 4.0
)

// band maps values strictly above floor to factor. Bands are checked in order.
type band struct {
	floor  float64
	factor float64
}

var incomeBands = []band{
	{200000, 0.2},
	{100000, 0.4},
	{50000, 0.6},
	{25000, 0.8},
}

const lowestIncomeFactor = 1.0

var dtiBands = []band{
	{0.5, 1.0},
	{0.3, 0.8},
	{0.2, 0.6},
	{0.1, 0.4},
}

const lowestDTIFactor = 0.2

// ageBands maps ages strictly below ceiling to factor.
var ageBands = []band{
	{25, 0.8},
	{35, 0.6},
	{45, 0.5},
	{55, 0.4},
}

const oldestAgeFactor = 0.3

func above(v float64, bands []band, fallback float64) float64 {
	for _, b := range bands {
		if v > b.floor {
			return b.factor
		}
	}
	return fallback
}

func below(v float64, bands []band, fallback float64) float64 {
	for _, b := range bands {
		if v < b.floor {
			return b.factor
		}
	}
	return fallback
}

// Sensitivity computes price sensitivity and the confidence in it.
// Lower income, higher debt load and youth all raise sensitivity.
func Sensitivity(p *model.ApplicantProfile) model.PriceSensitivity {
	income := defaultFactor
	if p.MonthlyIncome != nil {
		income = above(*p.MonthlyIncome, incomeBands, lowestIncomeFactor)
	}

	dti := defaultFactor
	if p.ExistingDebt != nil {
		if ratio, ok := p.DebtToIncome(); ok {
			dti = above(ratio, dtiBands, lowestDTIFactor)
		}
	}

	age := defaultFactor
	if p.Age != nil {
		age = below(float64(*p.Age), ageBands, oldestAgeFactor)
	}

	return model.PriceSensitivity{
		Sensitivity: model.Clamp(incomeWeight*income+dtiWeight*dti+ageWeight*age, 0, 1),
		Confidence:  model.Clamp(confidence(p), 0, 1),
	}
}

func confidence(p *model.ApplicantProfile) float64 {
	present := 0.0
	if p.MonthlyIncome != nil {
		present += confidenceWeightIncome
	}
	if p.ExistingDebt != nil {
		present += confidenceWeightDebt
	}
	if p.Age != nil {
		present += confidenceWeightAge
	}
	if p.EmploymentStatus != model.EmploymentUnspecified {
		present += confidenceWeightEmployment
	}
	return present / confidenceInputs
}
