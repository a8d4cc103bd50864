package behavior

import (
	"math"

	"github.com/okian/loanoffer/internal/domain/model"
)

const (
	incomeValueCeiling = 5_000_000.0
	valueFactorCount   = 3.0
	baselineValue      = 0.5
)

var employmentValue = map[model.EmploymentStatus]float64{
	model.EmploymentPermanent:    1.0,
	model.EmploymentContract:     0.8,
	model.EmploymentSelfEmployed: 0.7,
	model.EmploymentPartTime:     0.5,
}

const unrecognizedEmploymentValue = 0.3

var ageValueBands = []band{
	{25, 0.6},
	{35, 0.8},
	{50, 1.0},
}

const seniorAgeValue = 0.7

// LongTermValue averages income, employment and age value factors. Absent
// factors count as 0; a profile with none of them gets the 0.5 baseline.
func LongTermValue(p *model.ApplicantProfile) float64 {
	total := 0.0
	present := false

	if p.MonthlyIncome != nil {
		present = true
		if *p.MonthlyIncome > 0 {
			total += math.Min(*p.MonthlyIncome/incomeValueCeiling, 1)
		}
	}
	if p.EmploymentStatus != model.EmploymentUnspecified {
		present = true
		v, ok := employmentValue[p.EmploymentStatus]
		if !ok {
			v = unrecognizedEmploymentValue
		}
		total += v
	}
	if p.Age != nil {
		present = true
		total += below(float64(*p.Age), ageValueBands, seniorAgeValue)
	}

	if !present {
		return baselineValue
	}
	return model.Clamp(total/valueFactorCount, 0, 1)
}
