package behavior

import "github.com/okian/loanoffer/internal/domain/model"

const (
	baseConversion        = 0.5
	sensitivityConversion = 0.2

	DefaultMinConversion = 0.1
	DefaultMaxConversion = 0.95
)

var cityAdjustments = map[model.CityTier]float64{
	model.CityTier1: 0.1,
	model.CityTier2: 0.05,
	model.CityOther: -0.05,
}

var deviceAdjustments = map[model.DeviceType]float64{
	model.DeviceIOS:     0.1,
	model.DeviceAndroid: 0.05,
}

// Conversion estimates the probability that the applicant takes an offer,
// clamped to [minP, maxP].
func Conversion(p *model.ApplicantProfile, s model.PriceSensitivity, minP, maxP float64) float64 {
	prob := baseConversion + (1-s.Sensitivity)*sensitivityConversion
	prob += cityAdjustments[p.City]
	prob += deviceAdjustments[p.Device]
	return model.Clamp(prob, minP, maxP)
}
