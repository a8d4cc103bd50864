// Package model contains the value types passed between the offer pipeline stages.
package model

import "strings"

// ApplicantProfile holds the facts known about an applicant. Every field is
// optional: nil pointers and empty enums mean "not provided" and each scorer
// substitutes its own default for them.
type ApplicantProfile struct {
	ApplicantID            string           `json:"applicant_id"`
	CreditScore            *float64         `json:"credit_score,omitempty"`
	MonthlyIncome          *float64         `json:"monthly_income,omitempty"`
	ExistingDebt           *float64         `json:"existing_debt,omitempty"`
	Age                    *int             `json:"age,omitempty"`
	EmploymentStatus       EmploymentStatus `json:"employment_status,omitempty"`
	EmploymentTenureMonths *int             `json:"employment_tenure_months,omitempty"`
	City                   CityTier         `json:"city_tier,omitempty"`
	Device                 DeviceType       `json:"device_type,omitempty"`
}

// DebtToIncome returns existingDebt/monthlyIncome. ok is false when income is
// absent or not positive. Missing debt with a known income counts as zero debt.
func (p *ApplicantProfile) DebtToIncome() (ratio float64, ok bool) {
	if p.MonthlyIncome == nil || *p.MonthlyIncome <= 0 {
		return 0, false
	}
	debt := 0.0
	if p.ExistingDebt != nil {
		debt = *p.ExistingDebt
	}
	return debt / *p.MonthlyIncome, true
}

// Float64 returns a pointer to v; handy for building profiles.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// EmploymentStatus is the closed set of employment categories.
type EmploymentStatus string

// Employment statuses. EmploymentUnspecified means the field was absent;
// EmploymentOther means a value was given but is not one we recognise.
const (
	EmploymentUnspecified  EmploymentStatus = ""
	EmploymentPermanent    EmploymentStatus = "PERMANENT"
	EmploymentContract     EmploymentStatus = "CONTRACT"
	EmploymentSelfEmployed EmploymentStatus = "SELF_EMPLOYED"
	EmploymentPartTime     EmploymentStatus = "PART_TIME"
	EmploymentOther        EmploymentStatus = "OTHER"
)

var employmentAliases = map[string]EmploymentStatus{
	"permanent":     EmploymentPermanent,
	"full_time":     EmploymentPermanent,
	"salaried":      EmploymentPermanent,
	"contract":      EmploymentContract,
	"contractual":   EmploymentContract,
	"self_employed": EmploymentSelfEmployed,
	"selfemployed":  EmploymentSelfEmployed,
	"business":      EmploymentSelfEmployed,
	"part_time":     EmploymentPartTime,
	"parttime":      EmploymentPartTime,
	"other":         EmploymentOther,
}

// ParseEmploymentStatus maps free text onto the closed set. Case, spaces and
// hyphens are ignored; empty input is EmploymentUnspecified and anything
// unrecognised is EmploymentOther.
func ParseEmploymentStatus(s string) EmploymentStatus {
	key := normalize(s)
	if key == "" {
		return EmploymentUnspecified
	}
	if st, ok := employmentAliases[key]; ok {
		return st
	}
	return EmploymentOther
}

// CityTier groups cities by market tier.
type CityTier string

// City tiers. CityUnknown means no city was provided.
const (
	CityUnknown CityTier = ""
	CityTier1   CityTier = "TIER_1"
	CityTier2   CityTier = "TIER_2"
	CityOther   CityTier = "OTHER"
)

var cityTiers = map[string]CityTier{
	"mumbai":    CityTier1,
	"delhi":     CityTier1,
	"bangalore": CityTier1,
	"hyderabad": CityTier1,
	"chennai":   CityTier1,
	"pune":      CityTier2,
	"ahmedabad": CityTier2,
	"kolkata":   CityTier2,
	"jaipur":    CityTier2,
	"lucknow":   CityTier2,
}

// ParseCity returns the tier of a city name. Unlisted cities are CityOther.
func ParseCity(name string) CityTier {
	key := normalize(name)
	if key == "" {
		return CityUnknown
	}
	if tier, ok := cityTiers[key]; ok {
		return tier
	}
	return CityOther
}

// DeviceType is the closed set of client device categories.
type DeviceType string

// Device types. DeviceUnknown means the field was absent.
const (
	DeviceUnknown DeviceType = ""
	DeviceIOS     DeviceType = "IOS"
	DeviceAndroid DeviceType = "ANDROID"
	DeviceWeb     DeviceType = "WEB"
	DeviceOther   DeviceType = "OTHER"
)

var deviceAliases = map[string]DeviceType{
	"ios":     DeviceIOS,
	"iphone":  DeviceIOS,
	"ipad":    DeviceIOS,
	"android": DeviceAndroid,
	"web":     DeviceWeb,
	"desktop": DeviceWeb,
	"browser": DeviceWeb,
}

// ParseDeviceType maps free text onto the closed set. Generic values such as
// "mobile" are DeviceOther.
func ParseDeviceType(s string) DeviceType {
	key := normalize(s)
	if key == "" {
		return DeviceUnknown
	}
	if d, ok := deviceAliases[key]; ok {
		return d
	}
	return DeviceOther
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ReplaceAll(s, " ", "_")
}
