package repository

import "github.com/okian/loanoffer/internal/domain/model"

// SampleProfiles returns a small fixed set of applicants spanning the risk
// spectrum. The in-memory backend is seeded with them when no database is
// configured.
func SampleProfiles() []*model.ApplicantProfile {
	return []*model.ApplicantProfile{
		{
			ApplicantID:            "app-prime",
			CreditScore:            model.Float64(810),
			MonthlyIncome:          model.Float64(250000),
			ExistingDebt:           model.Float64(15000),
			Age:                    model.Int(38),
			EmploymentStatus:       model.EmploymentPermanent,
			EmploymentTenureMonths: model.Int(96),
			City:                   model.CityTier1,
			Device:                 model.DeviceIOS,
		},
		{
			ApplicantID:            "app-standard",
			CreditScore:            model.Float64(720),
			MonthlyIncome:          model.Float64(85000),
			ExistingDebt:           model.Float64(25000),
			Age:                    model.Int(29),
			EmploymentStatus:       model.EmploymentPermanent,
			EmploymentTenureMonths: model.Int(30),
			City:                   model.CityTier2,
			Device:                 model.DeviceAndroid,
		},
		{
			ApplicantID:            "app-thin-file",
			CreditScore:            model.Float64(650),
			MonthlyIncome:          model.Float64(40000),
			Age:                    model.Int(23),
			EmploymentStatus:       model.EmploymentContract,
			EmploymentTenureMonths: model.Int(8),
			City:                   model.CityOther,
			Device:                 model.DeviceWeb,
		},
		{
			ApplicantID:            "app-stretched",
			CreditScore:            model.Float64(590),
			MonthlyIncome:          model.Float64(30000),
			ExistingDebt:           model.Float64(21000),
			Age:                    model.Int(52),
			EmploymentStatus:       model.EmploymentSelfEmployed,
			EmploymentTenureMonths: model.Int(14),
			City:                   model.CityTier2,
			Device:                 model.DeviceAndroid,
		},
		{
			ApplicantID: "app-unknown",
		},
	}
}
