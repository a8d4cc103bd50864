package behavior_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/okian/loanoffer/internal/domain/behavior"
	"github.com/okian/loanoffer/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func strongProfile() *model.ApplicantProfile {
	return &model.ApplicantProfile{
		CreditScore:            model.Float64(800),
		MonthlyIncome:          model.Float64(300000),
		ExistingDebt:           model.Float64(30000),
		Age:                    model.Int(32),
		EmploymentStatus:       model.ParseEmploymentStatus("permanent"),
		EmploymentTenureMonths: model.Int(48),
		City:                   model.ParseCity("mumbai"),
		Device:                 model.ParseDeviceType("mobile"),
	}
}

func TestScorerConstruction(t *testing.T) {
	Convey("Given conversion bounds", t, func() {
		Convey("When they are valid probabilities", func() {
			s, err := behavior.NewScorer(behavior.WithConversionBounds(0.2, 0.8))
			So(err, ShouldBeNil)
			So(s, ShouldNotBeNil)
		})

		Convey("When they fall outside [0,1] or are inverted", func() {
			for _, b := range [][2]float64{{-0.1, 0.9}, {0.1, 1.5}, {0.9, 0.1}} {
				_, err := behavior.NewScorer(behavior.WithConversionBounds(b[0], b[1]))
				So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
			}
		})
	})
}

func TestAnalyzeStrongApplicant(t *testing.T) {
	Convey("Given a high-income tier-1 applicant", t, func() {
		s, err := behavior.NewScorer()
		So(err, ShouldBeNil)

		bp, err := s.Analyze(context.Background(), strongProfile())
		So(err, ShouldBeNil)

		Convey("Then sensitivity blends income, debt and age bands", func() {
			// 0.4*0.2 + 0.4*0.2 + 0.2*0.6
			So(bp.PriceSensitivity.Sensitivity, ShouldAlmostEqual, 0.28, 1e-9)
			So(bp.PriceSensitivity.Confidence, ShouldAlmostEqual, 0.95, 1e-9)
		})

		Convey("Then conversion rises above the 0.5 base", func() {
			// 0.5 + 0.72*0.2 + 0.1 (tier 1) + 0 ("mobile" is not a named device)
			So(bp.ConversionProbability, ShouldAlmostEqual, 0.744, 1e-9)
			So(bp.ConversionProbability, ShouldBeGreaterThan, 0.5)
		})

		Convey("Then long-term value averages the three factors", func() {
			So(bp.LongTermValue, ShouldAlmostEqual, (300000.0/5000000.0+1.0+0.8)/3, 1e-9)
		})
	})
}

func TestAnalyzeDefaults(t *testing.T) {
	Convey("Given a profile with every field absent", t, func() {
		s, err := behavior.NewScorer()
		So(err, ShouldBeNil)
		bp, err := s.Analyze(context.Background(), &model.ApplicantProfile{})

		Convey("Then the 0.5 baselines apply without error", func() {
			So(err, ShouldBeNil)
			So(bp.PriceSensitivity.Sensitivity, ShouldAlmostEqual, 0.5, 1e-12)
			So(bp.PriceSensitivity.Confidence, ShouldEqual, 0)
			So(bp.LongTermValue, ShouldEqual, 0.5)
			So(bp.ConversionProbability, ShouldAlmostEqual, 0.6, 1e-12)
		})
	})

	Convey("Given a profile with only an age", t, func() {
		p := &model.ApplicantProfile{Age: model.Int(40)}

		Convey("Then missing value factors count as zero rather than 0.5", func() {
			So(behavior.LongTermValue(p), ShouldAlmostEqual, 1.0/3, 1e-12)
		})
	})

	Convey("Given a nil profile", t, func() {
		s, _ := behavior.NewScorer()
		_, err := s.Analyze(context.Background(), nil)
		So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
	})
}

func TestSensitivityBands(t *testing.T) {
	Convey("Given incomes across the bands", t, func() {
		cases := map[float64]float64{250000: 0.2, 150000: 0.4, 60000: 0.6, 30000: 0.8, 10000: 1.0, 200000: 0.4}
		for income, want := range cases {
			p := &model.ApplicantProfile{MonthlyIncome: model.Float64(income)}
			// debt and age default to 0.5
			got := behavior.Sensitivity(p).Sensitivity
			So(got, ShouldAlmostEqual, 0.4*want+0.4*0.5+0.2*0.5, 1e-12)
		}
	})

	Convey("Given debt ratios across the bands", t, func() {
		cases := map[float64]float64{0.6: 1.0, 0.4: 0.8, 0.25: 0.6, 0.15: 0.4, 0.05: 0.2, 0.1: 0.2}
		for ratio, want := range cases {
			p := &model.ApplicantProfile{MonthlyIncome: model.Float64(1000), ExistingDebt: model.Float64(ratio * 1000)}
			got := behavior.Sensitivity(p).Sensitivity
			So(got, ShouldAlmostEqual, 0.4*1.0+0.4*want+0.2*0.5, 1e-9)
		}
	})

	Convey("Given ages across the bands", t, func() {
		cases := map[int]float64{20: 0.8, 30: 0.6, 40: 0.5, 50: 0.4, 60: 0.3, 25: 0.6}
		for age, want := range cases {
			p := &model.ApplicantProfile{Age: model.Int(age)}
			got := behavior.Sensitivity(p).Sensitivity
			So(got, ShouldAlmostEqual, 0.4*0.5+0.4*0.5+0.2*want, 1e-12)
		}
	})
}

func TestConversionAdjustments(t *testing.T) {
	Convey("Given a fixed sensitivity of 0.5", t, func() {
		sens := model.PriceSensitivity{Sensitivity: 0.5}
		base := 0.6

		Convey("Then city tiers shift the probability", func() {
			So(behavior.Conversion(&model.ApplicantProfile{City: model.CityTier1}, sens, 0, 1), ShouldAlmostEqual, base+0.1, 1e-12)
			So(behavior.Conversion(&model.ApplicantProfile{City: model.CityTier2}, sens, 0, 1), ShouldAlmostEqual, base+0.05, 1e-12)
			So(behavior.Conversion(&model.ApplicantProfile{City: model.CityOther}, sens, 0, 1), ShouldAlmostEqual, base-0.05, 1e-12)
			So(behavior.Conversion(&model.ApplicantProfile{}, sens, 0, 1), ShouldAlmostEqual, base, 1e-12)
		})

		Convey("Then device types shift the probability", func() {
			So(behavior.Conversion(&model.ApplicantProfile{Device: model.DeviceIOS}, sens, 0, 1), ShouldAlmostEqual, base+0.1, 1e-12)
			So(behavior.Conversion(&model.ApplicantProfile{Device: model.DeviceAndroid}, sens, 0, 1), ShouldAlmostEqual, base+0.05, 1e-12)
			So(behavior.Conversion(&model.ApplicantProfile{Device: model.DeviceWeb}, sens, 0, 1), ShouldAlmostEqual, base, 1e-12)
		})

		Convey("Then the result is clamped to the configured band", func() {
			p := &model.ApplicantProfile{City: model.CityTier1, Device: model.DeviceIOS}
			So(behavior.Conversion(p, model.PriceSensitivity{}, 0.1, 0.75), ShouldEqual, 0.75)
		})
	})
}

func TestLongTermValueTables(t *testing.T) {
	Convey("Given employment statuses", t, func() {
		cases := map[model.EmploymentStatus]float64{
			model.EmploymentPermanent:    1.0,
			model.EmploymentContract:     0.8,
			model.EmploymentSelfEmployed: 0.7,
			model.EmploymentPartTime:     0.5,
			model.EmploymentOther:        0.3,
		}
		for status, want := range cases {
			So(behavior.LongTermValue(&model.ApplicantProfile{EmploymentStatus: status}), ShouldAlmostEqual, want/3, 1e-12)
		}
	})

	Convey("Given very high income", t, func() {
		p := &model.ApplicantProfile{MonthlyIncome: model.Float64(9_000_000)}
		So(behavior.LongTermValue(p), ShouldAlmostEqual, 1.0/3, 1e-12)
	})
}

func TestAnalyzeIdempotent(t *testing.T) {
	Convey("Given the same profile analyzed twice", t, func() {
		s, _ := behavior.NewScorer()
		a, _ := s.Analyze(context.Background(), strongProfile())
		b, _ := s.Analyze(context.Background(), strongProfile())
		So(math.Float64bits(a.ConversionProbability), ShouldEqual, math.Float64bits(b.ConversionProbability))
		So(a, ShouldResemble, b)
	})
}
