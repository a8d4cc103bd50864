package risk_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/okian/loanoffer/internal/domain/model"
	"github.com/okian/loanoffer/internal/domain/risk"
	. "github.com/smartystreets/goconvey/convey"
)

func newScorer(opts ...risk.Option) *risk.Scorer {
	roi, err := risk.NewROICalculator()
	So(err, ShouldBeNil)
	s, err := risk.NewScorer(roi, opts...)
	So(err, ShouldBeNil)
	return s
}

func strongProfile() *model.ApplicantProfile {
	return &model.ApplicantProfile{
		ApplicantID:            "a-800",
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
	Convey("Given risk weight configurations", t, func() {
		roi, err := risk.NewROICalculator()
		So(err, ShouldBeNil)

		Convey("When the weights sum to exactly one", func() {
			_, err := risk.NewScorer(roi, risk.WithWeights(risk.Weights{
				CreditScore: 0.2, FOIR: 0.2, Utilization: 0.2, RepaymentHistory: 0.2, IncomeStability: 0.2,
			}))
			So(err, ShouldBeNil)
		})

		Convey("When the weights are off by more than 1e-9", func() {
			w := risk.DefaultWeights()
			w.CreditScore += 1e-6
			_, err := risk.NewScorer(roi, risk.WithWeights(w))
			So(errors.Is(err, model.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When a weight is negative", func() {
			_, err := risk.NewScorer(roi, risk.WithWeights(risk.Weights{
				CreditScore: 1.1, FOIR: -0.1,
			}))
			So(errors.Is(err, model.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When no ROI calculator is supplied", func() {
			_, err := risk.NewScorer(nil)
			So(errors.Is(err, model.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestAssessHigherScoreMeansHigherRisk(t *testing.T) {
	Convey("Given a strong applicant with an 800 credit score", t, func() {
		s := newScorer()

		Convey("When assessing risk", func() {
			a, err := s.Assess(context.Background(), strongProfile())
			So(err, ShouldBeNil)

			Convey("Then the score lands exactly on the LOW/MEDIUM threshold and the level is MEDIUM", func() {
				So(a.RiskScore, ShouldEqual, model.MediumRiskThreshold)
				So(a.RiskLevel, ShouldEqual, model.RiskMedium)
			})

			Convey("Then credit score and FOIR are not flagged", func() {
				So(a.HasFactor(model.FactorCreditScore), ShouldBeFalse)
				So(a.HasFactor(model.FactorFOIR), ShouldBeFalse)
			})

			Convey("Then the neutral placeholders always exceed their weights", func() {
				So(a.HasFactor(model.FactorRepaymentHistory), ShouldBeTrue)
				So(a.HasFactor(model.FactorIncomeStability), ShouldBeTrue)
				So(a.Explanations[model.FactorIncomeStability], ShouldContainSubstring, "48 months")
			})

			Convey("Then the ROI band is centered near the base rate", func() {
				So(a.ROIRange.Min, ShouldBeLessThan, a.ROIRange.Max)
				So(a.ROIRange.Midpoint, ShouldAlmostEqual, risk.DefaultBaseROI, 1e-9)
			})
		})

		Convey("When a weak applicant is assessed", func() {
			weak := &model.ApplicantProfile{
				CreditScore:   model.Float64(420),
				MonthlyIncome: model.Float64(20000),
				ExistingDebt:  model.Float64(15000),
			}
			a, err := s.Assess(context.Background(), weak)
			So(err, ShouldBeNil)

			Convey("Then the score is higher than the strong applicant's and the level is HIGH", func() {
				So(a.RiskScore, ShouldBeGreaterThan, 0.7)
				So(a.RiskLevel, ShouldEqual, model.RiskHigh)
				So(a.HasFactor(model.FactorCreditScore), ShouldBeTrue)
				So(a.Explanations[model.FactorCreditScore], ShouldContainSubstring, "420")
				So(a.Explanations[model.FactorFOIR], ShouldContainSubstring, "0.75")
			})
		})
	})
}

func TestAssessDefaults(t *testing.T) {
	Convey("Given a profile with every field absent", t, func() {
		s := newScorer()
		a, err := s.Assess(context.Background(), &model.ApplicantProfile{})

		Convey("Then the max-risk and neutral defaults apply without error", func() {
			So(err, ShouldBeNil)
			// 0.30 + 0.25 + 0.15 + 0.20*0.5 + 0.10*0.5
			So(a.RiskScore, ShouldAlmostEqual, 0.85, 1e-9)
			So(a.RiskLevel, ShouldEqual, model.RiskHigh)
			So(len(a.RiskFactors), ShouldEqual, 5)
			So(a.Explanations[model.FactorCreditScore], ShouldContainSubstring, "not provided")
		})

		Convey("Then zero income is treated like missing income", func() {
			c := risk.Components(&model.ApplicantProfile{MonthlyIncome: model.Float64(0), ExistingDebt: model.Float64(5)})
			So(c[model.FactorFOIR], ShouldEqual, 1.0)
			So(c[model.FactorUtilization], ShouldEqual, 1.0)
		})
	})

	Convey("Given a nil profile", t, func() {
		s := newScorer()
		_, err := s.Assess(context.Background(), nil)
		So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
	})

	Convey("Given a canceled context", t, func() {
		s := newScorer()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.Assess(ctx, strongProfile())
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
	})
}

func TestAssessProperties(t *testing.T) {
	Convey("Given randomly generated profiles", t, func() {
		s := newScorer()
		rng := rand.New(rand.NewSource(7))

		Convey("Then every score is in [0,1], the level depends on the score alone, and results repeat exactly", func() {
			for i := 0; i < 500; i++ {
				p := &model.ApplicantProfile{}
				if rng.Intn(4) > 0 {
					p.CreditScore = model.Float64(float64(rng.Intn(1000)))
				}
				if rng.Intn(4) > 0 {
					p.MonthlyIncome = model.Float64(rng.Float64()*400000 - 10000)
				}
				if rng.Intn(4) > 0 {
					p.ExistingDebt = model.Float64(rng.Float64() * 500000)
				}
				a, err := s.Assess(context.Background(), p)
				So(err, ShouldBeNil)
				So(a.RiskScore, ShouldBeBetweenOrEqual, 0, 1)
				So(a.RiskLevel, ShouldEqual, model.RiskLevelFor(a.RiskScore))

				again, err := s.Assess(context.Background(), p)
				So(err, ShouldBeNil)
				So(math.Float64bits(again.RiskScore), ShouldEqual, math.Float64bits(a.RiskScore))
				So(again.RiskFactors, ShouldResemble, a.RiskFactors)
				So(again.ROIRange, ShouldResemble, a.ROIRange)
			}
		})
	})
}

func TestROICalculator(t *testing.T) {
	Convey("Given ROI calculator configurations", t, func() {
		Convey("When bounds are invalid", func() {
			_, err := risk.NewROICalculator(risk.WithROIBounds(12, 24, 8))
			So(errors.Is(err, model.ErrInvalidConfig), ShouldBeTrue)
			_, err = risk.NewROICalculator(risk.WithROIBounds(30, 8, 24))
			So(errors.Is(err, model.ErrInvalidConfig), ShouldBeTrue)
			_, err = risk.NewROICalculator(risk.WithRiskRangeMultiplier(0))
			So(errors.Is(err, model.ErrInvalidConfig), ShouldBeTrue)
		})
	})

	Convey("Given the default calculator", t, func() {
		c, err := risk.NewROICalculator()
		So(err, ShouldBeNil)

		Convey("When the score is zero the band collapses to the base", func() {
			r, err := c.Range(model.Float64(0))
			So(err, ShouldBeNil)
			So(r.Min, ShouldEqual, 12)
			So(r.Max, ShouldEqual, 12)
			So(r.Step, ShouldEqual, 0.001)
		})

		Convey("When the score is one the band is base ± 3", func() {
			r, err := c.Range(model.Float64(1))
			So(err, ShouldBeNil)
			So(r.Min, ShouldEqual, 9)
			So(r.Max, ShouldEqual, 15)
			So(r.Midpoint, ShouldEqual, 12)
			So(r.Step, ShouldAlmostEqual, 0.03, 1e-12)
		})

		Convey("When the band would cross the bounds it is clipped", func() {
			narrow, err := risk.NewROICalculator(risk.WithROIBounds(12, 10, 13), risk.WithRiskRangeMultiplier(1))
			So(err, ShouldBeNil)
			r, err := narrow.Range(model.Float64(0.5))
			So(err, ShouldBeNil)
			So(r.Min, ShouldEqual, 10)
			So(r.Max, ShouldEqual, 13)
			So(r.Midpoint, ShouldEqual, 11.5)
		})

		Convey("When the score is not a valid probability", func() {
			for _, bad := range []float64{-0.1, 1.1, math.NaN()} {
				_, err := c.Range(model.Float64(bad))
				So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
			}
		})

		Convey("When no score is supplied", func() {
			_, err := c.Range(nil)
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When adjusting a rate by level", func() {
			low, err := c.AdjustROI(12, model.RiskLow)
			So(err, ShouldBeNil)
			So(low, ShouldEqual, 11.5)
			med, err := c.AdjustROI(12, model.RiskMedium)
			So(err, ShouldBeNil)
			So(med, ShouldEqual, 12)
			high, err := c.AdjustROI(12, model.RiskHigh)
			So(err, ShouldBeNil)
			So(high, ShouldEqual, 13)

			Convey("Then results are clamped to the bounds", func() {
				top, err := c.AdjustROI(23.5, model.RiskHigh)
				So(err, ShouldBeNil)
				So(top, ShouldEqual, 24)
				bottom, err := c.AdjustROI(8.2, model.RiskLow)
				So(err, ShouldBeNil)
				So(bottom, ShouldEqual, 8)
			})

			Convey("Then an out-of-range rate is rejected", func() {
				_, err := c.AdjustROI(30, model.RiskLow)
				So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
			})
		})
	})
}
