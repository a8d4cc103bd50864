package model_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/loanoffer/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEnumerationParsing(t *testing.T) {
	Convey("Given free-text applicant attributes", t, func() {
		Convey("When parsing employment statuses", func() {
			So(model.ParseEmploymentStatus("permanent"), ShouldEqual, model.EmploymentPermanent)
			So(model.ParseEmploymentStatus(" Self-Employed "), ShouldEqual, model.EmploymentSelfEmployed)
			So(model.ParseEmploymentStatus("part time"), ShouldEqual, model.EmploymentPartTime)
			So(model.ParseEmploymentStatus("CONTRACT"), ShouldEqual, model.EmploymentContract)
			So(model.ParseEmploymentStatus("astronaut"), ShouldEqual, model.EmploymentOther)
			So(model.ParseEmploymentStatus(""), ShouldEqual, model.EmploymentUnspecified)
		})

		Convey("When parsing cities", func() {
			So(model.ParseCity("Mumbai"), ShouldEqual, model.CityTier1)
			So(model.ParseCity("pune"), ShouldEqual, model.CityTier2)
			So(model.ParseCity("Nagpur"), ShouldEqual, model.CityOther)
			So(model.ParseCity("  "), ShouldEqual, model.CityUnknown)
		})

		Convey("When parsing device types", func() {
			So(model.ParseDeviceType("iOS"), ShouldEqual, model.DeviceIOS)
			So(model.ParseDeviceType("android"), ShouldEqual, model.DeviceAndroid)
			So(model.ParseDeviceType("mobile"), ShouldEqual, model.DeviceOther)
			So(model.ParseDeviceType(""), ShouldEqual, model.DeviceUnknown)
		})
	})
}

func TestDebtToIncome(t *testing.T) {
	Convey("Given applicant profiles", t, func() {
		Convey("When income is present and debt is absent", func() {
			p := model.ApplicantProfile{MonthlyIncome: model.Float64(50000)}
			ratio, ok := p.DebtToIncome()
			So(ok, ShouldBeTrue)
			So(ratio, ShouldEqual, 0)
		})

		Convey("When income is zero", func() {
			p := model.ApplicantProfile{MonthlyIncome: model.Float64(0), ExistingDebt: model.Float64(10)}
			_, ok := p.DebtToIncome()
			So(ok, ShouldBeFalse)
		})

		Convey("When both are present", func() {
			p := model.ApplicantProfile{MonthlyIncome: model.Float64(300000), ExistingDebt: model.Float64(30000)}
			ratio, ok := p.DebtToIncome()
			So(ok, ShouldBeTrue)
			So(ratio, ShouldAlmostEqual, 0.1, 1e-12)
		})
	})
}

func TestRiskLevelFor(t *testing.T) {
	Convey("Given the risk level table", t, func() {
		So(model.RiskLevelFor(0), ShouldEqual, model.RiskLow)
		So(model.RiskLevelFor(0.2999), ShouldEqual, model.RiskLow)
		So(model.RiskLevelFor(0.3), ShouldEqual, model.RiskMedium)
		So(model.RiskLevelFor(0.6999), ShouldEqual, model.RiskMedium)
		So(model.RiskLevelFor(0.7), ShouldEqual, model.RiskHigh)
		So(model.RiskLevelFor(1), ShouldEqual, model.RiskHigh)
	})
}

func TestROIRangeRoundToStep(t *testing.T) {
	Convey("Given an ROI band", t, func() {
		r := model.ROIRange{Min: 11.1, Max: 12.9, Midpoint: 12, Step: 0.009}

		Convey("When rounding any in-range rate", func() {
			Convey("Then the result stays inside the band on the step grid", func() {
				for roi := r.Min; roi <= r.Max; roi += 0.0137 {
					got, err := r.RoundToStep(roi)
					So(err, ShouldBeNil)
					So(got, ShouldBeBetweenOrEqual, r.Min, r.Max)
					steps := (got - r.Min) / r.Step
					So(math.Abs(steps-math.Round(steps)), ShouldBeLessThan, 1e-6)
				}
			})
		})

		Convey("When the band is not a whole number of steps wide", func() {
			clipped := model.ROIRange{Min: 10, Max: 15, Midpoint: 12, Step: 0.03}

			Convey("Then rates near the top land on the last grid point below Max", func() {
				for _, roi := range []float64{14.98, 14.99, 14.995, 15} {
					got, err := clipped.RoundToStep(roi)
					So(err, ShouldBeNil)
					So(got, ShouldAlmostEqual, 14.98, 1e-9)
				}
			})

			Convey("Then every result is on the grid anchored at Min", func() {
				for roi := clipped.Min; roi <= clipped.Max; roi += 0.0071 {
					got, err := clipped.RoundToStep(roi)
					So(err, ShouldBeNil)
					So(got, ShouldBeBetweenOrEqual, clipped.Min, clipped.Max)
					steps := (got - clipped.Min) / clipped.Step
					So(math.Abs(steps-math.Round(steps)), ShouldBeLessThan, 1e-6)
				}
			})
		})

		Convey("When rounding an out-of-range rate", func() {
			_, err := r.RoundToStep(13)
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
			_, err = r.RoundToStep(math.NaN())
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestLoanOfferRequestValidate(t *testing.T) {
	Convey("Given loan offer requests", t, func() {
		valid := model.LoanOfferRequest{
			ApplicantID: "a-1", RequestedAmount: 500000, PreferredTenureMonths: 12, Purpose: "home", Source: "app",
		}

		Convey("When every field is present", func() {
			So(valid.Validate(), ShouldBeNil)
		})

		Convey("When a field is missing", func() {
			cases := []func(r *model.LoanOfferRequest){
				func(r *model.LoanOfferRequest) { r.ApplicantID = " " },
				func(r *model.LoanOfferRequest) { r.RequestedAmount = 0 },
				func(r *model.LoanOfferRequest) { r.RequestedAmount = math.Inf(1) },
				func(r *model.LoanOfferRequest) { r.PreferredTenureMonths = 0 },
				func(r *model.LoanOfferRequest) { r.Purpose = "" },
				func(r *model.LoanOfferRequest) { r.Source = "" },
			}
			for _, mutate := range cases {
				r := valid
				mutate(&r)
				So(errors.Is(r.Validate(), model.ErrInvalidInput), ShouldBeTrue)
			}
		})
	})
}

func TestNewRiskAssessmentCopies(t *testing.T) {
	Convey("Given factor slices and explanation maps", t, func() {
		factors := []model.RiskFactor{model.FactorCreditScore}
		ex := map[model.RiskFactor]string{model.FactorCreditScore: "low score"}
		a := model.NewRiskAssessment(0.8, model.ROIRange{}, factors, ex)

		Convey("When the caller mutates its inputs", func() {
			factors[0] = model.FactorFOIR
			ex[model.FactorCreditScore] = "changed"

			Convey("Then the assessment is unaffected", func() {
				So(a.RiskFactors[0], ShouldEqual, model.FactorCreditScore)
				So(a.Explanations[model.FactorCreditScore], ShouldEqual, "low score")
				So(a.RiskLevel, ShouldEqual, model.RiskHigh)
				So(a.HasFactor(model.FactorCreditScore), ShouldBeTrue)
				So(a.HasFactor(model.FactorFOIR), ShouldBeFalse)
			})
		})
	})
}

func TestNewOfferRecord(t *testing.T) {
	Convey("Given a response", t, func() {
		req := model.LoanOfferRequest{ApplicantID: "a-9", RequestedAmount: 1, PreferredTenureMonths: 3, Purpose: "p", Source: "s"}
		resp := model.LoanOfferResponse{RequestID: "r-1", Offers: []model.RankedOffer{{Rank: 1, Score: 0.5}}}
		risk := model.RiskAssessment{RiskScore: 0.4, RiskLevel: model.RiskMedium}

		rec := model.NewOfferRecord(req, risk, resp)
		So(rec.RequestID, ShouldEqual, "r-1")
		So(rec.ApplicantID, ShouldEqual, "a-9")
		So(rec.RiskLevel, ShouldEqual, model.RiskMedium)
		So(len(rec.Offers), ShouldEqual, 1)
	})
}
