package offer_test

import (
	"errors"
	"testing"

	"github.com/okian/loanoffer/internal/domain/model"
	"github.com/okian/loanoffer/internal/domain/offer"
	"github.com/okian/loanoffer/internal/domain/risk"
	. "github.com/smartystreets/goconvey/convey"
)

func request() model.LoanOfferRequest {
	return model.LoanOfferRequest{
		ApplicantID: "a-1", RequestedAmount: 500000, PreferredTenureMonths: 12, Purpose: "home", Source: "app",
	}
}

func assessment(level model.RiskLevel) model.RiskAssessment {
	return model.RiskAssessment{
		RiskScore: 0.5,
		RiskLevel: level,
		ROIRange:  model.ROIRange{Min: 10.5, Max: 13.5, Midpoint: 12, Step: 0.015},
	}
}

func TestGeneratorConstruction(t *testing.T) {
	Convey("Given generator settings", t, func() {
		roi, err := risk.NewROICalculator()
		So(err, ShouldBeNil)

		Convey("When a rate adjuster is missing", func() {
			_, err := offer.NewGenerator(nil)
			So(errors.Is(err, model.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When the tenure menu is malformed", func() {
			for _, menu := range [][]int{{}, {3, 0}, {6, 6}} {
				_, err := offer.NewGenerator(roi, offer.WithTenures(menu))
				So(errors.Is(err, model.ErrInvalidConfig), ShouldBeTrue)
			}
		})

		Convey("When the fee is negative", func() {
			_, err := offer.NewGenerator(roi, offer.WithFeePercent(-1))
			So(errors.Is(err, model.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestGenerate(t *testing.T) {
	Convey("Given the default generator", t, func() {
		roi, err := risk.NewROICalculator()
		So(err, ShouldBeNil)
		g, err := offer.NewGenerator(roi)
		So(err, ShouldBeNil)

		Convey("When generating for a medium-risk applicant", func() {
			offers, err := g.Generate(request(), assessment(model.RiskMedium))
			So(err, ShouldBeNil)

			Convey("Then there is one offer per tenure in menu order", func() {
				So(len(offers), ShouldEqual, 7)
				for i, tenure := range offer.DefaultTenures() {
					So(offers[i].TenureMonths, ShouldEqual, tenure)
				}
			})

			Convey("Then every offer uses the midpoint rate and a 2% fee", func() {
				for _, o := range offers {
					So(o.Rate, ShouldEqual, 12)
					So(o.Amount, ShouldEqual, 500000)
					So(o.ProcessingFee, ShouldEqual, 10000)
					So(o.MonthlyInstallment, ShouldBeGreaterThan, 0)
				}
				So(offers[0].MonthlyInstallment, ShouldBeGreaterThan, offers[6].MonthlyInstallment)
			})
		})

		Convey("When the applicant is low or high risk", func() {
			low, err := g.Generate(request(), assessment(model.RiskLow))
			So(err, ShouldBeNil)
			high, err := g.Generate(request(), assessment(model.RiskHigh))
			So(err, ShouldBeNil)

			Convey("Then the base rate shifts by level", func() {
				So(low[0].Rate, ShouldEqual, 11.5)
				So(high[0].Rate, ShouldEqual, 13)
			})
		})

		Convey("When the requested amount is not positive", func() {
			req := request()
			req.RequestedAmount = 0
			_, err := g.Generate(req, assessment(model.RiskMedium))
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})
	})

	Convey("Given a gate that drops long tenures", t, func() {
		roi, _ := risk.NewROICalculator()
		g, err := offer.NewGenerator(roi,
			offer.WithTenures([]int{6, 12, 24}),
			offer.WithTenureGate(func(_ model.LoanOfferRequest, _ model.RiskAssessment, months int) bool {
				return months <= 12
			}),
		)
		So(err, ShouldBeNil)

		offers, err := g.Generate(request(), assessment(model.RiskMedium))
		So(err, ShouldBeNil)
		So(len(offers), ShouldEqual, 2)
		So(offers[1].TenureMonths, ShouldEqual, 12)
	})
}
