package ranking_test

import (
	"errors"
	"testing"

	"github.com/okian/loanoffer/internal/domain/model"
	"github.com/okian/loanoffer/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

func offerWithTenure(months int, conversion, impact float64) model.OptimizedOffer {
	return model.OptimizedOffer{
		BaseOffer:             model.BaseOffer{Amount: 500000, TenureMonths: months, Rate: 12},
		ConversionProbability: conversion,
		RiskImpact:            impact,
	}
}

func TestRankerConstruction(t *testing.T) {
	Convey("Given ranking weights", t, func() {
		Convey("When they sum to one within tolerance", func() {
			_, err := ranking.NewRanker(ranking.Weights{Conversion: 0.5, Risk: 0.25, Value: 0.25 + 5e-5})
			So(err, ShouldBeNil)
		})

		Convey("When they do not", func() {
			_, err := ranking.NewRanker(ranking.Weights{Conversion: 0.5, Risk: 0.5, Value: 0.1})
			So(errors.Is(err, model.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When one is negative", func() {
			_, err := ranking.NewRanker(ranking.Weights{Conversion: 1.2, Risk: -0.2})
			So(errors.Is(err, model.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestScore(t *testing.T) {
	Convey("Given the default ranker", t, func() {
		r, err := ranking.NewRanker(ranking.DefaultWeights())
		So(err, ShouldBeNil)

		Convey("Then the score combines conversion, risk and value", func() {
			o := offerWithTenure(12, 0.7, 0.2)
			// 0.4*0.7 + 0.3*0.8 + 0.3*(0.7*0.12 + 0.3*0.5)
			So(r.Score(o), ShouldAlmostEqual, 0.28+0.24+0.3*(0.084+0.15), 1e-12)
		})

		Convey("Then risk impact above one contributes nothing", func() {
			o := offerWithTenure(12, 0, 1.5)
			o.BaseOffer.Rate = 0
			o.BaseOffer.Amount = 0
			So(r.Score(o), ShouldEqual, 0)
		})

		Convey("Then large amounts are capped", func() {
			a := offerWithTenure(12, 0.5, 0)
			b := a
			b.BaseOffer.Amount = 5_000_000
			a.BaseOffer.Amount = 1_000_000
			So(r.Score(a), ShouldAlmostEqual, r.Score(b), 1e-12)
		})
	})
}

func TestRank(t *testing.T) {
	Convey("Given offers scoring 0.9, 0.9 and 0.4", t, func() {
		r, err := ranking.NewRanker(ranking.Weights{Conversion: 1})
		So(err, ShouldBeNil)
		in := []model.OptimizedOffer{
			offerWithTenure(3, 0.9, 0),
			offerWithTenure(6, 0.9, 0),
			offerWithTenure(9, 0.4, 0),
		}

		ranked := r.Rank(in)

		Convey("Then ranks are 1, 2, 3 and the tied offers keep input order", func() {
			So(len(ranked), ShouldEqual, 3)
			So(ranked[0].Rank, ShouldEqual, 1)
			So(ranked[1].Rank, ShouldEqual, 2)
			So(ranked[2].Rank, ShouldEqual, 3)
			So(ranked[0].Offer.BaseOffer.TenureMonths, ShouldEqual, 3)
			So(ranked[1].Offer.BaseOffer.TenureMonths, ShouldEqual, 6)
			So(ranked[2].Offer.BaseOffer.TenureMonths, ShouldEqual, 9)
			So(ranked[0].Score, ShouldEqual, 0.9)
		})
	})

	Convey("Given offers in ascending score order", t, func() {
		r, err := ranking.NewRanker(ranking.DefaultWeights())
		So(err, ShouldBeNil)
		in := []model.OptimizedOffer{
			offerWithTenure(3, 0.1, 0.9),
			offerWithTenure(6, 0.5, 0.5),
			offerWithTenure(9, 0.9, 0.1),
			offerWithTenure(12, 0.5, 0.5),
		}

		ranked := r.Rank(in)

		Convey("Then the output is sorted descending with dense ranks", func() {
			for i := range ranked {
				So(ranked[i].Rank, ShouldEqual, i+1)
				if i > 0 {
					So(ranked[i-1].Score, ShouldBeGreaterThanOrEqualTo, ranked[i].Score)
				}
			}
			So(ranked[0].Offer.BaseOffer.TenureMonths, ShouldEqual, 9)
			So(ranked[1].Offer.BaseOffer.TenureMonths, ShouldEqual, 6)
			So(ranked[2].Offer.BaseOffer.TenureMonths, ShouldEqual, 12)
		})

		Convey("Then the input slice is untouched", func() {
			So(in[0].BaseOffer.TenureMonths, ShouldEqual, 3)
		})
	})

	Convey("Given no offers", t, func() {
		r, _ := ranking.NewRanker(ranking.DefaultWeights())
		So(len(r.Rank(nil)), ShouldEqual, 0)
	})
}
