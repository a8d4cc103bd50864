// Package money does the currency arithmetic for offers: fees, rounding and
// equated monthly installments.
package money

import (
	"github.com/shopspring/decimal"
)

// Places is the number of decimal places amounts are rounded to.
const Places = 2

var hundred = decimal.NewFromInt(100)

// Round rounds v half away from zero to Places decimals.
func Round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(Places).InexactFloat64()
}

// PercentOf returns pct percent of amount, rounded.
func PercentOf(amount, pct float64) float64 {
	a := decimal.NewFromFloat(amount)
	p := decimal.NewFromFloat(pct)
	return a.Mul(p).Div(hundred).Round(Places).InexactFloat64()
}

// Installment is the equated monthly installment for principal borrowed at
// annualRatePct over months. Zero or negative months yield 0; a zero rate
// splits the principal evenly.
func Installment(principal, annualRatePct float64, months int) float64 {
	if months <= 0 || principal <= 0 {
		return 0
	}
	p := decimal.NewFromFloat(principal)
	n := decimal.NewFromInt(int64(months))
	if annualRatePct <= 0 {
		return p.Div(n).Round(Places).InexactFloat64()
	}
	r := decimal.NewFromFloat(annualRatePct).Div(hundred).Div(decimal.NewFromInt(12))
	growth := decimal.NewFromInt(1).Add(r).Pow(n)
	emi := p.Mul(r).Mul(growth).Div(growth.Sub(decimal.NewFromInt(1)))
	return emi.Round(Places).InexactFloat64()
}
