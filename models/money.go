package models

import "github.com/shopspring/decimal"

// Money columns are numeric(14,2): two decimal places, twelve integer digits.
const MoneyScale = 2

var maxMoney = decimal.New(1, 12)

// MoneyProblem reports why d cannot be stored as a money amount without
// rounding or overflow, or "" when it can.
func MoneyProblem(d decimal.Decimal) string {
	if !d.Equal(d.Round(MoneyScale)) {
		return "must have at most 2 decimal places"
	}
	if d.Abs().GreaterThanOrEqual(maxMoney) {
		return "must be less than 1000000000000"
	}
	return ""
}
