package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMoneyProblem(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"12.34", ""},
		{"1.500", ""}, // trailing zero is still two places
		{"999999999999.99", ""},
		{"-5", ""},
		{"0.004", "must have at most 2 decimal places"},
		{"10.001", "must have at most 2 decimal places"},
		{"1000000000000", "must be less than 1000000000000"},
		{"-1000000000000", "must be less than 1000000000000"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, MoneyProblem(decimal.RequireFromString(tc.in)))
		})
	}
}
