// Package summary derives totals and the budget alert from a user's
// transactions. Nothing is cached; every call recomputes from the list.
package summary

import (
	"context"
	"fmt"
	"time"

	"fintrack/models"
	"fintrack/pkg/store"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Alert is present only when monthly spending reached the user's threshold.
type Alert struct {
	Message    string  `json:"message"`
	Percentage float64 `json:"percentage"`
	IsExceeded bool    `json:"isExceeded"`
}

type Summary struct {
	TotalIncome       decimal.Decimal `json:"totalIncome"`
	TotalExpense      decimal.Decimal `json:"totalExpense"`
	Balance           decimal.Decimal `json:"balance"`
	TotalTransactions int             `json:"totalTransactions"`
	MonthlyExpenses   decimal.Decimal `json:"monthlyExpenses"`
	MonthlyBudget     decimal.Decimal `json:"monthlyBudget"`
	BudgetAlert       *Alert          `json:"budgetAlert"`
}

// MonthRange returns the first and last calendar day of now's month, both
// at midnight UTC like stored transaction dates.
func MonthRange(now time.Time) (first, last time.Time) {
	y, m, _ := now.Date()
	first = time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	last = first.AddDate(0, 1, -1)
	return first, last
}

// Compute is a pure function of its arguments. A zero (or negative) budget
// disables the alert.
func Compute(txs []models.Transaction, monthlyBudget decimal.Decimal, alertThreshold int, now time.Time) Summary {
	first, last := MonthRange(now)
	s := Summary{
		TotalIncome:       decimal.Zero,
		TotalExpense:      decimal.Zero,
		MonthlyExpenses:   decimal.Zero,
		MonthlyBudget:     monthlyBudget,
		TotalTransactions: len(txs),
	}
	for _, t := range txs {
		switch t.Type {
		case models.Income:
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
		case models.Expense:
			s.TotalExpense = s.TotalExpense.Add(t.Amount)
			d := models.CivilDate(t.Date)
			if !d.Before(first) && !d.After(last) {
				s.MonthlyExpenses = s.MonthlyExpenses.Add(t.Amount)
			}
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpense)

	if monthlyBudget.IsPositive() {
		pct := s.MonthlyExpenses.Mul(hundred).Div(monthlyBudget)
		if pct.GreaterThanOrEqual(decimal.NewFromInt(int64(alertThreshold))) {
			s.BudgetAlert = &Alert{
				Message:    fmt.Sprintf("You've used %s%% of your monthly budget!", pct.StringFixed(1)),
				Percentage: pct.InexactFloat64(),
				IsExceeded: pct.GreaterThanOrEqual(hundred),
			}
		}
	}
	return s
}

// TransactionLister is the slice of the ledger the summary needs.
type TransactionLister interface {
	List(ctx context.Context, user *models.User, f store.Filter) ([]models.Transaction, error)
}

type Service struct {
	txs TransactionLister
	now func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(txs TransactionLister, opts ...Option) *Service {
	s := &Service{txs: txs, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ForUser summarizes every transaction the user owns against the budget
// settings carried by user. It is read-only; budget.alert is published by
// the ledger when a write crosses the threshold.
func (s *Service) ForUser(ctx context.Context, user *models.User) (Summary, error) {
	txs, err := s.txs.List(ctx, user, store.Filter{})
	if err != nil {
		return Summary{}, err
	}
	return Compute(txs, user.MonthlyBudget, user.BudgetAlertThreshold, s.now()), nil
}
