// Package report prints a month-bounded statement for one user, straight from
// the store. It backs the cmd_report operator command.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"fintrack/models"
	"fintrack/pkg/apperr"
	"fintrack/pkg/store"
	"fintrack/pkg/summary"

	"github.com/shopspring/decimal"
)

// Options selects the user and month (YYYY-MM) to report on.
type Options struct {
	Username string
	Month    string
	List     bool
}

// Result is what Run computed, returned alongside the printed text.
type Result struct {
	User     models.PublicUser
	Month    time.Time
	Records  int
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Alert    *summary.Alert
}

// Run writes the report for opts to w. The budget alert is evaluated as if
// "now" were inside the reported month.
func Run(ctx context.Context, w io.Writer, st store.Store, opts Options) (*Result, error) {
	month, err := time.Parse("2006-01", strings.TrimSpace(opts.Month))
	if err != nil {
		fe := apperr.FieldErrors{}
		fe.Add("month", "expected YYYY-MM")
		return nil, fe.Err()
	}
	user, err := st.FindUserByUsername(ctx, strings.TrimSpace(opts.Username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	all, err := st.FindTransactions(ctx, user.ID, store.Filter{})
	if err != nil {
		return nil, err
	}

	first, last := summary.MonthRange(month)
	var inMonth []models.Transaction
	for _, t := range all {
		if !t.Date.Before(first) && !t.Date.After(last) {
			inMonth = append(inMonth, t)
		}
	}
	monthly := summary.Compute(inMonth, decimal.Zero, 0, month)
	overall := summary.Compute(all, user.MonthlyBudget, user.BudgetAlertThreshold, month)

	res := &Result{
		User:     user.Public(),
		Month:    first,
		Records:  len(inMonth),
		Income:   monthly.TotalIncome,
		Expenses: monthly.TotalExpense,
		Alert:    overall.BudgetAlert,
	}

	fmt.Fprintf(w, "Report for user=%s month=%s (UTC):\n", user.Username, first.Format("2006-01"))
	fmt.Fprintf(w, "  records=%d income=%s expenses=%s net=%s\n",
		res.Records, res.Income.StringFixed(2), res.Expenses.StringFixed(2), res.Income.Sub(res.Expenses).StringFixed(2))
	if user.MonthlyBudget.IsPositive() {
		fmt.Fprintf(w, "  budget=%s threshold=%d%%\n", user.MonthlyBudget.StringFixed(2), user.BudgetAlertThreshold)
	}
	if res.Alert != nil {
		fmt.Fprintf(w, "  alert: %s\n", res.Alert.Message)
	}

	if opts.List {
		// chronological for reading
		for i := len(inMonth) - 1; i >= 0; i-- {
			t := inMonth[i]
			fmt.Fprintf(w, "%d|%s|%s|%s|%s|%s\n", t.ID, models.FormatDate(t.Date), t.Type, t.Category, t.Amount.StringFixed(2), t.Title)
		}
	}
	return res, nil
}
