package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fintrack/models"
	"fintrack/pkg/apperr"
	"fintrack/pkg/events"
	"fintrack/pkg/store"
	"fintrack/pkg/store/filestore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 15, 18, 30, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	store *filestore.Store
	rec   *events.Recorder
	alice *models.User
	bob   *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := filestore.Open(filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	alice := &models.User{Username: "alice"}
	bob := &models.User{Username: "bob"}
	require.NoError(t, st.InsertUser(ctx, alice))
	require.NoError(t, st.InsertUser(ctx, bob))

	rec := &events.Recorder{}
	svc := NewService(st, rec, WithClock(func() time.Time { return fixedNow }))
	return &fixture{svc: svc, store: st, rec: rec, alice: alice, bob: bob}
}

func expense(title string, amount int64, date *time.Time) Input {
	return Input{Title: title, Amount: decimal.NewFromInt(amount), Type: models.Expense, Category: "Food", Date: date}
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestCreateAssignsOwnerAndDefaultDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.Create(ctx, f.alice, expense(" coffee ", 3, nil))
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, tx.UserID)
	assert.Equal(t, "coffee", tx.Title)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), tx.Date)
	assert.NotZero(t, tx.ID)

	evs := f.rec.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.TransactionCreated, evs[0].Type)
	assert.Equal(t, tx.ID, evs[0].TransactionID)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		in    Input
		field string
	}{
		{"zero amount", expense("lunch", 0, nil), "amount"},
		{"negative amount", expense("lunch", -4, nil), "amount"},
		{"missing title", expense("  ", 5, nil), "title"},
		{"bad type", Input{Title: "x", Amount: decimal.NewFromInt(1), Type: "transfer", Category: "Misc"}, "type"},
		{"missing category", Input{Title: "x", Amount: decimal.NewFromInt(1), Type: models.Income}, "category"},
		{"sub-cent amount", Input{Title: "x", Amount: decimal.RequireFromString("0.004"), Type: models.Expense, Category: "Misc"}, "amount"},
		{"amount too large", Input{Title: "x", Amount: decimal.RequireFromString("1000000000000"), Type: models.Expense, Category: "Misc"}, "amount"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, f.alice, tc.in)
			var ae *apperr.Error
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, apperr.Validation, ae.Kind)
			assert.Contains(t, ae.Fields, tc.field)
		})
	}

	list, err := f.svc.List(ctx, f.alice, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, list, "nothing is persisted on validation failure")
	assert.Empty(t, f.rec.Events())
}

func TestListOrderingAndIdempotence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, f.alice, expense("a", 1, datePtr(2025, 6, 1)))
	require.NoError(t, err)
	b, err := f.svc.Create(ctx, f.alice, expense("b", 1, datePtr(2025, 6, 10)))
	require.NoError(t, err)
	c, err := f.svc.Create(ctx, f.alice, expense("c", 1, datePtr(2025, 6, 10)))
	require.NoError(t, err)

	first, err := f.svc.List(ctx, f.alice, store.Filter{})
	require.NoError(t, err)
	second, err := f.svc.List(ctx, f.alice, store.Filter{})
	require.NoError(t, err)

	require.Len(t, first, 3)
	assert.Equal(t, []uint{b.ID, c.ID, a.ID}, []uint{first[0].ID, first[1].ID, first[2].ID})
	assert.Equal(t, first, second)
}

func TestListFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.alice, expense("food", 10, nil))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.alice, Input{Title: "pay", Amount: decimal.NewFromInt(100), Type: models.Income, Category: "Salary"})
	require.NoError(t, err)

	incomes, err := f.svc.List(ctx, f.alice, store.Filter{Type: models.Income})
	require.NoError(t, err)
	require.Len(t, incomes, 1)
	assert.Equal(t, "pay", incomes[0].Title)

	food, err := f.svc.List(ctx, f.alice, store.Filter{Category: "Food"})
	require.NoError(t, err)
	require.Len(t, food, 1)

	_, err = f.svc.List(ctx, f.alice, store.Filter{Type: "bogus"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestOwnershipIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.Create(ctx, f.alice, expense("private", 20, nil))
	require.NoError(t, err)

	list, err := f.svc.List(ctx, f.bob, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.svc.Get(ctx, f.bob, tx.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Update(ctx, f.bob, tx.ID, expense("hijacked", 1, nil))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = f.svc.Delete(ctx, f.bob, tx.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// foreign and nonexistent ids fail the same way
	errMissing := f.svc.Delete(ctx, f.bob, 9999)
	assert.Equal(t, err.Error(), errMissing.Error())

	got, err := f.svc.Get(ctx, f.alice, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "private", got.Title)
}

func TestUpdateReplacesFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.Create(ctx, f.alice, expense("old", 5, datePtr(2025, 1, 1)))
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, f.alice, tx.ID, Input{
		Title:    "new",
		Amount:   decimal.RequireFromString("7.25"),
		Type:     models.Income,
		Category: "Gift",
	})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Title)
	assert.Equal(t, models.Income, updated.Type)
	assert.Equal(t, "Gift", updated.Category)
	assert.True(t, decimal.RequireFromString("7.25").Equal(updated.Amount))
	// omitted date falls back to today
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), updated.Date)

	_, err = f.svc.Update(ctx, f.alice, tx.ID, expense("new", 0, nil))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.Create(ctx, f.alice, expense("gone", 5, nil))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, f.alice, tx.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, f.alice, tx.ID), apperr.ErrNotFound)

	evs := f.rec.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, events.TransactionDeleted, evs[1].Type)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, events.Event) error { return errors.New("broker down") }
func (failingPublisher) Close() error                                { return nil }

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.store, failingPublisher{})

	tx, err := svc.Create(context.Background(), f.alice, expense("still stored", 5, nil))
	require.NoError(t, err)
	assert.NotZero(t, tx.ID)
}

func TestDeleteAllIsOwnerScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c"} {
		_, err := f.svc.Create(ctx, f.alice, expense(title, 1, nil))
		require.NoError(t, err)
	}
	kept, err := f.svc.Create(ctx, f.bob, expense("bob's", 1, nil))
	require.NoError(t, err)

	n, err := f.svc.DeleteAll(ctx, f.alice)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	list, err := f.svc.List(ctx, f.alice, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := f.svc.Get(ctx, f.bob, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob's", got.Title)

	n, err = f.svc.DeleteAll(ctx, f.alice)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdateRejectsAmountOutsideMoneyColumn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.Create(ctx, f.alice, expense("rent", 500, nil))
	require.NoError(t, err)

	in := expense("rent", 0, nil)
	in.Amount = decimal.RequireFromString("12.345")
	_, err = f.svc.Update(ctx, f.alice, tx.ID, in)
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "must have at most 2 decimal places", ae.Fields["amount"])

	got, err := f.svc.Get(ctx, f.alice, tx.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(500).Equal(got.Amount))
}

func budgetAlerts(rec *events.Recorder) []events.Event {
	var out []events.Event
	for _, e := range rec.Events() {
		if e.Type == events.BudgetAlert {
			out = append(out, e)
		}
	}
	return out
}

func TestBudgetAlertPublishedOncePerCrossing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.alice.MonthlyBudget = decimal.NewFromInt(1000)
	f.alice.BudgetAlertThreshold = 80

	_, err := f.svc.Create(ctx, f.alice, expense("groceries", 500, nil))
	require.NoError(t, err)
	assert.Empty(t, budgetAlerts(f.rec), "50% is below the threshold")

	_, err = f.svc.Create(ctx, f.alice, expense("rent", 350, nil))
	require.NoError(t, err)
	alerts := budgetAlerts(f.rec)
	require.Len(t, alerts, 1)
	assert.Equal(t, f.alice.ID, alerts[0].UserID)
	assert.InDelta(t, 85, alerts[0].Percentage, 1e-9)

	_, err = f.svc.Create(ctx, f.alice, expense("fuel", 100, nil))
	require.NoError(t, err)
	assert.Len(t, budgetAlerts(f.rec), 1, "already over the threshold")

	_, err = f.svc.List(ctx, f.alice, store.Filter{})
	require.NoError(t, err)
	assert.Len(t, budgetAlerts(f.rec), 1, "reads never publish")
}

func TestBudgetAlertOnUpdateCrossing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.alice.MonthlyBudget = decimal.NewFromInt(1000)
	f.alice.BudgetAlertThreshold = 80

	tx, err := f.svc.Create(ctx, f.alice, expense("rent", 600, nil))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.alice, expense("old rent", 900, datePtr(2025, 5, 1)))
	require.NoError(t, err)
	assert.Empty(t, budgetAlerts(f.rec), "last month does not count")

	_, err = f.svc.Update(ctx, f.alice, tx.ID, expense("rent", 850, nil))
	require.NoError(t, err)
	assert.Len(t, budgetAlerts(f.rec), 1)
}

func TestBudgetAlertNeedsBudget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.bob, expense("car", 50000, nil))
	require.NoError(t, err)
	assert.Empty(t, budgetAlerts(f.rec))
}
