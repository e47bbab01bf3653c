// Package ledger is the owner-scoped access layer over transactions. The
// owner always comes from the authenticated user, never from input.
package ledger

import (
	"context"
	"strings"
	"time"

	"fintrack/models"
	"fintrack/pkg/apperr"
	"fintrack/pkg/events"
	"fintrack/pkg/store"
	"fintrack/pkg/summary"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Input carries the editable fields of a transaction. A nil Date means
// today.
type Input struct {
	Title    string
	Amount   decimal.Decimal
	Type     models.TransactionType
	Category string
	Date     *time.Time
}

// Service is the only path handlers take to transactions.
type Service struct {
	txs    store.TransactionStore
	events events.Publisher
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for the default transaction date.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService publishes through pub; a nil pub drops events.
func NewService(txs store.TransactionStore, pub events.Publisher, opts ...Option) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	s := &Service{txs: txs, events: pub, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

var errNotFound = apperr.New(apperr.NotFound, "transaction not found")

func (s *Service) validate(in Input) (store.TransactionFields, error) {
	fe := apperr.FieldErrors{}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		fe.Add("title", "is required")
	}
	if !in.Amount.IsPositive() {
		fe.Add("amount", "must be greater than 0")
	} else if msg := models.MoneyProblem(in.Amount); msg != "" {
		fe.Add("amount", msg)
	}
	if !in.Type.Valid() {
		fe.Add("type", "must be income or expense")
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		fe.Add("category", "is required")
	}
	if err := fe.Err(); err != nil {
		return store.TransactionFields{}, err
	}
	date := models.CivilDate(s.now())
	if in.Date != nil {
		date = models.CivilDate(*in.Date)
	}
	return store.TransactionFields{
		Title:    title,
		Amount:   in.Amount,
		Type:     in.Type,
		Category: category,
		Date:     date,
	}, nil
}

func (s *Service) List(ctx context.Context, user *models.User, f store.Filter) ([]models.Transaction, error) {
	if f.Type != "" && !f.Type.Valid() {
		fe := apperr.FieldErrors{}
		fe.Add("type", "must be income or expense")
		return nil, fe.Err()
	}
	return s.txs.FindTransactions(ctx, user.ID, f)
}

func (s *Service) Get(ctx context.Context, user *models.User, id uint) (*models.Transaction, error) {
	t, err := s.txs.FindTransaction(ctx, user.ID, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errNotFound
	}
	return t, nil
}

func (s *Service) Create(ctx context.Context, user *models.User, in Input) (*models.Transaction, error) {
	fields, err := s.validate(in)
	if err != nil {
		return nil, err
	}
	watch := s.watchAlert(ctx, user, fields.Type)
	t := &models.Transaction{
		UserID:   user.ID,
		Title:    fields.Title,
		Amount:   fields.Amount,
		Type:     fields.Type,
		Category: fields.Category,
		Date:     fields.Date,
	}
	if err := s.txs.InsertTransaction(ctx, t); err != nil {
		return nil, err
	}
	s.publish(ctx, events.TransactionCreated, user.ID, t.ID)
	s.publishAlertIfCrossed(ctx, user, watch)
	return t, nil
}

func (s *Service) Update(ctx context.Context, user *models.User, id uint, in Input) (*models.Transaction, error) {
	fields, err := s.validate(in)
	if err != nil {
		return nil, err
	}
	watch := s.watchAlert(ctx, user, fields.Type)
	t, err := s.txs.UpdateTransaction(ctx, user.ID, id, fields)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errNotFound
	}
	s.publish(ctx, events.TransactionUpdated, user.ID, t.ID)
	s.publishAlertIfCrossed(ctx, user, watch)
	return t, nil
}

func (s *Service) Delete(ctx context.Context, user *models.User, id uint) error {
	deleted, err := s.txs.DeleteTransaction(ctx, user.ID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return errNotFound
	}
	s.publish(ctx, events.TransactionDeleted, user.ID, id)
	return nil
}

// publish never fails the request; the mutation is already stored.
func (s *Service) publish(ctx context.Context, typ events.Type, userID, txID uint) {
	e := events.New(typ, userID)
	e.TransactionID = txID
	if err := s.events.Publish(ctx, e); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("event", string(typ)).Uint("transaction_id", txID).Msg("event publish failed")
	}
}

// alertWatch records whether the user was already over the alert threshold
// before a mutation, so budget.alert fires once per crossing rather than on
// every read.
type alertWatch struct {
	enabled bool
	before  bool
	now     time.Time
}

// watchAlert only arms for expense writes by users with a budget; income and
// deletes never raise spending.
func (s *Service) watchAlert(ctx context.Context, user *models.User, typ models.TransactionType) alertWatch {
	if typ != models.Expense || !user.MonthlyBudget.IsPositive() {
		return alertWatch{}
	}
	now := s.now()
	alert, ok := s.currentAlert(ctx, user, now)
	if !ok {
		return alertWatch{}
	}
	return alertWatch{enabled: true, before: alert != nil, now: now}
}

func (s *Service) publishAlertIfCrossed(ctx context.Context, user *models.User, w alertWatch) {
	if !w.enabled || w.before {
		return
	}
	alert, ok := s.currentAlert(ctx, user, w.now)
	if !ok || alert == nil {
		return
	}
	e := events.New(events.BudgetAlert, user.ID)
	e.Percentage = alert.Percentage
	if err := s.events.Publish(ctx, e); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("event", string(events.BudgetAlert)).Msg("event publish failed")
	}
}

func (s *Service) currentAlert(ctx context.Context, user *models.User, now time.Time) (*summary.Alert, bool) {
	txs, err := s.txs.FindTransactions(ctx, user.ID, store.Filter{})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("budget alert check skipped")
		return nil, false
	}
	return summary.Compute(txs, user.MonthlyBudget, user.BudgetAlertThreshold, now).BudgetAlert, true
}

// DeleteAll removes every transaction user owns and reports how many went.
// It stops at the first failure; rows deleted before it stay deleted.
func (s *Service) DeleteAll(ctx context.Context, user *models.User) (int, error) {
	txs, err := s.txs.FindTransactions(ctx, user.ID, store.Filter{})
	if err != nil {
		return 0, err
	}
	n := 0
	for _, t := range txs {
		deleted, err := s.txs.DeleteTransaction(ctx, user.ID, t.ID)
		if err != nil {
			return n, err
		}
		if deleted {
			n++
			s.publish(ctx, events.TransactionDeleted, user.ID, t.ID)
		}
	}
	return n, nil
}
