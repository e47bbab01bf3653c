// Package store defines the persistence contract the services depend on.
// Backends live in the gormstore and filestore subpackages.
package store

import (
	"context"
	"time"

	"fintrack/models"

	"github.com/shopspring/decimal"
)

// Filter narrows a transaction listing. Empty fields match everything.
type Filter struct {
	Type     models.TransactionType
	Category string
}

func (f Filter) Match(t *models.Transaction) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	return true
}

// UserUpdate lists the user fields that may change after registration.
// Nil fields are left untouched.
type UserUpdate struct {
	MonthlyBudget        *decimal.Decimal
	BudgetAlertThreshold *int
	HashedPassword       []byte
}

// TransactionFields are the editable fields of a transaction; an update
// replaces all of them.
type TransactionFields struct {
	Title    string
	Amount   decimal.Decimal
	Type     models.TransactionType
	Category string
	Date     time.Time
}

// UserStore lookups return (nil, nil) when the user does not exist.
type UserStore interface {
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	// InsertUser assigns ID and timestamps. A taken username yields an
	// apperr.Conflict error.
	InsertUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, id uint, upd UserUpdate) (*models.User, error)
}

// TransactionStore scopes every call by owner. Transactions of other owners
// behave exactly like missing ones.
type TransactionStore interface {
	// FindTransactions orders by date descending, then by ID ascending.
	FindTransactions(ctx context.Context, ownerID uint, f Filter) ([]models.Transaction, error)
	FindTransaction(ctx context.Context, ownerID, id uint) (*models.Transaction, error)
	InsertTransaction(ctx context.Context, t *models.Transaction) error
	UpdateTransaction(ctx context.Context, ownerID, id uint, fields TransactionFields) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, ownerID, id uint) (bool, error)
}

type Store interface {
	UserStore
	TransactionStore
	Close() error
}
