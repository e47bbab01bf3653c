package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultAlertThreshold is the budget usage percentage that raises an alert
// when the user never configured one.
const DefaultAlertThreshold = 80

// User model
type User struct {
	ID                   uint `gorm:"primaryKey"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Username             string          `gorm:"size:255;not null;unique"`
	DisplayName          string          `gorm:"size:255"`
	HashedPassword       []byte          `gorm:"not null"`
	MonthlyBudget        decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	BudgetAlertThreshold int             `gorm:"not null;default:80"`
	Transactions         []Transaction   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// PublicUser is the view of a user that is safe to hand to clients.
type PublicUser struct {
	ID                   uint            `json:"id"`
	Username             string          `json:"username"`
	DisplayName          string          `json:"displayName"`
	MonthlyBudget        decimal.Decimal `json:"monthlyBudget"`
	BudgetAlertThreshold int             `json:"budgetAlertThreshold"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:                   u.ID,
		Username:             u.Username,
		DisplayName:          u.DisplayName,
		MonthlyBudget:        u.MonthlyBudget,
		BudgetAlertThreshold: u.BudgetAlertThreshold,
	}
}
