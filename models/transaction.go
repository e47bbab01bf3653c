package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// amounts travel as JSON numbers, not quoted strings
	decimal.MarshalJSONWithoutQuotes = true
}

// TransactionType distinguishes money coming in from money going out.
type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Transaction is a single income or expense entry owned by one user.
type Transaction struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    uint            `gorm:"index;not null"`
	Title     string          `gorm:"size:255;not null"`
	Amount    decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Type      TransactionType `gorm:"size:16;index;not null"`
	Category  string          `gorm:"size:64;index"`
	Date      time.Time       `gorm:"type:date;index;not null"` // calendar date at 00:00 UTC
}

type transactionJSON struct {
	ID        uint            `json:"id"`
	UserID    uint            `json:"userId"`
	Title     string          `json:"title"`
	Amount    decimal.Decimal `json:"amount"`
	Type      TransactionType `json:"type"`
	Category  string          `json:"category"`
	Date      string          `json:"date"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionJSON{
		ID:        t.ID,
		UserID:    t.UserID,
		Title:     t.Title,
		Amount:    t.Amount,
		Type:      t.Type,
		Category:  t.Category,
		Date:      FormatDate(t.Date),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	})
}

func (t *Transaction) UnmarshalJSON(data []byte) error {
	var raw transactionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	date, err := ParseDate(raw.Date)
	if err != nil {
		return err
	}
	*t = Transaction{
		ID:        raw.ID,
		CreatedAt: raw.CreatedAt,
		UpdatedAt: raw.UpdatedAt,
		UserID:    raw.UserID,
		Title:     raw.Title,
		Amount:    raw.Amount,
		Type:      raw.Type,
		Category:  raw.Category,
		Date:      date,
	}
	return nil
}
