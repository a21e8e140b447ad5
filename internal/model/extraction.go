package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Defaults applied to fields the model left out of an extraction.
const (
	DefaultCategory   = "Uncategorized"
	DefaultAccount    = "Cash"
	DefaultConfidence = 0.5
)

// ExtractedRecord is a financial record recovered from free text, with defaults applied.
type ExtractedRecord struct {
	Date          time.Time
	CategoryID    *int64 // set once the category was resolved in the store
	Type          CategoryType
	Category      string
	Account       string
	PaymentMethod string
	Note          string
	Amount        decimal.Decimal
	Confidence    float64
}

// ToTransaction converts an accepted record into a transaction with the given id.
func (r ExtractedRecord) ToTransaction(id string, createdAt time.Time) Transaction {
	return Transaction{
		ID:            id,
		Date:          r.Date,
		CreatedAt:     createdAt,
		Amount:        r.Amount,
		Type:          r.Type,
		Category:      r.Category,
		CategoryID:    r.CategoryID,
		Account:       r.Account,
		PaymentMethod: r.PaymentMethod,
		Note:          r.Note,
	}
}
