// Package model holds the domain values shared by the gateway, the services and storage.
package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a persisted financial record, typically accepted from an extraction.
type Transaction struct {
	Date          time.Time
	CreatedAt     time.Time
	CategoryID    *int64
	ID            string
	Type          CategoryType
	Category      string
	Account       string
	PaymentMethod string
	Note          string
	Amount        decimal.Decimal
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
