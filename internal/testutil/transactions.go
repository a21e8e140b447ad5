package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/spicewise/internal/model"
)

// TransactionBuilder builds transactions with sensible defaults.
type TransactionBuilder struct {
	txn model.Transaction
}

var builderSeq atomic.Int64

// NewTransaction starts an expense of 10.00 in Food on 2025-01-15.
func NewTransaction() *TransactionBuilder {
	date := time.Date(2025, 1, 15, 0, 0, 0, 0, time.Local)
	return &TransactionBuilder{txn: model.Transaction{
		ID:        fmt.Sprintf("txn-%03d", builderSeq.Add(1)),
		Date:      date,
		CreatedAt: date,
		Type:      model.CategoryTypeExpense,
		Category:  "Food",
		Account:   model.DefaultAccount,
		Amount:    decimal.NewFromInt(10),
	}}
}

// WithID sets the transaction id.
func (b *TransactionBuilder) WithID(id string) *TransactionBuilder {
	b.txn.ID = id
	return b
}

// WithAmount sets the amount from a decimal string such as "12.50".
func (b *TransactionBuilder) WithAmount(amount string) *TransactionBuilder {
	b.txn.Amount = decimal.RequireFromString(amount)
	return b
}

// WithDate sets the date from YYYY-MM-DD at local midnight.
func (b *TransactionBuilder) WithDate(date string) *TransactionBuilder {
	d, err := time.ParseInLocation(time.DateOnly, date, time.Local)
	if err != nil {
		panic(err)
	}
	b.txn.Date = d
	b.txn.CreatedAt = d
	return b
}

// WithCategory sets the category name.
func (b *TransactionBuilder) WithCategory(name string) *TransactionBuilder {
	b.txn.Category = name
	return b
}

// Income marks the transaction as income.
func (b *TransactionBuilder) Income() *TransactionBuilder {
	b.txn.Type = model.CategoryTypeIncome
	return b
}

// WithNote sets the note.
func (b *TransactionBuilder) WithNote(note string) *TransactionBuilder {
	b.txn.Note = note
	return b
}

// Build returns the transaction.
func (b *TransactionBuilder) Build() model.Transaction {
	return b.txn
}
