package model

import "time"

// CategoryType indicates whether a category is for income or expense records.
type CategoryType string

const (
	// CategoryTypeIncome represents categories for income records.
	CategoryTypeIncome CategoryType = "income"
	// CategoryTypeExpense represents categories for expense records.
	CategoryTypeExpense CategoryType = "expense"
)

// ParseCategoryType maps free text onto a category type, defaulting to expense.
func ParseCategoryType(s string) CategoryType {
	if CategoryType(normalize(s)) == CategoryTypeIncome {
		return CategoryTypeIncome
	}
	return CategoryTypeExpense
}

// Category represents a user-visible spending or income category.
type Category struct {
	CreatedAt time.Time
	Name      string
	Type      CategoryType
	ID        int64
}
