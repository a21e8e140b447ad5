// Package testutil provides test helpers for seeding a throwaway record store.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/spicewise/internal/model"
	"github.com/Veraticus/spicewise/internal/storage"
)

// TestDB is a migrated in-memory store with the data it was seeded with.
type TestDB struct {
	Storage      *storage.SQLiteStorage
	t            *testing.T
	Categories   map[string]model.Category
	Transactions []model.Transaction
}

// TestDBOptions configures SetupTestDBWithOptions.
type TestDBOptions struct {
	CustomSetup    func(context.Context, *storage.SQLiteStorage) error
	Categories     []CategorySeed
	Transactions   []model.Transaction
	SkipMigrations bool
}

// CategorySeed names a category to create before the test runs.
type CategorySeed struct {
	Name string
	Type model.CategoryType
}

// BasicCategories is the minimal category set most tests need.
var BasicCategories = []CategorySeed{
	{Name: "Food", Type: model.CategoryTypeExpense},
	{Name: "Transport", Type: model.CategoryTypeExpense},
	{Name: "Salary", Type: model.CategoryTypeIncome},
}

// SetupTestDB creates a migrated in-memory store seeded with the given transactions.
// Categories referenced by the transactions are created as needed.
func SetupTestDB(t *testing.T, transactions ...model.Transaction) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{Transactions: transactions})
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(storage.MemoryPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	db := &TestDB{
		Storage:    store,
		Categories: make(map[string]model.Category),
		t:          t,
	}

	for _, seed := range opts.Categories {
		db.category(ctx, seed.Name, seed.Type)
	}

	for _, txn := range opts.Transactions {
		cat := db.category(ctx, txn.Category, txn.Type)
		txn.CategoryID = &cat.ID
		if err := store.SaveTransaction(ctx, &txn); err != nil {
			t.Fatalf("failed to seed transaction %q: %v", txn.ID, err)
		}
		db.Transactions = append(db.Transactions, txn)
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return db
}

func (db *TestDB) category(ctx context.Context, name string, categoryType model.CategoryType) model.Category {
	db.t.Helper()
	if cat, ok := db.Categories[name]; ok {
		return cat
	}
	cat, err := db.Storage.FindOrCreateCategory(ctx, name, categoryType)
	if err != nil {
		db.t.Fatalf("failed to seed category %q: %v", name, err)
	}
	db.Categories[name] = *cat
	return *cat
}

// MustGetCategory returns the seeded category with the given name or fails the test.
func (db *TestDB) MustGetCategory(name string) model.Category {
	db.t.Helper()
	cat, ok := db.Categories[name]
	if !ok {
		db.t.Fatalf("category %q was not seeded", name)
	}
	return cat
}
