package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spicewise/internal/model"
)

// GetCategories returns all categories ordered by name.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, type, created_at
		FROM categories
		ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// GetCategoryByName returns the category with exactly this name, or nil when absent.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, type, created_at
		FROM categories
		WHERE name = ?`

	cat, err := scanCategory(s.db.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cat, nil
}

// FindOrCreateCategory returns the category named name, creating it with
// categoryType when no category has exactly that name.
func (s *SQLiteStorage) FindOrCreateCategory(ctx context.Context, name string, categoryType model.CategoryType) (*model.Category, error) {
	existing, err := s.GetCategoryByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if categoryType != model.CategoryTypeIncome {
		categoryType = model.CategoryTypeExpense
	}

	now := s.now()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (name, type, created_at) VALUES (?, ?, ?)`,
		name, string(categoryType), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category ID: %w", err)
	}

	slog.Info("created new category", "name", name, "type", categoryType, "id", id)
	return &model.Category{
		ID:        id,
		Name:      name,
		Type:      categoryType,
		CreatedAt: now.UTC(),
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (*model.Category, error) {
	var (
		cat       model.Category
		catType   string
		createdAt string
	)
	if err := row.Scan(&cat.ID, &cat.Name, &catType, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan category: %w", err)
	}

	ts, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	cat.Type = model.CategoryType(catType)
	cat.CreatedAt = ts
	return &cat, nil
}
