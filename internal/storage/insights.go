package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Veraticus/spicewise/internal/model"
)

// GetInsight returns the cached insight for period, or nil when none is stored
// or it has outlived the insight TTL.
func (s *SQLiteStorage) GetInsight(ctx context.Context, period string) (*model.InsightResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(period, "period"); err != nil {
		return nil, err
	}

	var (
		insight     = model.InsightResult{Period: period}
		encoded     string
		generatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT summary, insights, generated_at
		FROM insights
		WHERE period = ?`, period).Scan(&insight.Summary, &encoded, &generatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query insight: %w", err)
	}

	if err := json.Unmarshal([]byte(encoded), &insight.Insights); err != nil {
		return nil, fmt.Errorf("failed to decode stored insights: %w", err)
	}
	if insight.GeneratedAt, err = parseTime(generatedAt); err != nil {
		return nil, err
	}
	if s.insightTTL > 0 && s.now().Sub(insight.GeneratedAt) > s.insightTTL {
		return nil, nil
	}
	return &insight, nil
}

// PutInsight stores insight for its period, replacing any previous one.
func (s *SQLiteStorage) PutInsight(ctx context.Context, insight *model.InsightResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateInsight(insight); err != nil {
		return err
	}

	items := insight.Insights
	if items == nil {
		items = []string{}
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode insights: %w", err)
	}

	generatedAt := insight.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = s.now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO insights (period, summary, insights, generated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(period) DO UPDATE SET
			summary = excluded.summary,
			insights = excluded.insights,
			generated_at = excluded.generated_at`,
		insight.Period, insight.Summary, string(encoded), formatTime(generatedAt))
	if err != nil {
		return fmt.Errorf("failed to store insight: %w", err)
	}
	return nil
}

// DeleteInsight removes the cached insight for period. Deleting a missing period is not an error.
func (s *SQLiteStorage) DeleteInsight(ctx context.Context, period string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(period, "period"); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM insights WHERE period = ?`, period); err != nil {
		return fmt.Errorf("failed to delete insight: %w", err)
	}
	return nil
}
