package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/spicewise/internal/llm"
	"github.com/Veraticus/spicewise/internal/model"
	"github.com/Veraticus/spicewise/internal/service"
)

// InsightService summarizes and answers questions about transactions.
// Callers pre-filter the records; nothing is truncated here.
type InsightService struct {
	client  Sender
	prompts *llm.PromptBuilder
	cache   service.InsightCache
	logger  *slog.Logger
	now     func() time.Time
	apiKey  string
}

// NewInsightService creates an InsightService. The cache is optional.
func NewInsightService(deps Deps) *InsightService {
	return &InsightService{
		client:  deps.Client,
		prompts: deps.Prompts,
		cache:   deps.Cache,
		logger:  deps.Logger,
		now:     deps.Now,
		apiKey:  deps.APIKey,
	}
}

// Summarize asks the model for a summary and a few observations about records.
func (s *InsightService) Summarize(ctx context.Context, records []model.Transaction, period string) (*model.InsightResult, error) {
	req, err := s.prompts.Insight(period, llm.Dataset(records))
	if err != nil {
		return nil, err
	}

	reply, _, err := complete(ctx, s.client, req, s.apiKey)
	if err != nil {
		return nil, fmt.Errorf("insight request failed: %w", err)
	}

	fields, err := llm.DecodeJSON[llm.InsightFields](reply)
	if err != nil {
		return nil, fmt.Errorf("failed to decode insight: %w", err)
	}

	insights := make([]string, 0, len(fields.Insights))
	for _, item := range fields.Insights {
		if item = strings.TrimSpace(item); item != "" {
			insights = append(insights, item)
		}
	}

	return &model.InsightResult{
		Period:      period,
		Summary:     strings.TrimSpace(fields.Summary),
		Insights:    insights,
		GeneratedAt: s.now(),
	}, nil
}

// Analyze answers question using only records.
func (s *InsightService) Analyze(ctx context.Context, question string, records []model.Transaction) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("question is empty")
	}

	req, err := s.prompts.Analysis(question, llm.Dataset(records))
	if err != nil {
		return "", err
	}

	reply, _, err := complete(ctx, s.client, req, s.apiKey)
	if err != nil {
		return "", fmt.Errorf("analysis request failed: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("analysis request failed: %w", llm.NewDecodingError("empty reply", nil))
	}
	return reply, nil
}

// Refresh regenerates the insight for period and replaces the cached one.
// Cache failures are logged; only the model call can fail the refresh.
func (s *InsightService) Refresh(ctx context.Context, records []model.Transaction, period string) (*model.InsightResult, error) {
	if s.cache != nil {
		if err := s.cache.DeleteInsight(ctx, period); err != nil {
			s.logger.Warn("failed to clear cached insight", "period", period, "error", err)
		}
	}

	result, err := s.Summarize(ctx, records, period)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.PutInsight(ctx, result); err != nil {
			s.logger.Warn("failed to cache insight", "period", period, "error", err)
		}
	}
	return result, nil
}

// Cached returns the stored insight for period, or nil when there is none.
func (s *InsightService) Cached(ctx context.Context, period string) (*model.InsightResult, error) {
	if s.cache == nil {
		return nil, nil
	}
	return s.cache.GetInsight(ctx, period)
}
