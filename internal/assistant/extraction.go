package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/spicewise/internal/llm"
	"github.com/Veraticus/spicewise/internal/model"
	"github.com/Veraticus/spicewise/internal/service"
)

// ExtractionService turns a free-text note into one financial record.
type ExtractionService struct {
	client       Sender
	prompts      *llm.PromptBuilder
	categories   service.CategoryStore
	transactions service.TransactionStore
	logger       *slog.Logger
	now          func() time.Time
	apiKey       string
}

// NewExtractionService creates an ExtractionService. deps must carry a client and prompts.
func NewExtractionService(deps Deps) *ExtractionService {
	return &ExtractionService{
		client:       deps.Client,
		prompts:      deps.Prompts,
		categories:   deps.Categories,
		transactions: deps.Transactions,
		logger:       deps.Logger,
		now:          deps.Now,
		apiKey:       deps.APIKey,
	}
}

// Extract asks the model to parse text, fills in defaults for anything it left
// out and resolves the category in the store. The record is not persisted.
func (s *ExtractionService) Extract(ctx context.Context, text string, now time.Time) (*model.ExtractedRecord, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("nothing to extract: text is empty")
	}

	req, err := s.prompts.Extraction(text, now)
	if err != nil {
		return nil, err
	}

	reply, _, err := complete(ctx, s.client, req, s.apiKey)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}

	fields, err := llm.DecodeJSON[llm.ExtractedFields](reply)
	if err != nil {
		return nil, fmt.Errorf("failed to decode extraction: %w", err)
	}

	record := applyDefaults(fields, now)
	s.resolveCategory(ctx, record)

	s.logger.Debug("extracted record",
		"amount", record.Amount.String(),
		"type", record.Type,
		"category", record.Category,
		"confidence", record.Confidence)
	return record, nil
}

// Save persists an accepted record as a new transaction.
func (s *ExtractionService) Save(ctx context.Context, record *model.ExtractedRecord) (*model.Transaction, error) {
	if s.transactions == nil {
		return nil, ErrStoreNotConfigured
	}
	if record == nil {
		return nil, fmt.Errorf("record is required")
	}

	txn := record.ToTransaction(uuid.NewString(), s.now())
	if err := s.transactions.SaveTransaction(ctx, &txn); err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}
	return &txn, nil
}

func (s *ExtractionService) resolveCategory(ctx context.Context, record *model.ExtractedRecord) {
	if s.categories == nil {
		return
	}
	cat, err := s.categories.FindOrCreateCategory(ctx, record.Category, record.Type)
	if err != nil {
		s.logger.Warn("failed to resolve category",
			"category", record.Category,
			"error", err)
		return
	}
	record.CategoryID = &cat.ID
}

func applyDefaults(f llm.ExtractedFields, now time.Time) *model.ExtractedRecord {
	record := &model.ExtractedRecord{
		Amount:     decimal.Zero,
		Type:       model.CategoryTypeExpense,
		Category:   orDefault(f.Category, model.DefaultCategory),
		Account:    orDefault(f.Account, model.DefaultAccount),
		Note:       orDefault(f.Note, ""),
		Confidence: model.DefaultConfidence,
		Date:       now,
	}
	if f.Amount.Valid {
		record.Amount = f.Amount.Decimal
	}
	if f.Type != nil {
		record.Type = model.ParseCategoryType(*f.Type)
	}
	record.PaymentMethod = orDefault(f.Payment(), record.Account)
	if f.Confidence != nil {
		record.Confidence = clamp(*f.Confidence, 0, 1)
	}
	if f.Date != nil && !f.Date.IsZero() {
		record.Date = f.Date.Time
	}
	return record
}

func orDefault(value *string, fallback string) string {
	if value == nil {
		return fallback
	}
	if v := strings.TrimSpace(*value); v != "" {
		return v
	}
	return fallback
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
