// Package service defines the contracts between the gateway core and its collaborators.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/spicewise/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// CategoryStore resolves categories by exact name.
type CategoryStore interface {
	// FindOrCreateCategory returns the category with exactly this name,
	// creating it with the given type when absent.
	FindOrCreateCategory(ctx context.Context, name string, categoryType model.CategoryType) (*model.Category, error)
	GetCategories(ctx context.Context) ([]model.Category, error)
}

// ConversationStore persists conversations and their messages.
type ConversationStore interface {
	CreateConversation(ctx context.Context, conversation *model.Conversation) error
	// GetConversation returns the conversation with all messages, or an error
	// wrapping common.ErrNotFound.
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	ListConversations(ctx context.Context, includeArchived bool) ([]model.Conversation, error)
	// RecentMessages returns at most limit of the newest messages in ascending order.
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
	AppendMessages(ctx context.Context, conversationID string, messages ...model.Message) error
	// TouchConversation advances updated_at (never backwards) and replaces the
	// title when title is non-empty.
	TouchConversation(ctx context.Context, id, title string, updatedAt time.Time) error
	ArchiveConversation(ctx context.Context, id string) error
	DeleteConversation(ctx context.Context, id string) error
}

// TransactionStore persists accepted transactions.
type TransactionStore interface {
	SaveTransaction(ctx context.Context, transaction *model.Transaction) error
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
}

// InsightCache keeps the latest insight per period label.
type InsightCache interface {
	// GetInsight returns nil without error when nothing is cached for period.
	GetInsight(ctx context.Context, period string) (*model.InsightResult, error)
	PutInsight(ctx context.Context, insight *model.InsightResult) error
	DeleteInsight(ctx context.Context, period string) error
}

// Storage is the full record store.
type Storage interface {
	CategoryStore
	ConversationStore
	TransactionStore
	InsightCache

	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	// Backoff returns the delay before the next attempt and whether err is
	// retryable at all. Nil disables retries.
	Backoff func(attempt int, err error) (time.Duration, bool)
	// Sleep waits between attempts. Nil selects a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry observes every scheduled retry.
	OnRetry     func(attempt int, delay time.Duration, err error)
	MaxAttempts int
}
