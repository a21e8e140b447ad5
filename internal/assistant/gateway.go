// Package assistant sequences prompt building, model calls, response parsing and
// record-store bookkeeping into the three user-facing operations: extracting a
// record from free text, chatting, and summarizing transactions.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spicewise/internal/llm"
	"github.com/Veraticus/spicewise/internal/model"
	"github.com/Veraticus/spicewise/internal/service"
)

// Sender posts a request to the model and returns the raw response body.
// *llm.Client implements it.
type Sender interface {
	Send(ctx context.Context, req llm.Request, apiKey string) ([]byte, error)
}

// Deps holds the collaborators shared by all services. Stores are optional;
// a nil store disables the bookkeeping that needs it.
type Deps struct {
	Client        Sender
	Prompts       *llm.PromptBuilder
	Categories    service.CategoryStore
	Conversations service.ConversationStore
	Transactions  service.TransactionStore
	Cache         service.InsightCache
	Logger        *slog.Logger
	Now           func() time.Time
	APIKey        string
}

// Extractor turns free text into financial records.
type Extractor interface {
	Extract(ctx context.Context, text string, now time.Time) (*model.ExtractedRecord, error)
	Save(ctx context.Context, record *model.ExtractedRecord) (*model.Transaction, error)
}

// Conversations holds multi-turn chats.
type Conversations interface {
	Exchange(ctx context.Context, message, conversationID string) (reply string, id string, err error)
	List(ctx context.Context) ([]model.Conversation, error)
	ListAll(ctx context.Context) ([]model.Conversation, error)
	Get(ctx context.Context, id string) (*model.Conversation, error)
	Delete(ctx context.Context, id string) error
	Archive(ctx context.Context, id string) error
}

// Insights produces summaries and answers over transaction data.
type Insights interface {
	Summarize(ctx context.Context, records []model.Transaction, period string) (*model.InsightResult, error)
	Analyze(ctx context.Context, question string, records []model.Transaction) (string, error)
	Refresh(ctx context.Context, records []model.Transaction, period string) (*model.InsightResult, error)
	Cached(ctx context.Context, period string) (*model.InsightResult, error)
}

// Gateway is the single entry point for callers; each capability is delegated
// to its own service.
type Gateway struct {
	Extractor
	Conversations
	Insights
}

// ErrStoreNotConfigured is returned by operations that need a store the gateway was built without.
var ErrStoreNotConfigured = errors.New("record store is not configured")

// New builds a Gateway whose services share one client.
func New(deps Deps) (*Gateway, error) {
	deps, err := deps.withDefaults()
	if err != nil {
		return nil, err
	}

	return &Gateway{
		Extractor:     NewExtractionService(deps),
		Conversations: NewConversationService(deps),
		Insights:      NewInsightService(deps),
	}, nil
}

func (d Deps) withDefaults() (Deps, error) {
	if d.Client == nil {
		return d, fmt.Errorf("model client is required")
	}
	if d.Prompts == nil {
		prompts, err := llm.NewPromptBuilder()
		if err != nil {
			return d, fmt.Errorf("failed to load prompts: %w", err)
		}
		d.Prompts = prompts
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d, nil
}

// complete sends req and returns the reply text with its token usage.
func complete(ctx context.Context, client Sender, req llm.Request, apiKey string) (string, llm.Usage, error) {
	raw, err := client.Send(ctx, req, apiKey)
	if err != nil {
		return "", llm.Usage{}, err
	}
	return llm.Text(raw)
}
