package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/spicewise/internal/common"
	"github.com/Veraticus/spicewise/internal/llm"
	"github.com/Veraticus/spicewise/internal/model"
	"github.com/Veraticus/spicewise/internal/service"
)

const (
	// HistoryLimit is the number of persisted messages replayed to the model.
	HistoryLimit = 10

	// titleLength is the number of characters kept when titling a conversation.
	titleLength = 30

	systemInstruction = "System: You are a personal finance assistant inside a budgeting app. " +
		"Answer questions about spending, saving, budgeting and the user's financial records. " +
		"Politely decline unrelated requests. Keep answers brief and practical."
)

// ConversationService runs chat exchanges with bounded history.
type ConversationService struct {
	client  Sender
	prompts *llm.PromptBuilder
	store   service.ConversationStore
	logger  *slog.Logger
	now     func() time.Time
	apiKey  string
}

// NewConversationService creates a ConversationService. Without a store every
// exchange starts a fresh, unsaved conversation.
func NewConversationService(deps Deps) *ConversationService {
	return &ConversationService{
		client:  deps.Client,
		prompts: deps.Prompts,
		store:   deps.Conversations,
		logger:  deps.Logger,
		now:     deps.Now,
		apiKey:  deps.APIKey,
	}
}

// Exchange sends message within the conversation identified by conversationID,
// starting a new conversation when the id is empty, malformed or unknown. It
// returns the reply and the id of the conversation it was recorded in.
//
// The exchange is saved only after the model replied. Storage failures are
// logged and do not fail the exchange.
func (s *ConversationService) Exchange(ctx context.Context, message, conversationID string) (string, string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", "", fmt.Errorf("message is empty")
	}

	now := s.now()
	conv, isNew := s.resolve(ctx, conversationID, now)

	history := s.history(ctx, conv, isNew)
	req := s.prompts.Chat(renderTranscript(history, message))

	reply, usage, err := complete(ctx, s.client, req, s.apiKey)
	if err != nil {
		return "", "", fmt.Errorf("chat request failed: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", "", fmt.Errorf("chat request failed: %w", llm.NewDecodingError("empty reply", nil))
	}

	s.record(ctx, conv, isNew, message, reply, usage, now)
	return reply, conv.ID, nil
}

// resolve returns the stored conversation for id, or a new unsaved one.
func (s *ConversationService) resolve(ctx context.Context, id string, now time.Time) (*model.Conversation, bool) {
	if parsed, err := uuid.Parse(strings.TrimSpace(id)); err == nil && s.store != nil {
		conv, err := s.store.GetConversation(ctx, parsed.String())
		switch {
		case err == nil:
			return conv, false
		case errors.Is(err, common.ErrNotFound):
			s.logger.Debug("conversation not found, starting a new one", "id", id)
		default:
			s.logger.Warn("failed to load conversation, starting a new one", "id", id, "error", err)
		}
	}

	return &model.Conversation{
		ID:        uuid.NewString(),
		Title:     model.PlaceholderTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}, true
}

func (s *ConversationService) history(ctx context.Context, conv *model.Conversation, isNew bool) []model.Message {
	if isNew || s.store == nil {
		return nil
	}
	messages, err := s.store.RecentMessages(ctx, conv.ID, HistoryLimit)
	if err != nil {
		s.logger.Warn("failed to load conversation history", "id", conv.ID, "error", err)
		return nil
	}
	if len(messages) > HistoryLimit {
		messages = messages[len(messages)-HistoryLimit:]
	}
	return messages
}

func (s *ConversationService) record(ctx context.Context, conv *model.Conversation, isNew bool, message, reply string, usage llm.Usage, now time.Time) {
	if s.store == nil {
		return
	}

	title := ""
	if conv.HasPlaceholderTitle() {
		title = Title(message)
	}

	if isNew {
		conv.Title = title
		if err := s.store.CreateConversation(ctx, conv); err != nil {
			s.logger.Warn("failed to save conversation", "id", conv.ID, "error", err)
			return
		}
		title = ""
	}

	err := s.store.AppendMessages(ctx, conv.ID,
		model.Message{
			ConversationID: conv.ID,
			Role:           model.RoleUser,
			Content:        message,
			InputTokens:    usage.PromptTokenCount,
			CreatedAt:      now,
		},
		model.Message{
			ConversationID: conv.ID,
			Role:           model.RoleAssistant,
			Content:        reply,
			OutputTokens:   usage.CandidatesTokenCount,
			CreatedAt:      now,
		},
	)
	if err != nil {
		s.logger.Warn("failed to save messages", "id", conv.ID, "error", err)
		return
	}

	updatedAt := now
	if conv.UpdatedAt.After(updatedAt) {
		updatedAt = conv.UpdatedAt
	}
	if err := s.store.TouchConversation(ctx, conv.ID, title, updatedAt); err != nil {
		s.logger.Warn("failed to update conversation", "id", conv.ID, "error", err)
	}
}

// List returns non-archived conversations, most recently updated first.
func (s *ConversationService) List(ctx context.Context) ([]model.Conversation, error) {
	if s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	return s.store.ListConversations(ctx, false)
}

// ListAll returns every conversation including archived ones.
func (s *ConversationService) ListAll(ctx context.Context) ([]model.Conversation, error) {
	if s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	return s.store.ListConversations(ctx, true)
}

// Get returns a conversation with its messages.
func (s *ConversationService) Get(ctx context.Context, id string) (*model.Conversation, error) {
	if s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	return s.store.GetConversation(ctx, id)
}

// Delete permanently removes a conversation and its messages.
func (s *ConversationService) Delete(ctx context.Context, id string) error {
	if s.store == nil {
		return ErrStoreNotConfigured
	}
	return s.store.DeleteConversation(ctx, id)
}

// Archive hides a conversation from List.
func (s *ConversationService) Archive(ctx context.Context, id string) error {
	if s.store == nil {
		return ErrStoreNotConfigured
	}
	return s.store.ArchiveConversation(ctx, id)
}

// Title derives a conversation title from its first message.
func Title(message string) string {
	runes := []rune(strings.TrimSpace(message))
	if len(runes) > titleLength {
		return string(runes[:titleLength]) + "..."
	}
	return string(runes)
}

func renderTranscript(history []model.Message, message string) string {
	lines := make([]string, 0, len(history)+2)
	for _, m := range history {
		lines = append(lines, m.Role.Label()+": "+m.Content)
	}
	lines = append(lines, "User: "+message, systemInstruction)
	return strings.Join(lines, "\n")
}
