package model

import "time"

// PlaceholderTitle is the title a conversation carries until its first message names it.
const PlaceholderTitle = "New Conversation"

// Role identifies the author of a conversation message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Label returns the role as rendered in a transcript ("User", "Assistant", "System").
func (r Role) Label() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// Message is one turn of a conversation.
type Message struct {
	CreatedAt      time.Time
	ConversationID string
	Role           Role
	Content        string
	ID             int64
	InputTokens    int
	OutputTokens   int
}

// Conversation is a persisted thread of messages.
type Conversation struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	ID        string
	Title     string
	Messages  []Message
	Archived  bool
}

// HasPlaceholderTitle reports whether the conversation still needs a title.
func (c *Conversation) HasPlaceholderTitle() bool {
	return c.Title == "" || c.Title == PlaceholderTitle
}
