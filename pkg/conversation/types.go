package conversation

import (
	"time"

	"gorm.io/datatypes"

	"github.com/d4l-data4life/go-bot-host/pkg/models"
)

// CreateInput holds the parameters of CreateConversation.
// A nil Title gets a generated default, a blank Title is stored as null.
type CreateInput struct {
	UserID  int64
	Title   *string
	Context datatypes.JSON
}

// UpdateInput holds the parameters of UpdateConversation
type UpdateInput struct {
	ConversationID string
	UserID         int64
	Changes
}

// ListInput holds the parameters of GetConversations
type ListInput struct {
	UserID   int64
	Page     *int
	Limit    *int
	IsActive *bool
	Search   string
}

// ListResult is a page of conversations
type ListResult struct {
	Conversations []models.Conversation `json:"conversations"`
	Total         int64                 `json:"total"`
	Page          int                   `json:"page"`
	Limit         int                   `json:"limit"`
	TotalPages    int                   `json:"totalPages"`
}

// AddMessageInput holds the parameters of AddMessage
type AddMessageInput struct {
	ConversationID string
	Author         Owner
	Content        string
	Role           models.MessageRole
	Metadata       datatypes.JSON
	ModelMessageID *string
	TokensUsed     *int
	Model          *string
	FinishReason   *string
}

// MessagesInput holds the parameters of GetMessages
type MessagesInput struct {
	ConversationID string
	UserID         int64
	Page           *int
	Limit          *int
	Role           *models.MessageRole
}

// MessagesResult is a page of messages, oldest first
type MessagesResult struct {
	Messages   []models.Message `json:"messages"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"totalPages"`
}

// SendMessageInput holds the parameters of SendMessage; zero values use the configured defaults
type SendMessageInput struct {
	ConversationID string
	UserID         int64
	Message        string
	Model          string
	Temperature    *float64
	MaxTokens      *int
}

// SendMessageResult is the assistant's reply with usage accounting
type SendMessageResult struct {
	Message      *models.Message      `json:"message"`
	Conversation *models.Conversation `json:"conversation"`
	TokensUsed   int                  `json:"tokensUsed"`
	Cost         float64              `json:"cost"`
}

// TokenUsageInput holds the parameters of GetTokenUsage; bounds are inclusive
type TokenUsageInput struct {
	UserID    int64
	StartDate *time.Time
	EndDate   *time.Time
}
