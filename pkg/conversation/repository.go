package conversation

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"github.com/d4l-data4life/go-bot-host/pkg/models"
	"github.com/d4l-data4life/go-bot-host/pkg/paging"
)

// Repository is the persistence contract of the conversation use-case.
// Lookups return (nil, nil) when nothing matches.
type Repository interface {
	CreateConversation(ctx context.Context, conversation *models.Conversation) error
	UpdateConversation(ctx context.Context, id string, userID int64, changes Changes) (*models.Conversation, error)
	SoftDeleteConversation(ctx context.Context, id string, userID int64) error
	FindConversation(ctx context.Context, id string, owner Owner) (*models.Conversation, error)
	ListConversations(ctx context.Context, filter ListFilter, page paging.Page) ([]models.Conversation, int64, error)

	// AppendMessage stores msg and bumps the parent's counter and last-message
	// timestamp as one unit.
	AppendMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID string, role *models.MessageRole, page paging.Page) ([]models.Message, int64, error)
	FindMessage(ctx context.Context, conversationID, messageID string) (*models.Message, error)

	Stats(ctx context.Context, userID int64) (*models.ConversationStats, error)
	TokenUsage(ctx context.Context, userID int64, start, end *time.Time) (int64, error)
}

// Changes lists the fields of a partial update; nil fields are left untouched
type Changes struct {
	Title    *string
	Context  *datatypes.JSON
	IsActive *bool
}

// ListFilter narrows a conversation listing
type ListFilter struct {
	UserID   int64
	IsActive *bool
	Search   string
}
