package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UntitledConversation is displayed for conversations without a title
const UntitledConversation = "Untitled conversation"

// Conversation represents a user-owned chat conversation
type Conversation struct {
	ID            string         `gorm:"size:36;primaryKey"                           json:"id"`
	UserID        int64          `gorm:"not null;index;check:user_id > 0"             json:"userId"`
	Title         *string        `gorm:"size:500"                                     json:"title"`
	Context       datatypes.JSON `gorm:"type:jsonb"                                   json:"context"`
	IsActive      bool           `gorm:"not null;default:true;index"                  json:"isActive"`
	CreatedAt     time.Time      `gorm:"not null;autoCreateTime"                      json:"createdAt"`
	UpdatedAt     time.Time      `gorm:"not null;autoUpdateTime;index"                json:"updatedAt"`
	TotalMessages int            `gorm:"not null;default:0;check:total_messages >= 0" json:"totalMessages"`
	LastMessageAt *time.Time     `                                                    json:"lastMessageAt"`

	// Associations
	Messages []Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Conversation model
func (Conversation) TableName() string {
	return "conversations"
}

// BeforeCreate hook to ensure ID is set
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// NewConversation builds an active conversation with a fresh id and no messages
func NewConversation(userID int64, title *string, context datatypes.JSON, now time.Time) *Conversation {
	return &Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Context:   context,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DisplayTitle returns the title for presentation, never empty
func (c *Conversation) DisplayTitle() string {
	if c.Title == nil || strings.TrimSpace(*c.Title) == "" {
		return UntitledConversation
	}
	return *c.Title
}

// ConversationStats aggregates the conversations of one user
type ConversationStats struct {
	TotalConversations             int64   `json:"totalConversations"`
	ActiveConversations            int64   `json:"activeConversations"`
	TotalMessages                  int64   `json:"totalMessages"`
	TotalTokensUsed                int64   `json:"totalTokensUsed"`
	EstimatedCost                  float64 `json:"estimatedCost"`
	AverageMessagesPerConversation float64 `json:"averageMessagesPerConversation"`
}
