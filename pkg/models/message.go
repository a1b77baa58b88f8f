package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MessageRole defines the possible roles for a message
type MessageRole string

const (
	MessageRoleUser      MessageRole = "USER"
	MessageRoleAssistant MessageRole = "ASSISTANT"
	MessageRoleSystem    MessageRole = "SYSTEM"
)

// Valid reports whether r is one of the known roles
func (r MessageRole) Valid() bool {
	switch r {
	case MessageRoleUser, MessageRoleAssistant, MessageRoleSystem:
		return true
	}
	return false
}

// Message represents a single immutable entry of a conversation
type Message struct {
	ID             string         `gorm:"size:36;primaryKey"                                                  json:"id"`
	ConversationID string         `gorm:"size:36;not null;index:idx_messages_conversation_created"             json:"conversationId"`
	Content        string         `gorm:"type:text;not null"                                                  json:"content"`
	Role           MessageRole    `gorm:"size:20;not null;check:role IN ('USER','ASSISTANT','SYSTEM')"        json:"role"`
	CreatedAt      time.Time      `gorm:"not null;autoCreateTime;index:idx_messages_conversation_created"     json:"createdAt"`
	Metadata       datatypes.JSON `gorm:"type:jsonb"                                                          json:"metadata,omitempty"`
	ModelMessageID *string        `gorm:"size:255"                                                            json:"openaiMessageId,omitempty"`
	TokensUsed     *int           `                                                                           json:"tokensUsed,omitempty"`
	Model          *string        `gorm:"size:100"                                                            json:"model,omitempty"`
	FinishReason   *string        `gorm:"size:50"                                                             json:"finishReason,omitempty"`
}

// TableName specifies the table name for Message model
func (Message) TableName() string {
	return "conversation_messages"
}

// BeforeCreate hook to ensure ID is set
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
