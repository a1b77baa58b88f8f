// Package repository implements the persistence contracts of the use-cases on gorm.
package repository

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/d4l-data4life/go-bot-host/pkg/conversation"
	"github.com/d4l-data4life/go-bot-host/pkg/models"
	"github.com/d4l-data4life/go-bot-host/pkg/paging"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Conversations stores conversations and their messages
type Conversations struct {
	db *gorm.DB
}

var _ conversation.Repository = (*Conversations)(nil)

// NewConversations creates a conversation repository on db
func NewConversations(db *gorm.DB) *Conversations {
	return &Conversations{db: db}
}

func (r *Conversations) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
		return errors.Wrap(err, "failed to insert conversation")
	}
	return nil
}

func (r *Conversations) UpdateConversation(ctx context.Context, id string, userID int64, changes conversation.Changes) (*models.Conversation, error) {
	updates := map[string]interface{}{"updated_at": time.Now()}
	if changes.Title != nil {
		if *changes.Title == "" {
			updates["title"] = nil
		} else {
			updates["title"] = *changes.Title
		}
	}
	if changes.Context != nil {
		updates["context"] = *changes.Context
	}
	if changes.IsActive != nil {
		updates["is_active"] = *changes.IsActive
	}

	res := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "failed to update conversation")
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.FindConversation(ctx, id, conversation.OwnedBy(userID))
}

func (r *Conversations) SoftDeleteConversation(ctx context.Context, id string, userID int64) error {
	err := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()}).Error
	return errors.Wrap(err, "failed to deactivate conversation")
}

// FindConversation looks up id, filtered by owner unless it is system initiated
func (r *Conversations) FindConversation(ctx context.Context, id string, owner conversation.Owner) (*models.Conversation, error) {
	query := r.db.WithContext(ctx).Where("id = ?", id)
	if userID, filtered := owner.UserID(); filtered {
		query = query.Where("user_id = ?", userID)
	}

	var conv models.Conversation
	if err := query.First(&conv).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get conversation")
	}
	return &conv, nil
}

func (r *Conversations) ListConversations(ctx context.Context, filter conversation.ListFilter, page paging.Page) ([]models.Conversation, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Conversation{}).Where("user_id = ?", filter.UserID)
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		query = query.Where("title ILIKE ?", "%"+likeEscaper.Replace(filter.Search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to count conversations")
	}

	var conversations []models.Conversation
	err := query.
		Order("updated_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&conversations).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list conversations")
	}
	return conversations, total, nil
}

// AppendMessage inserts msg and bumps the parent thread in one transaction
func (r *Conversations) AppendMessage(ctx context.Context, msg *models.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return errors.Wrap(err, "failed to insert message")
		}
		return bumpThread(tx, &models.Conversation{}, msg.ConversationID, conversationThread, msg.CreatedAt)
	})
}

// IncrementMessageCount bumps the counter and last message timestamp of a conversation
func (r *Conversations) IncrementMessageCount(ctx context.Context, conversationID string, at time.Time) error {
	return bumpThread(r.db.WithContext(ctx), &models.Conversation{}, conversationID, conversationThread, at)
}

// TouchLastMessageAt refreshes the last message timestamp of a conversation
func (r *Conversations) TouchLastMessageAt(ctx context.Context, conversationID string, at time.Time) error {
	return touchThread(r.db.WithContext(ctx), &models.Conversation{}, conversationID, conversationThread, at)
}

func (r *Conversations) ListMessages(ctx context.Context, conversationID string, role *models.MessageRole, page paging.Page) ([]models.Message, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Message{}).Where("conversation_id = ?", conversationID)
	if role != nil {
		query = query.Where("role = ?", *role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to count messages")
	}

	var messages []models.Message
	err := query.
		Order("created_at ASC").
		Order("id ASC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&messages).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list messages")
	}
	return messages, total, nil
}

func (r *Conversations) FindMessage(ctx context.Context, conversationID, messageID string) (*models.Message, error) {
	var msg models.Message
	err := r.db.WithContext(ctx).
		Where("id = ? AND conversation_id = ?", messageID, conversationID).
		First(&msg).Error
	if err != nil {
		if isRecordNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get message")
	}
	return &msg, nil
}

// Stats counts a user's conversations and messages and sums their tokens.
// Cost and averages are left to the caller.
func (r *Conversations) Stats(ctx context.Context, userID int64) (*models.ConversationStats, error) {
	var stats models.ConversationStats
	err := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Select("COUNT(*) AS total_conversations, "+
			"COUNT(*) FILTER (WHERE is_active) AS active_conversations, "+
			"COALESCE(SUM(total_messages), 0) AS total_messages").
		Where("user_id = ?", userID).
		Scan(&stats).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to aggregate conversations")
	}

	tokens, err := r.TokenUsage(ctx, userID, nil, nil)
	if err != nil {
		return nil, err
	}
	stats.TotalTokensUsed = tokens
	return &stats, nil
}

// TokenUsage sums the tokens of a user's messages created within the optional bounds
func (r *Conversations) TokenUsage(ctx context.Context, userID int64, start, end *time.Time) (int64, error) {
	query := r.db.WithContext(ctx).
		Table(models.Message{}.TableName()+" AS m").
		Joins("JOIN "+models.Conversation{}.TableName()+" AS c ON c.id = m.conversation_id").
		Where("c.user_id = ?", userID)
	if start != nil {
		query = query.Where("m.created_at >= ?", *start)
	}
	if end != nil {
		query = query.Where("m.created_at <= ?", *end)
	}

	var tokens int64
	if err := query.Select("COALESCE(SUM(m.tokens_used), 0)").Scan(&tokens).Error; err != nil {
		return 0, errors.Wrap(err, "failed to sum tokens")
	}
	return tokens, nil
}
