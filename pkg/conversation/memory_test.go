package conversation

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/d4l-data4life/go-bot-host/pkg/llm"
	"github.com/d4l-data4life/go-bot-host/pkg/models"
	"github.com/d4l-data4life/go-bot-host/pkg/paging"
)

var errStore = errors.New("store unavailable")

// memoryRepository is an in-memory Repository used by the service tests
type memoryRepository struct {
	mu            sync.Mutex
	conversations map[string]*models.Conversation
	messages      []models.Message
	failAppendFor models.MessageRole
	failLookup    bool
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{conversations: map[string]*models.Conversation{}}
}

func (r *memoryRepository) CreateConversation(_ context.Context, c *models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	cp := *c
	r.conversations[c.ID] = &cp
	return nil
}

func (r *memoryRepository) UpdateConversation(_ context.Context, id string, userID int64, changes Changes) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok || c.UserID != userID {
		return nil, nil
	}
	if changes.Title != nil {
		if *changes.Title == "" {
			c.Title = nil
		} else {
			title := *changes.Title
			c.Title = &title
		}
	}
	if changes.Context != nil {
		c.Context = *changes.Context
	}
	if changes.IsActive != nil {
		c.IsActive = *changes.IsActive
	}
	c.UpdatedAt = c.UpdatedAt.Add(time.Second)
	cp := *c
	return &cp, nil
}

func (r *memoryRepository) SoftDeleteConversation(_ context.Context, id string, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.conversations[id]; ok && c.UserID == userID {
		c.IsActive = false
	}
	return nil
}

func (r *memoryRepository) FindConversation(_ context.Context, id string, owner Owner) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failLookup {
		return nil, errStore
	}
	c, ok := r.conversations[id]
	if !ok {
		return nil, nil
	}
	if userID, filtered := owner.UserID(); filtered && c.UserID != userID {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *memoryRepository) ListConversations(_ context.Context, filter ListFilter, page paging.Page) ([]models.Conversation, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []models.Conversation
	for _, c := range r.conversations {
		if c.UserID != filter.UserID {
			continue
		}
		if filter.IsActive != nil && c.IsActive != *filter.IsActive {
			continue
		}
		if filter.Search != "" && (c.Title == nil || !strings.Contains(strings.ToLower(*c.Title), strings.ToLower(filter.Search))) {
			continue
		}
		matched = append(matched, *c)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].UpdatedAt.After(matched[j].UpdatedAt) })
	return window(matched, page), int64(len(matched)), nil
}

func (r *memoryRepository) AppendMessage(_ context.Context, msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAppendFor != "" && msg.Role == r.failAppendFor {
		return errStore
	}
	c, ok := r.conversations[msg.ConversationID]
	if !ok {
		return errStore
	}
	msg.ID = uuid.NewString()
	r.messages = append(r.messages, *msg)
	c.TotalMessages++
	at := msg.CreatedAt
	c.LastMessageAt = &at
	return nil
}

func (r *memoryRepository) ListMessages(_ context.Context, conversationID string, role *models.MessageRole, page paging.Page) ([]models.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []models.Message
	for _, m := range r.messages {
		if m.ConversationID != conversationID || (role != nil && m.Role != *role) {
			continue
		}
		matched = append(matched, m)
	}
	return window(matched, page), int64(len(matched)), nil
}

func (r *memoryRepository) FindMessage(_ context.Context, conversationID, messageID string) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ConversationID == conversationID && m.ID == messageID {
			cp := m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memoryRepository) Stats(_ context.Context, userID int64) (*models.ConversationStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &models.ConversationStats{}
	for _, c := range r.conversations {
		if c.UserID != userID {
			continue
		}
		stats.TotalConversations++
		if c.IsActive {
			stats.ActiveConversations++
		}
		stats.TotalMessages += int64(c.TotalMessages)
	}
	for _, m := range r.messages {
		if c := r.conversations[m.ConversationID]; c.UserID == userID && m.TokensUsed != nil {
			stats.TotalTokensUsed += int64(*m.TokensUsed)
		}
	}
	return stats, nil
}

func (r *memoryRepository) TokenUsage(_ context.Context, userID int64, start, end *time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, m := range r.messages {
		if c := r.conversations[m.ConversationID]; c.UserID != userID || m.TokensUsed == nil {
			continue
		}
		if (start != nil && m.CreatedAt.Before(*start)) || (end != nil && m.CreatedAt.After(*end)) {
			continue
		}
		total += int64(*m.TokensUsed)
	}
	return total, nil
}

func (r *memoryRepository) messagesOf(conversationID string) []models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Message
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out
}

func window[T any](items []T, page paging.Page) []T {
	offset := page.Offset()
	if offset >= len(items) {
		return []T{}
	}
	end := offset + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// stubProvider answers with a fixed completion or error
type stubProvider struct {
	completion *llm.Completion
	err        error
	requests   []llm.CompletionRequest
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	c := *p.completion
	return &c, nil
}
