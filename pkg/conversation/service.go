// Package conversation implements the lifecycle of user-owned chat
// conversations: creation, partial updates, soft deletion, message threading,
// completion round trips and usage accounting.
package conversation

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/d4l-data4life/go-bot-host/pkg/apperr"
	"github.com/d4l-data4life/go-bot-host/pkg/config"
	"github.com/d4l-data4life/go-bot-host/pkg/llm"
	"github.com/d4l-data4life/go-bot-host/pkg/metrics"
	"github.com/d4l-data4life/go-bot-host/pkg/models"
	"github.com/d4l-data4life/go-bot-host/pkg/paging"
	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// MsgConversationUnavailable is returned for messages posted to a missing or inactive conversation
const MsgConversationUnavailable = "conversation not found or inactive"

var (
	conversationBounds = paging.Bounds{DefaultLimit: 20, MaxLimit: 100}
	messageBounds      = paging.Bounds{DefaultLimit: 50, MaxLimit: 200}
)

// Config holds the immutable settings of the use-case
type Config struct {
	Costs              config.CostTables
	DefaultModel       string
	DefaultTemperature float64
	DefaultMaxTokens   int
}

// Service is the conversation use-case
type Service struct {
	repo     Repository
	provider llm.Provider
	config   Config
	now      func() time.Time
}

// NewService creates the conversation use-case
func NewService(repo Repository, provider llm.Provider, cfg Config) *Service {
	if cfg.Costs.PerMessage == nil {
		cfg.Costs = config.DefaultCostTables()
	}
	return &Service{
		repo:     repo,
		provider: provider,
		config:   cfg,
		now:      time.Now,
	}
}

// CreateConversation creates an active conversation for in.UserID
func (s *Service) CreateConversation(ctx context.Context, in CreateInput) (*models.Conversation, error) {
	if in.UserID <= 0 {
		return nil, apperr.InvalidArgument("userId must be a positive integer")
	}

	now := s.now()
	title := in.Title
	switch {
	case title == nil:
		title = defaultTitle(now)
	case strings.TrimSpace(*title) == "":
		title = nil
	}

	conv := models.NewConversation(in.UserID, title, in.Context, now)
	if err := s.repo.CreateConversation(ctx, conv); err != nil {
		logging.LogErrorf(err, "Failed to create conversation for user %d", in.UserID)
		return nil, apperr.Internal(err, "failed to create conversation")
	}
	metrics.ConversationsCreated.Inc()
	logging.LogDebugf("Created conversation: %s for user: %d", conv.ID, in.UserID)
	return conv, nil
}

// UpdateConversation applies the provided fields to a conversation owned by in.UserID
func (s *Service) UpdateConversation(ctx context.Context, in UpdateInput) (*models.Conversation, error) {
	if in.ConversationID == "" || in.UserID <= 0 {
		return nil, apperr.InvalidArgument("conversationId and userId are required")
	}
	if _, err := s.ownedConversation(ctx, in.ConversationID, in.UserID); err != nil {
		return nil, err
	}

	changes := in.Changes
	if changes.Title != nil && strings.TrimSpace(*changes.Title) == "" {
		// an explicit blank title clears it
		changes.Title = new(string)
	}
	conv, err := s.repo.UpdateConversation(ctx, in.ConversationID, in.UserID, changes)
	if err != nil {
		logging.LogErrorf(err, "Failed to update conversation %s", in.ConversationID)
		return nil, apperr.Internal(err, "failed to update conversation")
	}
	if conv == nil {
		return nil, apperr.NotFound("conversation not found")
	}
	logging.LogDebugf("Updated conversation: %s", in.ConversationID)
	return conv, nil
}

// DeleteConversation deactivates a conversation. The delete is filtered by
// (id, userId): a non-matching pair is a silent no-op. Messages are kept.
func (s *Service) DeleteConversation(ctx context.Context, conversationID string, userID int64) error {
	if conversationID == "" || userID <= 0 {
		return apperr.InvalidArgument("conversationId and userId are required")
	}
	if err := s.repo.SoftDeleteConversation(ctx, conversationID, userID); err != nil {
		logging.LogErrorf(err, "Failed to delete conversation %s", conversationID)
		return apperr.Internal(err, "failed to delete conversation")
	}
	logging.LogDebugf("Deleted conversation: %s", conversationID)
	return nil
}

// GetConversation returns a conversation owned by userID
func (s *Service) GetConversation(ctx context.Context, conversationID string, userID int64) (*models.Conversation, error) {
	if conversationID == "" || userID <= 0 {
		return nil, apperr.InvalidArgument("conversationId and userId are required")
	}
	return s.ownedConversation(ctx, conversationID, userID)
}

// GetConversations lists a user's conversations, most recently updated first
func (s *Service) GetConversations(ctx context.Context, in ListInput) (*ListResult, error) {
	if in.UserID <= 0 {
		return nil, apperr.InvalidArgument("userId must be a positive integer")
	}
	page := conversationBounds.Resolve(in.Page, in.Limit)
	filter := ListFilter{
		UserID:   in.UserID,
		IsActive: in.IsActive,
		Search:   strings.TrimSpace(in.Search),
	}

	conversations, total, err := s.repo.ListConversations(ctx, filter, page)
	if err != nil {
		logging.LogErrorf(err, "Failed to list conversations for user %d", in.UserID)
		return nil, apperr.Internal(err, "failed to list conversations")
	}
	if conversations == nil {
		conversations = []models.Conversation{}
	}
	return &ListResult{
		Conversations: conversations,
		Total:         total,
		Page:          page.Page,
		Limit:         page.Limit,
		TotalPages:    paging.TotalPages(total, page.Limit),
	}, nil
}

// AddMessage appends an immutable message to an active conversation. The
// parent lookup is scoped by in.Author, so SystemInitiated reaches any
// conversation. A missing and an inactive parent fail identically.
func (s *Service) AddMessage(ctx context.Context, in AddMessageInput) (*models.Message, error) {
	if in.ConversationID == "" {
		return nil, apperr.InvalidArgument("conversationId is required")
	}
	if !in.Author.Valid() {
		return nil, apperr.InvalidArgument("message author is required")
	}
	if !in.Role.Valid() {
		return nil, apperr.InvalidArgument("role must be one of USER, ASSISTANT, SYSTEM")
	}

	conv, err := s.repo.FindConversation(ctx, in.ConversationID, in.Author)
	if err != nil {
		logging.LogErrorf(err, "Failed to get conversation %s", in.ConversationID)
		return nil, apperr.Internal(err, "failed to add message")
	}
	if conv == nil || !conv.IsActive {
		return nil, apperr.DomainConflict(MsgConversationUnavailable)
	}

	msg := &models.Message{
		ConversationID: in.ConversationID,
		Content:        in.Content,
		Role:           in.Role,
		CreatedAt:      s.now(),
		Metadata:       in.Metadata,
		ModelMessageID: in.ModelMessageID,
		TokensUsed:     in.TokensUsed,
		Model:          in.Model,
		FinishReason:   in.FinishReason,
	}
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		logging.LogErrorf(err, "Failed to append message to conversation %s", in.ConversationID)
		return nil, apperr.Internal(err, "failed to add message")
	}
	metrics.MessagesAppended.WithLabelValues(string(msg.Role)).Inc()
	return msg, nil
}

// GetMessages lists the messages of a conversation owned by in.UserID, oldest first
func (s *Service) GetMessages(ctx context.Context, in MessagesInput) (*MessagesResult, error) {
	if in.ConversationID == "" || in.UserID <= 0 {
		return nil, apperr.InvalidArgument("conversationId and userId are required")
	}
	if in.Role != nil && !in.Role.Valid() {
		return nil, apperr.InvalidArgument("role must be one of USER, ASSISTANT, SYSTEM")
	}
	if _, err := s.ownedConversation(ctx, in.ConversationID, in.UserID); err != nil {
		return nil, err
	}

	page := messageBounds.Resolve(in.Page, in.Limit)
	messages, total, err := s.repo.ListMessages(ctx, in.ConversationID, in.Role, page)
	if err != nil {
		logging.LogErrorf(err, "Failed to list messages of conversation %s", in.ConversationID)
		return nil, apperr.Internal(err, "failed to list messages")
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return &MessagesResult{
		Messages:   messages,
		Total:      total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: paging.TotalPages(total, page.Limit),
	}, nil
}

// GetMessage returns one message of a conversation owned by userID
func (s *Service) GetMessage(ctx context.Context, conversationID, messageID string, userID int64) (*models.Message, error) {
	if conversationID == "" || messageID == "" || userID <= 0 {
		return nil, apperr.InvalidArgument("conversationId, messageId and userId are required")
	}
	if _, err := s.ownedConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	msg, err := s.repo.FindMessage(ctx, conversationID, messageID)
	if err != nil {
		logging.LogErrorf(err, "Failed to get message %s", messageID)
		return nil, apperr.Internal(err, "failed to get message")
	}
	if msg == nil {
		return nil, apperr.NotFound("message not found")
	}
	return msg, nil
}

// SendMessage stores the user's message, asks the completion provider for a
// reply and stores it with its usage. When the provider call or the reply
// persistence fails, a SYSTEM message with the error text is appended before
// the error is returned.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageResult, error) {
	if in.ConversationID == "" || in.UserID <= 0 {
		return nil, apperr.InvalidArgument("conversationId and userId are required")
	}
	if strings.TrimSpace(in.Message) == "" {
		return nil, apperr.InvalidArgument("message is required")
	}
	conv, err := s.ownedConversation(ctx, in.ConversationID, in.UserID)
	if err != nil {
		return nil, err
	}
	if !conv.IsActive {
		return nil, apperr.DomainConflict(MsgConversationUnavailable)
	}

	author := OwnedBy(in.UserID)
	if _, err := s.AddMessage(ctx, AddMessageInput{
		ConversationID: in.ConversationID,
		Author:         author,
		Content:        in.Message,
		Role:           models.MessageRoleUser,
	}); err != nil {
		return nil, err
	}

	request := s.completionRequest(in)
	completion, err := s.provider.Complete(ctx, request)
	if err != nil {
		s.recordFailure(ctx, in.ConversationID, err)
		return nil, apperr.Internal(err, "failed to send message")
	}

	reply, err := s.AddMessage(ctx, AddMessageInput{
		ConversationID: in.ConversationID,
		Author:         author,
		Content:        completion.Content,
		Role:           models.MessageRoleAssistant,
		Metadata:       usageMetadata(request, completion, s.provider.Name()),
		ModelMessageID: nonEmpty(completion.ID),
		TokensUsed:     &completion.TokensUsed,
		Model:          nonEmpty(completion.Model),
		FinishReason:   nonEmpty(completion.FinishReason),
	})
	if err != nil {
		s.recordFailure(ctx, in.ConversationID, err)
		return nil, err
	}
	metrics.RecordCompletion(completion.Model, s.config.Costs.Priced(completion.Model), completion.TokensUsed)

	updated, err := s.ownedConversation(ctx, in.ConversationID, in.UserID)
	if err != nil {
		return nil, err
	}

	return &SendMessageResult{
		Message:      reply,
		Conversation: updated,
		TokensUsed:   completion.TokensUsed,
		Cost:         s.MessageCost(completion.TokensUsed, completion.Model),
	}, nil
}

// MessageCost prices tokens with the per-message table
func (s *Service) MessageCost(tokens int, model string) float64 {
	return float64(tokens) * s.config.Costs.MessageRate(model)
}

// GetStats aggregates a user's conversations. The estimated cost uses the flat stats rate.
func (s *Service) GetStats(ctx context.Context, userID int64) (*models.ConversationStats, error) {
	if userID <= 0 {
		return nil, apperr.InvalidArgument("userId must be a positive integer")
	}
	stats, err := s.repo.Stats(ctx, userID)
	if err != nil {
		logging.LogErrorf(err, "Failed to get conversation stats for user %d", userID)
		return nil, apperr.Internal(err, "failed to get conversation stats")
	}
	stats.EstimatedCost = float64(stats.TotalTokensUsed) * s.config.Costs.StatsRate
	stats.AverageMessagesPerConversation = 0
	if stats.TotalConversations > 0 {
		stats.AverageMessagesPerConversation = float64(stats.TotalMessages) / float64(stats.TotalConversations)
	}
	return stats, nil
}

// GetTokenUsage sums the tokens of a user's messages created within the optional bounds
func (s *Service) GetTokenUsage(ctx context.Context, in TokenUsageInput) (int64, error) {
	if in.UserID <= 0 {
		return 0, apperr.InvalidArgument("userId must be a positive integer")
	}
	if in.StartDate != nil && in.EndDate != nil && in.StartDate.After(*in.EndDate) {
		return 0, apperr.InvalidArgument("startDate must not be after endDate")
	}
	tokens, err := s.repo.TokenUsage(ctx, in.UserID, in.StartDate, in.EndDate)
	if err != nil {
		logging.LogErrorf(err, "Failed to get token usage for user %d", in.UserID)
		return 0, apperr.Internal(err, "failed to get token usage")
	}
	return tokens, nil
}

func (s *Service) ownedConversation(ctx context.Context, conversationID string, userID int64) (*models.Conversation, error) {
	conv, err := s.repo.FindConversation(ctx, conversationID, OwnedBy(userID))
	if err != nil {
		logging.LogErrorf(err, "Failed to get conversation %s", conversationID)
		return nil, apperr.Internal(err, "failed to get conversation")
	}
	if conv == nil {
		return nil, apperr.NotFound("conversation not found")
	}
	return conv, nil
}

func (s *Service) completionRequest(in SendMessageInput) llm.CompletionRequest {
	request := llm.CompletionRequest{
		Model:     in.Model,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: in.Message}},
		MaxTokens: s.config.DefaultMaxTokens,
	}
	if request.Model == "" {
		request.Model = s.config.DefaultModel
	}
	switch {
	case in.Temperature != nil:
		t := *in.Temperature
		request.Temperature = &t
	case s.config.DefaultTemperature != 0:
		t := s.config.DefaultTemperature
		request.Temperature = &t
	}
	if in.MaxTokens != nil {
		request.MaxTokens = *in.MaxTokens
	}
	return request
}

// recordFailure leaves a trace of err in the transcript. Failing to do so is only logged.
func (s *Service) recordFailure(ctx context.Context, conversationID string, cause error) {
	metrics.CompletionFailures.Inc()
	logging.LogErrorf(cause, "Failed to complete message for conversation %s", conversationID)

	metadata, _ := json.Marshal(map[string]interface{}{"error": true})
	if _, err := s.AddMessage(ctx, AddMessageInput{
		ConversationID: conversationID,
		Author:         SystemInitiated(),
		Content:        "Error: " + cause.Error(),
		Role:           models.MessageRoleSystem,
		Metadata:       datatypes.JSON(metadata),
	}); err != nil {
		logging.LogErrorf(err, "Failed to record error message for conversation %s", conversationID)
	}
}

func usageMetadata(request llm.CompletionRequest, completion *llm.Completion, provider string) datatypes.JSON {
	metadata, _ := json.Marshal(map[string]interface{}{
		"provider":    provider,
		"model":       completion.Model,
		"tokensUsed":  completion.TokensUsed,
		"temperature": request.Temperature,
		"maxTokens":   request.MaxTokens,
	})
	return metadata
}

func defaultTitle(now time.Time) *string {
	title := "Conversation " + now.Format("02/01/2006 15:04:05")
	return &title
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
