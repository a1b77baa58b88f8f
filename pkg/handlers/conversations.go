package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"gorm.io/datatypes"

	"github.com/d4l-data4life/go-bot-host/pkg/conversation"
	"github.com/d4l-data4life/go-svc/pkg/instrumented"
)

// ConversationsHandler handles conversation endpoints
type ConversationsHandler struct {
	*instrumented.Handler
	conversations *conversation.Service
	messages      *MessagesHandler
}

// NewConversationsHandler creates a new conversations handler
func NewConversationsHandler(conversations *conversation.Service) *ConversationsHandler {
	return &ConversationsHandler{
		Handler:       GetHandlerFactory().NewHandler("ConversationsHandler"),
		conversations: conversations,
		messages:      NewMessagesHandler(conversations),
	}
}

// Routes returns conversation routes, messages included
func (h *ConversationsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get(h.InstrumentChi("/", h.ListConversations))
	r.Post(h.InstrumentChi("/", h.CreateConversation))
	r.Get(h.InstrumentChi("/stats", h.GetStats))
	r.Get(h.InstrumentChi("/usage", h.GetTokenUsage))
	r.Get(h.InstrumentChi("/{id}", h.GetConversation))
	r.Put(h.InstrumentChi("/{id}", h.UpdateConversation))
	r.Delete(h.InstrumentChi("/{id}", h.DeleteConversation))
	r.Mount("/{id}/messages", h.messages.Routes())

	return r
}

// CreateConversationRequest represents a request to create a conversation.
// A missing title gets a dated default, an empty one renders as untitled.
type CreateConversationRequest struct {
	Title   *string         `json:"title"`
	Context json.RawMessage `json:"context"`
}

// UpdateConversationRequest represents a partial update; absent fields are kept
type UpdateConversationRequest struct {
	Title    *string         `json:"title"`
	Context  json.RawMessage `json:"context"`
	IsActive *bool           `json:"isActive"`
}

// TokenUsageResponse is the body of the usage endpoint
type TokenUsageResponse struct {
	TotalTokens int64      `json:"totalTokens"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
}

// ListConversations returns a page of the current user's conversations
func (h *ConversationsHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		writeBadRequest(w, r, "page must be an integer")
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeBadRequest(w, r, "limit must be an integer")
		return
	}
	isActive, err := queryBool(r, "isActive")
	if err != nil {
		writeBadRequest(w, r, "isActive must be a boolean")
		return
	}

	result, err := h.conversations.GetConversations(r.Context(), conversation.ListInput{
		UserID:   GetUserIDFromContext(r.Context()),
		Page:     page,
		Limit:    limit,
		IsActive: isActive,
		Search:   r.URL.Query().Get("search"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// CreateConversation creates a new conversation
func (h *ConversationsHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "Invalid request body")
		return
	}

	conv, err := h.conversations.CreateConversation(r.Context(), conversation.CreateInput{
		UserID:  GetUserIDFromContext(r.Context()),
		Title:   req.Title,
		Context: document(req.Context),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, conv)
}

// GetConversation returns a specific conversation
func (h *ConversationsHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := h.conversations.GetConversation(r.Context(), chi.URLParam(r, "id"), GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, conv)
}

// UpdateConversation applies a partial update to a conversation
func (h *ConversationsHandler) UpdateConversation(w http.ResponseWriter, r *http.Request) {
	var req UpdateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "Invalid request body")
		return
	}

	changes := conversation.Changes{Title: req.Title, IsActive: req.IsActive}
	if req.Context != nil {
		doc := document(req.Context)
		changes.Context = &doc
	}

	conv, err := h.conversations.UpdateConversation(r.Context(), conversation.UpdateInput{
		ConversationID: chi.URLParam(r, "id"),
		UserID:         GetUserIDFromContext(r.Context()),
		Changes:        changes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, conv)
}

// DeleteConversation deactivates a conversation
func (h *ConversationsHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	err := h.conversations.DeleteConversation(r.Context(), chi.URLParam(r, "id"), GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetStats returns the aggregate of the current user's conversations
func (h *ConversationsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.conversations.GetStats(r.Context(), GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, stats)
}

// GetTokenUsage sums the current user's tokens between optional RFC3339 bounds
func (h *ConversationsHandler) GetTokenUsage(w http.ResponseWriter, r *http.Request) {
	start, err := queryTime(r, "startDate")
	if err != nil {
		writeBadRequest(w, r, "startDate must be an RFC3339 timestamp")
		return
	}
	end, err := queryTime(r, "endDate")
	if err != nil {
		writeBadRequest(w, r, "endDate must be an RFC3339 timestamp")
		return
	}

	tokens, err := h.conversations.GetTokenUsage(r.Context(), conversation.TokenUsageInput{
		UserID:    GetUserIDFromContext(r.Context()),
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, TokenUsageResponse{TotalTokens: tokens, StartDate: start, EndDate: end})
}

// document turns a raw JSON value into a stored document; null and absent become empty
func document(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	return datatypes.JSON(raw)
}

func queryInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func queryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
