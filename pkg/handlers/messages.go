package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"github.com/d4l-data4life/go-bot-host/pkg/apperr"
	"github.com/d4l-data4life/go-bot-host/pkg/conversation"
	"github.com/d4l-data4life/go-bot-host/pkg/models"
	"github.com/d4l-data4life/go-svc/pkg/instrumented"
	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// MessagesHandler handles message endpoints
type MessagesHandler struct {
	*instrumented.Handler
	conversations *conversation.Service
	upgrader      websocket.Upgrader
}

// NewMessagesHandler creates a new messages handler
func NewMessagesHandler(conversations *conversation.Service) *MessagesHandler {
	return &MessagesHandler{
		Handler:       GetHandlerFactory().NewHandler("MessagesHandler"),
		conversations: conversations,
		upgrader: websocket.Upgrader{
			// origins are enforced by the CORS middleware
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Routes returns message routes
func (h *MessagesHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get(h.InstrumentChi("/", h.ListMessages))
	r.Post(h.InstrumentChi("/", h.SendMessage))
	r.Get("/stream", h.StreamMessages)
	r.Get(h.InstrumentChi("/{messageId}", h.GetMessage))

	return r
}

// SendMessageRequest represents a request to send a message
type SendMessageRequest struct {
	Message     string   `json:"message"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature"`
	MaxTokens   *int     `json:"maxTokens"`
}

func (req SendMessageRequest) input(conversationID string, userID int64) conversation.SendMessageInput {
	return conversation.SendMessageInput{
		ConversationID: conversationID,
		UserID:         userID,
		Message:        req.Message,
		Model:          req.Model,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
	}
}

// ListMessages returns a page of messages of a conversation, oldest first
func (h *MessagesHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
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
	var role *models.MessageRole
	if raw := r.URL.Query().Get("role"); raw != "" {
		v := models.MessageRole(raw)
		role = &v
	}

	result, err := h.conversations.GetMessages(r.Context(), conversation.MessagesInput{
		ConversationID: chi.URLParam(r, "id"),
		UserID:         GetUserIDFromContext(r.Context()),
		Page:           page,
		Limit:          limit,
		Role:           role,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// GetMessage returns one message of a conversation
func (h *MessagesHandler) GetMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := h.conversations.GetMessage(r.Context(),
		chi.URLParam(r, "id"),
		chi.URLParam(r, "messageId"),
		GetUserIDFromContext(r.Context()),
	)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, msg)
}

// SendMessage stores the user's message and returns the assistant's reply
func (h *MessagesHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "Invalid request body")
		return
	}

	result, err := h.conversations.SendMessage(r.Context(), req.input(chi.URLParam(r, "id"), GetUserIDFromContext(r.Context())))
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// StreamMessages accepts send-message frames over a WebSocket and answers each
// with the send-message result or {"error": ...}
func (h *MessagesHandler) StreamMessages(w http.ResponseWriter, r *http.Request) {
	userID := GetUserIDFromContext(r.Context())
	conversationID := chi.URLParam(r, "id")

	if _, err := h.conversations.GetConversation(r.Context(), conversationID, userID); err != nil {
		writeError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.LogErrorf(err, "Failed to upgrade to WebSocket")
		return
	}
	defer conn.Close()

	// frames outlive the handshake request; keep its values but not its deadline
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	logging.LogDebugf("WebSocket connection established: conversation=%s user=%d", conversationID, userID)

	for {
		var req SendMessageRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.LogDebugf("WebSocket closed normally")
			} else {
				logging.LogErrorf(err, "WebSocket read error")
			}
			return
		}

		var reply interface{}
		result, err := h.conversations.SendMessage(streamCtx, req.input(conversationID, userID))
		if err != nil {
			reply = map[string]string{"error": apperr.PublicMessage(err)}
		} else {
			reply = result
		}
		if err := conn.WriteJSON(reply); err != nil {
			logging.LogErrorf(err, "WebSocket write error")
			return
		}
	}
}
