package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	"github.com/d4l-data4life/go-bot-host/pkg/conversation"
	"github.com/d4l-data4life/go-bot-host/pkg/models"
	"github.com/d4l-data4life/go-bot-host/pkg/session"
	"github.com/d4l-data4life/go-svc/pkg/instrumented"
)

// InternalHandler serves service-to-service calls. Requests are authenticated
// by the service secret and carry no end user.
type InternalHandler struct {
	*instrumented.Handler
	conversations *conversation.Service
	sessions      *session.Service
}

// NewInternalHandler creates a new internal handler
func NewInternalHandler(conversations *conversation.Service, sessions *session.Service) *InternalHandler {
	return &InternalHandler{
		Handler:       GetHandlerFactory().NewHandler("InternalHandler"),
		conversations: conversations,
		sessions:      sessions,
	}
}

// Routes returns internal routes
func (h *InternalHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post(h.InstrumentChi("/conversations/{id}/messages", h.PostSystemMessage))
	r.Post(h.InstrumentChi("/instances/{instance}/sessions/{jid}/messages", h.RecordSessionMessage))

	return r
}

// SystemMessageRequest is a message posted into a conversation by another service
type SystemMessageRequest struct {
	Content  string             `json:"content"`
	Role     models.MessageRole `json:"role"`
	Metadata json.RawMessage    `json:"metadata"`
}

// PostSystemMessage appends a server-authored message to any active conversation.
// The role defaults to SYSTEM.
func (h *InternalHandler) PostSystemMessage(w http.ResponseWriter, r *http.Request) {
	var req SystemMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "Invalid request body")
		return
	}
	if req.Role == "" {
		req.Role = models.MessageRoleSystem
	}

	msg, err := h.conversations.AddMessage(r.Context(), conversation.AddMessageInput{
		ConversationID: chi.URLParam(r, "id"),
		Author:         conversation.SystemInitiated(),
		Content:        req.Content,
		Role:           req.Role,
		Metadata:       document(req.Metadata),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, msg)
}

// RecordSessionMessage counts an inbound WhatsApp message and tells the
// gateway whether to route it to automated processing
func (h *InternalHandler) RecordSessionMessage(w http.ResponseWriter, r *http.Request) {
	activity, err := h.sessions.RecordMessage(r.Context(), chi.URLParam(r, "instance"), chi.URLParam(r, "jid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, activity)
}
