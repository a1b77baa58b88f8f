package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	"github.com/d4l-data4life/go-bot-host/pkg/models"
	"github.com/d4l-data4life/go-bot-host/pkg/session"
	"github.com/d4l-data4life/go-svc/pkg/instrumented"
)

// SessionsHandler handles the WhatsApp session endpoints of one gateway instance
type SessionsHandler struct {
	*instrumented.Handler
	sessions *session.Service
}

// NewSessionsHandler creates a new sessions handler
func NewSessionsHandler(sessions *session.Service) *SessionsHandler {
	return &SessionsHandler{
		Handler:  GetHandlerFactory().NewHandler("SessionsHandler"),
		sessions: sessions,
	}
}

// Routes returns session routes, relative to /instances/{instance}/sessions
func (h *SessionsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get(h.InstrumentChi("/", h.ListSessions))
	r.Post(h.InstrumentChi("/", h.CreateSession))
	r.Get(h.InstrumentChi("/stats", h.GetStats))
	r.Get(h.InstrumentChi("/{jid}", h.GetSession))
	r.Delete(h.InstrumentChi("/{jid}", h.DeleteSession))
	r.Put(h.InstrumentChi("/{jid}/status", h.ChangeStatus))
	r.Put(h.InstrumentChi("/{jid}/context", h.UpdateContext))

	return r
}

// CreateSessionRequest represents a request to open a session
type CreateSessionRequest struct {
	RemoteJID string               `json:"remoteJid"`
	Status    models.SessionStatus `json:"status"`
	Context   string               `json:"context"`
}

// ChangeStatusRequest represents a status transition
type ChangeStatusRequest struct {
	Status models.SessionStatus `json:"status"`
}

// UpdateContextRequest replaces the context of a session
type UpdateContextRequest struct {
	Context string `json:"context"`
}

// ListSessions returns the sessions of an instance
func (h *SessionsHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeBadRequest(w, r, "limit must be an integer")
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeBadRequest(w, r, "offset must be an integer")
		return
	}

	sessions, err := h.sessions.GetSessions(r.Context(), session.ListInput{
		InstanceName: chi.URLParam(r, "instance"),
		Status:       r.URL.Query().Get("status"),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, sessions)
}

// CreateSession opens a session for a contact
func (h *SessionsHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "Invalid request body")
		return
	}

	s, err := h.sessions.CreateSession(r.Context(), session.CreateInput{
		InstanceName: chi.URLParam(r, "instance"),
		RemoteJID:    req.RemoteJID,
		Status:       req.Status,
		Context:      req.Context,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, s)
}

// GetStats returns the status breakdown of an instance's sessions
func (h *SessionsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sessions.GetSessionStats(r.Context(), chi.URLParam(r, "instance"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, stats)
}

// GetSession returns one session; a missing session is a 404 at this boundary
func (h *SessionsHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.GetSession(r.Context(), chi.URLParam(r, "instance"), chi.URLParam(r, "jid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if s == nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": "session not found"})
		return
	}
	render.JSON(w, r, s)
}

// DeleteSession removes a session
func (h *SessionsHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.DeleteSession(r.Context(), chi.URLParam(r, "instance"), chi.URLParam(r, "jid")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChangeStatus moves a session to another status
func (h *SessionsHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req ChangeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "Invalid request body")
		return
	}

	s, err := h.sessions.ChangeSessionStatus(r.Context(), chi.URLParam(r, "instance"), chi.URLParam(r, "jid"), req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, s)
}

// UpdateContext replaces the context of a session
func (h *SessionsHandler) UpdateContext(w http.ResponseWriter, r *http.Request) {
	var req UpdateContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "Invalid request body")
		return
	}

	s, err := h.sessions.UpdateSessionContext(r.Context(), chi.URLParam(r, "instance"), chi.URLParam(r, "jid"), req.Context)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, s)
}
