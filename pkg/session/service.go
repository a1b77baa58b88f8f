// Package session implements the WhatsApp session use-case. Sessions are owned by
// a gateway instance and a contact JID; every JID is normalized before it is used.
package session

import (
	"context"
	"strings"
	"time"

	"github.com/d4l-data4life/go-bot-host/pkg/apperr"
	"github.com/d4l-data4life/go-bot-host/pkg/jid"
	"github.com/d4l-data4life/go-bot-host/pkg/metrics"
	"github.com/d4l-data4life/go-bot-host/pkg/models"
	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// StatusAll disables the status filter of GetSessions
const StatusAll = "all"

// Service is the session use-case
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates the session use-case
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// CreateInput holds the parameters of CreateSession; an empty Status means opened
type CreateInput struct {
	InstanceName string
	RemoteJID    string
	Status       models.SessionStatus
	Context      string
}

// ListInput holds the parameters of GetSessions.
// Status may be empty or "all" for no filter. Limit and Offset are optional.
type ListInput struct {
	InstanceName string
	Status       string
	Limit        *int
	Offset       *int
}

// Activity is the outcome of RecordMessage
type Activity struct {
	Session *models.Session `json:"session"`
	// Route tells whether the message goes to automated processing
	Route bool `json:"route"`
}

// CreateSession opens a session for a contact
func (s *Service) CreateSession(ctx context.Context, in CreateInput) (*models.Session, error) {
	if err := requireAddress(in.InstanceName, in.RemoteJID); err != nil {
		return nil, err
	}
	if in.Status != "" && !in.Status.Valid() {
		return nil, invalidStatus()
	}

	session := models.NewSession(in.InstanceName, jid.Normalize(in.RemoteJID), in.Status, in.Context, s.now())
	if err := s.repo.Create(ctx, session); err != nil {
		logging.LogErrorf(err, "Failed to create session for %s on %s", session.RemoteJID, in.InstanceName)
		return nil, apperr.Internal(err, "failed to create session")
	}
	logging.LogDebugf("Created session: %s for %s on %s", session.ID, session.RemoteJID, in.InstanceName)
	return session, nil
}

// ChangeSessionStatus moves a session to status
func (s *Service) ChangeSessionStatus(ctx context.Context, instanceName, remoteJID string, status models.SessionStatus) (*models.Session, error) {
	if err := requireAddress(instanceName, remoteJID); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, invalidStatus()
	}

	session, err := s.repo.UpdateStatus(ctx, instanceName, jid.Normalize(remoteJID), status)
	if err != nil {
		logging.LogErrorf(err, "Failed to change status of session %s on %s", remoteJID, instanceName)
		return nil, apperr.Internal(err, "failed to change session status")
	}
	if session == nil {
		return nil, apperr.NotFound("session not found")
	}
	logging.LogDebugf("Session %s is now %s", session.ID, status)
	return session, nil
}

// GetSessions lists the sessions of an instance. No default paging is applied.
func (s *Service) GetSessions(ctx context.Context, in ListInput) ([]models.Session, error) {
	if strings.TrimSpace(in.InstanceName) == "" {
		return nil, apperr.InvalidArgument("instanceName is required")
	}
	if in.Limit != nil && *in.Limit <= 0 {
		return nil, apperr.InvalidArgument("limit must be greater than 0")
	}
	if in.Offset != nil && *in.Offset < 0 {
		return nil, apperr.InvalidArgument("offset must not be negative")
	}

	var status *models.SessionStatus
	if in.Status != "" && in.Status != StatusAll {
		st := models.SessionStatus(in.Status)
		if !st.Valid() {
			return nil, invalidStatus()
		}
		status = &st
	}

	sessions, err := s.repo.List(ctx, in.InstanceName, status, in.Limit, in.Offset)
	if err != nil {
		logging.LogErrorf(err, "Failed to list sessions of %s", in.InstanceName)
		return nil, apperr.Internal(err, "failed to list sessions")
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	return sessions, nil
}

// GetSession returns the session of a contact or nil when there is none
func (s *Service) GetSession(ctx context.Context, instanceName, remoteJID string) (*models.Session, error) {
	if err := requireAddress(instanceName, remoteJID); err != nil {
		return nil, err
	}
	session, err := s.repo.Find(ctx, instanceName, jid.Normalize(remoteJID))
	if err != nil {
		logging.LogErrorf(err, "Failed to get session %s on %s", remoteJID, instanceName)
		return nil, apperr.Internal(err, "failed to get session")
	}
	return session, nil
}

// UpdateSessionContext replaces the free-text context of a session
func (s *Service) UpdateSessionContext(ctx context.Context, instanceName, remoteJID, sessionContext string) (*models.Session, error) {
	if err := requireAddress(instanceName, remoteJID); err != nil {
		return nil, err
	}
	if sessionContext == "" {
		return nil, apperr.InvalidArgument("context is required")
	}

	session, err := s.repo.UpdateContext(ctx, instanceName, jid.Normalize(remoteJID), sessionContext)
	if err != nil {
		logging.LogErrorf(err, "Failed to update context of session %s on %s", remoteJID, instanceName)
		return nil, apperr.Internal(err, "failed to update session context")
	}
	if session == nil {
		return nil, apperr.NotFound("session not found")
	}
	return session, nil
}

// DeleteSession removes a session. Unlike conversations, a missing session is an error.
func (s *Service) DeleteSession(ctx context.Context, instanceName, remoteJID string) error {
	if err := requireAddress(instanceName, remoteJID); err != nil {
		return err
	}
	normalized := jid.Normalize(remoteJID)

	session, err := s.repo.Find(ctx, instanceName, normalized)
	if err != nil {
		logging.LogErrorf(err, "Failed to get session %s on %s", normalized, instanceName)
		return apperr.Internal(err, "failed to delete session")
	}
	if session == nil {
		return apperr.NotFound("session not found")
	}
	if err := s.repo.Delete(ctx, instanceName, normalized); err != nil {
		logging.LogErrorf(err, "Failed to delete session %s", session.ID)
		return apperr.Internal(err, "failed to delete session")
	}
	logging.LogDebugf("Deleted session: %s", session.ID)
	return nil
}

// GetSessionStats aggregates every session of an instance
func (s *Service) GetSessionStats(ctx context.Context, instanceName string) (*models.SessionStats, error) {
	sessions, err := s.GetSessions(ctx, ListInput{InstanceName: instanceName, Status: StatusAll})
	if err != nil {
		return nil, err
	}

	stats := &models.SessionStats{Total: len(sessions)}
	for _, session := range sessions {
		switch {
		case session.IsActive():
			stats.Opened++
		case session.IsPaused():
			stats.Paused++
		case session.IsClosed():
			stats.Closed++
		}
		stats.TotalMessages += session.MessageCount
	}
	return stats, nil
}

// RecordMessage counts an inbound message on an opened session.
// Paused and closed sessions do not accept messages.
func (s *Service) RecordMessage(ctx context.Context, instanceName, remoteJID string) (*Activity, error) {
	session, err := s.GetSession(ctx, instanceName, remoteJID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperr.NotFound("session not found")
	}
	if !session.IsActive() {
		return nil, apperr.DomainConflict("session is %s", session.Status)
	}

	at := s.now().UnixMilli()
	if err := s.repo.RecordMessage(ctx, session.ID, at); err != nil {
		logging.LogErrorf(err, "Failed to record message on session %s", session.ID)
		return nil, apperr.Internal(err, "failed to record message")
	}
	session.MessageCount++
	session.LastMessageAt = &at
	metrics.SessionMessages.WithLabelValues(instanceName).Inc()
	return &Activity{Session: session, Route: session.IsActive()}, nil
}

func requireAddress(instanceName, remoteJID string) error {
	if strings.TrimSpace(instanceName) == "" || strings.TrimSpace(remoteJID) == "" {
		return apperr.InvalidArgument("instanceName and remoteJid are required")
	}
	if !jid.HasNumber(jid.Normalize(remoteJID)) {
		return apperr.InvalidArgument("remoteJid must contain a phone number")
	}
	return nil
}

func invalidStatus() error {
	return apperr.InvalidArgument("status must be one of opened, paused, closed")
}
