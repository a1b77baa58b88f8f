package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionStatus defines the lifecycle states of a WhatsApp session
type SessionStatus string

const (
	SessionStatusOpened SessionStatus = "opened"
	SessionStatusPaused SessionStatus = "paused"
	SessionStatusClosed SessionStatus = "closed"
)

// Valid reports whether s is one of the known statuses
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusOpened, SessionStatusPaused, SessionStatusClosed:
		return true
	}
	return false
}

// Session is the conversational state of one contact on one gateway instance.
// Timestamps are epoch milliseconds.
type Session struct {
	ID            string        `gorm:"size:64;primaryKey"                                                  json:"id"`
	InstanceName  string        `gorm:"size:255;not null;uniqueIndex:idx_sessions_instance_jid"             json:"instanceName"`
	RemoteJID     string        `gorm:"column:remote_jid;size:255;not null;uniqueIndex:idx_sessions_instance_jid" json:"remoteJid"`
	Status        SessionStatus `gorm:"size:20;not null;default:'opened';check:status IN ('opened','paused','closed')" json:"status"`
	Context       string        `gorm:"type:text"                                                           json:"context"`
	CreatedAt     int64         `gorm:"not null;autoCreateTime:milli"                                       json:"createdAt"`
	UpdatedAt     int64         `gorm:"not null;autoUpdateTime:milli"                                       json:"updatedAt"`
	MessageCount  int           `gorm:"not null;default:0"                                                  json:"messageCount"`
	LastMessageAt *int64        `                                                                           json:"lastMessageAt,omitempty"`
}

// TableName specifies the table name for Session model
func (Session) TableName() string {
	return "sessions"
}

// BeforeCreate hook to ensure ID is set
func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = NewSessionID(time.Now())
	}
	return nil
}

// NewSessionID returns a base36 millisecond prefix followed by a random suffix
func NewSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return strconv.FormatInt(now.UnixMilli(), 36) + suffix
}

// NewSession builds a session; an empty status defaults to opened
func NewSession(instanceName, remoteJID string, status SessionStatus, context string, now time.Time) *Session {
	if status == "" {
		status = SessionStatusOpened
	}
	ms := now.UnixMilli()
	return &Session{
		ID:           NewSessionID(now),
		InstanceName: instanceName,
		RemoteJID:    remoteJID,
		Status:       status,
		Context:      context,
		CreatedAt:    ms,
		UpdatedAt:    ms,
	}
}

// IsActive reports whether the session accepts messages for automated processing
func (s *Session) IsActive() bool {
	return s.Status == SessionStatusOpened
}

// IsPaused reports whether the session is paused
func (s *Session) IsPaused() bool {
	return s.Status == SessionStatusPaused
}

// IsClosed reports whether the session is closed
func (s *Session) IsClosed() bool {
	return s.Status == SessionStatusClosed
}

// SessionStats breaks down the sessions of one instance
type SessionStats struct {
	Total         int `json:"total"`
	Opened        int `json:"opened"`
	Paused        int `json:"paused"`
	Closed        int `json:"closed"`
	TotalMessages int `json:"totalMessages"`
}
