package session

import (
	"context"

	"github.com/d4l-data4life/go-bot-host/pkg/models"
)

// Repository is the persistence contract of the session use-case.
// Sessions are addressed by (instanceName, remoteJid); lookups return (nil, nil) when nothing matches.
type Repository interface {
	Create(ctx context.Context, session *models.Session) error
	Find(ctx context.Context, instanceName, remoteJID string) (*models.Session, error)
	// List returns the sessions of an instance, newest first. A nil status lists all of them,
	// nil limit and offset are not applied.
	List(ctx context.Context, instanceName string, status *models.SessionStatus, limit, offset *int) ([]models.Session, error)
	UpdateStatus(ctx context.Context, instanceName, remoteJID string, status models.SessionStatus) (*models.Session, error)
	UpdateContext(ctx context.Context, instanceName, remoteJID, context string) (*models.Session, error)
	Delete(ctx context.Context, instanceName, remoteJID string) error
	// RecordMessage bumps the message count and last message time of the session id
	RecordMessage(ctx context.Context, id string, atMillis int64) error
}
