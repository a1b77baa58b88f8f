package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/d4l-data4life/go-bot-host/pkg/apperr"
	"github.com/d4l-data4life/go-bot-host/pkg/models"
	"github.com/d4l-data4life/go-bot-host/pkg/session"
)

const pgUniqueViolation = "23505"

// Sessions stores WhatsApp sessions
type Sessions struct {
	db *gorm.DB
}

var _ session.Repository = (*Sessions)(nil)

// NewSessions creates a session repository on db
func NewSessions(db *gorm.DB) *Sessions {
	return &Sessions{db: db}
}

// Create inserts s; a second session for the same contact is a domain conflict
func (r *Sessions) Create(ctx context.Context, s *models.Session) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		if isUniqueViolation(err) {
			return apperr.DomainConflict("session already exists for %s", s.RemoteJID)
		}
		return errors.Wrap(err, "failed to insert session")
	}
	return nil
}

func (r *Sessions) Find(ctx context.Context, instanceName, remoteJID string) (*models.Session, error) {
	var s models.Session
	err := r.db.WithContext(ctx).
		Where("instance_name = ? AND remote_jid = ?", instanceName, remoteJID).
		First(&s).Error
	if err != nil {
		if isRecordNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get session")
	}
	return &s, nil
}

func (r *Sessions) List(ctx context.Context, instanceName string, status *models.SessionStatus, limit, offset *int) ([]models.Session, error) {
	query := r.db.WithContext(ctx).Where("instance_name = ?", instanceName)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if limit != nil {
		query = query.Limit(*limit)
	}
	if offset != nil {
		query = query.Offset(*offset)
	}

	var sessions []models.Session
	if err := query.Order("created_at DESC").Find(&sessions).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list sessions")
	}
	return sessions, nil
}

func (r *Sessions) UpdateStatus(ctx context.Context, instanceName, remoteJID string, status models.SessionStatus) (*models.Session, error) {
	return r.update(ctx, instanceName, remoteJID, "status", status)
}

func (r *Sessions) UpdateContext(ctx context.Context, instanceName, remoteJID, sessionContext string) (*models.Session, error) {
	return r.update(ctx, instanceName, remoteJID, "context", sessionContext)
}

func (r *Sessions) update(ctx context.Context, instanceName, remoteJID, column string, value interface{}) (*models.Session, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("instance_name = ? AND remote_jid = ?", instanceName, remoteJID).
		Updates(map[string]interface{}{column: value, "updated_at": time.Now().UnixMilli()})
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "failed to update session %s", column)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.Find(ctx, instanceName, remoteJID)
}

func (r *Sessions) Delete(ctx context.Context, instanceName, remoteJID string) error {
	err := r.db.WithContext(ctx).
		Where("instance_name = ? AND remote_jid = ?", instanceName, remoteJID).
		Delete(&models.Session{}).Error
	return errors.Wrap(err, "failed to delete session")
}

func (r *Sessions) RecordMessage(ctx context.Context, id string, atMillis int64) error {
	return bumpThread(r.db.WithContext(ctx), &models.Session{}, id, sessionThread, atMillis)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
