package repository

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a row addressed by id does not exist
var ErrNotFound = errors.New("record not found")

// threadColumns names the counter and last-entry columns of a threaded entity.
// Conversations and sessions both keep a message counter next to the time of
// their latest entry; they differ in column names and timestamp encoding.
type threadColumns struct {
	counter   string
	lastEntry string
}

var (
	conversationThread = threadColumns{counter: "total_messages", lastEntry: "last_message_at"}
	sessionThread      = threadColumns{counter: "message_count", lastEntry: "last_message_at"}
)

// bumpThread adds one to the counter of the row id of model and sets its
// last-entry column to at. The increment is evaluated by the database.
func bumpThread(tx *gorm.DB, model interface{}, id string, cols threadColumns, at interface{}) error {
	res := tx.Model(model).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			cols.counter:   gorm.Expr(cols.counter + " + 1"),
			cols.lastEntry: at,
		})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to bump %s", cols.counter)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// touchThread only sets the last-entry column
func touchThread(tx *gorm.DB, model interface{}, id string, cols threadColumns, at interface{}) error {
	res := tx.Model(model).Where("id = ?", id).Update(cols.lastEntry, at)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to set %s", cols.lastEntry)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
