package models

import (
	"gorm.io/gorm"
)

// MigrationFunc creates or updates the tables of all persisted models
func MigrationFunc(conn *gorm.DB) error {
	// use conn.Debug().AutoMigrate(...) to enable debugging
	return conn.AutoMigrate(&Conversation{}, &Message{}, &Session{})
}
