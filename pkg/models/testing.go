package models

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d4l-data4life/go-bot-host/pkg/config"

	"github.com/d4l-data4life/go-svc/pkg/db"
)

// InitializeTestDB connects to the test postgres inside a rolled-back transaction.
// Tests are skipped when TEST_WITH_DB is disabled.
func InitializeTestDB(t *testing.T) {
	config.SetupEnv()
	config.SetupLogger()
	if !viper.GetBool("TEST_WITH_DB") {
		t.Skip("TEST_WITH_DB disabled")
	}
	// override schema for testing
	viper.Set("DB_SCHEMA", "testing")
	dbOpts := db.NewConnection(
		db.WithDebug(viper.GetBool("DEBUG")),
		db.WithHost(viper.GetString("DB_HOST")),
		db.WithPort(viper.GetString("DB_PORT")),
		db.WithDatabaseName(viper.GetString("DB_NAME")),
		db.WithDatabaseSchema(viper.GetString("DB_SCHEMA")),
		db.WithUser(viper.GetString("DB_USER")),
		db.WithPassword(viper.GetString("DB_PASS")),
		db.WithSSLMode("disable"),
		db.WithSSLRootCertPath(viper.GetString("DB_SSL_ROOT_CERT_PATH")),
		db.WithMigrationFunc(MigrationFunc),
		db.WithDriverFunc(db.TXDBPostgresDriver),
	)
	db.InitializeTestPostgres(dbOpts)
	assert.NotNil(t, db.Get(), "DB handle is nil")
	err := db.Ping()
	require.NoError(t, err)
}
