package main

import (
	"context"

	"github.com/spf13/viper"

	"github.com/d4l-data4life/go-bot-host/internal/testutils"
	"github.com/d4l-data4life/go-bot-host/pkg/bothost"
	"github.com/d4l-data4life/go-bot-host/pkg/config"
	"github.com/d4l-data4life/go-bot-host/pkg/models"
	"github.com/d4l-data4life/go-svc/pkg/db"
	"github.com/d4l-data4life/go-svc/pkg/logging"
	"github.com/d4l-data4life/go-svc/pkg/standard"
)

// demoUserID owns the seeded conversation
const demoUserID = 1

func main() {
	// Initialize the environment and logger
	config.SetupEnv()
	config.SetupLogger()
	dbOpts := db.NewConnection(
		db.WithDebug(viper.GetBool("DEBUG")),
		db.WithHost(viper.GetString("DB_HOST")),
		db.WithPort(viper.GetString("DB_PORT")),
		db.WithDatabaseSchema(viper.GetString("DB_SCHEMA")),
		db.WithDatabaseName(viper.GetString("DB_NAME")),
		db.WithUser(viper.GetString("DB_USER")),
		db.WithPassword(viper.GetString("DB_PASS")),
		db.WithSSLMode(viper.GetString("DB_SSL_MODE")),
		db.WithSSLRootCertPath(viper.GetString("DB_SSL_ROOT_CERT_PATH")),
		db.WithMigrationFunc(models.MigrationFunc),
		db.WithMigrationVersion(config.MigrationVersion),
	)
	standard.Main(addTestData, config.Name+"-testdata", standard.WithPostgres(dbOpts))
}

func addTestData(ctx context.Context, _ string) <-chan struct{} {
	dieEarly := make(chan struct{})
	defer close(dieEarly)

	// the simulated provider keeps seeding offline
	host, err := bothost.New(bothost.Config{
		DB:             db.Get(),
		ProviderConfig: config.ProviderConfig{Provider: config.ProviderSimulated},
	})
	if err != nil {
		logging.LogErrorf(err, "Failed to create bot host")
		return dieEarly
	}
	testutils.AddTestDataToDB(ctx, host, demoUserID)
	return dieEarly
}
