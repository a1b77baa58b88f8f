package main

import (
	"context"
	"strings"

	"github.com/go-chi/cors"
	"github.com/spf13/viper"

	"github.com/d4l-data4life/go-bot-host/pkg/auth"
	"github.com/d4l-data4life/go-bot-host/pkg/bothost"
	"github.com/d4l-data4life/go-bot-host/pkg/config"
	"github.com/d4l-data4life/go-bot-host/pkg/metrics"
	"github.com/d4l-data4life/go-bot-host/pkg/models"
	"github.com/d4l-data4life/go-bot-host/pkg/server"
	"github.com/d4l-data4life/go-svc/pkg/db"
	"github.com/d4l-data4life/go-svc/pkg/logging"
	"github.com/d4l-data4life/go-svc/pkg/standard"
)

func main() {
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
	standard.Main(mainAPI, config.Name, standard.WithPostgres(dbOpts))
}

// mainAPI contains the main service logic - it must finish on runCtx cancelation!
func mainAPI(runCtx context.Context, svcName string) <-chan struct{} {
	dieEarly := make(chan struct{})

	validator, err := tokenValidator(runCtx)
	if err != nil {
		logging.LogErrorf(err, "Failed to set up token validation")
		close(dieEarly)
		return dieEarly
	}

	host, err := bothost.New(bothost.Config{
		DB:             db.Get(),
		ProviderConfig: config.GetProviderConfig(),
	})
	if err != nil {
		logging.LogErrorf(err, "Failed to create bot host")
		close(dieEarly)
		return dieEarly
	}

	port := viper.GetString("PORT")
	corsOptions := config.CorsConfig(strings.Split(viper.GetString("CORS_HOSTS"), " "))
	srv := server.NewServer(svcName,
		cors.New(corsOptions),
		viper.GetInt("HTTP_MAX_PARALLEL_REQUESTS"),
		viper.GetDuration("HTTP_REQUEST_TIMEOUT"),
	)

	users := bothost.Users(validator, viper.GetDuration("AUTH_CACHE_TTL"))
	server.SetupRoutes(srv.Mux(), host, users, viper.GetString("SERVICE_SECRET"))
	metrics.AddBuildInfoMetric()
	return standard.ListenAndServe(runCtx, srv.Mux(), port)
}

// tokenValidator prefers a JWKS endpoint over a shared HS256 secret
func tokenValidator(ctx context.Context) (auth.TokenValidator, error) {
	if jwksURL := viper.GetString("JWT_JWKS_URL"); jwksURL != "" {
		return auth.NewRemoteKeyStore(ctx, jwksURL)
	}
	return auth.NewLocalJWTValidator([]byte(viper.GetString("JWT_SECRET")))
}
