package config

import (
	"fmt"
	"runtime"

	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// Build information. Populated at build-time.
var (
	Name      string = "go-bot-host"
	Version   string
	Branch    string
	Commit    string
	BuildUser string
	GoVersion = runtime.Version()
)

const (
	// EnvPrefix is a prefix to all ENV variables used in this app
	EnvPrefix = "GO_BOT_HOST"
	// APIPrefixV1 URL prefix in API version 1
	APIPrefixV1 = "/api/v1"
	// InternalPrefix is the URL prefix of service-to-service routes
	InternalPrefix = "/internal"
	// MigrationVersion is the schema version handed to the go-svc migration runner
	MigrationVersion uint = 1

	// ##### GENERAL VARIABLES
	// Debug is a flag used to display debug messages
	Debug = false
	// DebugCORS is a flag used to display CORS debug messages
	DebugCORS = false
	// HumanReadableLogs set to true disables JSON formatting of logging
	HumanReadableLogs = false
	// DefaultHost default host for the services
	DefaultHost = "localhost"
	// DefaultPort default port the service is served on
	DefaultPort = "8080"
	// DefaultCorsHosts default cors horst for local development
	DefaultCorsHosts = "https://localhost:3000 http://localhost:3456"

	// ##### DATABASE VARIABLES

	// DefaultDBHost default host for the database connection
	DefaultDBHost = "localhost"
	// DefaultDBPort default port for the database connnection
	DefaultDBPort = "5440"
	// DefaultDBName default name of the database
	DefaultDBName = "go-bot-host"
	// DefaultDBUser default user for the database connnection
	DefaultDBUser = "postgres"
	// DefaultDBPassword default password for the database connnection
	DefaultDBPassword = "postgres"
	// DefaultDBSSLMode default ssl mode for the database connnection
	DefaultDBSSLMode = "disable"
	// DefaultDBSchema default schema of the service tables
	DefaultDBSchema = "public"
	// DefaultTestWithDB defines whether the repository tests run against postgres
	DefaultTestWithDB = true

	// ##### AUTHENTICATION VARIABLES

	// DefaultAuthCacheTTL is how long a validated bearer token is remembered
	DefaultAuthCacheTTL = "1m"
	// DefaultServiceSecret is a secret used to authenticate requests from other services
	DefaultServiceSecret = ""
)

func bindEnvVariable(name string, fallback interface{}) {
	if fallback != "" {
		viper.SetDefault(name, fallback)
	}
	err := viper.BindEnv(name)
	if err != nil {
		// cannot use logging.LogError due to import cycle
		fmt.Printf("Error binding Env Variable: %v", err)
	}
}

// SetupEnv configures app to read ENV variables. A .env file in the working
// directory is loaded first if present; real environment variables win.
func SetupEnv() {
	_ = godotenv.Load()

	viper.SetEnvPrefix(EnvPrefix)
	// General
	bindEnvVariable("DEBUG", Debug)
	bindEnvVariable("HUMAN_READABLE_LOGS", HumanReadableLogs)
	bindEnvVariable("DEBUG_CORS", DebugCORS)
	bindEnvVariable("HOST", DefaultHost)
	bindEnvVariable("PORT", DefaultPort)
	bindEnvVariable("PREFIX", APIPrefixV1)
	bindEnvVariable("CORS_HOSTS", DefaultCorsHosts)
	bindEnvVariable("HTTP_MAX_PARALLEL_REQUESTS", 8)
	bindEnvVariable("HTTP_REQUEST_TIMEOUT", "60s")
	// Database
	bindEnvVariable("DB_HOST", DefaultDBHost)
	bindEnvVariable("DB_PORT", DefaultDBPort)
	bindEnvVariable("DB_NAME", DefaultDBName)
	bindEnvVariable("DB_USER", DefaultDBUser)
	bindEnvVariable("DB_PASS", DefaultDBPassword)
	bindEnvVariable("DB_SSL_MODE", DefaultDBSSLMode)
	bindEnvVariable("DB_SCHEMA", DefaultDBSchema)
	bindEnvVariable("DB_SSL_ROOT_CERT_PATH", "")
	bindEnvVariable("TEST_WITH_DB", DefaultTestWithDB)
	// Authentication
	bindEnvVariable("JWT_SECRET", "")
	bindEnvVariable("JWT_JWKS_URL", "")
	bindEnvVariable("AUTH_CACHE_TTL", DefaultAuthCacheTTL)
	bindEnvVariable("SERVICE_SECRET", DefaultServiceSecret)
	// Completion provider
	setupProviderEnv()
}

// SetupLogger configures the go-svc logger with the service name and version
func SetupLogger() {
	logging.LoggerConfig(
		logging.ServiceName(Name),
		logging.ServiceVersion(Version),
		logging.HumanReadable(viper.GetBool("HUMAN_READABLE_LOGS")),
		logging.Debug(viper.GetBool("DEBUG")),
	)
}

// CorsConfig stores default configuration for CORS middleware
func CorsConfig(corsHosts []string) cors.Options {
	return cors.Options{
		AllowedOrigins:   corsHosts,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-Language"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true, // header "Access-Control-Allow-Credentials" is not present if this is set to false
		MaxAge:           300,  // Maximum value not ignored by any of major browsers,
		Debug:            viper.GetBool("DEBUG_CORS"),
	}
}
