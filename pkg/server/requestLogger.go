package server

import (
	"net/http"
	"strconv"

	"github.com/d4l-data4life/go-bot-host/pkg/handlers"
	"github.com/d4l-data4life/go-svc/pkg/log"
	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// RequestLogger sets up the middleware to log requests
func RequestLogger() func(http.Handler) http.Handler {
	return logging.Logger().HTTPMiddleware(
		log.WithUserParser(getUserIDFromRequest),
		log.WithCallerIPParser(getCallerIPFromRequest),
		LogObfuscators(),
	)
}

// getUserIDFromRequest is empty until the auth middleware has resolved the caller
func getUserIDFromRequest(r *http.Request) string {
	userID := handlers.GetUserIDFromContext(r.Context())
	if userID == 0 {
		return ""
	}
	return strconv.FormatInt(userID, 10)
}

// getCallerIPFromRequest is used by the logger to extract the caller's IP address
func getCallerIPFromRequest(r *http.Request) string {
	return r.RemoteAddr
}

// LogObfuscators returns log obfuscators for use with the http logging middleware
func LogObfuscators() func(*log.HTTPLogger) {
	return log.WithObfuscators()
}
