package handlers

import (
	"github.com/go-chi/chi"
	"github.com/spf13/viper"

	"github.com/d4l-data4life/go-bot-host/pkg/config"
	"github.com/d4l-data4life/go-bot-host/pkg/conversation"
	"github.com/d4l-data4life/go-bot-host/pkg/session"
	"github.com/d4l-data4life/go-svc/pkg/logging"
	"github.com/d4l-data4life/go-svc/pkg/middlewares"
)

// RegisterRoutes registers all API routes
func RegisterRoutes(
	r chi.Router,
	conversations *conversation.Service,
	sessions *session.Service,
	users UserResolver,
	serviceSecret string,
) {
	prefix := viper.GetString("PREFIX")

	// External routes (ingress routes), authenticated by JWT
	r.Route(prefix, func(r chi.Router) {
		r.Use(AuthMiddleware(users))

		r.Mount("/conversations", NewConversationsHandler(conversations).Routes())
		r.Mount("/instances/{instance}/sessions", NewSessionsHandler(sessions).Routes())
	})

	// Internal routes (service-to-service)
	if serviceSecret == "" {
		logging.LogWarningf(nil, "SERVICE_SECRET is empty, internal routes are disabled")
		return
	}
	r.Route(config.InternalPrefix, func(r chi.Router) {
		serviceAuth := middlewares.NewServiceSecretAuthenticator(serviceSecret, NewServiceAuthLogger())
		r.Use(serviceAuth.Authenticate())

		r.Mount("/", NewInternalHandler(conversations, sessions).Routes())
	})
}
