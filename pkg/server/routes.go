package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/d4l-data4life/go-bot-host/pkg/bothost"
	"github.com/d4l-data4life/go-bot-host/pkg/handlers"
	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// SetupRoutes adds all routes that the server should listen to
func SetupRoutes(mux *chi.Mux, host *bothost.Host, users handlers.UserResolver, serviceSecret string) {
	ch := handlers.NewChecksHandler(host.Ping)

	mux.Mount("/checks", ch.Routes())
	mux.Mount("/metrics", promhttp.Handler())

	mux.Group(func(r chi.Router) {
		r.Use(RequestLogger())
		host.RegisterRoutes(r, users, serviceSecret)
	})

	// Displays all API paths in when debug enabled
	walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
		route = strings.Replace(route, "/*/", "/", -1)
		logging.LogDebugf("%s %s\n", method, route)
		return nil
	}
	if err := chi.Walk(mux, walkFunc); err != nil {
		logging.LogErrorf(err, "logging error")
	}
}
