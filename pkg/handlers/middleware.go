package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// ContextKey is the type for context keys
type ContextKey string

// ContextKeyUserID is the context key for user ID
const ContextKeyUserID ContextKey = "userID"

// UserResolver turns a bearer token into a user id
type UserResolver interface {
	Resolve(token string) (int64, error)
}

// AuthMiddleware verifies bearer tokens and adds the user ID to the context.
// The token may also be passed as ?token= for websocket clients.
func AuthMiddleware(resolver UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"error": "Missing authorization token"})
				return
			}

			userID, err := resolver.Resolve(token)
			if err != nil {
				logging.LogDebugf("Rejected token: %v", err)
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"error": "Invalid or expired token"})
				return
			}

			ctx := WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return r.URL.Query().Get("token")
}

// WithUserID stores userID in ctx
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// GetUserIDFromContext retrieves the user ID from the request context, 0 if absent
func GetUserIDFromContext(ctx context.Context) int64 {
	userID, ok := ctx.Value(ContextKeyUserID).(int64)
	if !ok {
		return 0
	}
	return userID
}
