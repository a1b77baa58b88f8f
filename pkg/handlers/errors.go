package handlers

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/d4l-data4life/go-bot-host/pkg/apperr"
)

// statusOf maps an error kind to its HTTP status
func statusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindInvalidArgument:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindDomainConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": "..."}; internal details stay in the logs
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, statusOf(err))
	render.JSON(w, r, map[string]string{"error": apperr.PublicMessage(err)})
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, map[string]string{"error": message})
}
