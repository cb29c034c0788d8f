package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"web-shop/internal/apperr"
)

type envelope struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: msg})
}

// writeError maps an error kind to its status. Internal errors are logged and
// their text is not sent to the client.
func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
		msg = "internal error"
	}
	writeJSON(w, status, envelope{Success: false, Code: apperr.Code(err), Message: msg})
}
