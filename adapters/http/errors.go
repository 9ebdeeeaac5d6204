package coursehttp

import (
	"encoding/json"
	"errors"
	"net/http"

	core "github.com/open-rails/coursekit/core"
	"github.com/open-rails/coursekit/logging"
)

type errResp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sendErr(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errResp{Error: code})
}

func badRequest(w http.ResponseWriter, code string)   { sendErr(w, http.StatusBadRequest, code) }
func unauthorized(w http.ResponseWriter, code string) { sendErr(w, http.StatusUnauthorized, code) }
func forbidden(w http.ResponseWriter, code string)    { sendErr(w, http.StatusForbidden, code) }
func tooMany(w http.ResponseWriter)                   { sendErr(w, http.StatusTooManyRequests, "rate_limited") }
func serverErr(w http.ResponseWriter, code string)    { sendErr(w, http.StatusInternalServerError, code) }
func notFound(w http.ResponseWriter, code string)     { sendErr(w, http.StatusNotFound, code) }

// respondErr maps core sentinel errors to the JSON error body. Anything
// unrecognised is logged and answered with a generic 500 so SQL or
// provider details never reach the client.
func respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		badRequest(w, core.ErrInvalidInput.Error())
	case errors.Is(err, core.ErrInvalidCredentials):
		unauthorized(w, core.ErrInvalidCredentials.Error())
	case errors.Is(err, core.ErrUnauthorized):
		unauthorized(w, "unauthorized")
	case errors.Is(err, core.ErrForbidden):
		forbidden(w, "forbidden")
	case errors.Is(err, core.ErrNotFound):
		notFound(w, "not_found")
	case errors.Is(err, core.ErrAlreadyGranted):
		badRequest(w, core.ErrAlreadyGranted.Error())
	case errors.Is(err, core.ErrExpired):
		badRequest(w, core.ErrExpired.Error())
	case errors.Is(err, core.ErrAlreadyUsed):
		badRequest(w, core.ErrAlreadyUsed.Error())
	case errors.Is(err, core.ErrProtectedDelete):
		forbidden(w, core.ErrProtectedDelete.Error())
	default:
		logger := logging.Get()
		logger.Error().Err(err).Msg("request failed")
		serverErr(w, "internal_error")
	}
}
