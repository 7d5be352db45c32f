package httpapi

import (
	"encoding/json"
	"net/http"

	"clawcity/internal/action"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": code, "message": message})
}

// statusForResult maps an action.Result's error code to the HTTP
// status the error taxonomy assigns it.
func statusForResult(r *action.Result) int {
	if r.OK {
		return http.StatusOK
	}
	switch r.Error {
	case action.ErrAuthRequired, action.ErrAuthInvalid:
		return http.StatusUnauthorized
	case action.ErrMissingRequestID, action.ErrUnknownAction, action.ErrBadArgs:
		return http.StatusBadRequest
	case action.ErrAgentNotFound:
		return http.StatusNotFound
	case action.ErrDuplicateInFlight:
		return http.StatusConflict
	case action.ErrRateLimited:
		return http.StatusTooManyRequests
	case action.ErrInsufficientFunds, action.ErrInvalidStatus, action.ErrPreconditionFail,
		action.ErrInsufficientInv, action.ErrAgentBusy, action.ErrAgentBanned:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
