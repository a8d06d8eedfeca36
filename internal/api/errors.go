package api

import (
	"encoding/json"
	"net/http"
)

// Error is the body of every non-2xx response.
type Error struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Error codes. Clients should switch on these rather than on Message.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeUnauthorized   = "unauthorised"
	ErrCodeForbidden      = "forbidden"
	ErrCodeInternal       = "internal_error"
	ErrCodeMethodNotAllow = "method_not_allowed"
	ErrCodeNotConnected   = "not_connected"
	ErrCodeUnavailable    = "unavailable"
	ErrCodeUpstream       = "upstream_error"
)

// defaultCodes gives the code for statuses that have only one meaning here.
var defaultCodes = map[int]string{
	http.StatusBadRequest:          ErrCodeBadRequest,
	http.StatusUnauthorized:        ErrCodeUnauthorized,
	http.StatusForbidden:           ErrCodeForbidden,
	http.StatusNotFound:            ErrCodeNotFound,
	http.StatusMethodNotAllowed:    ErrCodeMethodNotAllow,
	http.StatusInternalServerError: ErrCodeInternal,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone
	}
}

// writeError writes an Error tagged with the request's ID.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	id, _ := r.Context().Value(ctxKeyRequestID).(string)
	writeJSON(w, status, Error{Status: status, Code: code, Message: message, RequestID: id})
}

// writeStatus is writeError with the status's default code.
func writeStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeError(w, r, status, defaultCodes[status], message)
}
