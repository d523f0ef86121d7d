package web

// errors.go renders every failure as a JSON body:
//
//	{"error": "...", "message": "...", "action": "...", "code": "..."}
//
// "error" is the text shown to people, in the configured locale when the
// engine's catalog has one. message, action and code come from core.MapError
// and are meant for support.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/sermonimport/internal/core"
	"github.com/JonMunkholm/sermonimport/internal/logging"
)

var (
	errInvalidBody = errors.New("invalid request body")
	errRateLimited = errors.New("rate limit exceeded")
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes the mapped response. fallback replaces the
// text of server-side failures so internals are not leaked.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	userMsg := core.MapError(err)
	status := userMsg.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request rejected", attrs...)
	}

	respondErrorJSON(w, userMsg, s.errorText(err, userMsg, status, fallback), status)
}

// errorText picks the localized "error" field.
func (s *Server) errorText(err error, userMsg core.UserMessage, status int, fallback string) string {
	msgs := s.service.Messages()
	switch {
	case errors.Is(err, core.ErrNoRows):
		return msgs.NoData
	case errors.Is(err, errInvalidBody):
		return msgs.InvalidBody
	case status >= http.StatusInternalServerError && fallback != "":
		return fallback
	default:
		return userMsg.Message
	}
}

// respondErrorJSON writes a JSON error response. An empty text uses the
// mapped message.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, text string, status int) {
	if text == "" {
		text = msg.Message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   text,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
