package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is:
//   - logged with full technical details and the request ID (server-side)
//   - returned to the client as ErrorResponse built from core.MapError
//
// Handlers pick the status with statusFor unless they know better.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/leadbook/internal/core"
	"github.com/go-chi/chi/v5/middleware"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Action  string                 `json:"action,omitempty"`
	Code    string                 `json:"code"`
	Fields  []core.ValidationError `json:"errors,omitempty"`
}

var rateLimitMessage = core.MapError(errors.New("rate limit exceeded"))

// statusFor maps errors returned by the service to HTTP status codes.
func statusFor(err error) int {
	var verrs core.ValidationErrors
	var hard *core.HardInputError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &verrs), errors.As(err, &hard):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, core.ErrUnauthorized),
		errors.Is(err, core.ErrTokenExpired),
		errors.Is(err, core.ErrTokenRevoked):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped user message with statusCode.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	// Errors without a catalog entry reach the client as the generic ERR000
	// message, so they are logged as failures whatever the status.
	level, msg := slog.LevelWarn, "request error"
	if !core.IsUserFacing(err) {
		level, msg = slog.LevelError, "unexpected request error"
	} else if statusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, msg,
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	resp := errorResponse(userMsg)
	var verrs core.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Fields = verrs
	}
	if errors.Is(err, core.ErrTooManyImports) {
		w.Header().Set("Retry-After", "5")
	}
	writeJSONStatus(w, statusCode, resp)
}

// respondErrorJSON writes a JSON error response without logging.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorResponse(msg))
}

func errorResponse(msg core.UserMessage) ErrorResponse {
	return ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
}
