// internal/app/features/errors/errors.go
//
// Package errors renders API failures as JSON bodies of the form
//
//	{ "code":"not_found", "reason":"Proposal not found.", "hint":"…", "request_id":"…" }
//
// Import it as uierrors to keep the standard library name free.
package errors

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Body is the JSON error envelope.
type Body struct {
	Code      string `json:"code"`
	Reason    string `json:"reason"`
	Hint      string `json:"hint,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// RequestIDHeader carries the correlation id on requests and responses.
const RequestIDHeader = "X-Request-ID"

// JSON writes b with the given status. The request id is copied from the
// response header when the caller did not set one.
func JSON(w http.ResponseWriter, status int, b Body) {
	if b.RequestID == "" {
		b.RequestID = w.Header().Get(RequestIDHeader)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(b)
}

// BadRequest reports malformed input.
func BadRequest(w http.ResponseWriter, reason string) {
	JSON(w, http.StatusBadRequest, Body{Code: "bad_request", Reason: reason})
}

// Unauthorized reports a missing or unusable session.
func Unauthorized(w http.ResponseWriter) {
	JSON(w, http.StatusUnauthorized, Body{Code: "unauthorized", Reason: "Sign in to continue."})
}

// TooManyRequests reports a caller over the write limit.
func TooManyRequests(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int(math.Ceil(retryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	JSON(w, http.StatusTooManyRequests, Body{Code: "rate_limited", Reason: "Too many changes in a short time. Please wait and try again."})
}

// ErrorLogger logs unexpected failures before answering with a generic 500.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger wraps logger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogger{log: logger}
}

// ServerError logs err with the request context and writes a 500.
func (l *ErrorLogger) ServerError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	l.log.Error(msg,
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", w.Header().Get(RequestIDHeader)),
	)
	JSON(w, http.StatusInternalServerError, Body{Code: "internal", Reason: "Something went wrong. Please try again."})
}
