// Package middleware provides HTTP middleware and response helpers for the API.
package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/console-zone/rental/internal/apperror"
)

// ErrorResponse represents a standardized API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error codes used outside the booking taxonomy.
const (
	ErrBadRequest    = "bad_request"
	ErrInternalError = "internal_error"
)

// WriteJSON writes v as a JSON body with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError writes a JSON error response with the given status code.
func WriteError(w http.ResponseWriter, status int, errCode, message string) {
	WriteJSON(w, status, ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}

// WriteErrorWithDetails writes a JSON error response with additional details.
func WriteErrorWithDetails(w http.ResponseWriter, status int, errCode, message string, details any) {
	WriteJSON(w, status, ErrorResponse{
		Error:   errCode,
		Message: message,
		Details: details,
	})
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation, apperror.KindInvalidControllerCount:
		return http.StatusBadRequest
	case apperror.KindConstraintViolation:
		return http.StatusForbidden
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindNotAvailable, apperror.KindAllocationConflict:
		return http.StatusConflict
	case apperror.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// WriteAppError classifies err and writes it. Persistence failures hide their
// cause from the client.
func WriteAppError(w http.ResponseWriter, err error) {
	WriteAppErrorWithDetails(w, err, nil)
}

// WriteAppErrorWithDetails is WriteAppError with a details payload.
func WriteAppErrorWithDetails(w http.ResponseWriter, err error, details any) {
	kind := apperror.KindOf(err)
	message := err.Error()
	if kind == apperror.KindPersistence {
		message = "An unexpected storage error occurred"
	}
	WriteErrorWithDetails(w, StatusFor(kind), kind.Code(), message, details)
}

// ErrorRecovery is middleware that recovers from panics and returns a 500 error.
func ErrorRecovery(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("request_id", RequestID(r.Context())),
						zap.ByteString("stack", debug.Stack()),
					)
					WriteError(w, http.StatusInternalServerError, ErrInternalError, "An unexpected error occurred")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
