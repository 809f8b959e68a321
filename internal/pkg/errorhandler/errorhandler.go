package errorhandler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/crowdpad/rewards-api/internal/pkg/response"
)

// HandleError logs an error with request context and sends a formatted
// error response.
func HandleError(ctx context.Context, w http.ResponseWriter, status int, code, message string, err error) {
	event := log.Error().
		Str("request_id", getRequestID(ctx)).
		Str("error_code", code).
		Int("status_code", status)

	if err != nil {
		event = event.Err(err)
	}

	event.Msg(message)

	response.Error(w, status, code, message)
}

// HandleErrorWithDetails logs an error with field details and sends a
// formatted error response carrying them.
func HandleErrorWithDetails(ctx context.Context, w http.ResponseWriter, status int, code, message string, details map[string]string, err error) {
	event := log.Error().
		Str("request_id", getRequestID(ctx)).
		Str("error_code", code).
		Int("status_code", status)

	if err != nil {
		event = event.Err(err)
	}
	if details != nil {
		event = event.Interface("error_details", details)
	}

	event.Msg(message)

	response.ErrorWithDetails(w, status, code, message, details)
}

type requestIDKey struct{}

// WithRequestID stores the request id in context for error logging
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func getRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
