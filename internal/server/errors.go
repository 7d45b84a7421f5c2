package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Sternrassler/swapi-gateway/pkg/client"
	"github.com/Sternrassler/swapi-gateway/pkg/logging"
	"github.com/Sternrassler/swapi-gateway/pkg/query"
	"github.com/Sternrassler/swapi-gateway/pkg/swapi"
)

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Path      string `json:"path"`
	RequestID string `json:"request_id,omitempty"`
}

// HandleError maps err onto a status code and writes the error body.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	status, name, message := classify(err)

	event := logging.FromContext(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		event = logging.FromContext(r.Context()).Error()
	}
	event.Err(err).
		Int("status_code", status).
		Str("error_class", string(client.ClassOf(err))).
		Msg("Request failed")

	writeError(w, r, status, name, message)
}

func classify(err error) (int, string, string) {
	var upstream *client.UpstreamError
	switch {
	case errors.As(err, &upstream):
		switch upstream.Class {
		case client.ClassNotFound:
			return http.StatusNotFound, "NotFound", notFoundMessage(upstream.Path)
		case client.ClassRateLimited:
			return http.StatusTooManyRequests, "RateLimited", "SWAPI rate limit exceeded. Please try again later."
		case client.ClassTimeout:
			return http.StatusGatewayTimeout, "UpstreamTimeout", fmt.Sprintf("SWAPI request timed out after %d attempts", upstream.Attempts)
		default:
			return http.StatusBadGateway, "UpstreamError", fmt.Sprintf("SWAPI request failed: %s", upstream.Class)
		}
	case errors.Is(err, query.ErrInvalidQuery),
		errors.Is(err, swapi.ErrInvalidReference),
		errors.Is(err, client.ErrUnsupportedEntity):
		return http.StatusBadRequest, "InvalidQuery", err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "UpstreamTimeout", "Request deadline exceeded"
	case errors.Is(err, context.Canceled):
		return 499, "Canceled", "Request canceled"
	default:
		return http.StatusInternalServerError, "InternalServerError", "An unexpected error occurred"
	}
}

func notFoundMessage(path string) string {
	ref, err := swapi.ParseReference(path)
	if err != nil {
		return "The requested resource was not found"
	}
	return fmt.Sprintf("%s with id %d not found", ref.Type, ref.ID)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, name, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:     name,
		Message:   message,
		Path:      r.URL.Path,
		RequestID: GetRequestID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
