package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/akolanti/DocAssist/internal/adapter"
	"github.com/akolanti/DocAssist/internal/domain/commonModels"
	"github.com/akolanti/DocAssist/pkg/logger_i"
)

const maxJSONBody = 1 << 20

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logRH.Error("Error encoding response", "error", err)
	}
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

// writeError maps a domain error onto a status code. Internal failures are
// logged in full and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, id string, err error) {
	code := statusFor(err)
	log := logRH.WithTrace(r.Context())
	message := err.Error()
	if code >= http.StatusInternalServerError {
		log.Error("request failed", "path", r.URL.Path, "id", id, "error", err)
		if code == http.StatusInternalServerError {
			message = "internal error"
		}
	} else {
		log.Warn("request rejected", "path", r.URL.Path, "id", id, "code", code, "error", err)
	}
	WriteErrorResponse(w, code, id, message)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, commonModels.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, commonModels.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, commonModels.ErrPipelineRunning), errors.Is(err, commonModels.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, commonModels.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dst any) error {
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logRH.Error("Couldn't close the request body", "error", err)
		}
	}(r.Body)
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(dst); err != nil {
		return &commonModels.ValidationError{Field: "body", Message: fmt.Sprintf("malformed JSON: %v", err)}
	}
	return nil
}

func requireField(field, value string) error {
	if value == "" {
		return &commonModels.ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

// validateContext reports whether the caller is still waiting for an answer.
func validateContext(ctx context.Context, log *logger_i.Logger) bool {
	if err := ctx.Err(); err != nil {
		log.Warn("context error", "error", err)
		return false
	}
	return true
}
