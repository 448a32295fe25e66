package api

// responses.go provides helper functions for sending HTTP responses from the gateway handlers.

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/information-sharing-networks/sri-gateway/internal/invoice"
	"github.com/information-sharing-networks/sri-gateway/internal/logger"
)

// RespondWithResult sends a workflow outcome. ERROR outcomes are still a completed
// request from the gateway's point of view and are sent with 200.
func RespondWithResult(w http.ResponseWriter, result invoice.Result) {
	RespondWithJSONPayload(w, http.StatusOK, result.Normalized())
}

// RespondWithError sends an ERROR result for a request that failed before or outside the workflow.
//
// It logs the full error details server-side. Internal errors are sanitized before
// they are returned to the client.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode, messages := MapError(err)

	reqLogger := logger.ContextRequestLogger(r.Context())
	reqLogger.Warn("Request failed",
		slog.String("error", err.Error()),
		slog.Int("status_code", statusCode),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	logger.ContextWithLogAttrs(r.Context(), slog.String("error", err.Error()))

	RespondWithJSONPayload(w, statusCode, invoice.ErrorResult(messages...))
}

// MapError returns the HTTP status code and the client visible messages for err.
func MapError(err error) (int, []string) {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		switch apiErr.Code() {
		case ErrCodeMalformedRequest, ErrCodeInvalidParameter:
			return http.StatusBadRequest, []string{apiErr.message}
		case ErrCodeRateLimitExceeded:
			return http.StatusTooManyRequests, []string{apiErr.message}
		case ErrCodeRequestTooLarge:
			return http.StatusRequestEntityTooLarge, []string{apiErr.message}
		default:
			return http.StatusInternalServerError, []string{"An internal error occurred"}
		}
	}

	var invErr *invoice.InvoiceError
	if errors.As(err, &invErr) {
		if issues := invErr.Issues(); len(issues) > 0 {
			return http.StatusBadRequest, issues
		}
		return http.StatusBadRequest, []string{invErr.Error()}
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge, []string{
			fmt.Sprintf("Request body exceeds maximum allowed size (%d bytes)", maxBytesErr.Limit),
		}
	}

	return http.StatusInternalServerError, []string{"An internal error occurred"}
}

// RespondWithJSONPayload sends a JSON response with the given status code
func RespondWithJSONPayload(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			// headers are already written
			// #nosec G706 -- error is escaped (slog) and not from user input
			slog.Error("Failed to encode JSON response",
				slog.String("error", err.Error()),
			)
		}
	}
}
