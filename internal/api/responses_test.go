package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/information-sharing-networks/sri-gateway/internal/invoice"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantStatus   int
		wantMessages []string
	}{
		{"malformed", WrapMalformedRequestError(errors.New("unexpected EOF"), "request body is not valid JSON"), http.StatusBadRequest, []string{"request body is not valid JSON"}},
		{"invalid parameter", NewInvalidParameterError("Clave de acceso inválida."), http.StatusBadRequest, []string{"Clave de acceso inválida."}},
		{"rate limit", NewRateLimitError("slow down"), http.StatusTooManyRequests, []string{"slow down"}},
		{"too large", NewRequestTooLargeError("too big"), http.StatusRequestEntityTooLarge, []string{"too big"}},
		{"internal is sanitized", WrapInternalError(errors.New("secret detail"), "boom"), http.StatusInternalServerError, []string{"An internal error occurred"}},
		{"validation issues", invoice.NewValidationError("invalid submission", "a is required", "b is required"), http.StatusBadRequest, []string{"a is required", "b is required"}},
		{"max bytes", &http.MaxBytesError{Limit: 64}, http.StatusRequestEntityTooLarge, []string{"Request body exceeds maximum allowed size (64 bytes)"}},
		{"unknown", errors.New("whatever"), http.StatusInternalServerError, []string{"An internal error occurred"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, messages := MapError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMessages, messages)
		})
	}
}

func TestRespondWithErrorIsResultShaped(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices/emit", nil)

	RespondWithError(rr, req, WrapMalformedRequestError(errors.New("eof"), "request body is not valid JSON"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ERROR", body["status"])
	assert.Equal(t, []any{"request body is not valid JSON"}, body["messages"])
}

func TestRespondWithResultAlwaysHasMessages(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondWithResult(rr, invoice.Result{Status: invoice.StatusAuthorized})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"AUTHORIZED","messages":[]}`, rr.Body.String())
}
