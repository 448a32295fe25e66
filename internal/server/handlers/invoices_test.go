package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/information-sharing-networks/sri-gateway/internal/config"
	"github.com/information-sharing-networks/sri-gateway/internal/idempotency"
	"github.com/information-sharing-networks/sri-gateway/internal/invoice"
	"github.com/information-sharing-networks/sri-gateway/internal/server/middleware"
	"github.com/information-sharing-networks/sri-gateway/internal/sri"
)

const validAccessKey = "1503202501179001234500110010020000001231234567811"

type fakeWorkflow struct {
	submitted []invoice.Submission
	statusKey string
	statusEnv invoice.Environment
	result    invoice.Result
}

func (f *fakeWorkflow) Submit(ctx context.Context, sub invoice.Submission) invoice.Result {
	f.submitted = append(f.submitted, sub)
	return f.result
}

func (f *fakeWorkflow) Status(ctx context.Context, accessKey string, env invoice.Environment) invoice.Result {
	f.statusKey, f.statusEnv = accessKey, env
	return f.result
}

type fixedHealth idempotency.Health

func (h fixedHealth) Health() idempotency.Health { return idempotency.Health(h) }

func newRouter(wf Workflow, maxBytes int64) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestSizeLimit(maxBytes))
	r.Post("/api/v1/invoices/emit", HandleEmit(wf))
	r.Get("/api/v1/invoices/{accessKey}/status", HandleStatus(wf))
	return r
}

func decodeResult(t *testing.T, rr *httptest.ResponseRecorder) invoice.Result {
	t.Helper()
	var res invoice.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("response is not a result: %v (%s)", err, rr.Body.String())
	}
	return res
}

func TestHandleEmit(t *testing.T) {
	canonical, err := os.ReadFile("../../invoice/testdata/canonical.json")
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}

	tests := []struct {
		name        string
		body        string
		wantCode    int
		wantStatus  invoice.Status
		wantSubmits int
	}{
		{"canonical", string(canonical), http.StatusOK, invoice.StatusAuthorized, 1},
		{"not json", "{", http.StatusBadRequest, invoice.StatusError, 0},
		{"unknown format", `{"format":"ubl"}`, http.StatusBadRequest, invoice.StatusError, 0},
		{"invalid canonical", `{"idempotency_key":"factura-0001","infoTributaria":{}}`, http.StatusBadRequest, invoice.StatusError, 0},
		{"too large", `{"padding":"` + strings.Repeat("x", 5000) + `"}`, http.StatusRequestEntityTooLarge, invoice.StatusError, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf := &fakeWorkflow{result: invoice.Result{Status: invoice.StatusAuthorized, AccessKey: validAccessKey}}
			router := newRouter(wf, 4096)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices/emit", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Fatalf("got status %d, want %d (%s)", rr.Code, tt.wantCode, rr.Body.String())
			}
			res := decodeResult(t, rr)
			if res.Status != tt.wantStatus {
				t.Errorf("got result status %s, want %s", res.Status, tt.wantStatus)
			}
			if res.Messages == nil {
				t.Error("messages must always be present")
			}
			if len(wf.submitted) != tt.wantSubmits {
				t.Errorf("got %d submissions, want %d", len(wf.submitted), tt.wantSubmits)
			}
		})
	}
}

func TestHandleEmitPassesWorkflowErrorsWith200(t *testing.T) {
	canonical, err := os.ReadFile("../../invoice/testdata/canonical.json")
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}
	wf := &fakeWorkflow{result: invoice.ErrorResult("Estado recepción: DEVUELTA")}

	rr := httptest.NewRecorder()
	newRouter(wf, 1<<20).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/invoices/emit", strings.NewReader(string(canonical))))

	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rr.Code)
	}
	if res := decodeResult(t, rr); res.Status != invoice.StatusError || res.Messages[0] != "Estado recepción: DEVUELTA" {
		t.Errorf("unexpected result %+v", res)
	}
	if got := wf.submitted[0].IdempotencyKey; got != "factura-0001" {
		t.Errorf("got idempotency key %q", got)
	}
}

func TestHandleStatus(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantCode int
		wantEnv  invoice.Environment
		wantCall bool
	}{
		{"no env", "/api/v1/invoices/" + validAccessKey + "/status", http.StatusOK, "", true},
		{"explicit prod", "/api/v1/invoices/" + validAccessKey + "/status?env=prod", http.StatusOK, invoice.EnvProd, true},
		{"bad env", "/api/v1/invoices/" + validAccessKey + "/status?env=staging", http.StatusBadRequest, "", false},
		{"short key", "/api/v1/invoices/12345/status", http.StatusBadRequest, "", false},
		{"non digit key", "/api/v1/invoices/" + strings.Repeat("a", 49) + "/status", http.StatusBadRequest, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf := &fakeWorkflow{result: invoice.Result{Status: invoice.StatusProcessing, AccessKey: validAccessKey, Environment: invoice.EnvTest}}

			rr := httptest.NewRecorder()
			newRouter(wf, 1024).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rr.Code != tt.wantCode {
				t.Fatalf("got status %d, want %d", rr.Code, tt.wantCode)
			}
			called := wf.statusKey != ""
			if called != tt.wantCall {
				t.Fatalf("workflow called = %v, want %v", called, tt.wantCall)
			}
			if called && wf.statusEnv != tt.wantEnv {
				t.Errorf("got env %q, want %q", wf.statusEnv, tt.wantEnv)
			}
			if !called {
				if res := decodeResult(t, rr); res.Status != invoice.StatusError {
					t.Errorf("got result status %s, want ERROR", res.Status)
				}
			}
		})
	}
}

func TestHandleConfig(t *testing.T) {
	envs := sri.NewEnvironmentResolver(&config.ServerEnvironment{
		SRIRecepcionTest:    "http://sri.test/recepcion",
		SRIAutorizacionTest: "http://sri.test/autorizacion",
	})
	health := fixedHealth{Backend: config.CacheBackendMemory, Configured: config.CacheBackendRedis, Fallback: true}

	rr := httptest.NewRecorder()
	HandleConfig(envs, health).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/config", nil))

	var resp ConfigResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got := resp.Environments[invoice.EnvTest]; !got.Reception || !got.Authorization {
		t.Errorf("test environment should be configured: %+v", got)
	}
	if got := resp.Environments[invoice.EnvProd]; got.Reception || got.Authorization {
		t.Errorf("prod environment should not be configured: %+v", got)
	}
	if !resp.Cache.Fallback || resp.Cache.Backend != config.CacheBackendMemory {
		t.Errorf("unexpected cache health %+v", resp.Cache)
	}
	if strings.Contains(rr.Body.String(), "sri.test") {
		t.Error("endpoint URLs must not be disclosed")
	}
}

func TestHandleReadiness(t *testing.T) {
	rr := httptest.NewRecorder()
	HandleReadiness(fixedHealth{Backend: "redis", Configured: "redis"}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rr.Code)
	}
	var resp ReadinessResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ready" || resp.Cache.Backend != "redis" {
		t.Errorf("unexpected readiness %+v", resp)
	}
}
