package handlers

import (
	"net/http"

	"github.com/information-sharing-networks/sri-gateway/internal/api"
	"github.com/information-sharing-networks/sri-gateway/internal/idempotency"
)

// HealthReporter reports the active idempotency store. It is implemented by idempotency.Cache.
type HealthReporter interface {
	Health() idempotency.Health
}

// ReadinessResponse is returned by the readiness endpoint.
type ReadinessResponse struct {
	Status string             `json:"status" example:"ready"`
	Cache  idempotency.Health `json:"cache"`
}

// HandleHealth godoc
//
//	@Summary		Health (liveness) Check
//	@Description	Check if the HTTP service is alive and responding.
//	@Tags			Common
//	@Produce		plain
//
//	@Success		200	{string}	string	"OK"
//
//	@Router			/health/live [get]
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// HandleReadiness godoc
//
//	@Summary		Readiness Check
//	@Description	Reports the idempotency store in use.
//	@Description	The service stays ready when the shared store was unreachable at startup;
//	@Description	`cache.fallback` is then true and results are only deduplicated within this process.
//	@Tags			Common
//	@Produce		json
//	@Success		200	{object}	ReadinessResponse	"status ready"
//	@Router			/health/ready [get]
func HandleReadiness(cache HealthReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		api.RespondWithJSONPayload(w, http.StatusOK, ReadinessResponse{
			Status: "ready",
			Cache:  cache.Health(),
		})
	}
}
