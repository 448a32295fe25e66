package handlers

import (
	"net/http"

	"github.com/information-sharing-networks/sri-gateway/internal/api"
	"github.com/information-sharing-networks/sri-gateway/internal/idempotency"
	"github.com/information-sharing-networks/sri-gateway/internal/invoice"
	"github.com/information-sharing-networks/sri-gateway/internal/sri"
)

// EnvironmentConfig reports whether the endpoints of one SRI environment are set.
type EnvironmentConfig struct {
	Reception     bool `json:"reception"`
	Authorization bool `json:"authorization"`
}

// ConfigResponse is returned by the config endpoint.
type ConfigResponse struct {
	Environments map[invoice.Environment]EnvironmentConfig `json:"environments"`
	Cache        idempotency.Health                        `json:"cache"`
}

// HandleConfig godoc
//
//	@Summary		Gateway configuration
//	@Description	Reports which SRI endpoints are configured per environment and the active idempotency store.
//	@Description	Endpoint URLs are not disclosed.
//	@Tags			Common
//	@Produce		json
//	@Success		200	{object}	ConfigResponse
//	@Router			/api/v1/config [get]
func HandleConfig(envs *sri.EnvironmentResolver, cache HealthReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := ConfigResponse{
			Environments: make(map[invoice.Environment]EnvironmentConfig, 2),
			Cache:        cache.Health(),
		}
		for _, env := range []invoice.Environment{invoice.EnvTest, invoice.EnvProd} {
			ep := envs.Configured(env)
			resp.Environments[env] = EnvironmentConfig{
				Reception:     ep.Reception != "",
				Authorization: ep.Authorization != "",
			}
		}
		api.RespondWithJSONPayload(w, http.StatusOK, resp)
	}
}
