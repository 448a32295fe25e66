package sri

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/information-sharing-networks/sri-gateway/internal/config"
	"github.com/information-sharing-networks/sri-gateway/internal/invoice"
)

// accessKeyAmbienteIndex is the position of the ambiente digit in an access key (digit 24).
const accessKeyAmbienteIndex = 23

// Endpoints are the reception and authorization service locations of one environment.
type Endpoints struct {
	Reception     string `json:"reception"`
	Authorization string `json:"authorization"`
}

// EnvironmentResolver maps environments to endpoints and infers the environment
// of requests that do not name one.
type EnvironmentResolver struct {
	endpoints map[invoice.Environment]Endpoints
}

// NewEnvironmentResolver builds the resolver from the SRI_* endpoint settings.
func NewEnvironmentResolver(cfg *config.ServerEnvironment) *EnvironmentResolver {
	return &EnvironmentResolver{
		endpoints: map[invoice.Environment]Endpoints{
			invoice.EnvTest: {Reception: cfg.SRIRecepcionTest, Authorization: cfg.SRIAutorizacionTest},
			invoice.EnvProd: {Reception: cfg.SRIRecepcionProd, Authorization: cfg.SRIAutorizacionProd},
		},
	}
}

// Endpoints returns the endpoints of env. Missing endpoints are a configuration error.
func (r *EnvironmentResolver) Endpoints(env invoice.Environment) (Endpoints, error) {
	ep, ok := r.endpoints[env]
	if !ok {
		return Endpoints{}, NewConfigurationError(fmt.Sprintf("unknown environment %q", env))
	}
	if ep.Reception == "" || ep.Authorization == "" {
		return Endpoints{}, NewConfigurationError(fmt.Sprintf("SRI endpoints not configured for environment %s", env))
	}
	return ep, nil
}

// Configured reports which endpoints are set for env.
func (r *EnvironmentResolver) Configured(env invoice.Environment) Endpoints {
	return r.endpoints[env]
}

// ForSubmission returns the explicit environment or the one declared by infoTributaria.ambiente.
func (r *EnvironmentResolver) ForSubmission(explicit invoice.Environment, ambiente string) invoice.Environment {
	if explicit != "" {
		return explicit
	}
	return EnvironmentFromAmbiente(ambiente)
}

// ForAccessKey returns the explicit environment or the one encoded in the access key.
func (r *EnvironmentResolver) ForAccessKey(explicit invoice.Environment, accessKey string) invoice.Environment {
	if explicit != "" {
		return explicit
	}
	return EnvironmentFromAccessKey(accessKey)
}

// EnvironmentFromAmbiente maps "2" to prod and anything else to test.
func EnvironmentFromAmbiente(ambiente string) invoice.Environment {
	if strings.TrimSpace(ambiente) == "2" {
		return invoice.EnvProd
	}
	return invoice.EnvTest
}

// EnvironmentFromAccessKey reads the ambiente digit of a 49 digit access key.
// Keys that are too short or carry an unexpected digit resolve to test.
func EnvironmentFromAccessKey(accessKey string) invoice.Environment {
	if len(accessKey) <= accessKeyAmbienteIndex {
		return invoice.EnvTest
	}
	return EnvironmentFromAmbiente(accessKey[accessKeyAmbienteIndex : accessKeyAmbienteIndex+1])
}

// ProbeResult is the authorization state observed in one environment.
type ProbeResult struct {
	Environment   invoice.Environment
	Authorization Authorization
	Err           error
}

// probeOrder fixes which environment wins when two results have the same priority.
var probeOrder = []invoice.Environment{invoice.EnvTest, invoice.EnvProd}

// statusPriority ranks results when both environments answer: lower wins.
var statusPriority = map[invoice.Status]int{
	invoice.StatusAuthorized:    0,
	invoice.StatusProcessing:    1,
	invoice.StatusNotAuthorized: 2,
}

// Probe queries the authorization service of every environment concurrently and
// returns the single result with the highest status priority
// (AUTHORIZED, then PROCESSING, then NOT_AUTHORIZED). An environment whose call fails
// is ignored; if all fail the joined transport errors are returned.
func (r *EnvironmentResolver) Probe(ctx context.Context, t Transport, accessKey string) (ProbeResult, error) {
	results := make([]ProbeResult, len(probeOrder))

	g, gctx := errgroup.WithContext(ctx)
	for i, env := range probeOrder {
		g.Go(func() error {
			results[i] = r.probeOne(gctx, t, env, accessKey)
			return nil
		})
	}
	_ = g.Wait()

	best, ok := PickByPriority(results)
	if !ok {
		errs := make([]error, 0, len(results))
		for _, res := range results {
			errs = append(errs, fmt.Errorf("%s: %w", res.Environment, res.Err))
		}
		return ProbeResult{}, errors.Join(errs...)
	}
	return best, nil
}

func (r *EnvironmentResolver) probeOne(ctx context.Context, t Transport, env invoice.Environment, accessKey string) ProbeResult {
	res := ProbeResult{Environment: env}
	ep, err := r.Endpoints(env)
	if err != nil {
		res.Err = err
		return res
	}
	reply, err := t.CheckAuthorization(ctx, ep.Authorization, accessKey)
	if err != nil {
		res.Err = err
		return res
	}
	res.Authorization = ParseAuthorization(reply)
	return res
}

// PickByPriority returns the successful result with the best status, preferring
// earlier entries on ties. ok is false when no result succeeded.
func PickByPriority(results []ProbeResult) (best ProbeResult, ok bool) {
	bestRank := len(statusPriority) + 1
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		rank, known := statusPriority[res.Authorization.Status()]
		if !known {
			rank = len(statusPriority)
		}
		if !ok || rank < bestRank {
			best, bestRank, ok = res, rank, true
		}
	}
	return best, ok
}
