package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/information-sharing-networks/sri-gateway/internal/invoice"
	"github.com/information-sharing-networks/sri-gateway/internal/logger"
	"github.com/information-sharing-networks/sri-gateway/internal/sri"
)

// Status queries the authorization state of accessKey.
//
// With an explicit env only that environment is queried. Without one, both are
// probed concurrently when enabled and the best status wins; otherwise the
// environment is read from the access key. Status results are not cached.
func (w *Workflow) Status(ctx context.Context, accessKey string, env invoice.Environment) (result invoice.Result) {
	log := logger.ContextRequestLogger(ctx).With(slog.String("access_key", accessKey))

	defer func() {
		if r := recover(); r != nil {
			log.Error("status query panic", slog.Any("panic", r))
			result = invoice.ErrorResult(fmt.Sprintf("internal error: %v", r))
		}
	}()

	if err := invoice.ValidateAccessKey(accessKey); err != nil {
		return invoice.ErrorResult("Clave de acceso inválida.")
	}
	logger.ContextWithLogAttrs(ctx, slog.String("access_key", accessKey))

	var probe sri.ProbeResult
	if env == "" && w.deps.ProbeBothEnvironments {
		best, err := w.deps.Environments.Probe(ctx, w.deps.Transport, accessKey)
		if err != nil {
			log.Warn("authorization probe failed in every environment", slog.String("error", err.Error()))
			res := invoice.ErrorResult(err.Error())
			res.AccessKey = accessKey
			return res
		}
		probe = best
	} else {
		env = w.deps.Environments.ForAccessKey(env, accessKey)
		res := invoice.ErrorResult()
		res.AccessKey, res.Environment = accessKey, env

		endpoints, err := w.deps.Environments.Endpoints(env)
		if err != nil {
			res.Messages = errorMessages(err)
			return res
		}
		reply, err := w.deps.Transport.CheckAuthorization(ctx, endpoints.Authorization, accessKey)
		if err != nil {
			log.Warn("authorization query failed", slog.String("error", err.Error()))
			res.Messages = errorMessages(err)
			return res
		}
		probe = sri.ProbeResult{Environment: env, Authorization: sri.ParseAuthorization(reply)}
	}

	res := invoice.Result{AccessKey: accessKey, Environment: probe.Environment}
	applyAuthorization(&res, probe.Authorization)
	log.Info("status queried",
		slog.String("environment", string(res.Environment)),
		slog.String("status", string(res.Status)),
	)
	logger.ContextWithLogAttrs(ctx, slog.String("status", string(res.Status)))
	return res.Normalized()
}
