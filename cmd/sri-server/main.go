package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/sri-gateway/internal/config"
	"github.com/information-sharing-networks/sri-gateway/internal/logger"
	"github.com/information-sharing-networks/sri-gateway/internal/server"
	"github.com/information-sharing-networks/sri-gateway/internal/services"
	"github.com/information-sharing-networks/sri-gateway/internal/version"
)

//	@title			sri-server
//	@description	sri-server submits electronic invoices (facturas) to the Ecuadorian tax authority (SRI)
//	@description	and returns their authorization state.
//	@description
//	@description	## Idempotency
//	@description	Every emit request is keyed by its `idempotency_key` or, when absent, by the natural key
//	@description	`ruc-estab-ptoEmi-secuencial-fechaEmision`. Repeating a request with the same content returns
//	@description	the stored result without contacting SRI. Results are stored for:
//	@description	- AUTHORIZED / NOT_AUTHORIZED: `CACHE_TTL_FINAL` (default 24h)
//	@description	- ERROR caused by invalid input or an SRI rejection: `CACHE_TTL_ERROR` (default 1h)
//	@description	- PROCESSING: `CACHE_TTL_PROCESSING` (default 2m), so a later call polls SRI again
//	@description
//	@description	Transport and internal failures are never stored; retrying runs the submission again.
//	@description
//	@description	## Common Error Responses
//	@description	All endpoints may return:
//	@description	- `413` Request body exceeds size limit
//	@description	- `429` Rate limit exceeded
//	@description	- `500` Internal server error
//	@description
//	@description	Error bodies have the same shape as a result, with `status` ERROR and the reasons in `messages`.
//	@description
//	@description	## Request Limits
//	@description	The API endpoints are protected by:
//	@description	- **Rate limiting**: `RATE_LIMIT_RPS` / `RATE_LIMIT_BURST` (set RATE_LIMIT_RPS to 0 to disable)
//	@description	- **Request size limits**: `MAX_REQUEST_BODY_BYTES` - default 10MB
//	@description
//	@description	Check the X-Max-Request-Size response header for the configured limit.
//	@license.name	MIT

//	@servers.url			http://localhost:8090
//	@servers.description	Development server

//	@accept		json
//	@produce	json

//	@tag.name			Invoices
//	@tag.description	Emit invoices and query their authorization

//	@tag.name			Common
//	@tag.description	Server API endpoints (health, readiness, version, config)

func main() {
	cmd := &cobra.Command{
		Use:   "sri-server",
		Short: "SRI electronic invoice gateway",
		Long:  `sri-server signs and submits facturas to the SRI offline web services with idempotent retries`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	v := version.Get()
	cmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.NewServerConfig()
	if err != nil {
		log.Printf("failed to load configuration: %v", err.Error())
		os.Exit(1)
	}

	appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)

	appLogger.Info("Configuration loaded",
		slog.String("ENVIRONMENT", cfg.Environment),
		slog.String("HOST", cfg.Host),
		slog.Int("PORT", cfg.Port),
		slog.String("LOG_LEVEL", cfg.LogLevel),
		slog.String("CACHE_BACKEND", cfg.CacheBackend),
		slog.String("KEY_CONFLICT_POLICY", cfg.KeyConflictPolicy),
		slog.Bool("STATUS_PROBE_BOTH_ENVIRONMENTS", cfg.StatusProbeBothEnvironments),
		slog.String("SRI_RECEPCION_TEST", cfg.SRIRecepcionTest),
		slog.String("SRI_RECEPCION_PROD", cfg.SRIRecepcionProd),
		slog.String("SIGNER_URL", cfg.SignerURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svcs, err := services.NewServices(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to create services", slog.String("error", err.Error()))
		os.Exit(1)
	}

	appLogger.Info("Starting server", slog.String("version", version.Get().Version))

	server := server.NewServer(svcs, cfg, appLogger)
	defer server.Shutdown()

	if err := server.Start(ctx); err != nil {
		appLogger.Error("Server error", slog.String("error", err.Error()))
		return err
	}

	appLogger.Info("server shutdown complete")
	return nil
}
