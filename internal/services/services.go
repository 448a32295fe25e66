package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/information-sharing-networks/sri-gateway/internal/certificate"
	"github.com/information-sharing-networks/sri-gateway/internal/config"
	"github.com/information-sharing-networks/sri-gateway/internal/database"
	"github.com/information-sharing-networks/sri-gateway/internal/document"
	"github.com/information-sharing-networks/sri-gateway/internal/idempotency"
	"github.com/information-sharing-networks/sri-gateway/internal/signer"
	"github.com/information-sharing-networks/sri-gateway/internal/sri"
	"github.com/information-sharing-networks/sri-gateway/internal/workflow"
)

// Services aggregates the collaborators used by the gateway handlers.
type Services struct {
	Workflow     *workflow.Workflow
	Cache        *idempotency.Cache
	Environments *sri.EnvironmentResolver

	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewServices creates the workflow and its collaborators from cfg.
// This is the single entry point for initializing the external integrations.
//
// An unreachable shared store is not an error: the cache falls back to the
// in-process store and reports it through Cache.Health.
func NewServices(ctx context.Context, cfg *config.ServerEnvironment, logger *slog.Logger) (*Services, error) {
	s := &Services{logger: logger}

	shared, err := s.newSharedStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s.Cache = idempotency.NewCache(ctx,
		shared,
		idempotency.NewMemoryStore(cfg.CacheMaxAge),
		idempotency.NewTTLPolicy(cfg),
		cfg.CacheProbeTimeout,
		logger,
	)
	s.Environments = sri.NewEnvironmentResolver(cfg)

	s.Workflow = workflow.New(workflow.Dependencies{
		Cache:                 s.Cache,
		Certificates:          certificate.NewResolver(cfg.CertificateFetchTimeout, cfg.VerifyCertificate),
		Generator:             document.NewFacturaGenerator(),
		Signer:                signer.NewRemoteSigner(cfg.SignerURL, cfg.SignerTimeout),
		Transport:             sri.NewSOAPClient(cfg.SRIRequestTimeout),
		Environments:          s.Environments,
		ConflictPolicy:        cfg.KeyConflictPolicy,
		ProbeBothEnvironments: cfg.StatusProbeBothEnvironments,
	})
	return s, nil
}

// newSharedStore returns the store named by CACHE_BACKEND, or nil for the in-process store.
func (s *Services) newSharedStore(ctx context.Context, cfg *config.ServerEnvironment) (idempotency.Store, error) {
	switch cfg.CacheBackend {
	case config.CacheBackendMemory:
		return nil, nil

	case config.CacheBackendRedis:
		store, err := idempotency.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return store, nil

	case config.CacheBackendPostgres:
		poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse database URL: %w", err)
		}
		poolConfig.MaxConns = cfg.DBMaxConnections
		poolConfig.ConnConfig.ConnectTimeout = cfg.CacheProbeTimeout

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, fmt.Errorf("unable to create connection pool: %w", err)
		}
		s.pool = pool

		migrateCtx, cancel := context.WithTimeout(ctx, cfg.CacheProbeTimeout)
		defer cancel()

		// when the database is down the cache probe fails too and the in-process store is used
		if err := database.Migrate(migrateCtx, pool); err != nil {
			s.logger.Warn("failed to apply idempotency schema migrations", slog.String("error", err.Error()))
		}
		return idempotency.NewPostgresStore(database.New(pool)), nil

	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.CacheBackend)
	}
}

// Close releases the cache store and the database pool.
func (s *Services) Close() {
	if err := s.Cache.Close(); err != nil {
		s.logger.Warn("failed to close idempotency store", slog.String("error", err.Error()))
	}
	if s.pool != nil {
		s.pool.Close()
		s.logger.Info("database connection closed")
	}
}
