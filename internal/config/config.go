package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

// Default SRI offline web service endpoints (WSDL locations).
const (
	DefaultRecepcionTest      = "https://celcer.sri.gob.ec/comprobantes-electronicos-ws/RecepcionComprobantesOffline?wsdl"
	DefaultAutorizacionTest   = "https://celcer.sri.gob.ec/comprobantes-electronicos-ws/AutorizacionComprobantesOffline?wsdl"
	DefaultRecepcionProd      = "https://cel.sri.gob.ec/comprobantes-electronicos-ws/RecepcionComprobantesOffline?wsdl"
	DefaultAutorizacionProd   = "https://cel.sri.gob.ec/comprobantes-electronicos-ws/AutorizacionComprobantesOffline?wsdl"
	DefaultRedisURL           = "redis://localhost:6379/0"
	DefaultSignerURL          = "http://localhost:8091"
	DefaultGatewayURL         = "http://localhost:8090"
	CacheBackendRedis         = "redis"
	CacheBackendPostgres      = "postgres"
	CacheBackendMemory        = "memory"
	KeyConflictPolicyResubmit = "resubmit"
	KeyConflictPolicyReject   = "reject"
)

// Environment variables with defaults
type ServerEnvironment struct {

	// http server settings
	Environment           string        `env:"ENVIRONMENT,default=dev"`
	Host                  string        `env:"HOST,default=0.0.0.0"`
	Port                  int           `env:"PORT,default=8090"`
	LogLevel              string        `env:"LOG_LEVEL,default=info"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
	ReadTimeout           time.Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout          time.Duration `env:"WRITE_TIMEOUT,default=90s"`
	IdleTimeout           time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	RequestTimeout        time.Duration `env:"REQUEST_TIMEOUT,default=80s"`
	MaxRequestBodyBytes   int64         `env:"MAX_REQUEST_BODY_BYTES,default=10485760"`
	RateLimitRPS          int32         `env:"RATE_LIMIT_RPS,default=50"`
	RateLimitBurst        int32         `env:"RATE_LIMIT_BURST,default=100"`

	// idempotency cache settings
	CacheBackend       string        `env:"CACHE_BACKEND,default=redis"`
	RedisURL           string        `env:"REDIS_URL"`
	DatabaseURL        string        `env:"DATABASE_URL"`
	DBMaxConnections   int32         `env:"DB_MAX_CONNECTIONS,default=4"`
	CacheProbeTimeout  time.Duration `env:"CACHE_PROBE_TIMEOUT,default=3s"`
	CacheSweepInterval time.Duration `env:"CACHE_SWEEP_INTERVAL,default=1h"`
	CacheMaxAge        time.Duration `env:"CACHE_MAX_AGE,default=24h"`
	CacheTTLError      time.Duration `env:"CACHE_TTL_ERROR,default=1h"`
	CacheTTLProcessing time.Duration `env:"CACHE_TTL_PROCESSING,default=2m"`
	CacheTTLFinal      time.Duration `env:"CACHE_TTL_FINAL,default=24h"`

	// KeyConflictPolicy decides what happens when a cached idempotency key is reused with different content
	KeyConflictPolicy string `env:"KEY_CONFLICT_POLICY,default=resubmit"`

	// StatusProbeBothEnvironments queries test and prod concurrently when a status request names no environment
	StatusProbeBothEnvironments bool `env:"STATUS_PROBE_BOTH_ENVIRONMENTS,default=true"`

	// SRI web service endpoints
	SRIRecepcionTest    string        `env:"SRI_RECEPCION_TEST"`
	SRIAutorizacionTest string        `env:"SRI_AUTORIZACION_TEST"`
	SRIRecepcionProd    string        `env:"SRI_RECEPCION_PROD"`
	SRIAutorizacionProd string        `env:"SRI_AUTORIZACION_PROD"`
	SRIRequestTimeout   time.Duration `env:"SRI_REQUEST_TIMEOUT,default=30s"`

	// document signing service and certificates
	SignerURL               string        `env:"SIGNER_URL"`
	SignerTimeout           time.Duration `env:"SIGNER_TIMEOUT,default=30s"`
	CertificateFetchTimeout time.Duration `env:"CERTIFICATE_FETCH_TIMEOUT,default=15s"`
	VerifyCertificate       bool          `env:"VERIFY_CERTIFICATE,default=false"`
}

// ClientEnvironment holds the settings used by sri-cli.
type ClientEnvironment struct {
	GatewayURL    string        `env:"SRI_GATEWAY_URL"`
	LogLevel      string        `env:"LOG_LEVEL,default=info"`
	ClientTimeout time.Duration `env:"CLIENT_TIMEOUT,default=120s"`
}

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"prod":    true,
	"staging": true,
}

var validCacheBackends = map[string]bool{
	CacheBackendRedis:    true,
	CacheBackendPostgres: true,
	CacheBackendMemory:   true,
}

// NewServerConfig loads environment variables and returns a ServerEnvironment struct that contains the values
func NewServerConfig() (*ServerEnvironment, error) {
	var cfg ServerEnvironment

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewClientConfig loads the sri-cli settings from the environment.
func NewClientConfig() (*ClientEnvironment, error) {
	var cfg ClientEnvironment

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}
	if cfg.GatewayURL == "" {
		cfg.GatewayURL = DefaultGatewayURL
	}
	return &cfg, nil
}

// applyDefaults fills the URL settings (URLs do not survive go-env tag parsing as defaults)
func applyDefaults(cfg *ServerEnvironment) {
	if cfg.SRIRecepcionTest == "" {
		cfg.SRIRecepcionTest = DefaultRecepcionTest
	}
	if cfg.SRIAutorizacionTest == "" {
		cfg.SRIAutorizacionTest = DefaultAutorizacionTest
	}
	if cfg.SRIRecepcionProd == "" {
		cfg.SRIRecepcionProd = DefaultRecepcionProd
	}
	if cfg.SRIAutorizacionProd == "" {
		cfg.SRIAutorizacionProd = DefaultAutorizacionProd
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = DefaultRedisURL
	}
	if cfg.SignerURL == "" {
		cfg.SignerURL = DefaultSignerURL
	}
}

// validateConfig checks for required env variables
func validateConfig(cfg *ServerEnvironment) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}
	if cfg.MaxRequestBodyBytes < 1 {
		return fmt.Errorf("MAX_REQUEST_BODY_BYTES must be at least 1")
	}

	if !validCacheBackends[cfg.CacheBackend] {
		return fmt.Errorf("invalid CACHE_BACKEND: %s (expected redis, postgres or memory)", cfg.CacheBackend)
	}
	if cfg.CacheBackend == CacheBackendPostgres && cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when CACHE_BACKEND=postgres")
	}
	if cfg.DBMaxConnections < 1 {
		return fmt.Errorf("DB_MAX_CONNECTIONS must be at least 1")
	}

	// PROCESSING entries must expire first so clients re-poll the authority
	if cfg.CacheTTLProcessing <= 0 || cfg.CacheTTLError <= 0 || cfg.CacheTTLFinal <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if cfg.CacheTTLProcessing >= cfg.CacheTTLError {
		return fmt.Errorf("CACHE_TTL_PROCESSING (%s) must be shorter than CACHE_TTL_ERROR (%s)",
			cfg.CacheTTLProcessing, cfg.CacheTTLError)
	}
	if cfg.CacheTTLError > cfg.CacheTTLFinal {
		return fmt.Errorf("CACHE_TTL_ERROR (%s) cannot be longer than CACHE_TTL_FINAL (%s)",
			cfg.CacheTTLError, cfg.CacheTTLFinal)
	}
	if cfg.CacheSweepInterval <= 0 {
		return fmt.Errorf("CACHE_SWEEP_INTERVAL must be positive")
	}

	switch cfg.KeyConflictPolicy {
	case KeyConflictPolicyResubmit, KeyConflictPolicyReject:
	default:
		return fmt.Errorf("invalid KEY_CONFLICT_POLICY: %s (expected resubmit or reject)", cfg.KeyConflictPolicy)
	}

	return nil
}
