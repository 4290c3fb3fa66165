// Package config defines the global configuration structure for the ferrycast
// platform. Configuration is loaded once at process initialization and is
// immutable thereafter, following 12-Factor principles.
//
// Any missing required value or invalid format causes startup to fail
// immediately (fail fast).
package config

import (
	"time"

	"ferrycast/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging.
type SecretString = types.SecretString

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Sub-components receive only the
// specific config subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"ferrycast"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server   ServerConfig
	Database DatabaseConfig
	Weather  WeatherConfig
	Jobs     JobsConfig
	Scoring  ScoringConfig
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// WeatherConfig holds weather provider endpoints and the freshness windows
// used by the authority resolver and adapter cache.
type WeatherConfig struct {
	LocalObsBaseURL string `envconfig:"LOCAL_OBS_BASE_URL" validate:"required,url"`
	ForecastBaseURL string `envconfig:"FORECAST_BASE_URL" validate:"required,url"`
	TideBaseURL     string `envconfig:"TIDE_BASE_URL" validate:"required,url"`

	// ProviderTimeout bounds every outbound provider call.
	ProviderTimeout time.Duration `envconfig:"WEATHER_PROVIDER_TIMEOUT" default:"10s"`

	// CacheTTL is the adapter-layer read-through cache lifetime.
	CacheTTL time.Duration `envconfig:"WEATHER_CACHE_TTL" default:"5m"`

	// OperatorStalenessWindow is the maximum age of an operator-reported
	// reading before the resolver falls through to the next authority rung.
	OperatorStalenessWindow time.Duration `envconfig:"OPERATOR_STALENESS_WINDOW" default:"30m"`

	// ForecastHorizonHours is how far ahead the ingestion pipeline persists
	// per-hour model records.
	ForecastHorizonHours int `envconfig:"FORECAST_HORIZON_HOURS" default:"48"`
}

// JobsConfig holds the scheduler-facing job surface: the shared-secret
// trigger credential and backtest tuning.
type JobsConfig struct {
	// Token authorizes POST /v1/jobs/* in non-local environments. An unset
	// token outside local is a deployment misconfiguration, reported
	// distinctly from an invalid credential.
	Token SecretString `envconfig:"JOB_TRIGGER_TOKEN"`

	BacktestDefaultLimit int `envconfig:"BACKTEST_DEFAULT_LIMIT" default:"100"`
	BacktestMaxLimit     int `envconfig:"BACKTEST_MAX_LIMIT" default:"1000"`

	// LinkTolerance is the temporal matching window between a predicted
	// sailing departure and an observed outcome.
	LinkTolerance time.Duration `envconfig:"BACKTEST_LINK_TOLERANCE" default:"2h"`

	// EnrichmentDeadline bounds the best-effort forecast enrichment attached
	// to outcome-log writes.
	EnrichmentDeadline time.Duration `envconfig:"OUTCOME_ENRICHMENT_DEADLINE" default:"2s"`
}

// ScoringConfig identifies the active scoring model version stamped onto
// emitted predictions.
type ScoringConfig struct {
	ModelVersion string `envconfig:"SCORING_MODEL_VERSION" default:"v2"`
}

// IsLocal reports whether the process runs in the local development
// environment, where the job credential check is bypassed.
func (c *Config) IsLocal() bool {
	return c.Environment == "local"
}
