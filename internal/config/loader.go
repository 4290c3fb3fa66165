// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC timezone to prevent drift bugs.
//  2. Load a .env file via godotenv (non-fatal if absent).
//  3. Process struct tags via envconfig to populate the Config struct.
//  4. Validate the struct using go-playground/validator.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by Load to aid debugging.
type ConfigError struct {
	Stage   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Load loads and validates the ferrycast configuration. Errors are wrapped
// in a ConfigError naming the failing stage so startup logs point at the
// exact misconfiguration.
func Load() (*Config, error) {
	// All timestamps in the store and in provider payloads are UTC; pin the
	// process so local-time parsing bugs cannot creep in.
	time.Local = time.UTC

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Stage:   "envconfig",
			Message: "failed to process environment variables",
			Err:     err,
		}
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate runs struct-tag validation plus cross-field checks that tags
// cannot express.
func validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return &ConfigError{
			Stage:   "validate",
			Message: "configuration failed validation",
			Err:     err,
		}
	}

	if cfg.Jobs.BacktestDefaultLimit <= 0 || cfg.Jobs.BacktestDefaultLimit > cfg.Jobs.BacktestMaxLimit {
		return &ConfigError{
			Stage:   "validate",
			Message: fmt.Sprintf("BACKTEST_DEFAULT_LIMIT must be in (0, %d]", cfg.Jobs.BacktestMaxLimit),
		}
	}
	if cfg.Jobs.BacktestMaxLimit > 1000 {
		return &ConfigError{
			Stage:   "validate",
			Message: "BACKTEST_MAX_LIMIT must not exceed 1000",
		}
	}
	if cfg.Weather.OperatorStalenessWindow <= 0 {
		return &ConfigError{
			Stage:   "validate",
			Message: "OPERATOR_STALENESS_WINDOW must be positive",
		}
	}
	if cfg.Jobs.LinkTolerance <= 0 {
		return &ConfigError{
			Stage:   "validate",
			Message: "BACKTEST_LINK_TOLERANCE must be positive",
		}
	}

	return nil
}
