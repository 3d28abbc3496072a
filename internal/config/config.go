// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and environment variables on top of the defaults.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/okian/encore/internal/domain/model"
)

var validate = validator.New()

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// DatabasePath is the SQLite file (or DSN) holding events, rankings and scores.
	DatabasePath string `koanf:"database_path" validate:"required"`

	// DatabaseMaxOpenConns caps the connection pool.
	DatabaseMaxOpenConns int `koanf:"database_max_open_conns" validate:"min=1"`

	// SlowQueryMS logs SQL statements slower than this at warn level.
	SlowQueryMS int `koanf:"slow_query_ms" validate:"min=1"`

	// ConfigCacheTTLSeconds bounds how long event scoring settings are cached.
	ConfigCacheTTLSeconds int `koanf:"config_cache_ttl_seconds" validate:"min=1"`

	// IdempotencyCacheSize sets how many Idempotency-Key values are remembered.
	IdempotencyCacheSize int `koanf:"idempotency_cache_size" validate:"min=1"`

	// Defaults applied to events whose settings omit a key.
	DefaultRankingDepth           int     `koanf:"default_ranking_depth" validate:"min=1,max=100"`
	DefaultScoringMode            string  `koanf:"default_scoring_mode" validate:"oneof=consensus discovery"`
	DefaultMinRankDelta           int     `koanf:"default_min_rank_delta" validate:"min=0"`
	DefaultMaxRankerPercentage    float64 `koanf:"default_max_ranker_percentage" validate:"min=0,max=100"`
	DefaultMinParticipants        int     `koanf:"default_min_participants" validate:"min=0"`
	DefaultRefreshIntervalSeconds int     `koanf:"default_refresh_interval_seconds" validate:"min=0"`

	// OperatorToken guards POST /events/{id}/scores/refresh. Empty disables the check.
	OperatorToken string `koanf:"operator_token"`
}

// New creates a Config populated with defaults. Context is accepted first to
// satisfy the project-wide convention.
func New(_ context.Context) *Config {
	d := model.DefaultScoringConfig()
	return &Config{
		LogLevel:                      "info",
		LogFormat:                     "text",
		Addr:                          ":9080",
		DatabasePath:                  "encore.db",
		DatabaseMaxOpenConns:          1,
		SlowQueryMS:                   200,
		ConfigCacheTTLSeconds:         30,
		IdempotencyCacheSize:          50_000,
		DefaultRankingDepth:           d.RankingDepth,
		DefaultScoringMode:            string(d.PrimaryScoringMode),
		DefaultMinRankDelta:           d.MinRankDelta,
		DefaultMaxRankerPercentage:    d.MaxRankerPercentage,
		DefaultMinParticipants:        d.MinParticipantsForActivation,
		DefaultRefreshIntervalSeconds: d.RefreshIntervalSeconds,
	}
}

// Validate checks every field against its bounds.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return wrapErr(ErrInvalidConfig, err)
	}
	return nil
}

// ScoringDefaults returns the settings events fall back to.
func (c *Config) ScoringDefaults() model.EventScoringConfig {
	return model.EventScoringConfig{
		RankingDepth:                 c.DefaultRankingDepth,
		PrimaryScoringMode:           model.ScoringMode(c.DefaultScoringMode),
		MinRankDelta:                 c.DefaultMinRankDelta,
		MaxRankerPercentage:          c.DefaultMaxRankerPercentage,
		MinParticipantsForActivation: c.DefaultMinParticipants,
		RefreshIntervalSeconds:       c.DefaultRefreshIntervalSeconds,
	}
}

// SlowQueryThreshold returns SlowQueryMS as a duration.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryMS) * time.Millisecond
}

// ConfigCacheTTL returns ConfigCacheTTLSeconds as a duration.
func (c *Config) ConfigCacheTTL() time.Duration {
	return time.Duration(c.ConfigCacheTTLSeconds) * time.Second
}
