package repository

import (
	"time"

	"github.com/okian/encore/internal/domain/model"
	"github.com/okian/encore/pkg/logger"
)

// Option applies a configuration option to the GormStore.
type Option func(*GormStore)

// WithLogger sets the logger used for store and SQL logging.
func WithLogger(l logger.Logger) Option {
	return func(s *GormStore) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMaxOpenConns caps the connection pool. SQLite serializes writers, so the
// default is one.
func WithMaxOpenConns(n int) Option {
	return func(s *GormStore) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithSlowQueryThreshold sets the duration above which statements are logged as slow.
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(s *GormStore) {
		if d > 0 {
			s.slowQuery = d
		}
	}
}

// WithConfigCacheTTL sets how long parsed event scoring configs are cached.
func WithConfigCacheTTL(d time.Duration) Option {
	return func(s *GormStore) {
		if d > 0 {
			s.configTTL = d
		}
	}
}

// WithScoringDefaults sets the settings applied under each event's stored blob.
func WithScoringDefaults(cfg model.EventScoringConfig) Option {
	return func(s *GormStore) {
		s.defaults = cfg
	}
}

// WithClock overrides the time source used for row timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *GormStore) {
		if now != nil {
			s.now = now
		}
	}
}
