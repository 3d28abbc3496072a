// Package service wires the ranking store, the scoring engine and the score
// cache invalidation into the operations the HTTP API serves.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/encore/internal/adapters/repository"
	"github.com/okian/encore/internal/domain/dedupe"
	"github.com/okian/encore/internal/domain/model"
	"github.com/okian/encore/internal/domain/scoring"
	"github.com/okian/encore/pkg/logger"
	"github.com/okian/encore/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

const (
	defaultDatabasePath = "encore.db"
	defaultDedupeSize   = 50000
)

// Service implements the API dependencies for the ranking system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store       repository.Store
	ownsStore   bool
	deduper     dedupe.Deduper
	engine      scoring.Engine
	invalidator *Invalidator
	recompute   singleflight.Group

	// Configuration
	databasePath string
	maxOpenConns int
	slowQuery    time.Duration
	configTTL    time.Duration
	dedupeSize   int
	defaults     model.EventScoringConfig
	now          func() time.Time

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDatabasePath sets the SQLite database location.
func WithDatabasePath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.databasePath = path
		}
	}
}

// WithMaxOpenConns caps the database connection pool.
func WithMaxOpenConns(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithSlowQueryThreshold sets the slow SQL logging threshold.
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.slowQuery = d
		}
	}
}

// WithConfigCacheTTL sets how long event scoring settings are cached.
func WithConfigCacheTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.configTTL = d
		}
	}
}

// WithDedupeSize sets the number of idempotency keys remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithScoringDefaults sets the settings events fall back to.
func WithScoringDefaults(cfg model.EventScoringConfig) Option {
	return func(s *Service) {
		s.defaults = cfg
	}
}

// WithClock overrides the time source for snapshots and staleness checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStore injects a store instead of opening one at Start. The caller keeps
// ownership and closes it.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		databasePath: defaultDatabasePath,
		dedupeSize:   defaultDedupeSize,
		defaults:     model.DefaultScoringConfig(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store (unless one was injected) and builds the components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting ranking service...")

	if s.store == nil {
		st, err := repository.Open(ctx, s.databasePath,
			repository.WithLogger(s.logger.Named("repository")),
			repository.WithMaxOpenConns(s.maxOpenConns),
			repository.WithSlowQueryThreshold(s.slowQuery),
			repository.WithConfigCacheTTL(s.configTTL),
			repository.WithScoringDefaults(s.defaults),
			repository.WithClock(s.now),
		)
		if err != nil {
			return err
		}
		s.store = st
		s.ownsStore = true
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.engine = scoring.NewCopelandEngine()
	s.invalidator = NewInvalidator(s.store, s.now)

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.String("database", s.databasePath),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("defaultDepth", s.defaults.RankingDepth),
	)
	return nil
}

// Stop closes the store if the service opened it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping ranking service...")

	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			s.logger.Error(context.Background(), "failed to close store", logger.Error(err))
		}
		s.store = nil
		s.ownsStore = false
	}

	s.started = false
	s.logger.Info(context.Background(), "ranking service stopped")
}

// ready returns ErrNotStarted unless Start has completed.
func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// SeenAndRecord atomically checks if an idempotency key was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, key string) bool {
	if s.ready() != nil {
		return false
	}
	seen := s.deduper.SeenAndRecord(ctx, key)
	if seen {
		metrics.RecordIdempotentReplay()
	}
	return seen
}

// Unrecord forgets an idempotency key so the request can be retried.
func (s *Service) Unrecord(ctx context.Context, key string) {
	if s.ready() != nil {
		return
	}
	s.deduper.Unrecord(ctx, key)
}

// PutEvent creates or updates an event and its scoring settings blob.
func (s *Service) PutEvent(ctx context.Context, eventID, name string, settings []byte) (model.EventScoringConfig, error) {
	if err := s.ready(); err != nil {
		return model.EventScoringConfig{}, err
	}
	cfg, err := s.store.UpsertEvent(ctx, eventID, name, settings)
	if err != nil {
		return model.EventScoringConfig{}, err
	}
	s.logger.Info(ctx, "event settings stored",
		logger.String("event_id", eventID),
		logger.Int("depth", cfg.RankingDepth),
		logger.String("mode", string(cfg.PrimaryScoringMode)),
	)
	return cfg, nil
}

// PutSong records a song and its lifecycle status. A song moving out of the
// rankable set is removed from every ranking list and from the scores.
func (s *Service) PutSong(ctx context.Context, song model.Song, status string) error {
	const op = "service.put_song"
	if err := s.ready(); err != nil {
		return err
	}
	st := model.SongStatus(status)
	if !st.Valid() {
		return model.Validationf(op, "unknown song status %q", status)
	}
	return s.store.PutSong(ctx, song, st)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":    s.started,
		"dedupeSize": s.dedupeSize,
	}
	if !s.started {
		return stats
	}
	stats["idempotencyKeys"] = s.deduper.Size()
	st, err := s.store.Stats(ctx)
	if err != nil {
		s.logger.Warn(ctx, "failed to read store stats", logger.Error(err))
		return stats
	}
	stats["events"] = st.Events
	stats["songs"] = st.Songs
	stats["rankings"] = st.Rankings
	stats["scoreRecords"] = st.Scores
	return stats
}

// outcome labels an error for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrValidation):
		return "validation"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
