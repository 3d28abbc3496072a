package repository

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/okian/encore/internal/domain/model"
	"github.com/okian/encore/pkg/logger"
	"github.com/okian/encore/pkg/metrics"
	"github.com/patrickmn/go-cache"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	defaultMaxOpenConns   = 1
	defaultSlowQuery      = 200 * time.Millisecond
	defaultConfigCacheTTL = 30 * time.Second

	sqlitePragmas = "_busy_timeout=5000&_journal_mode=WAL"
)

// GormStore implements Store on SQLite through gorm.
type GormStore struct {
	db  *gorm.DB
	log logger.Logger

	maxOpenConns int
	slowQuery    time.Duration
	configTTL    time.Duration
	defaults     model.EventScoringConfig
	now          func() time.Time

	configs          *cache.Cache
	eventLocks       *keyedLocks
	participantLocks *keyedLocks
	closed           atomic.Bool
}

var _ Store = (*GormStore)(nil)

// Open connects to the database at path, creating the schema when missing.
// path is a file path, ":memory:", or a "file:" URI used as is.
func Open(ctx context.Context, path string, opts ...Option) (*GormStore, error) {
	const op = "repository.open"

	s := &GormStore{
		log:              logger.Discard(),
		maxOpenConns:     defaultMaxOpenConns,
		slowQuery:        defaultSlowQuery,
		configTTL:        defaultConfigCacheTTL,
		defaults:         model.DefaultScoringConfig(),
		now:              time.Now,
		eventLocks:       newKeyedLocks(),
		participantLocks: newKeyedLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.configs = cache.New(s.configTTL, 2*s.configTTL)

	db, err := gorm.Open(sqlite.Open(dsn(path)), &gorm.Config{
		Logger:  newGormLogger(s.log.Named("sql"), s.slowQuery),
		NowFunc: func() time.Time { return s.now().UTC() },
	})
	if err != nil {
		return nil, model.WrapKind(op, model.ErrStorage, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, model.WrapKind(op, model.ErrStorage, err)
	}
	sqlDB.SetMaxOpenConns(s.maxOpenConns)
	sqlDB.SetMaxIdleConns(s.maxOpenConns)

	if err := db.WithContext(ctx).AutoMigrate(&eventRow{}, &songRow{}, &rankingRow{}, &scoreRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, model.WrapKind(op, model.ErrStorage, err)
	}

	s.db = db
	s.log.Info(ctx, "store opened",
		logger.String("path", path),
		logger.Int("max_open_conns", s.maxOpenConns),
	)
	return s, nil
}

func dsn(path string) string {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path
	}
	if strings.Contains(path, "?") {
		return path + "&" + sqlitePragmas
	}
	return path + "?" + sqlitePragmas
}

// Close releases the connection pool.
func (s *GormStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.configs.Flush()
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Stats counts rows per table.
func (s *GormStore) Stats(ctx context.Context) (Stats, error) {
	const op = "repository.stats"
	if s.closed.Load() {
		return Stats{}, model.WrapKind(op, model.ErrStorage, ErrClosed)
	}
	var st Stats
	db := s.db.WithContext(ctx)
	for _, c := range []struct {
		table any
		dst   *int64
	}{
		{&eventRow{}, &st.Events},
		{&songRow{}, &st.Songs},
		{&rankingRow{}, &st.Rankings},
		{&scoreRow{}, &st.Scores},
	} {
		if err := db.Model(c.table).Count(c.dst).Error; err != nil {
			return Stats{}, s.fail(ctx, op, err)
		}
	}
	return st, nil
}

// observe records the latency of op since start.
func (s *GormStore) observe(op string, start time.Time) {
	metrics.RecordRepositoryQueryLatency(op, float64(time.Since(start).Microseconds())/1000)
}

// fail classifies err and reports real storage failures.
func (s *GormStore) fail(ctx context.Context, op string, err error) error {
	err = model.Storage(op, err)
	if errors.Is(err, model.ErrStorage) {
		metrics.RecordErrorByComponent("repository", "storage")
		s.log.Error(ctx, "storage operation failed", logger.String("op", op), logger.Error(err))
	}
	return err
}
