package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/okian/encore/internal/domain/model"
	"github.com/okian/encore/pkg/logger"
	"github.com/okian/encore/pkg/metrics"
	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func rankableStatuses() []string {
	out := make([]string, len(model.RankableStatuses))
	for i, st := range model.RankableStatuses {
		out[i] = string(st)
	}
	return out
}

func rankableSongsTx(tx *gorm.DB, eventID string) ([]model.Song, error) {
	var rows []songRow
	if err := tx.Where("event_id = ? AND status IN ?", eventID, rankableStatuses()).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.Song, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// UpsertEvent stores an event and its settings blob. The blob is validated
// against the defaults before anything is written.
func (s *GormStore) UpsertEvent(ctx context.Context, eventID, name string, settings []byte) (model.EventScoringConfig, error) {
	const op = "repository.upsert_event"
	defer s.observe(op, time.Now())

	if strings.TrimSpace(eventID) == "" {
		return model.EventScoringConfig{}, model.Validationf(op, "event id is required")
	}
	cfg, err := model.ParseScoringConfig(settings, s.defaults)
	if err != nil {
		return model.EventScoringConfig{}, err
	}

	row := eventRow{ID: eventID, Name: name, Settings: string(settings)}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "settings", "updated_at"}),
	}).Create(&row).Error; err != nil {
		return model.EventScoringConfig{}, s.fail(ctx, op, err)
	}
	s.configs.Delete(eventID)
	return cfg, nil
}

// ScoringConfig returns the event's parsed settings, cached for the configured TTL.
func (s *GormStore) ScoringConfig(ctx context.Context, eventID string) (model.EventScoringConfig, error) {
	const op = "repository.scoring_config"

	if v, ok := s.configs.Get(eventID); ok {
		metrics.RecordConfigCacheLookup("hit")
		return v.(model.EventScoringConfig), nil
	}
	metrics.RecordConfigCacheLookup("miss")
	defer s.observe(op, time.Now())

	var row eventRow
	err := s.db.WithContext(ctx).Where("id = ?", eventID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.EventScoringConfig{}, model.WrapKind(op, model.ErrNotFound, ErrEventNotFound)
	}
	if err != nil {
		return model.EventScoringConfig{}, s.fail(ctx, op, err)
	}
	cfg, err := model.ParseScoringConfig([]byte(row.Settings), s.defaults)
	if err != nil {
		s.log.Warn(ctx, "stored event settings are invalid", logger.String("event_id", eventID), logger.Error(err))
		return model.EventScoringConfig{}, err
	}
	s.configs.Set(eventID, cfg, cache.DefaultExpiration)
	return cfg, nil
}

// PutSong creates or updates a song. When the new status is not rankable the
// song is purged from rankings and scores inside the same transaction.
func (s *GormStore) PutSong(ctx context.Context, song model.Song, status model.SongStatus) error {
	const op = "repository.put_song"
	defer s.observe(op, time.Now())

	if strings.TrimSpace(song.EventID) == "" || strings.TrimSpace(song.ID) == "" {
		return model.Validationf(op, "event id and song id are required")
	}
	if !status.Valid() {
		return model.Validationf(op, "unknown song status %q", status)
	}

	unlock := s.lockEvent(song.EventID)
	defer unlock()

	var affected, writes int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var events int64
		if err := tx.Model(&eventRow{}).Where("id = ?", song.EventID).Count(&events).Error; err != nil {
			return err
		}
		if events == 0 {
			return model.WrapKind(op, model.ErrNotFound, ErrEventNotFound)
		}

		row := songRow{
			EventID:   song.EventID,
			ID:        song.ID,
			Title:     song.Title,
			Artist:    song.Artist,
			Status:    string(status),
			CreatedAt: song.CreatedAt.UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "artist", "status", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return err
		}
		if status.Rankable() {
			return nil
		}
		var err error
		affected, writes, err = removeSongTx(tx, song.EventID, song.ID)
		return err
	})
	if err != nil {
		return s.fail(ctx, op, err)
	}
	if affected > 0 {
		metrics.RecordSongRemoved()
		metrics.RecordCompactionWrites(writes)
		s.log.Info(ctx, "song left rankable set",
			logger.String("event_id", song.EventID),
			logger.String("song_id", song.ID),
			logger.String("status", string(status)),
			logger.Int("participants", affected),
		)
	}
	return nil
}

// Song returns one song and its status.
func (s *GormStore) Song(ctx context.Context, eventID, songID string) (model.Song, model.SongStatus, error) {
	const op = "repository.song"
	defer s.observe(op, time.Now())

	var row songRow
	err := s.db.WithContext(ctx).Where("event_id = ? AND id = ?", eventID, songID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Song{}, "", model.WrapKind(op, model.ErrNotFound, ErrSongNotFound)
	}
	if err != nil {
		return model.Song{}, "", s.fail(ctx, op, err)
	}
	return row.toModel(), model.SongStatus(row.Status), nil
}

// RankableSongs returns the songs that may currently be ranked, oldest first.
func (s *GormStore) RankableSongs(ctx context.Context, eventID string) ([]model.Song, error) {
	const op = "repository.rankable_songs"
	defer s.observe(op, time.Now())

	songs, err := rankableSongsTx(s.db.WithContext(ctx), eventID)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	return songs, nil
}

// Songs returns every song of the event keyed by id.
func (s *GormStore) Songs(ctx context.Context, eventID string) (map[string]model.Song, error) {
	const op = "repository.songs"
	defer s.observe(op, time.Now())

	var rows []songRow
	if err := s.db.WithContext(ctx).Where("event_id = ?", eventID).Find(&rows).Error; err != nil {
		return nil, s.fail(ctx, op, err)
	}
	out := make(map[string]model.Song, len(rows))
	for _, r := range rows {
		out[r.ID] = r.toModel()
	}
	return out, nil
}
