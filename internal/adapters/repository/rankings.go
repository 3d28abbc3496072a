package repository

import (
	"context"
	"errors"
	"time"

	"github.com/okian/encore/internal/domain/model"
	"github.com/okian/encore/pkg/metrics"
	"gorm.io/gorm"
)

func participantScope(tx *gorm.DB, eventID, participantID string) *gorm.DB {
	return tx.Model(&rankingRow{}).Where("event_id = ? AND participant_id = ?", eventID, participantID)
}

// requireRankable loads songID and checks its status.
func requireRankable(tx *gorm.DB, op, eventID, songID string) error {
	var row songRow
	err := tx.Where("event_id = ? AND id = ?", eventID, songID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.WrapKind(op, model.ErrNotFound, ErrSongNotFound)
	}
	if err != nil {
		return err
	}
	if !model.SongStatus(row.Status).Rankable() {
		return model.WrapKind(op, model.ErrValidation, ErrNotRankable)
	}
	return nil
}

// requireAllRankable checks a batch of song ids with one query.
func requireAllRankable(tx *gorm.DB, op, eventID string, songIDs []string) error {
	if len(songIDs) == 0 {
		return nil
	}
	var rows []songRow
	if err := tx.Where("event_id = ? AND id IN ?", eventID, songIDs).Find(&rows).Error; err != nil {
		return err
	}
	status := make(map[string]model.SongStatus, len(rows))
	for _, r := range rows {
		status[r.ID] = model.SongStatus(r.Status)
	}
	for _, id := range songIDs {
		st, ok := status[id]
		if !ok {
			return model.WrapKind(op, model.ErrNotFound, ErrSongNotFound)
		}
		if !st.Rankable() {
			return model.WrapKind(op, model.ErrValidation, ErrNotRankable)
		}
	}
	return nil
}

func hasDuplicates(ids []string) bool {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}

// AddRanking inserts a song into a participant's list.
func (s *GormStore) AddRanking(ctx context.Context, eventID, participantID, songID string, position *int, depth int) (int, error) {
	const op = "repository.add_ranking"
	defer s.observe(op, time.Now())

	unlock := s.lockParticipant(eventID, participantID)
	defer unlock()

	var assigned int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireRankable(tx, op, eventID, songID); err != nil {
			return err
		}

		var existing int64
		if err := participantScope(tx, eventID, participantID).Where("song_id = ?", songID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return model.WrapKind(op, model.ErrValidation, ErrAlreadyRanked)
		}

		var count int64
		if err := participantScope(tx, eventID, participantID).Count(&count).Error; err != nil {
			return err
		}
		n := int(count)
		if n >= depth {
			return model.WrapKind(op, model.ErrValidation, ErrDepthReached)
		}

		assigned = n + 1
		if position != nil {
			assigned = min(max(*position, 1), n+1)
		}
		if assigned <= n {
			if err := participantScope(tx, eventID, participantID).
				Where("position >= ?", assigned).
				UpdateColumn("position", gorm.Expr("position + 1")).Error; err != nil {
				return err
			}
		}
		return tx.Create(&rankingRow{
			EventID:       eventID,
			ParticipantID: participantID,
			SongID:        songID,
			Position:      assigned,
		}).Error
	})
	if err != nil {
		return 0, s.fail(ctx, op, err)
	}
	return assigned, nil
}

// RemoveRanking deletes one entry and compacts the remainder.
func (s *GormStore) RemoveRanking(ctx context.Context, eventID, participantID, songID string) error {
	const op = "repository.remove_ranking"
	defer s.observe(op, time.Now())

	unlock := s.lockParticipant(eventID, participantID)
	defer unlock()

	var writes int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("event_id = ? AND participant_id = ? AND song_id = ?", eventID, participantID, songID).
			Delete(&rankingRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return model.WrapKind(op, model.ErrNotFound, ErrRankingNotFound)
		}
		var err error
		writes, err = compactTx(tx, eventID, participantID)
		return err
	})
	if err != nil {
		return s.fail(ctx, op, err)
	}
	metrics.RecordCompactionWrites(writes)
	return nil
}

// ReplaceRankings swaps the participant's list for songIDs in order.
func (s *GormStore) ReplaceRankings(ctx context.Context, eventID, participantID string, songIDs []string, depth int) error {
	const op = "repository.replace_rankings"
	defer s.observe(op, time.Now())

	if len(songIDs) > depth {
		return model.WrapKind(op, model.ErrValidation, ErrDepthReached)
	}
	if hasDuplicates(songIDs) {
		return model.WrapKind(op, model.ErrValidation, ErrDuplicateSongs)
	}

	unlock := s.lockParticipant(eventID, participantID)
	defer unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireAllRankable(tx, op, eventID, songIDs); err != nil {
			return err
		}
		if err := tx.Where("event_id = ? AND participant_id = ?", eventID, participantID).
			Delete(&rankingRow{}).Error; err != nil {
			return err
		}
		if len(songIDs) == 0 {
			return nil
		}
		rows := make([]rankingRow, len(songIDs))
		for i, id := range songIDs {
			rows[i] = rankingRow{EventID: eventID, ParticipantID: participantID, SongID: id, Position: i + 1}
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return s.fail(ctx, op, err)
	}
	return nil
}

// Reorder assigns positions following songIDs, skipping rows already in place.
func (s *GormStore) Reorder(ctx context.Context, eventID, participantID string, songIDs []string) error {
	const op = "repository.reorder"
	defer s.observe(op, time.Now())

	if hasDuplicates(songIDs) {
		return model.WrapKind(op, model.ErrValidation, ErrDuplicateSongs)
	}

	unlock := s.lockParticipant(eventID, participantID)
	defer unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []rankingRow
		if err := tx.Where("event_id = ? AND participant_id = ?", eventID, participantID).Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) != len(songIDs) {
			return model.WrapKind(op, model.ErrValidation, ErrNotPermutation)
		}
		current := make(map[string]int, len(rows))
		for _, r := range rows {
			current[r.SongID] = r.Position
		}
		for _, id := range songIDs {
			if _, ok := current[id]; !ok {
				return model.WrapKind(op, model.ErrValidation, ErrNotPermutation)
			}
		}
		for i, id := range songIDs {
			if current[id] == i+1 {
				continue
			}
			if err := participantScope(tx, eventID, participantID).
				Where("song_id = ?", id).
				UpdateColumn("position", i+1).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return s.fail(ctx, op, err)
	}
	return nil
}

// RemoveSongGlobally purges a song leaving the rankable set.
func (s *GormStore) RemoveSongGlobally(ctx context.Context, eventID, songID string) (int, error) {
	const op = "repository.remove_song_globally"
	defer s.observe(op, time.Now())

	unlock := s.lockEvent(eventID)
	defer unlock()

	var affected, writes int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		affected, writes, err = removeSongTx(tx, eventID, songID)
		return err
	})
	if err != nil {
		return 0, s.fail(ctx, op, err)
	}
	metrics.RecordSongRemoved()
	metrics.RecordCompactionWrites(writes)
	return affected, nil
}

// removeSongTx deletes the song's rankings and score row, then compacts every
// participant who held it. Callers hold the event lock.
func removeSongTx(tx *gorm.DB, eventID, songID string) (affected, writes int, err error) {
	var participants []string
	if err := tx.Model(&rankingRow{}).
		Where("event_id = ? AND song_id = ?", eventID, songID).
		Order("participant_id").
		Pluck("participant_id", &participants).Error; err != nil {
		return 0, 0, err
	}
	if err := tx.Where("event_id = ? AND song_id = ?", eventID, songID).Delete(&rankingRow{}).Error; err != nil {
		return 0, 0, err
	}
	if err := tx.Where("event_id = ? AND song_id = ?", eventID, songID).Delete(&scoreRow{}).Error; err != nil {
		return 0, 0, err
	}
	for _, p := range participants {
		n, err := compactTx(tx, eventID, p)
		if err != nil {
			return 0, 0, err
		}
		writes += n
	}
	return len(participants), writes, nil
}

// ParticipantRankings returns the participant's list ordered by position.
func (s *GormStore) ParticipantRankings(ctx context.Context, eventID, participantID string) ([]model.Ranking, error) {
	const op = "repository.participant_rankings"
	defer s.observe(op, time.Now())

	var rows []rankingRow
	if err := s.db.WithContext(ctx).
		Where("event_id = ? AND participant_id = ?", eventID, participantID).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, s.fail(ctx, op, err)
	}
	out := make([]model.Ranking, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}
