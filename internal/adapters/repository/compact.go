package repository

import (
	"context"
	"time"

	"github.com/okian/encore/pkg/metrics"
	"gorm.io/gorm"
)

// compactTx renumbers a participant's list to 1..N keeping relative order and
// returns the number of rows it rewrote. A gapless list costs one read.
func compactTx(tx *gorm.DB, eventID, participantID string) (int, error) {
	var rows []rankingRow
	if err := tx.Where("event_id = ? AND participant_id = ?", eventID, participantID).
		Order("position ASC").
		Order("created_at ASC").
		Order("song_id ASC").
		Find(&rows).Error; err != nil {
		return 0, err
	}
	writes := 0
	for i, r := range rows {
		want := i + 1
		if r.Position == want {
			continue
		}
		if err := participantScope(tx, eventID, participantID).
			Where("song_id = ?", r.SongID).
			UpdateColumn("position", want).Error; err != nil {
			return 0, err
		}
		writes++
	}
	return writes, nil
}

// RecompactRankings closes any position gaps in a participant's list.
func (s *GormStore) RecompactRankings(ctx context.Context, eventID, participantID string) (int, error) {
	const op = "repository.recompact_rankings"
	defer s.observe(op, time.Now())

	unlock := s.lockParticipant(eventID, participantID)
	defer unlock()

	var writes int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		writes, err = compactTx(tx, eventID, participantID)
		return err
	})
	if err != nil {
		return 0, s.fail(ctx, op, err)
	}
	metrics.RecordCompactionWrites(writes)
	return writes, nil
}
