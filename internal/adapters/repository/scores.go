package repository

import (
	"context"
	"errors"
	"time"

	"github.com/okian/encore/internal/domain/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const scoreBatchSize = 200

// RebuildScores replaces the event's snapshot with compute's output. The event
// lock keeps ranking mutations from interleaving with the read.
func (s *GormStore) RebuildScores(ctx context.Context, eventID string, compute ComputeFunc) error {
	const op = "repository.rebuild_scores"
	defer s.observe(op, time.Now())

	unlock := s.lockEvent(eventID)
	defer unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		songs, err := rankableSongsTx(tx, eventID)
		if err != nil {
			return err
		}
		ballots, err := ballotsTx(tx, eventID)
		if err != nil {
			return err
		}
		records, err := compute(songs, ballots)
		if err != nil {
			return err
		}
		return replaceScoresTx(tx, eventID, records)
	})
	if err != nil {
		return s.fail(ctx, op, err)
	}
	return nil
}

// ballotsTx groups the event's rankings by participant, each ordered by position.
func ballotsTx(tx *gorm.DB, eventID string) ([]model.Ballot, error) {
	var rows []rankingRow
	if err := tx.Where("event_id = ?", eventID).
		Order("participant_id ASC").
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	var ballots []model.Ballot
	for _, r := range rows {
		if n := len(ballots); n == 0 || ballots[n-1].ParticipantID != r.ParticipantID {
			ballots = append(ballots, model.Ballot{ParticipantID: r.ParticipantID})
		}
		b := &ballots[len(ballots)-1]
		b.Rankings = append(b.Rankings, r.toModel())
	}
	return ballots, nil
}

// replaceScoresTx upserts every record and drops rows for songs not written.
func replaceScoresTx(tx *gorm.DB, eventID string, records []model.ScoreRecord) error {
	if len(records) == 0 {
		return tx.Where("event_id = ?", eventID).Delete(&scoreRow{}).Error
	}
	rows := make([]scoreRow, len(records))
	ids := make([]string, len(records))
	for i, r := range records {
		rows[i] = scoreRowFrom(r)
		rows[i].EventID = eventID
		ids[i] = r.SongID
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}, {Name: "song_id"}},
		UpdateAll: true,
	}).CreateInBatches(&rows, scoreBatchSize).Error; err != nil {
		return err
	}
	return tx.Where("event_id = ? AND song_id NOT IN ?", eventID, ids).Delete(&scoreRow{}).Error
}

// Scores returns the snapshot ordered by Consensus rank.
func (s *GormStore) Scores(ctx context.Context, eventID string) ([]model.ScoreRecord, error) {
	const op = "repository.scores"
	defer s.observe(op, time.Now())

	var rows []scoreRow
	if err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("consensus_rank ASC").
		Find(&rows).Error; err != nil {
		return nil, s.fail(ctx, op, err)
	}
	out := make([]model.ScoreRecord, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// LatestCalculatedAt returns the newest calculatedAt of the event's snapshot.
func (s *GormStore) LatestCalculatedAt(ctx context.Context, eventID string) (time.Time, bool, error) {
	const op = "repository.latest_calculated_at"
	defer s.observe(op, time.Now())

	var row scoreRow
	err := s.db.WithContext(ctx).
		Select("calculated_at").
		Where("event_id = ?", eventID).
		Order("calculated_at DESC").
		Limit(1).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, s.fail(ctx, op, err)
	}
	return row.CalculatedAt, true, nil
}
