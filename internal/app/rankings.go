package service

import (
	"context"
	"strings"

	"github.com/okian/encore/internal/domain/model"
	"github.com/okian/encore/internal/domain/types"
	"github.com/okian/encore/pkg/logger"
	"github.com/okian/encore/pkg/metrics"
)

func requireIDs(op string, ids ...string) error {
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return model.Validationf(op, "identifiers must not be empty")
		}
	}
	return nil
}

// AddRanking places songID in the participant's list and returns its position.
// A nil position appends.
func (s *Service) AddRanking(ctx context.Context, eventID, participantID, songID string, position *int) (pos int, err error) {
	const op = "service.add_ranking"
	defer func() { metrics.RecordRankingMutation("add", outcome(err)) }()

	if err := s.ready(); err != nil {
		return 0, err
	}
	if err := requireIDs(op, eventID, participantID, songID); err != nil {
		return 0, err
	}
	cfg, err := s.store.ScoringConfig(ctx, eventID)
	if err != nil {
		return 0, err
	}
	return s.store.AddRanking(ctx, eventID, participantID, songID, position, cfg.RankingDepth)
}

// RemoveRanking drops songID from the participant's list.
func (s *Service) RemoveRanking(ctx context.Context, eventID, participantID, songID string) (err error) {
	const op = "service.remove_ranking"
	defer func() { metrics.RecordRankingMutation("remove", outcome(err)) }()

	if err := s.ready(); err != nil {
		return err
	}
	if err := requireIDs(op, eventID, participantID, songID); err != nil {
		return err
	}
	if _, err := s.store.ScoringConfig(ctx, eventID); err != nil {
		return err
	}
	return s.store.RemoveRanking(ctx, eventID, participantID, songID)
}

// ReplaceRankings swaps the participant's whole list for songIDs.
func (s *Service) ReplaceRankings(ctx context.Context, eventID, participantID string, songIDs []string) (err error) {
	const op = "service.replace_rankings"
	defer func() { metrics.RecordRankingMutation("replace", outcome(err)) }()

	if err := s.ready(); err != nil {
		return err
	}
	if err := requireIDs(op, eventID, participantID); err != nil {
		return err
	}
	cfg, err := s.store.ScoringConfig(ctx, eventID)
	if err != nil {
		return err
	}
	return s.store.ReplaceRankings(ctx, eventID, participantID, songIDs, cfg.RankingDepth)
}

// Reorder rearranges the participant's current list.
func (s *Service) Reorder(ctx context.Context, eventID, participantID string, songIDs []string) (err error) {
	const op = "service.reorder"
	defer func() { metrics.RecordRankingMutation("reorder", outcome(err)) }()

	if err := s.ready(); err != nil {
		return err
	}
	if err := requireIDs(op, eventID, participantID); err != nil {
		return err
	}
	if _, err := s.store.ScoringConfig(ctx, eventID); err != nil {
		return err
	}
	return s.store.Reorder(ctx, eventID, participantID, songIDs)
}

// RemoveSongGlobally purges a song that left the rankable set from every list
// and from the scores. Returns the number of participants affected.
func (s *Service) RemoveSongGlobally(ctx context.Context, eventID, songID string) (n int, err error) {
	const op = "service.remove_song_globally"
	defer func() { metrics.RecordRankingMutation("remove_song", outcome(err)) }()

	if err := s.ready(); err != nil {
		return 0, err
	}
	if err := requireIDs(op, eventID, songID); err != nil {
		return 0, err
	}
	if _, err := s.store.ScoringConfig(ctx, eventID); err != nil {
		return 0, err
	}
	n, err = s.store.RemoveSongGlobally(ctx, eventID, songID)
	if err != nil {
		return 0, err
	}
	s.logger.Info(ctx, "song removed from rankings",
		logger.String("event_id", eventID),
		logger.String("song_id", songID),
		logger.Int("participants", n),
	)
	return n, nil
}

// GetParticipantRankings returns the participant's list with song details.
func (s *Service) GetParticipantRankings(ctx context.Context, eventID, participantID string) ([]types.RankingEntry, error) {
	const op = "service.get_participant_rankings"
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := requireIDs(op, eventID, participantID); err != nil {
		return nil, err
	}
	if _, err := s.store.ScoringConfig(ctx, eventID); err != nil {
		return nil, err
	}
	rankings, err := s.store.ParticipantRankings(ctx, eventID, participantID)
	if err != nil {
		return nil, err
	}
	songs, err := s.store.Songs(ctx, eventID)
	if err != nil {
		return nil, err
	}
	out := make([]types.RankingEntry, len(rankings))
	for i, r := range rankings {
		song := songs[r.SongID]
		out[i] = types.RankingEntry{Position: r.Position, SongID: r.SongID, Title: song.Title, Artist: song.Artist}
	}
	return out, nil
}
