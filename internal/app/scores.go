package service

import (
	"context"
	"time"

	"github.com/okian/encore/internal/domain/model"
	"github.com/okian/encore/internal/domain/scoring"
	"github.com/okian/encore/internal/domain/types"
	"github.com/okian/encore/pkg/logger"
	"github.com/okian/encore/pkg/metrics"
)

// CalculateScores rebuilds the event's snapshot from current rankings in one
// transaction. Every record in a snapshot shares one calculatedAt.
func (s *Service) CalculateScores(ctx context.Context, eventID string) error {
	const op = "service.calculate_scores"
	if err := s.ready(); err != nil {
		return err
	}
	if err := requireIDs(op, eventID); err != nil {
		return err
	}
	cfg, err := s.store.ScoringConfig(ctx, eventID)
	if err != nil {
		return err
	}

	start := time.Now()
	calculatedAt := s.now().UTC()
	var (
		result scoring.Result
		songs  int
	)
	err = s.store.RebuildScores(ctx, eventID, func(rankable []model.Song, ballots []model.Ballot) ([]model.ScoreRecord, error) {
		res, err := s.engine.Calculate(ctx, scoring.Input{
			EventID: eventID,
			Songs:   rankable,
			Ballots: ballots,
			Config:  cfg,
		})
		if err != nil {
			return nil, err
		}
		for i := range res.Records {
			res.Records[i].CalculatedAt = calculatedAt
		}
		result, songs = res, len(rankable)
		return res.Records, nil
	})
	if err != nil {
		metrics.RecordErrorByComponent("scoring", outcome(err))
		return err
	}

	gems := len(scoring.HiddenGems(result.Records))
	elapsed := time.Since(start)
	metrics.RecordScoreRecompute(float64(elapsed.Microseconds())/1000, songs, result.TotalParticipants, gems)
	s.logger.Info(ctx, "scores recalculated",
		logger.String("event_id", eventID),
		logger.Int("songs", songs),
		logger.Int("participants", result.TotalParticipants),
		logger.Int("hidden_gems", gems),
		logger.Bool("activated", result.Activated),
		logger.Duration("elapsed", elapsed),
	)
	return nil
}

// ScoresAreStale reports whether the event's snapshot must be rebuilt before
// it is served, using the event's refresh interval.
func (s *Service) ScoresAreStale(ctx context.Context, eventID string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	cfg, err := s.store.ScoringConfig(ctx, eventID)
	if err != nil {
		return false, err
	}
	return s.invalidator.ScoresAreStale(ctx, eventID, cfg.RefreshInterval())
}

// GetScores serves the scoreboard in the given mode ("" means the event's
// primary mode), recomputing first when the snapshot is stale. Concurrent
// stale reads of one event share a single recompute.
func (s *Service) GetScores(ctx context.Context, eventID, mode string) (types.Scoreboard, error) {
	const op = "service.get_scores"
	if err := s.ready(); err != nil {
		return types.Scoreboard{}, err
	}
	if err := requireIDs(op, eventID); err != nil {
		return types.Scoreboard{}, err
	}
	cfg, err := s.store.ScoringConfig(ctx, eventID)
	if err != nil {
		return types.Scoreboard{}, err
	}
	m := cfg.PrimaryScoringMode
	if mode != "" {
		if m, err = model.ParseScoringMode(mode); err != nil {
			return types.Scoreboard{}, model.WrapKind(op, model.ErrValidation, err)
		}
	}

	stale, err := s.invalidator.ScoresAreStale(ctx, eventID, cfg.RefreshInterval())
	if err != nil {
		return types.Scoreboard{}, err
	}
	state := "fresh"
	if stale {
		state = "stale"
		_, err, shared := s.recompute.Do(eventID, func() (interface{}, error) {
			// A flight that finished while this caller waited may have refreshed already.
			stale, err := s.invalidator.ScoresAreStale(ctx, eventID, cfg.RefreshInterval())
			if err != nil || !stale {
				return nil, err
			}
			return nil, s.CalculateScores(context.WithoutCancel(ctx), eventID)
		})
		if err != nil {
			return types.Scoreboard{}, err
		}
		if shared {
			state = "shared"
		}
	}
	metrics.RecordScoreRead(state)
	return s.scoreboard(ctx, eventID, m, cfg)
}

// RefreshScores forces a recompute regardless of staleness and returns the
// scoreboard in the event's primary mode.
func (s *Service) RefreshScores(ctx context.Context, eventID string) (types.Scoreboard, error) {
	if err := s.ready(); err != nil {
		return types.Scoreboard{}, err
	}
	cfg, err := s.store.ScoringConfig(ctx, eventID)
	if err != nil {
		return types.Scoreboard{}, err
	}
	if _, err, _ := s.recompute.Do(eventID, func() (interface{}, error) {
		return nil, s.CalculateScores(context.WithoutCancel(ctx), eventID)
	}); err != nil {
		return types.Scoreboard{}, err
	}
	s.logger.Info(ctx, "scores refreshed by operator", logger.String("event_id", eventID))
	return s.scoreboard(ctx, eventID, cfg.PrimaryScoringMode, cfg)
}

func (s *Service) scoreboard(ctx context.Context, eventID string, mode model.ScoringMode, cfg model.EventScoringConfig) (types.Scoreboard, error) {
	recs, err := s.store.Scores(ctx, eventID)
	if err != nil {
		return types.Scoreboard{}, err
	}
	songs, err := s.store.Songs(ctx, eventID)
	if err != nil {
		return types.Scoreboard{}, err
	}

	board := types.Scoreboard{
		EventID:    eventID,
		Mode:       string(mode),
		Entries:    make([]types.ScoreEntry, 0, len(recs)),
		HiddenGems: []types.HiddenGem{},
	}
	if len(recs) == 0 {
		return board, nil
	}

	latest := recs[0].CalculatedAt
	for _, r := range recs[1:] {
		if r.CalculatedAt.After(latest) {
			latest = r.CalculatedAt
		}
	}
	board.CalculatedAt = &latest
	board.TotalParticipants = recs[0].TotalParticipants
	board.Activated = board.TotalParticipants >= cfg.MinParticipantsForActivation

	scoring.SortByMode(recs, mode)
	for _, r := range recs {
		board.Entries = append(board.Entries, types.NewScoreEntry(r, songs[r.SongID], mode))
	}
	for _, r := range scoring.HiddenGems(recs) {
		board.HiddenGems = append(board.HiddenGems, types.NewHiddenGem(r, songs[r.SongID]))
	}
	return board, nil
}
