// Package repository persists events, songs, participant rankings and score
// snapshots.
package repository

import (
	"context"
	"time"

	"github.com/okian/encore/internal/domain/model"
)

// ComputeFunc turns the current rankable songs and ballots into a complete
// score snapshot. It runs inside the rebuild transaction.
type ComputeFunc func(songs []model.Song, ballots []model.Ballot) ([]model.ScoreRecord, error)

// RankingStore maintains each participant's gapless ranking list.
// Mutations for one (event, participant) are serialized.
type RankingStore interface {
	// AddRanking inserts songID at position (append when nil, clamped to
	// [1, count+1] otherwise) and returns the assigned position.
	AddRanking(ctx context.Context, eventID, participantID, songID string, position *int, depth int) (int, error)
	// RemoveRanking deletes one entry and closes the gap.
	RemoveRanking(ctx context.Context, eventID, participantID, songID string) error
	// ReplaceRankings swaps the whole list for songIDs, all or nothing.
	ReplaceRankings(ctx context.Context, eventID, participantID string, songIDs []string, depth int) error
	// Reorder assigns positions 1..N following songIDs, which must be a
	// permutation of the current list.
	Reorder(ctx context.Context, eventID, participantID string, songIDs []string) error
	// RemoveSongGlobally purges songID from every list and the score snapshot.
	// Returns the number of participants whose lists changed.
	RemoveSongGlobally(ctx context.Context, eventID, songID string) (int, error)
	// RecompactRankings renumbers a list to 1..N and returns the rows written.
	RecompactRankings(ctx context.Context, eventID, participantID string) (int, error)
	// ParticipantRankings returns a list ordered by position.
	ParticipantRankings(ctx context.Context, eventID, participantID string) ([]model.Ranking, error)
}

// ScoreStore holds the per-event score snapshot.
type ScoreStore interface {
	// RebuildScores reads, computes and replaces the snapshot in one transaction.
	RebuildScores(ctx context.Context, eventID string, compute ComputeFunc) error
	// Scores returns the snapshot ordered by Consensus rank.
	Scores(ctx context.Context, eventID string) ([]model.ScoreRecord, error)
	// LatestCalculatedAt reports the newest calculatedAt, ok is false without rows.
	LatestCalculatedAt(ctx context.Context, eventID string) (time.Time, bool, error)
}

// Catalog supplies event settings and the song pool.
type Catalog interface {
	UpsertEvent(ctx context.Context, eventID, name string, settings []byte) (model.EventScoringConfig, error)
	ScoringConfig(ctx context.Context, eventID string) (model.EventScoringConfig, error)
	// PutSong creates or updates a song. A song leaving the rankable set is
	// purged from rankings and scores in the same transaction.
	PutSong(ctx context.Context, song model.Song, status model.SongStatus) error
	Song(ctx context.Context, eventID, songID string) (model.Song, model.SongStatus, error)
	RankableSongs(ctx context.Context, eventID string) ([]model.Song, error)
	// Songs returns every song of the event keyed by id, whatever its status.
	Songs(ctx context.Context, eventID string) (map[string]model.Song, error)
}

// Stats is a point-in-time row count summary.
type Stats struct {
	Events   int64 `json:"events"`
	Songs    int64 `json:"songs"`
	Rankings int64 `json:"rankings"`
	Scores   int64 `json:"score_records"`
}

// Store is the full persistence surface.
type Store interface {
	RankingStore
	ScoreStore
	Catalog
	Stats(ctx context.Context) (Stats, error)
	Close() error
}
