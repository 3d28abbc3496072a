package repository

import (
	"time"

	"github.com/okian/encore/internal/domain/model"
)

type eventRow struct {
	ID        string `gorm:"primaryKey"`
	Name      string
	Settings  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (eventRow) TableName() string { return "events" }

type songRow struct {
	EventID   string `gorm:"primaryKey"`
	ID        string `gorm:"primaryKey"`
	Title     string
	Artist    string
	Status    string `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (songRow) TableName() string { return "songs" }

func (r songRow) toModel() model.Song {
	return model.Song{ID: r.ID, EventID: r.EventID, Title: r.Title, Artist: r.Artist, CreatedAt: r.CreatedAt}
}

// rankingRow has no unique constraint on position: shifts pass through
// transient duplicates inside a transaction.
type rankingRow struct {
	EventID       string `gorm:"primaryKey;index:idx_rankings_event_song,priority:1"`
	ParticipantID string `gorm:"primaryKey"`
	SongID        string `gorm:"primaryKey;index:idx_rankings_event_song,priority:2"`
	Position      int    `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (rankingRow) TableName() string { return "rankings" }

func (r rankingRow) toModel() model.Ranking {
	return model.Ranking{EventID: r.EventID, ParticipantID: r.ParticipantID, SongID: r.SongID, Position: r.Position}
}

type scoreRow struct {
	EventID           string `gorm:"primaryKey"`
	SongID            string `gorm:"primaryKey"`
	ConsensusCopeland int
	ConsensusWins     int
	ConsensusLosses   int
	ConsensusWinRate  float64
	ConsensusRank     int
	DiscoveryCopeland int
	DiscoveryWins     int
	DiscoveryLosses   int
	DiscoveryWinRate  float64
	DiscoveryRank     int
	RankerCount       int
	AvgPosition       *float64
	IsHiddenGem       bool
	TotalParticipants int
	CalculatedAt      time.Time `gorm:"index"`
}

func (scoreRow) TableName() string { return "score_records" }

func scoreRowFrom(r model.ScoreRecord) scoreRow {
	return scoreRow{
		EventID:           r.EventID,
		SongID:            r.SongID,
		ConsensusCopeland: r.Consensus.Copeland,
		ConsensusWins:     r.Consensus.Wins,
		ConsensusLosses:   r.Consensus.Losses,
		ConsensusWinRate:  r.Consensus.WinRate,
		ConsensusRank:     r.Consensus.Rank,
		DiscoveryCopeland: r.Discovery.Copeland,
		DiscoveryWins:     r.Discovery.Wins,
		DiscoveryLosses:   r.Discovery.Losses,
		DiscoveryWinRate:  r.Discovery.WinRate,
		DiscoveryRank:     r.Discovery.Rank,
		RankerCount:       r.RankerCount,
		AvgPosition:       r.AvgPosition.Ptr(),
		IsHiddenGem:       r.IsHiddenGem,
		TotalParticipants: r.TotalParticipants,
		CalculatedAt:      r.CalculatedAt.UTC(),
	}
}

func (r scoreRow) toModel() model.ScoreRecord {
	return model.ScoreRecord{
		EventID: r.EventID,
		SongID:  r.SongID,
		Consensus: model.ModeResult{
			Copeland: r.ConsensusCopeland,
			Wins:     r.ConsensusWins,
			Losses:   r.ConsensusLosses,
			WinRate:  r.ConsensusWinRate,
			Rank:     r.ConsensusRank,
		},
		Discovery: model.ModeResult{
			Copeland: r.DiscoveryCopeland,
			Wins:     r.DiscoveryWins,
			Losses:   r.DiscoveryLosses,
			WinRate:  r.DiscoveryWinRate,
			Rank:     r.DiscoveryRank,
		},
		RankerCount:       r.RankerCount,
		AvgPosition:       model.AvgPositionFrom(r.AvgPosition),
		IsHiddenGem:       r.IsHiddenGem,
		TotalParticipants: r.TotalParticipants,
		CalculatedAt:      r.CalculatedAt,
	}
}
