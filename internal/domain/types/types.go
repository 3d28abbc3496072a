// Package types contains the response shapes shared by the service and the HTTP API.
package types

import (
	"time"

	"github.com/okian/encore/internal/domain/model"
)

// ScoreEntry is one song's line on a scoreboard, ranked by the requested mode.
type ScoreEntry struct {
	Rank          int               `json:"rank"`
	SongID        string            `json:"song_id"`
	Title         string            `json:"title,omitempty"`
	Artist        string            `json:"artist,omitempty"`
	Copeland      int               `json:"copeland"`
	Wins          int               `json:"wins"`
	Losses        int               `json:"losses"`
	WinRate       float64           `json:"win_rate"`
	RankerCount   int               `json:"ranker_count"`
	AvgPosition   model.AvgPosition `json:"avg_position"`
	IsHiddenGem   bool              `json:"is_hidden_gem"`
	ConsensusRank int               `json:"consensus_rank"`
	DiscoveryRank int               `json:"discovery_rank"`
}

// HiddenGem is a song Discovery rates far above Consensus that few participants ranked.
type HiddenGem struct {
	SongID           string  `json:"song_id"`
	Title            string  `json:"title,omitempty"`
	Artist           string  `json:"artist,omitempty"`
	ConsensusRank    int     `json:"consensus_rank"`
	DiscoveryRank    int     `json:"discovery_rank"`
	RankDelta        int     `json:"rank_delta"`
	RankerCount      int     `json:"ranker_count"`
	RankerPercentage float64 `json:"ranker_percentage"`
}

// Scoreboard is the read model served for an event.
type Scoreboard struct {
	EventID           string       `json:"event_id"`
	Mode              string       `json:"mode"`
	CalculatedAt      *time.Time   `json:"calculated_at,omitempty"`
	TotalParticipants int          `json:"total_participants"`
	Activated         bool         `json:"activated"`
	Entries           []ScoreEntry `json:"entries"`
	HiddenGems        []HiddenGem  `json:"hidden_gems"`
}

// RankingEntry is one line of a participant's personal list.
type RankingEntry struct {
	Position int    `json:"position"`
	SongID   string `json:"song_id"`
	Title    string `json:"title,omitempty"`
	Artist   string `json:"artist,omitempty"`
}

// NewScoreEntry projects a stored record onto the given mode.
func NewScoreEntry(rec model.ScoreRecord, song model.Song, mode model.ScoringMode) ScoreEntry {
	res := rec.Result(mode)
	return ScoreEntry{
		Rank:          res.Rank,
		SongID:        rec.SongID,
		Title:         song.Title,
		Artist:        song.Artist,
		Copeland:      res.Copeland,
		Wins:          res.Wins,
		Losses:        res.Losses,
		WinRate:       res.WinRate,
		RankerCount:   rec.RankerCount,
		AvgPosition:   rec.AvgPosition,
		IsHiddenGem:   rec.IsHiddenGem,
		ConsensusRank: rec.Consensus.Rank,
		DiscoveryRank: rec.Discovery.Rank,
	}
}

// NewHiddenGem builds the gem view of a flagged record.
func NewHiddenGem(rec model.ScoreRecord, song model.Song) HiddenGem {
	return HiddenGem{
		SongID:           rec.SongID,
		Title:            song.Title,
		Artist:           song.Artist,
		ConsensusRank:    rec.Consensus.Rank,
		DiscoveryRank:    rec.Discovery.Rank,
		RankDelta:        rec.RankDelta(),
		RankerCount:      rec.RankerCount,
		RankerPercentage: rec.RankerPercentage(),
	}
}
