// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ScoringMode selects one of the two comparison policies derived from the same ballots.
type ScoringMode string

const (
	// ModeConsensus treats an unranked song as ranked last by that participant.
	ModeConsensus ScoringMode = "consensus"
	// ModeDiscovery ignores songs a participant did not rank.
	ModeDiscovery ScoringMode = "discovery"
)

// ParseScoringMode accepts "consensus" or "discovery", case-insensitive.
func ParseScoringMode(s string) (ScoringMode, error) {
	switch m := ScoringMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeConsensus, ModeDiscovery:
		return m, nil
	default:
		return "", fmt.Errorf("unknown scoring mode %q", s)
	}
}

// SongStatus is the externally owned lifecycle state of a song.
type SongStatus string

const (
	SongQueued   SongStatus = "queued"
	SongPending  SongStatus = "pending"
	SongPlayed   SongStatus = "played"
	SongRejected SongStatus = "rejected"
	SongDeleted  SongStatus = "deleted"
)

// RankableStatuses lists the statuses whose songs may appear in rankings.
var RankableStatuses = []SongStatus{SongQueued, SongPending}

// Valid reports whether s is a known status.
func (s SongStatus) Valid() bool {
	switch s {
	case SongQueued, SongPending, SongPlayed, SongRejected, SongDeleted:
		return true
	default:
		return false
	}
}

// Rankable reports whether songs in this status may be ranked.
func (s SongStatus) Rankable() bool {
	for _, r := range RankableStatuses {
		if s == r {
			return true
		}
	}
	return false
}

// Song is a rankable submission within an event.
type Song struct {
	ID        string
	EventID   string
	Title     string
	Artist    string
	CreatedAt time.Time
}

// Ranking places one song at a 1-based position in a participant's list.
type Ranking struct {
	EventID       string
	ParticipantID string
	SongID        string
	Position      int
}

// Ballot is one participant's list ordered by position, most preferred first.
type Ballot struct {
	ParticipantID string
	Rankings      []Ranking
}

// AvgPosition is a mean ranking position. Valid is false when nobody ranked the song.
type AvgPosition struct {
	Value float64
	Valid bool
}

// Compare orders positions ascending with the no-data marker after every real value.
func (a AvgPosition) Compare(b AvgPosition) int {
	switch {
	case a.Valid && !b.Valid:
		return -1
	case !a.Valid && b.Valid:
		return 1
	case !a.Valid && !b.Valid:
		return 0
	case a.Value < b.Value:
		return -1
	case a.Value > b.Value:
		return 1
	default:
		return 0
	}
}

// Ptr returns the value as a pointer, nil when there is no data.
func (a AvgPosition) Ptr() *float64 {
	if !a.Valid {
		return nil
	}
	v := a.Value
	return &v
}

// AvgPositionFrom is the inverse of Ptr.
func AvgPositionFrom(p *float64) AvgPosition {
	if p == nil {
		return AvgPosition{}
	}
	return AvgPosition{Value: *p, Valid: true}
}

// MarshalJSON renders the no-data marker as null.
func (a AvgPosition) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(a.Value)
}

// ModeResult is one policy's tournament outcome for a song.
type ModeResult struct {
	Copeland int
	Wins     int
	Losses   int
	WinRate  float64
	Rank     int
}

// ScoreRecord is one song's row in an event's score snapshot.
type ScoreRecord struct {
	EventID           string
	SongID            string
	Consensus         ModeResult
	Discovery         ModeResult
	RankerCount       int
	AvgPosition       AvgPosition
	IsHiddenGem       bool
	TotalParticipants int
	CalculatedAt      time.Time
}

// Result returns the block for the given mode.
func (r ScoreRecord) Result(mode ScoringMode) ModeResult {
	if mode == ModeDiscovery {
		return r.Discovery
	}
	return r.Consensus
}

// RankDelta is consensusRank minus discoveryRank; positive when Discovery ranks the song higher.
func (r ScoreRecord) RankDelta() int {
	return r.Consensus.Rank - r.Discovery.Rank
}

// RankerPercentage is the share of participants who ranked the song, 0..100.
func (r ScoreRecord) RankerPercentage() float64 {
	if r.TotalParticipants == 0 {
		return 0
	}
	return float64(r.RankerCount) * 100 / float64(r.TotalParticipants)
}
