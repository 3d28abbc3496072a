package simulate

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL       string        // Base URL of the service
	EventID       string        // Event to seed and rank
	Songs         int           // Number of songs submitted to the event
	Participants  int           // Number of participants submitting lists
	MaxDepth      int           // Longest list a participant submits
	NicheShare    float64       // Share of participants (0..1) who rank the niche song first
	Workers       int           // Number of concurrent workers
	Sample        int           // Participant lists read back for verification
	Seed          uint64        // Seed for reproducible ballots
	Timeout       time.Duration // HTTP request timeout
	OperatorToken string        // X-Operator-Token for the refresh route
	OutputFile    string        // Output file for generated ballots
	Verbose       bool          // Enable verbose logging
}

// Ballot is one participant's submitted list, most preferred first.
type Ballot struct {
	ParticipantID string   `json:"participant_id"`
	SongIDs       []string `json:"song_ids"`
}

// songRequest mirrors PUT /events/{eventID}/songs/{songID}.
type songRequest struct {
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

type eventRequest struct {
	Name     string         `json:"name"`
	Settings map[string]any `json:"settings"`
}

type listRequest struct {
	SongIDs []string `json:"song_ids"`
}

// RankingEntry is one row of a participant's list as served by the API.
type RankingEntry struct {
	Position int    `json:"position"`
	SongID   string `json:"song_id"`
}

type rankingsResponse struct {
	Rankings []RankingEntry `json:"rankings"`
}

// ScoreEntry is one scoreboard row.
type ScoreEntry struct {
	Rank          int     `json:"rank"`
	SongID        string  `json:"song_id"`
	Title         string  `json:"title"`
	Copeland      int     `json:"copeland"`
	WinRate       float64 `json:"win_rate"`
	RankerCount   int     `json:"ranker_count"`
	IsHiddenGem   bool    `json:"is_hidden_gem"`
	ConsensusRank int     `json:"consensus_rank"`
	DiscoveryRank int     `json:"discovery_rank"`
}

// HiddenGem is a flagged song.
type HiddenGem struct {
	SongID           string  `json:"song_id"`
	Title            string  `json:"title"`
	ConsensusRank    int     `json:"consensus_rank"`
	DiscoveryRank    int     `json:"discovery_rank"`
	RankDelta        int     `json:"rank_delta"`
	RankerPercentage float64 `json:"ranker_percentage"`
}

// Scoreboard is the scores response.
type Scoreboard struct {
	EventID           string       `json:"event_id"`
	Mode              string       `json:"mode"`
	TotalParticipants int          `json:"total_participants"`
	Activated         bool         `json:"activated"`
	Entries           []ScoreEntry `json:"entries"`
	HiddenGems        []HiddenGem  `json:"hidden_gems"`
}

// Stats holds run statistics.
type Stats struct {
	SongsSeeded       int
	BallotsGenerated  int
	BallotsSubmitted  int
	BallotsSuccessful int
	BallotsDuplicate  int
	BallotsFailed     int
	ListsVerified     int
	ScoreboardEntries int
	HiddenGems        int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
