package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/encore/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Run seeds an event, submits generated lists and checks the resulting boards.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	log := logger.Named("simulate")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting simulation",
		logger.String("baseURL", config.BaseURL),
		logger.String("event", config.EventID),
		logger.Int("songs", config.Songs),
		logger.Int("participants", config.Participants),
		logger.Int("maxDepth", config.MaxDepth),
		logger.Float64("nicheShare", config.NicheShare),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client, config); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Seed the event and its songs
	if err := seedEvent(ctx, client, config, stats); err != nil {
		return stats, fmt.Errorf("seeding failed: %w", err)
	}

	// Step 3: Generate lists
	ballots, err := GenerateBallots(config)
	if err != nil {
		return stats, fmt.Errorf("ballot generation failed: %w", err)
	}
	stats.BallotsGenerated = len(ballots)

	// Step 4: Submit lists concurrently
	if err := submitBallots(ctx, config, ballots, stats); err != nil {
		return stats, fmt.Errorf("ballot submission failed: %w", err)
	}
	if stats.BallotsFailed > 0 {
		return stats, fmt.Errorf("%d ballots failed", stats.BallotsFailed)
	}

	// Step 5: Read back a sample of lists
	if err := verifySample(ctx, client, config, ballots, stats); err != nil {
		return stats, fmt.Errorf("list verification failed: %w", err)
	}

	// Step 6: Recompute and read both boards
	if err := refreshScores(ctx, client, config); err != nil {
		return stats, fmt.Errorf("score refresh failed: %w", err)
	}
	for _, mode := range []string{"consensus", "discovery"} {
		board, err := getScores(ctx, client, config, mode)
		if err != nil {
			return stats, fmt.Errorf("%s scores failed: %w", mode, err)
		}
		if err := VerifyScoreboard(board, config.Songs+1); err != nil {
			return stats, err
		}
		stats.ScoreboardEntries = len(board.Entries)
		stats.HiddenGems = len(board.HiddenGems)
		logBoard(ctx, log, board)
	}

	// Step 7: Save lists to file
	if config.OutputFile != "" {
		if err := saveBallotsToFile(config.OutputFile, ballots); err != nil {
			log.Warn(ctx, "failed to save ballots to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

func checkServiceHealth(ctx context.Context, client *HTTPClient, config *Config) error {
	return client.expect(ctx, http.StatusOK, http.MethodGet, config.BaseURL+"/healthz", nil, nil, nil)
}

// seedEvent creates the event with a ranking depth that fits the longest list,
// then submits the songs one minute apart.
func seedEvent(ctx context.Context, client *HTTPClient, config *Config, stats *Stats) error {
	event := eventRequest{
		Name:     "simulation " + config.EventID,
		Settings: map[string]any{"rankingDepth": config.MaxDepth},
	}
	url := fmt.Sprintf("%s/events/%s", config.BaseURL, config.EventID)
	if err := client.expect(ctx, http.StatusOK, http.MethodPut, url, event, nil, nil); err != nil {
		return err
	}

	base := time.Now().UTC().Truncate(time.Minute)
	for i, id := range SongIDs(config.Songs) {
		song := songRequest{
			Title:     "Song " + id,
			Artist:    "Simulated",
			Status:    "queued",
			CreatedAt: base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
		}
		if err := client.expect(ctx, http.StatusNoContent, http.MethodPut, url+"/songs/"+id, song, nil, nil); err != nil {
			return err
		}
		stats.SongsSeeded++
	}
	return nil
}

// verifySample reads back every k-th list so that about config.Sample lists are checked.
func verifySample(ctx context.Context, client *HTTPClient, config *Config, ballots []Ballot, stats *Stats) error {
	if config.Sample <= 0 || len(ballots) == 0 {
		return nil
	}
	step := max(1, len(ballots)/config.Sample)
	for i := 0; i < len(ballots) && stats.ListsVerified < config.Sample; i += step {
		var resp rankingsResponse
		if err := client.expect(ctx, http.StatusOK, http.MethodGet, rankingsURL(config, ballots[i].ParticipantID), nil, nil, &resp); err != nil {
			return err
		}
		if err := VerifyList(ballots[i], resp.Rankings); err != nil {
			return err
		}
		stats.ListsVerified++
	}
	return nil
}

func refreshScores(ctx context.Context, client *HTTPClient, config *Config) error {
	headers := map[string]string{}
	if config.OperatorToken != "" {
		headers[operatorTokenHeader] = config.OperatorToken
	}
	url := fmt.Sprintf("%s/events/%s/scores/refresh", config.BaseURL, config.EventID)
	return client.expect(ctx, http.StatusOK, http.MethodPost, url, nil, headers, nil)
}

func getScores(ctx context.Context, client *HTTPClient, config *Config, mode string) (Scoreboard, error) {
	var board Scoreboard
	url := fmt.Sprintf("%s/events/%s/scores?mode=%s", config.BaseURL, config.EventID, mode)
	err := client.expect(ctx, http.StatusOK, http.MethodGet, url, nil, nil, &board)
	return board, err
}

func logBoard(ctx context.Context, log logger.Logger, board Scoreboard) {
	top := board.Entries[:min(len(board.Entries), 5)]
	for _, e := range top {
		log.Info(ctx, "board",
			logger.String("mode", board.Mode),
			logger.Int("rank", e.Rank),
			logger.String("song", e.SongID),
			logger.Int("copeland", e.Copeland),
			logger.Int("rankers", e.RankerCount))
	}
	for _, g := range board.HiddenGems {
		log.Info(ctx, "hidden gem",
			logger.String("song", g.SongID),
			logger.Int("consensusRank", g.ConsensusRank),
			logger.Int("discoveryRank", g.DiscoveryRank),
			logger.Int("delta", g.RankDelta),
			logger.Float64("rankerPercentage", g.RankerPercentage))
	}
}

func saveBallotsToFile(filename string, ballots []Ballot) error {
	if err := os.MkdirAll(filepath.Dir(filename), directoryPermission); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	data, err := json.MarshalIndent(ballots, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ballots: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write ballots: %w", err)
	}
	return nil
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	rate := 0.0
	if stats.BallotsSubmitted > 0 {
		rate = float64(stats.BallotsSuccessful) / float64(stats.BallotsSubmitted) * PercentageMultiplier
	}
	log.Info(ctx, "simulation completed",
		logger.Int("songs", stats.SongsSeeded),
		logger.Int("generated", stats.BallotsGenerated),
		logger.Int("submitted", stats.BallotsSubmitted),
		logger.Int("successful", stats.BallotsSuccessful),
		logger.Int("duplicate", stats.BallotsDuplicate),
		logger.Int("failed", stats.BallotsFailed),
		logger.Float64("successRate", rate),
		logger.Int("listsVerified", stats.ListsVerified),
		logger.Int("hiddenGems", stats.HiddenGems),
		logger.Duration("duration", stats.Duration))
}
