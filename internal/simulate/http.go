package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/encore/pkg/logger"
)

// Headers understood by the service.
const (
	idempotencyHeader   = "Idempotency-Key"
	operatorTokenHeader = "X-Operator-Token"
)

// HTTPClient wraps http.Client with a timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Do sends a JSON request and returns the status code and response body.
func (c *HTTPClient) Do(ctx context.Context, method, url string, body any, headers map[string]string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, data, nil
}

// expect sends a request and fails unless the status matches want.
func (c *HTTPClient) expect(ctx context.Context, want int, method, url string, body any, headers map[string]string, out any) error {
	status, data, err := c.Do(ctx, method, url, body, headers)
	if err != nil {
		return err
	}
	if status != want {
		return fmt.Errorf("%s %s: unexpected status %d: %s", method, url, status, bytes.TrimSpace(data))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode %s %s response: %w", method, url, err)
		}
	}
	return nil
}

func rankingsURL(config *Config, participantID string) string {
	return fmt.Sprintf("%s/events/%s/participants/%s/rankings", config.BaseURL, config.EventID, participantID)
}

// submitBallots replaces every participant's list concurrently using a worker pool.
func submitBallots(ctx context.Context, config *Config, ballots []Ballot, stats *Stats) error {
	log := logger.Named("simulate")
	log.Info(ctx, "submitting ballots",
		logger.Int("ballots", len(ballots)),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)

	var (
		successful int64
		duplicate  int64
		failed     int64
		submitted  int64
	)

	ballotChan := make(chan Ballot, config.Workers*WorkerChannelMultiplier)

	var wg sync.WaitGroup
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for ballot := range ballotChan {
				atomic.AddInt64(&submitted, 1)
				headers := map[string]string{idempotencyHeader: uuid.NewString()}
				status, data, err := client.Do(ctx, http.MethodPut, rankingsURL(config, ballot.ParticipantID),
					listRequest{SongIDs: ballot.SongIDs}, headers)
				switch {
				case err != nil:
					atomic.AddInt64(&failed, 1)
					log.Warn(ctx, "submit failed",
						logger.Int("worker", workerID),
						logger.String("participant", ballot.ParticipantID),
						logger.Error(err))
				case status == http.StatusOK:
					atomic.AddInt64(&successful, 1)
				case status == http.StatusConflict:
					atomic.AddInt64(&duplicate, 1)
				default:
					atomic.AddInt64(&failed, 1)
					log.Warn(ctx, "submit rejected",
						logger.Int("worker", workerID),
						logger.String("participant", ballot.ParticipantID),
						logger.Int("status", status),
						logger.String("body", string(bytes.TrimSpace(data))))
				}
			}
		}(i)
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				log.Info(ctx, "progress",
					logger.Int64("submitted", atomic.LoadInt64(&submitted)),
					logger.Int("total", len(ballots)))
			}
		}
	}()

	var cancelled error
	for _, ballot := range ballots {
		select {
		case ballotChan <- ballot:
			continue
		case <-ctx.Done():
			cancelled = ctx.Err()
		}
		break
	}
	close(ballotChan)
	wg.Wait()
	close(done)

	stats.BallotsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.BallotsSuccessful = int(atomic.LoadInt64(&successful))
	stats.BallotsDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.BallotsFailed = int(atomic.LoadInt64(&failed))

	if cancelled != nil {
		return fmt.Errorf("submission cancelled: %w", cancelled)
	}
	return nil
}
