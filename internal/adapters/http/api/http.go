// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/encore/internal/domain/model"
	"github.com/okian/encore/internal/domain/types"
	"github.com/okian/encore/pkg/logger"
)

const maxBodyBytes = 1 << 20

// IdempotencyGuard remembers client-supplied Idempotency-Key values.
type IdempotencyGuard interface {
	SeenAndRecord(ctx context.Context, key string) bool
	Unrecord(ctx context.Context, key string)
}

// RankingDependencies maintains participant ranking lists.
type RankingDependencies interface {
	AddRanking(ctx context.Context, eventID, participantID, songID string, position *int) (int, error)
	RemoveRanking(ctx context.Context, eventID, participantID, songID string) error
	ReplaceRankings(ctx context.Context, eventID, participantID string, songIDs []string) error
	Reorder(ctx context.Context, eventID, participantID string, songIDs []string) error
	GetParticipantRankings(ctx context.Context, eventID, participantID string) ([]types.RankingEntry, error)
}

// ScoreDependencies serves event scoreboards.
type ScoreDependencies interface {
	GetScores(ctx context.Context, eventID, mode string) (types.Scoreboard, error)
	RefreshScores(ctx context.Context, eventID string) (types.Scoreboard, error)
}

// CatalogDependencies seeds events and songs.
type CatalogDependencies interface {
	PutEvent(ctx context.Context, eventID, name string, settings []byte) (model.EventScoringConfig, error)
	PutSong(ctx context.Context, song model.Song, status string) error
	RemoveSongGlobally(ctx context.Context, eventID, songID string) (int, error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	IdempotencyGuard
	RankingDependencies
	ScoreDependencies
	CatalogDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	catalogHandler  *CatalogHandler
	rankingsHandler *RankingsHandler
	scoresHandler   *ScoresHandler
}

// Option configures the Server.
type Option func(*serverConfig)

type serverConfig struct {
	operatorToken string
	log           logger.Logger
}

// WithOperatorToken requires X-Operator-Token on operator-only routes.
func WithOperatorToken(token string) Option {
	return func(c *serverConfig) { c.operatorToken = token }
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := serverConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.log == nil {
		cfg.log = logger.Named("api")
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		catalogHandler:  NewCatalogHandler(deps, cfg.log),
		rankingsHandler: NewRankingsHandler(deps, deps, cfg.log),
		scoresHandler:   NewScoresHandler(deps, cfg.operatorToken, cfg.log),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	const rankings = "/events/{eventID}/participants/{participantID}/rankings"

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("PUT /events/{eventID}", MetricsMiddleware(s.catalogHandler.HandlePutEvent, "event"))
	mux.HandleFunc("PUT /events/{eventID}/songs/{songID}", MetricsMiddleware(s.catalogHandler.HandlePutSong, "song"))
	mux.HandleFunc("DELETE /events/{eventID}/songs/{songID}", MetricsMiddleware(s.catalogHandler.HandleDeleteSong, "song"))

	mux.HandleFunc("GET "+rankings, MetricsMiddleware(s.rankingsHandler.HandleGet, "rankings"))
	mux.HandleFunc("POST "+rankings, MetricsMiddleware(s.rankingsHandler.HandleAdd, "rankings"))
	mux.HandleFunc("PUT "+rankings, MetricsMiddleware(s.rankingsHandler.HandleReplace, "rankings"))
	mux.HandleFunc("PATCH "+rankings, MetricsMiddleware(s.rankingsHandler.HandleReorder, "rankings"))
	mux.HandleFunc("DELETE "+rankings+"/{songID}", MetricsMiddleware(s.rankingsHandler.HandleRemove, "rankings"))

	mux.HandleFunc("GET /events/{eventID}/scores", MetricsMiddleware(s.scoresHandler.HandleGetScores, "scores"))
	mux.HandleFunc("POST /events/{eventID}/scores/refresh", MetricsMiddleware(s.scoresHandler.HandleRefresh, "scores_refresh"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps domain error kinds onto HTTP statuses. Storage and
// unclassified failures are logged and reported without their cause.
func writeServiceError(ctx context.Context, log logger.Logger, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err)
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	default:
		log.Error(ctx, "request failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// decodeBody reads a bounded JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
