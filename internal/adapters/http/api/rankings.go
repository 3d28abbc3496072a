// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/okian/encore/internal/domain/dedupe"
	"github.com/okian/encore/internal/domain/types"
	"github.com/okian/encore/pkg/logger"
)

// IdempotencyHeader carries an optional client retry key on ranking mutations.
const IdempotencyHeader = "Idempotency-Key"

type addRankingRequest struct {
	SongID   string `json:"song_id"`
	Position *int   `json:"position,omitempty"`
}

type listRequest struct {
	SongIDs []string `json:"song_ids"`
}

type addRankingResponse struct {
	SongID   string `json:"song_id"`
	Position int    `json:"position"`
}

type rankingsResponse struct {
	EventID       string               `json:"event_id"`
	ParticipantID string               `json:"participant_id"`
	Rankings      []types.RankingEntry `json:"rankings"`
}

// RankingsHandler handles participant ranking list requests.
type RankingsHandler struct {
	deps  RankingDependencies
	guard IdempotencyGuard
	log   logger.Logger
}

// NewRankingsHandler creates a new rankings handler.
func NewRankingsHandler(deps RankingDependencies, guard IdempotencyGuard, log logger.Logger) *RankingsHandler {
	return &RankingsHandler{deps: deps, guard: guard, log: log}
}

// mutate runs apply at most once per Idempotency-Key. A repeated key is
// answered with 409; a failed apply forgets the key so the client can retry.
func (h *RankingsHandler) mutate(w http.ResponseWriter, r *http.Request, apply func() error) {
	ctx := r.Context()
	eventID, participantID := r.PathValue("eventID"), r.PathValue("participantID")

	var key string
	if clientKey := r.Header.Get(IdempotencyHeader); clientKey != "" {
		key = dedupe.Key(eventID, participantID, clientKey)
		if h.guard.SeenAndRecord(ctx, key) {
			writeError(w, http.StatusConflict, "duplicate_request", ErrDuplicateRequest)
			return
		}
	}
	if err := apply(); err != nil {
		if key != "" {
			h.guard.Unrecord(ctx, key)
		}
		writeServiceError(ctx, h.log, w, err)
	}
}

func (h *RankingsHandler) writeList(w http.ResponseWriter, r *http.Request, status int) error {
	eventID, participantID := r.PathValue("eventID"), r.PathValue("participantID")
	list, err := h.deps.GetParticipantRankings(r.Context(), eventID, participantID)
	if err != nil {
		return err
	}
	writeJSON(w, status, rankingsResponse{EventID: eventID, ParticipantID: participantID, Rankings: list})
	return nil
}

// HandleGet handles GET /events/{eventID}/participants/{participantID}/rankings.
func (h *RankingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if err := h.writeList(w, r, http.StatusOK); err != nil {
		writeServiceError(r.Context(), h.log, w, err)
	}
}

// HandleAdd handles POST .../rankings with {song_id, position?}.
func (h *RankingsHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRankingRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	h.mutate(w, r, func() error {
		pos, err := h.deps.AddRanking(r.Context(), r.PathValue("eventID"), r.PathValue("participantID"), req.SongID, req.Position)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusCreated, addRankingResponse{SongID: req.SongID, Position: pos})
		return nil
	})
}

// HandleReplace handles PUT .../rankings with {song_ids}.
func (h *RankingsHandler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	h.mutate(w, r, func() error {
		if err := h.deps.ReplaceRankings(r.Context(), r.PathValue("eventID"), r.PathValue("participantID"), req.SongIDs); err != nil {
			return err
		}
		return h.writeList(w, r, http.StatusOK)
	})
}

// HandleReorder handles PATCH .../rankings with {song_ids}.
func (h *RankingsHandler) HandleReorder(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	h.mutate(w, r, func() error {
		if err := h.deps.Reorder(r.Context(), r.PathValue("eventID"), r.PathValue("participantID"), req.SongIDs); err != nil {
			return err
		}
		return h.writeList(w, r, http.StatusOK)
	})
}

// HandleRemove handles DELETE .../rankings/{songID}.
func (h *RankingsHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func() error {
		if err := h.deps.RemoveRanking(r.Context(), r.PathValue("eventID"), r.PathValue("participantID"), r.PathValue("songID")); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}
