// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/okian/encore/internal/domain/model"
	"github.com/okian/encore/pkg/logger"
)

// eventRequest is the body of PUT /events/{eventID}.
type eventRequest struct {
	Name     string          `json:"name"`
	Settings json.RawMessage `json:"settings"`
}

type eventResponse struct {
	EventID  string                   `json:"event_id"`
	Settings model.EventScoringConfig `json:"settings"`
}

// songRequest is the body of PUT /events/{eventID}/songs/{songID}.
type songRequest struct {
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func (s songRequest) toSong(eventID, songID string, now time.Time) (model.Song, error) {
	song := model.Song{ID: songID, EventID: eventID, Title: s.Title, Artist: s.Artist, CreatedAt: now.UTC()}
	if strings.TrimSpace(s.CreatedAt) == "" {
		return song, nil
	}
	ts, err := time.Parse(time.RFC3339, s.CreatedAt)
	if err != nil {
		return model.Song{}, model.Validationf("api.put_song", "invalid created_at; must be RFC3339")
	}
	song.CreatedAt = ts.UTC()
	return song, nil
}

type songRemovedResponse struct {
	SongID               string `json:"song_id"`
	ParticipantsAffected int    `json:"participants_affected"`
}

// CatalogHandler seeds events and songs.
type CatalogHandler struct {
	deps CatalogDependencies
	log  logger.Logger
	now  func() time.Time
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(deps CatalogDependencies, log logger.Logger) *CatalogHandler {
	return &CatalogHandler{deps: deps, log: log, now: time.Now}
}

// HandlePutEvent handles PUT /events/{eventID} requests.
func (h *CatalogHandler) HandlePutEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	var req eventRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	cfg, err := h.deps.PutEvent(r.Context(), eventID, req.Name, req.Settings)
	if err != nil {
		writeServiceError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, eventResponse{EventID: eventID, Settings: cfg})
}

// HandlePutSong handles PUT /events/{eventID}/songs/{songID} requests. An
// omitted status means queued.
func (h *CatalogHandler) HandlePutSong(w http.ResponseWriter, r *http.Request) {
	var req songRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	song, err := req.toSong(r.PathValue("eventID"), r.PathValue("songID"), h.now())
	if err != nil {
		writeServiceError(r.Context(), h.log, w, err)
		return
	}
	status := req.Status
	if status == "" {
		status = string(model.SongQueued)
	}
	if err := h.deps.PutSong(r.Context(), song, status); err != nil {
		writeServiceError(r.Context(), h.log, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteSong handles DELETE /events/{eventID}/songs/{songID} requests by
// purging the song from every ranking list and the scores.
func (h *CatalogHandler) HandleDeleteSong(w http.ResponseWriter, r *http.Request) {
	songID := r.PathValue("songID")
	n, err := h.deps.RemoveSongGlobally(r.Context(), r.PathValue("eventID"), songID)
	if err != nil {
		writeServiceError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, songRemovedResponse{SongID: songID, ParticipantsAffected: n})
}
