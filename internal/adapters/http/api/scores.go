// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/okian/encore/pkg/logger"
)

// OperatorTokenHeader authenticates operator-only routes.
const OperatorTokenHeader = "X-Operator-Token"

// ScoresHandler serves scoreboards.
type ScoresHandler struct {
	deps          ScoreDependencies
	operatorToken string
	log           logger.Logger
}

// NewScoresHandler creates a new scores handler. An empty operatorToken leaves
// the refresh route open.
func NewScoresHandler(deps ScoreDependencies, operatorToken string, log logger.Logger) *ScoresHandler {
	return &ScoresHandler{deps: deps, operatorToken: operatorToken, log: log}
}

// HandleGetScores handles GET /events/{eventID}/scores?mode=consensus|discovery.
func (h *ScoresHandler) HandleGetScores(w http.ResponseWriter, r *http.Request) {
	board, err := h.deps.GetScores(r.Context(), r.PathValue("eventID"), r.URL.Query().Get("mode"))
	if err != nil {
		writeServiceError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// HandleRefresh handles POST /events/{eventID}/scores/refresh.
func (h *ScoresHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if h.operatorToken != "" {
		got := r.Header.Get(OperatorTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.operatorToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
			return
		}
	}
	board, err := h.deps.RefreshScores(r.Context(), r.PathValue("eventID"))
	if err != nil {
		writeServiceError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}
