package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ZBugge/nfl-playoff-predictor/internal/bracket"
	"github.com/ZBugge/nfl-playoff-predictor/internal/logger"
	"github.com/ZBugge/nfl-playoff-predictor/internal/models"
	"github.com/ZBugge/nfl-playoff-predictor/internal/playoffs"
	"github.com/ZBugge/nfl-playoff-predictor/internal/pubsub"
)

const maxBodyBytes = 1 << 20

// EventSource is the subscribe side of the event bus
type EventSource interface {
	Subscribe() chan pubsub.Event
	Unsubscribe(chan pubsub.Event)
}

// APIHandlers contains all API handler methods
type APIHandlers struct {
	svc    *playoffs.Service
	events EventSource
}

// NewAPIHandlers creates a new API handlers instance
func NewAPIHandlers(svc *playoffs.Service, events EventSource) *APIHandlers {
	return &APIHandlers{svc: svc, events: events}
}

// GetSeeds returns a season's seeds
func (h *APIHandlers) GetSeeds(w http.ResponseWriter, r *http.Request) {
	season, ok := seasonParam(w, r)
	if !ok {
		return
	}
	seeds, err := h.svc.GetSeeds(r.Context(), season)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seeds)
}

type seedsRequest struct {
	Seeds []models.Seed `json:"seeds"`
}

func (req *seedsRequest) forSeason(season int) error {
	if len(req.Seeds) == 0 {
		return models.Validationf("no seeds given")
	}
	for i := range req.Seeds {
		if req.Seeds[i].Season == 0 {
			req.Seeds[i].Season = season
		}
		if req.Seeds[i].Season != season {
			return models.Validationf("seed for season %d sent to season %d", req.Seeds[i].Season, season)
		}
	}
	return nil
}

// SetSeeds upserts one or more seeds before the bracket is generated
func (h *APIHandlers) SetSeeds(w http.ResponseWriter, r *http.Request) {
	season, ok := seasonParam(w, r)
	if !ok {
		return
	}
	var req seedsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.forSeason(season); err != nil {
		writeError(w, err)
		return
	}
	// Validate the whole batch first so a bad entry writes nothing
	for _, seed := range req.Seeds {
		if err := bracket.ValidateSeed(seed); err != nil {
			writeError(w, err)
			return
		}
	}

	for _, seed := range req.Seeds {
		if _, err := h.svc.SetSeed(r.Context(), seed); err != nil {
			writeError(w, err)
			return
		}
	}
	seeds, err := h.svc.GetSeeds(r.Context(), season)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seeds)
}

// CorrectSeeds fixes seeds after generation and regenerates the bracket
func (h *APIHandlers) CorrectSeeds(w http.ResponseWriter, r *http.Request) {
	season, ok := seasonParam(w, r)
	if !ok {
		return
	}
	var req seedsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.forSeason(season); err != nil {
		writeError(w, err)
		return
	}
	b, err := h.svc.CorrectSeeds(r.Context(), season, req.Seeds)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playoffs.View(b))
}

// ResetSeason deletes a season's seeds and bracket
func (h *APIHandlers) ResetSeason(w http.ResponseWriter, r *http.Request) {
	season, ok := seasonParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.ResetSeason(r.Context(), season); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerateBracket builds the season's bracket from its seeds
func (h *APIHandlers) GenerateBracket(w http.ResponseWriter, r *http.Request) {
	season, ok := seasonParam(w, r)
	if !ok {
		return
	}
	b, err := h.svc.GenerateBracket(r.Context(), season)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, playoffs.View(b))
}

// GetBracket returns the season's current bracket
func (h *APIHandlers) GetBracket(w http.ResponseWriter, r *http.Request) {
	season, ok := seasonParam(w, r)
	if !ok {
		return
	}
	b, err := h.svc.GetBracket(r.Context(), season)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playoffs.View(b))
}

// CascadeStats returns the audit summary for a season
func (h *APIHandlers) CascadeStats(w http.ResponseWriter, r *http.Request) {
	season, ok := seasonParam(w, r)
	if !ok {
		return
	}
	stats, err := h.svc.CascadeStats(r.Context(), season)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// RecordWinner stores a game result and re-seeds the bracket
func (h *APIHandlers) RecordWinner(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Team string `json:"team"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	gameID := chi.URLParam(r, "id")
	res, err := h.svc.RecordWinner(r.Context(), gameID, req.Team)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ClearWinner undoes a game result
func (h *APIHandlers) ClearWinner(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ClearWinner(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CreateContest opens a new prediction contest
func (h *APIHandlers) CreateContest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string `json:"name"`
		Season int    `json:"season"`
		Policy string `json:"policy"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	contest, err := h.svc.CreateContest(r.Context(), req.Name, req.Season, req.Policy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, contest)
}

// ListContests returns every contest
func (h *APIHandlers) ListContests(w http.ResponseWriter, r *http.Request) {
	contests, err := h.svc.ListContests(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contests)
}

// GetContest returns one contest
func (h *APIHandlers) GetContest(w http.ResponseWriter, r *http.Request) {
	contest, err := h.svc.GetContest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contest)
}

// ListParticipants returns a contest's participants
func (h *APIHandlers) ListParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := h.svc.ListParticipants(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, participants)
}

// JoinContest enters a participant into a contest
func (h *APIHandlers) JoinContest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	participant, err := h.svc.JoinContest(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, participant)
}

// GetLeaderboard ranks a contest's participants
func (h *APIHandlers) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.svc.GetLeaderboard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// SubmitPrediction stores a participant's pick
func (h *APIHandlers) SubmitPrediction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GameID            string  `json:"gameId"`
		PredictedWinner   string  `json:"predictedWinner"`
		PredictedOpponent *string `json:"predictedOpponent"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	pred, err := h.svc.SubmitPrediction(r.Context(), chi.URLParam(r, "id"), req.GameID, req.PredictedWinner, req.PredictedOpponent)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pred)
}

// ListPredictions returns a participant's graded picks
func (h *APIHandlers) ListPredictions(w http.ResponseWriter, r *http.Request) {
	preds, err := h.svc.ListPredictions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preds)
}

func seasonParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "season")
	season, err := strconv.Atoi(raw)
	if err != nil || season <= 0 {
		writeError(w, models.Validationf("invalid season %q", raw))
		return 0, false
	}
	return season, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("request body is empty")
		}
		logger.Warn("Failed to decode request", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

// writeError maps the error taxonomy onto HTTP status codes
func writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
		if !errors.Is(err, models.ErrConsistency) {
			msg = "internal error"
		}
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// StatusFor returns the HTTP status for a service error
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
