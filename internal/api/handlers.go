package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/terra-clan/challenge-progress/internal/models"
	"github.com/terra-clan/challenge-progress/internal/progress"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondStorageError reports a backend failure. The stored data is left as
// it was, so the client may retry.
func respondStorageError(w http.ResponseWriter, r *http.Request, err error, message string) {
	slog.Error(message, "error", err, "path", r.URL.Path)
	respondError(w, http.StatusServiceUnavailable, "storage_unavailable", message)
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil && !s.deps.Health.Healthy() {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "storage backend unhealthy")
		return
	}

	if err := s.deps.Backend.Ping(r.Context()); err != nil {
		slog.Warn("readiness check failed", "error", err)
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// Profile handlers

type scoreResponse struct {
	Score               int `json:"score"`
	CompletedChallenges int `json:"completedChallenges"`
}

type meResponse struct {
	UserID      string                 `json:"userId"`
	Preferences models.UserPreferences `json:"preferences"`
	Progress    models.UserProgress    `json:"progress"`
	Score       int                    `json:"score"`
	Rank        *int                   `json:"rank,omitempty"`
	RankHidden  bool                   `json:"rankHidden,omitempty"`
}

func (s *Server) handleGetUserID(w http.ResponseWriter, r *http.Request) {
	id, err := s.deps.Progress.UserID(r.Context())
	if err != nil {
		respondStorageError(w, r, err, "failed to get user id")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"userId": id,
	})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	var (
		resp    meResponse
		entries []models.LeaderboardEntry
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		id, err := s.deps.Progress.UserID(ctx)
		resp.UserID = id
		return err
	})
	g.Go(func() error {
		prefs, err := s.deps.Progress.LoadPreferences(ctx)
		resp.Preferences = prefs
		return err
	})
	g.Go(func() error {
		p, err := s.deps.Progress.Load(ctx)
		resp.Progress = p
		return err
	})
	g.Go(func() error {
		list, err := s.deps.Leaderboard.List(ctx)
		entries = list
		return err
	})
	if err := g.Wait(); err != nil {
		respondStorageError(w, r, err, "failed to load profile")
		return
	}

	resp.Score = progress.ComputeScore(resp.Progress)
	if resp.Preferences.ShowLeaderboard {
		for i, e := range entries {
			if e.ID == resp.UserID {
				rank := i + 1
				resp.Rank = &rank
				break
			}
		}
	} else {
		resp.RankHidden = true
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetScore(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Progress.Load(r.Context())
	if err != nil {
		respondStorageError(w, r, err, "failed to load progress")
		return
	}

	respondJSON(w, http.StatusOK, scoreResponse{
		Score:               progress.ComputeScore(p),
		CompletedChallenges: len(p.CompletedChallenges),
	})
}

// Progress handlers

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Progress.Load(r.Context())
	if err != nil {
		respondStorageError(w, r, err, "failed to load progress")
		return
	}

	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleResetProgress(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Progress.Reset(r.Context()); err != nil {
		respondStorageError(w, r, err, "failed to reset progress")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "progress reset",
	})
}

// Preferences handlers

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.deps.Progress.LoadPreferences(r.Context())
	if err != nil {
		respondStorageError(w, r, err, "failed to load preferences")
		return
	}

	respondJSON(w, http.StatusOK, prefs)
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var patch models.PreferencesPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	prefs, err := s.deps.Progress.UpdatePreferences(r.Context(), patch)
	if err != nil {
		if errors.Is(err, progress.ErrInvalidPreferences) {
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		respondStorageError(w, r, err, "failed to save preferences")
		return
	}

	respondJSON(w, http.StatusOK, prefs)
}
