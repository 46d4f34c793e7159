package api

import (
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/terra-clan/challenge-progress/internal/models"
)

type rankResponse struct {
	UserID string `json:"userId"`
	Rank   int    `json:"rank,omitempty"`
	Ranked bool   `json:"ranked"`
	Hidden bool   `json:"hidden"`
}

// viewer loads the requesting profile's id and preferences concurrently
func (s *Server) viewer(r *http.Request) (string, models.UserPreferences, error) {
	var (
		id    string
		prefs models.UserPreferences
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		id, err = s.deps.Progress.UserID(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		prefs, err = s.deps.Progress.LoadPreferences(ctx)
		return err
	})
	err := g.Wait()
	return id, prefs, err
}

func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := s.deps.Leaderboard.Size()
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			respondError(w, http.StatusBadRequest, "validation_error", "limit must be a positive integer")
			return
		}
		limit = l
	}

	userID, prefs, err := s.viewer(r)
	if err != nil {
		respondStorageError(w, r, err, "failed to load profile")
		return
	}

	ranked, err := s.deps.Leaderboard.Ranked(r.Context(), limit)
	if err != nil {
		respondStorageError(w, r, err, "failed to load leaderboard")
		return
	}

	// an opted-out profile still keeps its score, it is just not shown
	if !prefs.ShowLeaderboard {
		visible := ranked[:0]
		for _, e := range ranked {
			if e.ID != userID {
				visible = append(visible, e)
			}
		}
		ranked = visible
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": ranked,
		"total":   len(ranked),
		"size":    s.deps.Leaderboard.Size(),
	})
}

func (s *Server) handleGetRank(w http.ResponseWriter, r *http.Request) {
	userID, prefs, err := s.viewer(r)
	if err != nil {
		respondStorageError(w, r, err, "failed to load profile")
		return
	}

	resp := rankResponse{UserID: userID, Hidden: !prefs.ShowLeaderboard}
	if !resp.Hidden {
		rank, ok, err := s.deps.Leaderboard.RankOf(r.Context(), userID)
		if err != nil {
			respondStorageError(w, r, err, "failed to load leaderboard")
			return
		}
		resp.Rank = rank
		resp.Ranked = ok
	}

	respondJSON(w, http.StatusOK, resp)
}
