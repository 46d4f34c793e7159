package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/challenge-progress/internal/completion"
	"github.com/terra-clan/challenge-progress/internal/models"
)

// Challenge handlers - catalog browsing and completion

func (s *Server) handleListChallenges(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Progress.Load(r.Context())
	if err != nil {
		respondStorageError(w, r, err, "failed to load progress")
		return
	}

	challenges := s.deps.Catalog.List()
	out := make([]models.ChallengeStatus, 0, len(challenges))
	completed := 0
	for _, ch := range challenges {
		state := p.State(ch.ID)
		if state.IsTerminal() {
			completed++
		}
		out = append(out, models.ChallengeStatus{
			Challenge: ch,
			State:     state,
			Completed: state.IsTerminal(),
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"challenges": out,
		"total":      len(out),
		"completed":  completed,
	})
}

func (s *Server) handleNormalizeChallenge(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	trimmed := strings.TrimSpace(raw)
	canonical := s.deps.Normalizer.Normalize(trimmed)

	aliases := s.deps.Normalizer.AliasesOf(canonical)
	if aliases == nil {
		aliases = []string{}
	}

	_, known := s.deps.Catalog.Get(canonical)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"input":     raw,
		"canonical": canonical,
		"alias":     s.deps.Normalizer.IsAlias(trimmed),
		"known":     known,
		"aliases":   aliases,
	})
}

func (s *Server) handleListAliases(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Normalizer.Aliases())
}

func (s *Server) handleCompleteChallenge(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")

	res, err := s.deps.Coordinator.Complete(r.Context(), raw)
	if err != nil {
		if errors.Is(err, completion.ErrEmptyChallengeID) {
			respondError(w, http.StatusBadRequest, "validation_error", "challenge id is required")
			return
		}
		respondStorageError(w, r, err, "failed to complete challenge")
		return
	}

	respondJSON(w, http.StatusOK, res)
}
