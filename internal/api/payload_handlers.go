package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/challenge-progress/internal/models"
	"github.com/terra-clan/challenge-progress/internal/payload"
)

// maxPayloadBytes bounds request bodies for payloads and blobs
const maxPayloadBytes = 1 << 20

func readBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "payload_too_large",
				fmt.Sprintf("body exceeds %d bytes", maxPayloadBytes))
			return nil, false
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "failed to read body")
		return nil, false
	}
	if !json.Valid(body) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return nil, false
	}
	return body, true
}

// respondPayloadError maps accessor errors onto HTTP statuses
func respondPayloadError(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, payload.ErrEmptyNamespace), errors.Is(err, payload.ErrInvalidPayload):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	default:
		respondStorageError(w, r, err, message)
	}
}

// Payload handlers - challengeData namespaces

func (s *Server) handleListPayloads(w http.ResponseWriter, r *http.Request) {
	namespaces, err := s.deps.Payloads.Namespaces(r.Context())
	if err != nil {
		respondStorageError(w, r, err, "failed to list payloads")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"namespaces": namespaces,
		"families":   payload.Families(),
		"total":      len(namespaces),
	})
}

func (s *Server) handleGetPayload(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")

	raw, ok, err := s.deps.Payloads.LoadRaw(r.Context(), namespace)
	if err != nil {
		respondStorageError(w, r, err, "failed to load payload")
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "payload not found")
		return
	}

	respondJSON(w, http.StatusOK, raw)
}

func (s *Server) handlePutPayload(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")

	body, ok := readBody(w, r)
	if !ok {
		return
	}

	if !payload.IsFamily(namespace) {
		if err := s.deps.Payloads.SaveRaw(r.Context(), namespace, body); err != nil {
			respondPayloadError(w, r, err, "failed to save payload")
			return
		}
		respondJSON(w, http.StatusOK, body)
		return
	}

	decoded, err := payload.DecodeFamily(namespace, body)
	if err != nil {
		respondPayloadError(w, r, err, "failed to save payload")
		return
	}

	ctx := r.Context()
	var saved interface{}
	switch v := decoded.(type) {
	case *models.DatasetAnalysis:
		err = s.deps.Payloads.SaveDatasetAnalysis(ctx, *v)
		saved, _, _ = s.deps.Payloads.LoadDatasetAnalysis(ctx)
	case *models.TranslationRecord:
		saved, err = s.deps.Payloads.SaveTranslation(ctx, *v)
	case *models.Brainstorm:
		err = s.deps.Payloads.SaveBrainstorm(ctx, *v)
		saved, _, _ = s.deps.Payloads.LoadBrainstorm(ctx)
	case *models.SocialMediaPost:
		err = s.deps.Payloads.SaveSocialMediaPost(ctx, *v)
		saved, _, _ = s.deps.Payloads.LoadSocialMediaPost(ctx)
	case *models.SlideDeck:
		err = s.deps.Payloads.SaveSlideDeck(ctx, *v)
		saved, _, _ = s.deps.Payloads.LoadSlideDeck(ctx)
	default:
		err = fmt.Errorf("%w: %s", payload.ErrUnknownFamily, namespace)
	}
	if err != nil {
		respondPayloadError(w, r, err, "failed to save payload")
		return
	}

	respondJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeletePayload(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")

	if err := s.deps.Payloads.Delete(r.Context(), namespace); err != nil {
		respondStorageError(w, r, err, "failed to delete payload")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "payload deleted",
	})
}

// Blob handlers - challenge_<id> keys

func (s *Server) blobID(r *http.Request) string {
	return s.deps.Coordinator.NormalizeChallengeID(chi.URLParam(r, "challengeId"))
}

func (s *Server) handleListBlobs(w http.ResponseWriter, r *http.Request) {
	ids, err := s.deps.Payloads.Blobs(r.Context())
	if err != nil {
		respondStorageError(w, r, err, "failed to list blobs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"challenges": ids,
		"total":      len(ids),
	})
}

func (s *Server) handleGetBlob(w http.ResponseWriter, r *http.Request) {
	raw, ok, err := s.deps.Payloads.LoadBlob(r.Context(), s.blobID(r))
	if err != nil {
		respondStorageError(w, r, err, "failed to load blob")
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "blob not found")
		return
	}

	respondJSON(w, http.StatusOK, raw)
}

func (s *Server) handlePutBlob(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	if err := s.deps.Payloads.SaveBlob(r.Context(), s.blobID(r), body); err != nil {
		respondPayloadError(w, r, err, "failed to save blob")
		return
	}

	respondJSON(w, http.StatusOK, body)
}

func (s *Server) handleDeleteBlob(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Payloads.DeleteBlob(r.Context(), s.blobID(r)); err != nil {
		respondStorageError(w, r, err, "failed to delete blob")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "blob deleted",
	})
}

// Translation history handlers

func (s *Server) handleListTranslations(w http.ResponseWriter, r *http.Request) {
	history, err := s.deps.Payloads.TranslationHistory(r.Context())
	if err != nil {
		respondStorageError(w, r, err, "failed to load translation history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"translations": history,
		"total":        len(history),
	})
}

func (s *Server) handleAddTranslation(w http.ResponseWriter, r *http.Request) {
	var rec models.TranslationRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if rec.SourceText == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "sourceText is required")
		return
	}

	saved, err := s.deps.Payloads.SaveTranslation(r.Context(), rec)
	if err != nil {
		respondPayloadError(w, r, err, "failed to save translation")
		return
	}

	respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleClearTranslations(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Payloads.ClearTranslationHistory(r.Context()); err != nil {
		respondStorageError(w, r, err, "failed to clear translation history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "translation history cleared",
	})
}
