// Handlers for the ingestion job endpoints: job creation, the polling
// surface and the lifecycle controls (pause, resume, cancel).

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tokscribe/tokscribe/internal/ingest"
	"github.com/tokscribe/tokscribe/internal/ingest/providers"
	"github.com/tokscribe/tokscribe/internal/models"
)

type startIngestionRequest struct {
	Usernames []string          `json:"usernames"`
	Filters   models.ItemFilter `json:"filters"`
	Settings  models.Settings   `json:"settings"`
}

func (s *Server) handleStartIngestion(w http.ResponseWriter, r *http.Request) {
	var req startIngestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	jobID, err := s.app.Registry().Create(req.Usernames, req.Filters, req.Settings)
	if err != nil {
		respondWithIngestError(w, err)
		return
	}

	RespondWithJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) handleGetIngestionStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.app.Registry().Snapshot(chi.URLParam(r, "jobID"))
	if err != nil {
		respondWithIngestError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, snap)
}

func (s *Server) handleListIngestionJobs(w http.ResponseWriter, r *http.Request) {
	live := s.app.Registry().List()

	archived, err := s.store.ListJobHistory(100)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to load job history")
		return
	}

	RespondWithJSON(w, http.StatusOK, ingest.MergeSummaries(live, archived))
}

func (s *Server) handleCancelIngestion(w http.ResponseWriter, r *http.Request) {
	snap, err := s.app.Registry().Cancel(chi.URLParam(r, "jobID"))
	if err != nil {
		respondWithIngestError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePauseIngestion(w http.ResponseWriter, r *http.Request) {
	snap, err := s.app.Registry().Pause(chi.URLParam(r, "jobID"))
	if err != nil {
		respondWithIngestError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, snap)
}

func (s *Server) handleResumeIngestion(w http.ResponseWriter, r *http.Request) {
	snap, err := s.app.Registry().Resume(chi.URLParam(r, "jobID"))
	if err != nil {
		respondWithIngestError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, snap)
}

// handleGetAccountMetadata previews an account's item list without creating
// a job, so the dashboard can show counts before the user commits.
func (s *Server) handleGetAccountMetadata(w http.ResponseWriter, r *http.Request) {
	meta, err := s.app.Registry().Metadata(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		switch {
		case errors.Is(err, providers.ErrAccountNotFound):
			RespondWithError(w, http.StatusNotFound, "Account not found")
		case errors.Is(err, providers.ErrRateLimited):
			RespondWithError(w, http.StatusTooManyRequests, "Rate limited by provider, try again later")
		case errors.Is(err, ingest.ErrInvalidInput):
			RespondWithError(w, http.StatusBadRequest, err.Error())
		default:
			RespondWithError(w, http.StatusInternalServerError, "Failed to fetch account metadata")
		}
		return
	}
	RespondWithJSON(w, http.StatusOK, meta)
}

// respondWithIngestError maps registry errors onto HTTP status codes.
func respondWithIngestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ingest.ErrInvalidInput):
		RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ingest.ErrNotFound):
		RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ingest.ErrAlreadyTerminal), errors.Is(err, ingest.ErrInvalidTransition):
		RespondWithError(w, http.StatusConflict, err.Error())
	default:
		RespondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
