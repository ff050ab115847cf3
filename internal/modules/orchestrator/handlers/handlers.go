// Package handlers provides HTTP handlers for the hybrid solve pipeline.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quantalab/quanta/internal/domain"
	"github.com/quantalab/quanta/internal/modules/orchestrator"
	"github.com/quantalab/quanta/internal/queue"
)

// JobReader is the read-only slice of the queue the handlers need
type JobReader interface {
	GetJob(jobID string) (*domain.QuantumJob, error)
}

// Handler handles hybrid solve HTTP requests
type Handler struct {
	orchestrator *orchestrator.Orchestrator
	jobs         JobReader
	validate     *validator.Validate
	log          zerolog.Logger
}

// NewHandler creates a new hybrid handler
func NewHandler(orch *orchestrator.Orchestrator, jobs JobReader, log zerolog.Logger) *Handler {
	return &Handler{
		orchestrator: orch,
		jobs:         jobs,
		validate:     validator.New(),
		log:          log.With().Str("handler", "hybrid").Logger(),
	}
}

// SolveRequestMetadata is the optional provenance block of a solve request
type SolveRequestMetadata struct {
	Source    string `json:"source" validate:"omitempty,oneof=AGI_CORE USER_DIRECT"`
	AGITaskID string `json:"agiTaskId"`
}

// SolveRequest represents a request to solve a hybrid problem
type SolveRequest struct {
	Description string                 `json:"description" validate:"required"`
	Data        map[string]interface{} `json:"data" validate:"required"`
	Metadata    *SolveRequestMetadata  `json:"metadata" validate:"omitempty"`
}

// HandleSolve handles POST /api/hybrid/solve
func (h *Handler) HandleSolve(w http.ResponseWriter, r *http.Request) {
	var req SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.log.Debug().Err(err).Msg("Solve request failed validation")
		h.writeError(w, http.StatusBadRequest, "invalid_request", "description and data are required")
		return
	}

	problem := domain.HybridProblem{
		ID:          uuid.New().String(),
		Description: req.Description,
		Data:        req.Data,
		Metadata:    domain.ProblemMetadata{Source: domain.SourceUserDirect},
	}
	if req.Metadata != nil {
		if req.Metadata.Source != "" {
			problem.Metadata.Source = domain.ProblemSource(req.Metadata.Source)
		}
		problem.Metadata.AGITaskID = req.Metadata.AGITaskID
	}

	solution, err := h.orchestrator.Solve(r.Context(), problem)
	if err != nil {
		h.log.Error().Err(err).Str("problem_id", problem.ID).Msg("Pipeline failed")
		h.writeError(w, http.StatusInternalServerError, "pipeline_failure", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, solution)
}

// HandleGetJob handles GET /api/hybrid/jobs/{jobID}
func (h *Handler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "job id is required")
		return
	}

	job, err := h.jobs.GetJob(jobID)
	if err != nil {
		if errors.Is(err, queue.ErrJobNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "No job with id "+jobID)
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to load job")
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load job")
		return
	}

	response := map[string]interface{}{
		"data": job,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}
