package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scout/internal/interfaces"
	"github.com/ternarybob/scout/internal/models"
)

// JobHandler handles crawl job API requests.
type JobHandler struct {
	jobs     interfaces.JobService
	jobLogs  interfaces.JobLogStorage
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewJobHandler creates a new job handler. jobLogs may be nil when the
// log store is disabled; the logs endpoint then returns empty lists.
func NewJobHandler(jobs interfaces.JobService, jobLogs interfaces.JobLogStorage, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		jobs:     jobs,
		jobLogs:  jobLogs,
		validate: validator.New(),
		logger:   logger,
	}
}

// SubmitJobHandler accepts a crawl job for asynchronous execution.
// POST /api/v1/jobs
func (h *JobHandler) SubmitJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var payload models.JobPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON payload: "+err.Error())
		return
	}

	if err := h.validate.Struct(&payload); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace())
			}
			WriteError(w, http.StatusBadRequest, "Validation failed: "+strings.Join(fields, ", "))
			return
		}
		WriteError(w, http.StatusBadRequest, "Validation failed")
		return
	}

	if err := h.jobs.Submit(r.Context(), &payload); err != nil {
		h.logger.Warn().Err(err).Str("job_id", payload.JobID).Msg("Job submission rejected")
		WriteError(w, http.StatusConflict, err.Error())
		return
	}

	h.logger.Info().
		Str("job_id", payload.JobID).
		Int("seed_urls", len(payload.Config.SeedURLs)).
		Int("max_pages", payload.Config.MaxPages).
		Msg("Job accepted")

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": payload.JobID,
		"status": string(models.JobStatusQueued),
	})
}

// JobStatusHandler returns the current status snapshot for a job.
// GET /api/v1/jobs/{id}/status
func (h *JobHandler) JobStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobID := jobIDFromPath(r.URL.Path, "/status")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	WriteJSON(w, http.StatusOK, h.jobs.Status(jobID))
}

// CancelJobHandler requests cancellation of a running job.
// POST /api/v1/jobs/{id}/cancel
func (h *JobHandler) CancelJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	jobID := jobIDFromPath(r.URL.Path, "/cancel")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	snapshot := h.jobs.Cancel(jobID)
	h.logger.Info().Str("job_id", jobID).Str("status", string(snapshot.Status)).Msg("Job cancellation requested")
	WriteJSON(w, http.StatusOK, snapshot)
}

// JobLogsHandler returns the persisted diagnostic log for a job.
// GET /api/v1/jobs/{id}/logs
func (h *JobHandler) JobLogsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobID := jobIDFromPath(r.URL.Path, "/logs")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	logs := []models.JobLogEntry{}
	if h.jobLogs != nil {
		entries, err := h.jobLogs.GetLogs(r.Context(), jobID)
		if err != nil {
			h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to load job logs")
			WriteError(w, http.StatusInternalServerError, "Failed to load job logs")
			return
		}
		if entries != nil {
			logs = entries
		}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_id": jobID,
		"logs":   logs,
		"count":  len(logs),
	})
}

// jobIDFromPath extracts the job ID from paths shaped like
// /api/v1/jobs/{id}{suffix}.
func jobIDFromPath(path, suffix string) string {
	path = strings.TrimSuffix(path, suffix)
	idx := strings.LastIndex(path, "/")
	if idx < 0 || idx == len(path)-1 {
		return ""
	}
	return path[idx+1:]
}
