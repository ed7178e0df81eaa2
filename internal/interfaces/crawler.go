package interfaces

import (
	"context"

	"github.com/ternarybob/scout/internal/models"
)

// AuditRunner executes a headless quality audit for one URL. Optional
// subsystem: a nil handle skips the audit fan-out branch.
type AuditRunner interface {
	Run(ctx context.Context, url string) (*models.AuditResult, error)
}

// RenderRunner executes page JavaScript and re-extracts anchor links.
// Optional subsystem: a nil handle skips the render fan-out branch.
type RenderRunner interface {
	Render(ctx context.Context, url string) ([]models.RenderedLink, error)
}

// JobService is the manager surface exposed to the HTTP handlers.
type JobService interface {
	// Submit enqueues a job and returns immediately
	Submit(ctx context.Context, payload *models.JobPayload) error

	// Status returns a snapshot for the job; unknown IDs report pending
	Status(jobID string) models.JobStatusSnapshot

	// Cancel fires the job's cancellation handle
	Cancel(jobID string) models.JobStatusSnapshot
}
