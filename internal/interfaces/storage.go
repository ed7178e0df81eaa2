package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/scout/internal/models"
)

// ObjectStore persists gzipped crawl artifacts to S3-compatible storage.
type ObjectStore interface {
	// UploadHTML gzips and stores an HTML body at the given key
	UploadHTML(ctx context.Context, key string, body []byte) error

	// UploadJSON gzips and stores a JSON document at the given key
	UploadJSON(ctx context.Context, key string, body []byte) error

	// UploadMarkdown gzips and stores a Markdown document at the given key
	UploadMarkdown(ctx context.Context, key string, body []byte) error
}

// JobLogStorage persists per-job diagnostic log entries. This is a
// diagnostic trail only; job state lives in the manager's memory.
type JobLogStorage interface {
	// AppendLog stores one log entry for a job
	AppendLog(ctx context.Context, entry models.JobLogEntry) error

	// GetLogs returns all log entries for a job in timestamp order
	GetLogs(ctx context.Context, jobID string) ([]models.JobLogEntry, error)

	// PruneBefore deletes entries older than the cutoff, returning the count removed
	PruneBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Close releases the underlying store
	Close() error
}
