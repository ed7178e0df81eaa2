package models

import "time"

// JobLogEntry is one diagnostic log line for a crawl job, persisted to
// the Badger store and readable through the job logs endpoint.
type JobLogEntry struct {
	ID        string    `json:"id" badgerhold:"key"`
	JobID     string    `json:"job_id" badgerhold:"index"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}
