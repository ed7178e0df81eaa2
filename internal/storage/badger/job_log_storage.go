package badger

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/scout/internal/interfaces"
	"github.com/ternarybob/scout/internal/models"
)

// logSequence keeps keys unique when multiple entries land within the
// same nanosecond.
var logSequence uint64

// JobLogStorage persists per-job diagnostic log entries in Badger.
type JobLogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

func NewJobLogStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobLogStorage {
	return &JobLogStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobLogStorage) AppendLog(ctx context.Context, entry models.JobLogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.ID == "" {
		seq := atomic.AddUint64(&logSequence, 1)
		entry.ID = fmt.Sprintf("%s_%d_%d", entry.JobID, entry.Timestamp.UnixNano(), seq)
	}

	if err := s.db.Store().Insert(entry.ID, &entry); err != nil {
		return fmt.Errorf("failed to append log: %w", err)
	}
	return nil
}

func (s *JobLogStorage) GetLogs(ctx context.Context, jobID string) ([]models.JobLogEntry, error) {
	var logs []models.JobLogEntry
	query := badgerhold.Where("JobID").Eq(jobID).Index("JobID").SortBy("Timestamp")
	if err := s.db.Store().Find(&logs, query); err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	return logs, nil
}

func (s *JobLogStorage) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	query := badgerhold.Where("Timestamp").Lt(cutoff)

	count, err := s.db.Store().Count(&models.JobLogEntry{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count prunable logs: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	if err := s.db.Store().DeleteMatching(&models.JobLogEntry{}, query); err != nil {
		return 0, fmt.Errorf("failed to prune logs: %w", err)
	}

	s.logger.Debug().
		Int("pruned", int(count)).
		Str("cutoff", cutoff.Format(time.RFC3339)).
		Msg("Pruned old job logs")

	return int(count), nil
}

func (s *JobLogStorage) Close() error {
	return s.db.Close()
}
