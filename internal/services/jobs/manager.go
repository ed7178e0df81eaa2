package jobs

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scout/internal/common"
	"github.com/ternarybob/scout/internal/interfaces"
	"github.com/ternarybob/scout/internal/models"
)

const jobQueueCapacity = 64

// jobEntry tracks one job's lifecycle. Entries stay in the map after
// completion so status queries keep working.
type jobEntry struct {
	mu           sync.Mutex
	status       models.JobStatus
	stats        *models.CrawlStats
	ctx          context.Context
	cancel       context.CancelFunc
	lastProgress time.Time
}

func (e *jobEntry) snapshot(jobID string) models.JobStatusSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	var stats *models.CrawlStats
	if e.stats != nil {
		copied := *e.stats
		stats = &copied
	}
	return models.JobStatusSnapshot{
		JobID:  jobID,
		Status: e.status,
		Stats:  stats,
	}
}

func (e *jobEntry) setStats(stats models.CrawlStats) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats = &stats
	e.lastProgress = time.Now()
}

func (e *jobEntry) setStatus(status models.JobStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = status
}

func (e *jobEntry) currentStatus() models.JobStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Manager owns crawl job lifecycle: submission, dispatch, status,
// cancellation, and stale detection.
type Manager struct {
	config    common.CrawlerConfig
	storage   interfaces.ObjectStore
	audit     interfaces.AuditRunner
	render    interfaces.RenderRunner
	events    interfaces.EventService
	jobLogs   interfaces.JobLogStorage
	callbacks *CallbackClient
	logger    arbor.ILogger

	mu   sync.RWMutex
	jobs map[string]*jobEntry

	queue chan *models.JobPayload
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewManager creates the job manager and starts its dispatch loop.
// Storage, audit, render, and jobLogs handles may be nil when the
// matching subsystem is disabled.
func NewManager(
	config common.CrawlerConfig,
	storage interfaces.ObjectStore,
	audit interfaces.AuditRunner,
	render interfaces.RenderRunner,
	events interfaces.EventService,
	jobLogs interfaces.JobLogStorage,
	logger arbor.ILogger,
) *Manager {
	m := &Manager{
		config:    config,
		storage:   storage,
		audit:     audit,
		render:    render,
		events:    events,
		jobLogs:   jobLogs,
		callbacks: NewCallbackClient(config.SharedSecret, config.APIBaseURL, config.CallbackTimeout, logger),
		logger:    logger,
		jobs:      make(map[string]*jobEntry),
		queue:     make(chan *models.JobPayload, jobQueueCapacity),
		done:      make(chan struct{}),
	}

	m.wg.Add(1)
	go m.dispatchLoop()

	return m
}

// Submit enqueues a job and returns immediately. Duplicate job IDs are
// rejected.
func (m *Manager) Submit(ctx context.Context, payload *models.JobPayload) error {
	jobCtx, cancel := context.WithCancel(context.Background())
	entry := &jobEntry{
		status:       models.JobStatusQueued,
		ctx:          jobCtx,
		cancel:       cancel,
		lastProgress: time.Now(),
	}

	m.mu.Lock()
	if _, exists := m.jobs[payload.JobID]; exists {
		m.mu.Unlock()
		cancel()
		return fmt.Errorf("job %s already exists", payload.JobID)
	}
	m.jobs[payload.JobID] = entry
	m.mu.Unlock()

	select {
	case m.queue <- payload:
	default:
		m.mu.Lock()
		delete(m.jobs, payload.JobID)
		m.mu.Unlock()
		cancel()
		return fmt.Errorf("job queue full")
	}

	m.publishEvent(interfaces.EventJobSubmitted, payload.JobID)
	m.logger.Info().
		Str("job_id", payload.JobID).
		Int("seed_urls", len(payload.Config.SeedURLs)).
		Int("max_pages", payload.Config.MaxPages).
		Msg("Job submitted")

	return nil
}

// Status returns a snapshot for the job. Unknown IDs report pending.
func (m *Manager) Status(jobID string) models.JobStatusSnapshot {
	m.mu.RLock()
	entry, ok := m.jobs[jobID]
	m.mu.RUnlock()

	if !ok {
		return models.JobStatusSnapshot{
			JobID:  jobID,
			Status: models.JobStatusPending,
		}
	}
	return entry.snapshot(jobID)
}

// Cancel fires the job's cancellation handle and marks it cancelled.
// Unknown IDs are a no-op reported as pending.
func (m *Manager) Cancel(jobID string) models.JobStatusSnapshot {
	m.mu.RLock()
	entry, ok := m.jobs[jobID]
	m.mu.RUnlock()

	if !ok {
		return models.JobStatusSnapshot{
			JobID:  jobID,
			Status: models.JobStatusPending,
		}
	}

	entry.mu.Lock()
	entry.cancel()
	entry.status = models.JobStatusCancelled
	entry.mu.Unlock()

	m.publishEvent(interfaces.EventJobCancelled, jobID)
	m.appendJobLog(jobID, "info", "Job cancelled")
	m.logger.Info().Str("job_id", jobID).Msg("Job cancelled")

	return entry.snapshot(jobID)
}

// FailStaleJobs flips crawling jobs with no progress past the threshold
// to failed and cancels their contexts. Entries are never evicted.
func (m *Manager) FailStaleJobs(threshold time.Duration) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var failed []string
	now := time.Now()
	for jobID, entry := range m.jobs {
		entry.mu.Lock()
		stale := entry.status == models.JobStatusCrawling && now.Sub(entry.lastProgress) > threshold
		if stale {
			entry.cancel()
			entry.status = models.JobStatusFailed
		}
		entry.mu.Unlock()

		if stale {
			failed = append(failed, jobID)
			m.publishEvent(interfaces.EventJobFailed, jobID)
			m.appendJobLog(jobID, "error", "Job marked failed after stalling")
			m.logger.Warn().
				Str("job_id", jobID).
				Dur("threshold", threshold).
				Msg("Job marked failed after stalling")
		}
	}
	return failed
}

// Close stops the dispatch loop, cancels running jobs, and waits for
// them to wind down.
func (m *Manager) Close() error {
	close(m.done)

	m.mu.RLock()
	for _, entry := range m.jobs {
		entry.mu.Lock()
		entry.cancel()
		entry.mu.Unlock()
	}
	m.mu.RUnlock()

	m.wg.Wait()
	return nil
}

func (m *Manager) dispatchLoop() {
	defer m.wg.Done()

	maxJobs := m.config.MaxConcurrentJobs
	if maxJobs <= 0 {
		maxJobs = 1
	}
	sem := make(chan struct{}, maxJobs)

	for {
		select {
		case <-m.done:
			return
		case payload := <-m.queue:
			select {
			case sem <- struct{}{}:
			case <-m.done:
				return
			}

			m.wg.Add(1)
			go func(p *models.JobPayload) {
				defer m.wg.Done()
				defer func() { <-sem }()
				// A panicking job must not take the worker process down.
				// Mark the job failed and persist a crash file for diagnosis.
				defer func() {
					if r := recover(); r != nil {
						stackTrace := string(debug.Stack())
						crashPath := common.WriteCrashFile(r, stackTrace)
						m.logger.Error().
							Str("panic", fmt.Sprintf("%v", r)).
							Str("job_id", p.JobID).
							Str("crash_file", crashPath).
							Msg("Job goroutine panicked")
						if entry := m.entryFor(p.JobID); entry != nil {
							entry.setStatus(models.JobStatusFailed)
						}
						m.publishEvent(interfaces.EventJobFailed, p.JobID)
					}
				}()
				m.runJob(p)
			}(payload)
		}
	}
}

func (m *Manager) entryFor(jobID string) *jobEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[jobID]
}

func (m *Manager) publishEvent(eventType interfaces.EventType, jobID string) {
	if m.events == nil {
		return
	}
	_ = m.events.Publish(context.Background(), interfaces.Event{
		ID:        common.NewEventID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   jobID,
	})
}

func (m *Manager) appendJobLog(jobID, level, message string) {
	if m.jobLogs == nil {
		return
	}
	err := m.jobLogs.AppendLog(context.Background(), models.JobLogEntry{
		JobID:     jobID,
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
	})
	if err != nil {
		m.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to persist job log entry")
	}
}
