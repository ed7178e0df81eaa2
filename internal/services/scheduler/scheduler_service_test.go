package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scout/internal/common"
	"github.com/ternarybob/scout/internal/models"
	"github.com/ternarybob/scout/internal/services/jobs"
)

type fakeLogStore struct {
	mu          sync.Mutex
	pruneCutoff time.Time
	pruneCalls  int
}

func (s *fakeLogStore) AppendLog(context.Context, models.JobLogEntry) error { return nil }

func (s *fakeLogStore) GetLogs(context.Context, string) ([]models.JobLogEntry, error) {
	return nil, nil
}

func (s *fakeLogStore) PruneBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneCutoff = cutoff
	s.pruneCalls++
	return 2, nil
}

func (s *fakeLogStore) Close() error { return nil }

func newTestScheduler(t *testing.T, store *fakeLogStore, retentionDays int) *Service {
	t.Helper()
	manager := jobs.NewManager(common.CrawlerConfig{
		SharedSecret:      "s",
		MaxConcurrentJobs: 1,
	}, nil, nil, nil, nil, nil, arbor.NewLogger())
	t.Cleanup(func() { manager.Close() })
	return NewService(manager, store, 15*time.Minute, retentionDays, arbor.NewLogger())
}

func TestService_StartStop(t *testing.T) {
	service := newTestScheduler(t, nil, 0)
	require.NoError(t, service.Start(""))
	assert.Error(t, service.Start(""), "double start must fail")
	service.Stop()
	service.Stop() // idempotent
}

func TestService_Start_InvalidExpression(t *testing.T) {
	service := newTestScheduler(t, nil, 0)
	assert.Error(t, service.Start("not a cron expr"))
}

func TestService_RunMaintenance_Prunes(t *testing.T) {
	store := &fakeLogStore{}
	service := newTestScheduler(t, store, 7)

	service.runMaintenance()

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 1, store.pruneCalls)
	wantCutoff := time.Now().Add(-7 * 24 * time.Hour)
	assert.WithinDuration(t, wantCutoff, store.pruneCutoff, time.Minute)
}

func TestService_RunMaintenance_NoRetentionSkipsPrune(t *testing.T) {
	store := &fakeLogStore{}
	service := newTestScheduler(t, store, 0)

	service.runMaintenance()

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Zero(t, store.pruneCalls)
}
