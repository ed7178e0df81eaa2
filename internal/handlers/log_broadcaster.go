package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/ternarybob/arbor/levels"

	"github.com/ternarybob/scout/internal/common"
	"github.com/ternarybob/scout/internal/interfaces"
	"github.com/ternarybob/scout/internal/models"
)

// JobLogBroadcaster decorates a JobLogStorage, streaming each appended
// entry to WebSocket clients before handing it to the underlying store.
// Level and pattern filters apply to the stream only; persistence always
// sees the full entry.
type JobLogBroadcaster struct {
	store           interfaces.JobLogStorage
	handler         *WebSocketHandler
	minLevel        levels.LogLevel
	excludePatterns []string
}

// NewJobLogBroadcaster wraps store with WebSocket streaming. store may
// be nil when persistence is disabled; entries are then stream-only.
func NewJobLogBroadcaster(store interfaces.JobLogStorage, handler *WebSocketHandler, wsConfig *common.WebSocketConfig) *JobLogBroadcaster {
	b := &JobLogBroadcaster{
		store:    store,
		handler:  handler,
		minLevel: levels.InfoLevel,
	}
	if wsConfig != nil {
		b.minLevel = parseLogLevel(wsConfig.MinLevel)
		b.excludePatterns = wsConfig.ExcludePatterns
	}
	return b
}

func (b *JobLogBroadcaster) AppendLog(ctx context.Context, entry models.JobLogEntry) error {
	if b.shouldStream(entry) {
		timestamp := entry.Timestamp
		if timestamp.IsZero() {
			timestamp = time.Now()
		}
		b.handler.BroadcastLog(LogEntry{
			Timestamp: timestamp.Format("15:04:05"),
			Level:     mapLevel(parseLogLevel(entry.Level)),
			Message:   entry.Message,
		})
	}

	if b.store == nil {
		return nil
	}
	return b.store.AppendLog(ctx, entry)
}

func (b *JobLogBroadcaster) GetLogs(ctx context.Context, jobID string) ([]models.JobLogEntry, error) {
	if b.store == nil {
		return nil, nil
	}
	return b.store.GetLogs(ctx, jobID)
}

func (b *JobLogBroadcaster) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if b.store == nil {
		return 0, nil
	}
	return b.store.PruneBefore(ctx, cutoff)
}

func (b *JobLogBroadcaster) Close() error {
	if b.store == nil {
		return nil
	}
	return b.store.Close()
}

func (b *JobLogBroadcaster) shouldStream(entry models.JobLogEntry) bool {
	if parseLogLevel(entry.Level) < b.minLevel {
		return false
	}
	for _, pattern := range b.excludePatterns {
		if strings.Contains(entry.Message, pattern) {
			return false
		}
	}
	return true
}

// parseLogLevel converts string log level to arbor levels.LogLevel
func parseLogLevel(level string) levels.LogLevel {
	switch strings.ToLower(level) {
	case "error":
		return levels.ErrorLevel
	case "warn", "warning":
		return levels.WarnLevel
	case "info":
		return levels.InfoLevel
	case "debug":
		return levels.DebugLevel
	default:
		return levels.InfoLevel
	}
}

// mapLevel maps arbor log levels to wire strings
func mapLevel(level levels.LogLevel) string {
	switch level {
	case levels.ErrorLevel:
		return "error"
	case levels.WarnLevel:
		return "warn"
	case levels.InfoLevel:
		return "info"
	case levels.DebugLevel:
		return "debug"
	default:
		return "info"
	}
}
