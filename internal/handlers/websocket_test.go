package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scout/internal/common"
	"github.com/ternarybob/scout/internal/interfaces"
	"github.com/ternarybob/scout/internal/models"
	"github.com/ternarybob/scout/internal/services/events"
)

func dialWebSocket(t *testing.T, handler *WebSocketHandler) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// First frame announces the server instance
	var hello WSMessage
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, "connected", hello.Type)

	require.Eventually(t, func() bool {
		return handler.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	return conn
}

func decodePayload(t *testing.T, msg WSMessage, out interface{}) {
	t.Helper()
	data, err := json.Marshal(msg.Payload)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

func TestWebSocketHandler_BroadcastLog(t *testing.T) {
	handler := NewWebSocketHandler(nil, arbor.NewLogger())
	conn := dialWebSocket(t, handler)

	handler.BroadcastLog(LogEntry{Timestamp: "12:00:00", Level: "info", Message: "crawl started"})

	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "log", msg.Type)

	var entry LogEntry
	decodePayload(t, msg, &entry)
	assert.Equal(t, "crawl started", entry.Message)
	assert.Equal(t, "info", entry.Level)
}

func TestWebSocketHandler_JobEventsForwarded(t *testing.T) {
	eventService := events.NewService(arbor.NewLogger())
	defer eventService.Close()
	handler := NewWebSocketHandler(eventService, arbor.NewLogger())
	conn := dialWebSocket(t, handler)

	err := eventService.PublishSync(context.Background(), interfaces.Event{
		ID:        "evt_1",
		Type:      interfaces.EventJobStarted,
		Timestamp: time.Now(),
		Payload:   "job-1",
	})
	require.NoError(t, err)

	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "job_event", msg.Type)

	var update JobEventUpdate
	decodePayload(t, msg, &update)
	assert.Equal(t, "job-1", update.JobID)
	assert.Equal(t, string(interfaces.EventJobStarted), update.Event)
}

func TestJobLogBroadcaster_StreamsAndPersists(t *testing.T) {
	handler := NewWebSocketHandler(nil, arbor.NewLogger())
	conn := dialWebSocket(t, handler)

	store := &fakeJobLogs{logs: map[string][]models.JobLogEntry{}}
	broadcaster := NewJobLogBroadcaster(store, handler, nil)

	err := broadcaster.AppendLog(context.Background(), models.JobLogEntry{
		JobID:     "job-1",
		Timestamp: time.Date(2026, 8, 24, 9, 30, 0, 0, time.UTC),
		Level:     "error",
		Message:   "Crawl failed for https://example.com/x",
	})
	require.NoError(t, err)

	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "log", msg.Type)

	var entry LogEntry
	decodePayload(t, msg, &entry)
	assert.Equal(t, "09:30:00", entry.Timestamp)
	assert.Equal(t, "error", entry.Level)
}

func TestJobLogBroadcaster_Filters(t *testing.T) {
	handler := NewWebSocketHandler(nil, arbor.NewLogger())

	b := NewJobLogBroadcaster(nil, handler, nil)
	assert.True(t, b.shouldStream(models.JobLogEntry{Level: "info", Message: "ok"}))
	assert.False(t, b.shouldStream(models.JobLogEntry{Level: "debug", Message: "noise"}))

	b = NewJobLogBroadcaster(nil, handler, &common.WebSocketConfig{
		MinLevel:        "warn",
		ExcludePatterns: []string{"heartbeat"},
	})
	assert.False(t, b.shouldStream(models.JobLogEntry{Level: "info", Message: "routine"}))
	assert.True(t, b.shouldStream(models.JobLogEntry{Level: "error", Message: "boom"}))
	assert.False(t, b.shouldStream(models.JobLogEntry{Level: "error", Message: "worker heartbeat missed"}))
}

func TestJobLogBroadcaster_NilStore(t *testing.T) {
	handler := NewWebSocketHandler(nil, arbor.NewLogger())
	b := NewJobLogBroadcaster(nil, handler, nil)

	require.NoError(t, b.AppendLog(context.Background(), models.JobLogEntry{Level: "info", Message: "m"}))

	logs, err := b.GetLogs(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Empty(t, logs)

	pruned, err := b.PruneBefore(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, pruned)

	require.NoError(t, b.Close())
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "error", mapLevel(parseLogLevel("error")))
	assert.Equal(t, "warn", mapLevel(parseLogLevel("WARNING")))
	assert.Equal(t, "debug", mapLevel(parseLogLevel("debug")))
	assert.Equal(t, "info", mapLevel(parseLogLevel("unknown")))
}
