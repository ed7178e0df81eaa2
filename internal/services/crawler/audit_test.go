package crawler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const auditReportFixture = `{
	"categories": {
		"performance": {"score": 0.85},
		"seo": {"score": 0.92},
		"accessibility": {"score": 0.78},
		"best-practices": {"score": 0.95}
	}
}`

func TestParseAuditReport(t *testing.T) {
	result, err := parseAuditReport([]byte(auditReportFixture))
	require.NoError(t, err)
	assert.InDelta(t, 0.85, result.Performance, 1e-9)
	assert.InDelta(t, 0.92, result.SEO, 1e-9)
	assert.InDelta(t, 0.78, result.Accessibility, 1e-9)
	assert.InDelta(t, 0.95, result.BestPractices, 1e-9)
	assert.Empty(t, result.ReportKey)
}

func TestParseAuditReport_MissingCategory(t *testing.T) {
	_, err := parseAuditReport([]byte(`{"categories":{"performance":{"score":0.85}}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seo")
}

func TestParseAuditReport_MissingCategories(t *testing.T) {
	_, err := parseAuditReport([]byte(`{}`))
	assert.Error(t, err)
}

func TestParseAuditReport_InvalidJSON(t *testing.T) {
	_, err := parseAuditReport([]byte("not json"))
	assert.Error(t, err)
}

func TestRemoteAuditRunner(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/browser/audit", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var payload map[string]string
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "https://example.com", payload["url"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"performance":0.9,"seo":0.8,"accessibility":0.7,"best_practices":0.6}}`))
	}))
	defer server.Close()

	runner := NewRemoteAuditRunner(2, server.URL, testLogger())
	result, err := runner.Run(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.InDelta(t, 0.9, result.Performance, 1e-9)
	assert.InDelta(t, 0.6, result.BestPractices, 1e-9)
}

func TestRemoteAuditRunner_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	runner := NewRemoteAuditRunner(1, server.URL, testLogger())
	_, err := runner.Run(context.Background(), "https://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestRemoteAuditRunner_MissingData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	runner := NewRemoteAuditRunner(1, server.URL, testLogger())
	_, err := runner.Run(context.Background(), "https://example.com")
	assert.Error(t, err)
}
