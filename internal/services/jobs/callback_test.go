package jobs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scout/internal/common"
	"github.com/ternarybob/scout/internal/models"
)

func testLogger() arbor.ILogger {
	return arbor.NewLogger()
}

func TestCallbackClient_SendBatch_Signed(t *testing.T) {
	secret := "test-secret"

	var gotBatch models.CrawlResultBatch
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		timestamp := r.Header.Get("X-Timestamp")
		require.NotEmpty(t, timestamp)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		wantSig := common.SignaturePrefix + common.ComputeSignature(secret, timestamp, body)
		assert.Equal(t, wantSig, r.Header.Get("X-Signature"))

		require.NoError(t, json.Unmarshal(body, &gotBatch))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewCallbackClient(secret, "", 5*time.Second, testLogger())
	batch := &models.CrawlResultBatch{
		JobID:      "job-1",
		BatchIndex: 2,
		IsFinal:    true,
		Pages:      []models.PageResult{},
		Stats:      models.CrawlStats{PagesCrawled: 7},
	}
	require.NoError(t, client.SendBatch(context.Background(), server.URL, batch))

	assert.Equal(t, "job-1", gotBatch.JobID)
	assert.Equal(t, 2, gotBatch.BatchIndex)
	assert.True(t, gotBatch.IsFinal)
	assert.Equal(t, 7, gotBatch.Stats.PagesCrawled)
}

func TestCallbackClient_SendBacklinks(t *testing.T) {
	var gotPayload models.BacklinksPayload
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &gotPayload))

		timestamp := r.Header.Get("X-Timestamp")
		wantSig := common.SignaturePrefix + common.ComputeSignature("s3cret", timestamp, body)
		assert.Equal(t, wantSig, r.Header.Get("X-Signature"))
	}))
	defer server.Close()

	client := NewCallbackClient("s3cret", server.URL+"/", 5*time.Second, testLogger())
	client.SendBacklinks(context.Background(), []models.BacklinkEntry{
		{SourceURL: "https://a.com/p", SourceDomain: "a.com", TargetURL: "https://b.com", TargetDomain: "b.com"},
	})

	assert.Equal(t, "/api/backlinks/ingest", gotPath)
	require.Len(t, gotPayload.Links, 1)
	assert.Equal(t, "https://a.com/p", gotPayload.Links[0].SourceURL)
}

func TestCallbackClient_SendBacklinks_EmptySkipsPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty link set")
	}))
	defer server.Close()

	client := NewCallbackClient("s", server.URL, 5*time.Second, testLogger())
	client.SendBacklinks(context.Background(), nil)
}

func TestCollectBacklinkEntries(t *testing.T) {
	pages := []models.PageResult{{
		URL: "https://example.com/blog/post",
		Extracted: models.ExtractedData{
			ExternalLinkDetails: []models.ExtractedLink{
				{URL: "https://competitor.com/product", AnchorText: "check this out", Rel: "nofollow", IsExternal: true},
				{URL: "https://reference.org/docs", AnchorText: "documentation", Rel: "", IsExternal: true},
			},
		},
	}}

	entries := collectBacklinkEntries(pages)
	require.Len(t, entries, 2)

	assert.Equal(t, "https://example.com/blog/post", entries[0].SourceURL)
	assert.Equal(t, "example.com", entries[0].SourceDomain)
	assert.Equal(t, "https://competitor.com/product", entries[0].TargetURL)
	assert.Equal(t, "competitor.com", entries[0].TargetDomain)
	assert.Equal(t, "check this out", entries[0].AnchorText)
	assert.Equal(t, "nofollow", entries[0].Rel)

	assert.Equal(t, "reference.org", entries[1].TargetDomain)
	assert.Equal(t, "", entries[1].Rel)
}

func TestCollectBacklinkEntries_SkipsInvalidURLs(t *testing.T) {
	pages := []models.PageResult{{
		URL: "https://example.com/page",
		Extracted: models.ExtractedData{
			ExternalLinkDetails: []models.ExtractedLink{
				{URL: "not-a-valid-url", AnchorText: "bad", IsExternal: true},
			},
		},
	}}

	assert.Empty(t, collectBacklinkEntries(pages))
}
