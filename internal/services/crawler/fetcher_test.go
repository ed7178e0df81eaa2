package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func testLogger() arbor.ILogger {
	return arbor.NewLogger()
}

func TestFetcher_Fetch(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer server.Close()

	f := NewFetcher(0, 5*time.Second, "ScoutBot/1.0", testLogger())
	result, err := f.Fetch(context.Background(), server.URL, "ScoutBot/1.0")
	require.NoError(t, err)

	assert.Equal(t, 200, result.StatusCode)
	assert.Contains(t, result.Body, "hello")
	assert.Equal(t, "ScoutBot/1.0", gotUA)
	assert.Equal(t, "text/html; charset=utf-8", result.Headers["content-type"])
	assert.Equal(t, server.URL+"/", result.FinalURL)
	assert.Empty(t, result.RedirectChain)
}

func TestFetcher_RedirectChain(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/middle", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/middle", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/end", http.StatusFound)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("done"))
	})

	f := NewFetcher(0, 5*time.Second, "ScoutBot/1.0", testLogger())
	result, err := f.Fetch(context.Background(), server.URL+"/start", "ScoutBot/1.0")
	require.NoError(t, err)

	assert.Equal(t, 200, result.StatusCode)
	assert.Equal(t, server.URL+"/end", result.FinalURL)
	require.Len(t, result.RedirectChain, 2)
	assert.Equal(t, server.URL+"/start", result.RedirectChain[0].URL)
	assert.Equal(t, http.StatusMovedPermanently, result.RedirectChain[0].StatusCode)
	assert.Equal(t, server.URL+"/middle", result.RedirectChain[1].URL)
}

func TestFetcher_SameHostRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	// 500ms between requests to the same host
	f := NewFetcher(500, 5*time.Second, "ScoutBot/1.0", testLogger())

	start := time.Now()
	_, err := f.Fetch(context.Background(), server.URL, "ScoutBot/1.0")
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), server.URL, "ScoutBot/1.0")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 450*time.Millisecond)
}

func TestFetcher_DifferentHostsIndependent(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	serverA := httptest.NewServer(handler)
	defer serverA.Close()
	serverB := httptest.NewServer(handler)
	defer serverB.Close()

	f := NewFetcher(500, 5*time.Second, "ScoutBot/1.0", testLogger())

	start := time.Now()
	_, err := f.Fetch(context.Background(), serverA.URL, "ScoutBot/1.0")
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), serverB.URL, "ScoutBot/1.0")
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 400*time.Millisecond, "limiters are per-host")
}

func TestFetcher_ContextCancelled(t *testing.T) {
	f := NewFetcher(1000, 5*time.Second, "ScoutBot/1.0", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	// Consume the single burst token so the next fetch must wait
	require.NoError(t, f.limiter.Wait(ctx, "127.0.0.1"))
	cancel()

	_, err := f.Fetch(ctx, "http://127.0.0.1:1/none", "ScoutBot/1.0")
	assert.Error(t, err)
}
