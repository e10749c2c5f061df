package apify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beatlink/backend/internal/scan"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		ActorID:      "tester~audio-actor",
		Token:        "test-token",
		Timeout:      2 * time.Second,
		PollInterval: 10 * time.Millisecond,
	}
}

func TestExtractHappyPath(t *testing.T) {
	var polls atomic.Int32
	var submittedInput runInput

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/v2/acts/tester~audio-actor/runs", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "test-token", r.URL.Query().Get("token"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&submittedInput))

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"data": {"id": "run1", "status": "READY", "defaultDatasetId": "ds1"}}`)
	})
	mux.HandleFunc("/v2/actor-runs/run1", func(w http.ResponseWriter, r *http.Request) {
		status := "RUNNING"
		if polls.Add(1) >= 2 {
			status = "SUCCEEDED"
		}
		fmt.Fprintf(w, `{"data": {"id": "run1", "status": %q, "defaultDatasetId": "ds1"}}`, status)
	})
	mux.HandleFunc("/v2/datasets/ds1/items", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"title": "some video", "downloadUrl": "%s/artifacts/run1.mp3"}]`, server.URL)
	})
	mux.HandleFunc("/artifacts/run1.mp3", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ID3-fake-mp3-bytes"))
	})

	client := NewClient(testConfig(server.URL))

	artifact, err := client.Extract(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)

	assert.Equal(t, "dQw4w9WgXcQ", artifact.VideoID)
	assert.Equal(t, []byte("ID3-fake-mp3-bytes"), artifact.Data)
	assert.True(t, strings.HasSuffix(artifact.SourceURL, "/artifacts/run1.mp3"))

	// The job input carries the extraction policy.
	assert.Equal(t, "mp3", submittedInput.Format)
	assert.Equal(t, 128, submittedInput.Bitrate)
	assert.Equal(t, 30, submittedInput.MaxDuration)
	require.Len(t, submittedInput.URLs, 1)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", submittedInput.URLs[0].URL)

	assert.GreaterOrEqual(t, polls.Load(), int32(2))
}

func TestExtractTimesOutWhileRunning(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/v2/acts/tester~audio-actor/runs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"data": {"id": "run1", "status": "READY", "defaultDatasetId": "ds1"}}`)
	})
	mux.HandleFunc("/v2/actor-runs/run1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"id": "run1", "status": "RUNNING", "defaultDatasetId": "ds1"}}`)
	})

	cfg := testConfig(server.URL)
	cfg.Timeout = 60 * time.Millisecond
	client := NewClient(cfg)

	_, err := client.Extract(context.Background(), "dQw4w9WgXcQ")
	require.Error(t, err)

	var scanErr *scan.Error
	require.ErrorAs(t, err, &scanErr)
	assert.Equal(t, scan.CodeExtractionFailed, scanErr.Code)
	assert.Contains(t, scanErr.Message, "deadline")
}

func TestExtractFailedRun(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/v2/acts/tester~audio-actor/runs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"data": {"id": "run1", "status": "READY", "defaultDatasetId": "ds1"}}`)
	})
	mux.HandleFunc("/v2/actor-runs/run1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"id": "run1", "status": "FAILED", "defaultDatasetId": "ds1"}}`)
	})

	client := NewClient(testConfig(server.URL))

	_, err := client.Extract(context.Background(), "dQw4w9WgXcQ")
	require.Error(t, err)

	var scanErr *scan.Error
	require.ErrorAs(t, err, &scanErr)
	assert.Equal(t, scan.CodeExtractionFailed, scanErr.Code)
	assert.Contains(t, scanErr.Message, "FAILED")
}

func TestExtractSubmissionRejected(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/v2/acts/tester~audio-actor/runs", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	})

	client := NewClient(testConfig(server.URL))

	_, err := client.Extract(context.Background(), "dQw4w9WgXcQ")
	require.Error(t, err)

	var scanErr *scan.Error
	require.ErrorAs(t, err, &scanErr)
	assert.Equal(t, scan.CodeExtractionFailed, scanErr.Code)
}

func TestExtractNoDownloadURLInDataset(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/v2/acts/tester~audio-actor/runs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"data": {"id": "run1", "status": "SUCCEEDED", "defaultDatasetId": "ds1"}}`)
	})
	mux.HandleFunc("/v2/datasets/ds1/items", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"title": "some video", "duration": 42}]`)
	})

	client := NewClient(testConfig(server.URL))

	_, err := client.Extract(context.Background(), "dQw4w9WgXcQ")
	require.Error(t, err)

	var scanErr *scan.Error
	require.ErrorAs(t, err, &scanErr)
	assert.Equal(t, scan.CodeExtractionFailed, scanErr.Code)
	assert.Contains(t, scanErr.Message, "no download URL")
}

func TestExtractAlternateURLField(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/v2/acts/tester~audio-actor/runs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"data": {"id": "run1", "status": "SUCCEEDED", "defaultDatasetId": "ds1"}}`)
	})
	mux.HandleFunc("/v2/datasets/ds1/items", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"mp3Url": "%s/artifacts/alt.mp3"}]`, server.URL)
	})
	mux.HandleFunc("/artifacts/alt.mp3", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mp3"))
	})

	client := NewClient(testConfig(server.URL))

	artifact, err := client.Extract(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3"), artifact.Data)
}
