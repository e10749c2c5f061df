package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beatlink/backend/internal/model"
)

const trackBody = `{
	"album": {
		"label": "Big Label Records",
		"release_date": "2019-08-23",
		"images": [
			{"url": "https://i.scdn.co/image/large", "height": 640},
			{"url": "https://i.scdn.co/image/medium", "height": 300},
			{"url": "https://i.scdn.co/image/small", "height": 64}
		]
	}
}`

type testEnv struct {
	client     *Client
	tokenCalls *atomic.Int32
	trackCalls *atomic.Int32
}

func newTestEnv(t *testing.T, trackHandler http.HandlerFunc) *testEnv {
	t.Helper()

	env := &testEnv{tokenCalls: &atomic.Int32{}, trackCalls: &atomic.Int32{}}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		env.tokenCalls.Add(1)
		require.Equal(t, http.MethodPost, r.Method)
		require.NotEmpty(t, r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		require.Equal(t, "client_credentials", r.FormValue("grant_type"))
		fmt.Fprint(w, `{"access_token": "test-token", "expires_in": 3600}`)
	})
	mux.HandleFunc("/v1/tracks/", func(w http.ResponseWriter, r *http.Request) {
		env.trackCalls.Add(1)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		trackHandler(w, r)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	env.client = NewClient("client-id", "client-secret",
		WithAccountsURL(server.URL),
		WithAPIURL(server.URL),
	)
	return env
}

func testHit() model.IdentificationHit {
	return model.IdentificationHit{
		Title:     "Big Hit",
		Artists:   "Famous Artist",
		SpotifyID: "sp-track-1",
		Score:     92.5,
	}
}

func TestLookupEnrichesTrack(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/tracks/sp-track-1", r.URL.Path)
		assert.Equal(t, "from_token", r.URL.Query().Get("market"))
		fmt.Fprint(w, trackBody)
	})

	track, err := env.client.Lookup(context.Background(), testHit())
	require.NoError(t, err)

	assert.Equal(t, "Big Hit", track.Title)
	assert.Equal(t, "Famous Artist", track.Artists)
	assert.Equal(t, 92.5, track.Score)
	assert.Equal(t, "https://open.spotify.com/track/sp-track-1", track.SpotifyURL)
	assert.Equal(t, "Big Label Records", track.Label)
	assert.Equal(t, "2019-08-23", track.ReleaseDate)
	// 300px cover preferred over the 640px one.
	assert.Equal(t, "https://i.scdn.co/image/medium", track.CoverURL)
}

func TestLookupAcceptsSpotifyURI(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/tracks/sp-track-1", r.URL.Path)
		fmt.Fprint(w, trackBody)
	})

	hit := testHit()
	hit.SpotifyID = "spotify:track:sp-track-1"

	track, err := env.client.Lookup(context.Background(), hit)
	require.NoError(t, err)
	assert.Equal(t, "https://open.spotify.com/track/sp-track-1", track.SpotifyURL)
}

func TestLookupWithoutTrackIDSkipsEnrichment(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no catalog call expected for a hit without a track ID")
	})

	hit := testHit()
	hit.SpotifyID = ""

	track, err := env.client.Lookup(context.Background(), hit)
	require.NoError(t, err)

	assert.Equal(t, "Big Hit", track.Title)
	assert.Empty(t, track.SpotifyURL)
	assert.Empty(t, track.CoverURL)
	assert.Equal(t, int32(0), env.tokenCalls.Load())
	assert.Equal(t, int32(0), env.trackCalls.Load())
}

func TestLookupFailingTrackCallReturnsError(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not available in market", http.StatusForbidden)
	})

	_, err := env.client.Lookup(context.Background(), testHit())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestTokenIsCachedAcrossLookups(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, trackBody)
	})

	for i := 0; i < 3; i++ {
		_, err := env.client.Lookup(context.Background(), testHit())
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), env.tokenCalls.Load())
	assert.Equal(t, int32(3), env.trackCalls.Load())
}

func TestTokenRefreshesAfterExpiry(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, trackBody)
	})

	now := time.Now()
	env.client.now = func() time.Time { return now }

	_, err := env.client.Lookup(context.Background(), testHit())
	require.NoError(t, err)
	require.Equal(t, int32(1), env.tokenCalls.Load())

	// Jump past the token lifetime; the next lookup must re-authenticate.
	now = now.Add(2 * time.Hour)

	_, err = env.client.Lookup(context.Background(), testHit())
	require.NoError(t, err)
	assert.Equal(t, int32(2), env.tokenCalls.Load())
}
