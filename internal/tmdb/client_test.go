package tmdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/rotarr/internal/media"
)

func TestClient_ExternalIDs_Show(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/3/tv/1396/external_ids", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 1396, "imdb_id": "tt0903747", "tvdb_id": 81189})
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	ids, err := client.ExternalIDs(context.Background(), media.KindShow, 1396)
	require.NoError(t, err)
	assert.Equal(t, int64(81189), ids.TVDBID)
	assert.Equal(t, "tt0903747", ids.IMDBID)

	_, err = client.ExternalIDs(context.Background(), media.KindShow, 1396)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "second lookup should be served from cache")
}

func TestClient_ExternalIDs_MoviePath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/movie/949/external_ids", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":949,"imdb_id":"tt0113277"}`))
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL))
	ids, err := client.ExternalIDs(context.Background(), media.KindMovie, 949)
	require.NoError(t, err)
	assert.Equal(t, "tt0113277", ids.IMDBID)
	assert.Zero(t, ids.TVDBID)
}

func TestClient_ExternalIDs_NotFound(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL), WithRetries(2, time.Millisecond))
	_, err := client.ExternalIDs(context.Background(), media.KindMovie, 1)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), calls.Load(), "not found is not retried")
}

func TestClient_ExternalIDs_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient("bad", WithBaseURL(server.URL))
	_, err := client.ExternalIDs(context.Background(), media.KindShow, 1)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_ExternalIDs_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id":2,"tvdb_id":42}`))
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL), WithRetries(1, time.Millisecond))
	ids, err := client.ExternalIDs(context.Background(), media.KindShow, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(42), ids.TVDBID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_ExternalIDs_KindsCachedSeparately(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"id":5}`))
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL))
	_, err := client.ExternalIDs(context.Background(), media.KindMovie, 5)
	require.NoError(t, err)
	_, err = client.ExternalIDs(context.Background(), media.KindShow, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}
