package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Probe(t *testing.T) {
	var heads atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method)
		heads.Add(1)
		w.Header().Set("Content-Length", strconv.Itoa(4096))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), nil)
	ctx := context.Background()

	size, err := c.Probe(ctx, srv.URL+"/file.pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(4096), size)

	// Second probe of the same URL is served from the memo
	size, err = c.Probe(ctx, srv.URL+"/file.pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(4096), size)
	assert.Equal(t, int64(1), heads.Load())

	// A different URL probes again
	_, err = c.Probe(ctx, srv.URL+"/other.pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(2), heads.Load())
}

func TestClient_Probe_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), nil)
	_, err := c.Probe(context.Background(), srv.URL+"/missing.pdf")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestClient_StreamGet(t *testing.T) {
	body := []byte("lecture recording bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))
		w.Write(body) // nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), map[string]string{"Authorization": "Bearer sekrit"})

	rc, err := c.StreamGet(context.Background(), srv.URL+"/video.mp4")
	require.NoError(t, err)
	defer rc.Close() // nolint:errcheck

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestClient_StreamGet_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), nil)
	_, err := c.StreamGet(context.Background(), srv.URL+"/video.mp4")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestNewClient_NilHTTPClient(t *testing.T) {
	c := NewClient(nil, nil)
	require.NotNil(t, c.http)
	assert.Equal(t, DefaultTimeout, c.http.Timeout)
}
