package util

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"booklist/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestLoggingTransport_PreservesBody(t *testing.T) {
	logger.SetLevel("debug")
	defer logger.SetLevel("info")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	client := &http.Client{Transport: &LoggingTransport{}}
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, string(body))
}

func TestNewRateLimitTransport_DisabledReturnsBase(t *testing.T) {
	base := &LoggingTransport{}
	assert.Same(t, base, NewRateLimitTransport(base, 0))
	assert.IsType(t, &RateLimitTransport{}, NewRateLimitTransport(base, 2))
}

func TestRateLimitTransport_HonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	client := &http.Client{Transport: &RateLimitTransport{Limiter: limiter}}

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	assert.Error(t, err, "second request should be blocked by the limiter until the context expires")
}
