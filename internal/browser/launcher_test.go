package browser

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
	"go.uber.org/zap"
)

func versionHandler(calls *atomic.Int32, readyAfter int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/version" {
			http.NotFound(w, r)
			return
		}
		n := calls.Add(1)
		if n < readyAfter {
			http.Error(w, "starting up", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, `{"Browser":"Chrome/140.0","webSocketDebuggerUrl":"ws://127.0.0.1:1/devtools/browser/abc"}`)
	}
}

func TestDiscoverEndpointSucceedsOnLatePoll(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(versionHandler(&calls, 10))
	defer server.Close()

	info, err := discoverEndpoint(context.Background(), server.URL, 30, time.Millisecond, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "Chrome/140.0", info.Browser)
	assert.Equal(t, "ws://127.0.0.1:1/devtools/browser/abc", info.WebSocketDebuggerURL)
	assert.Equal(t, int32(10), calls.Load())
}

func TestDiscoverEndpointExhaustsBudget(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "never ready", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := discoverEndpoint(context.Background(), server.URL, 30, time.Millisecond, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLaunchTimeout)
	assert.Equal(t, int32(30), calls.Load(), "must poll exactly the configured number of attempts")
}

func TestDiscoverEndpointRejectsIncompleteMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Browser":"Chrome/140.0"}`)
	}))
	defer server.Close()

	_, err := discoverEndpoint(context.Background(), server.URL, 3, time.Millisecond, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLaunchTimeout)
}

func TestDiscoverEndpointHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := discoverEndpoint(ctx, server.URL, 30, 100*time.Millisecond, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveBinaryRejectsMissingConfiguredPath(t *testing.T) {
	_, err := resolveBinary("/nonexistent/browser-binary")
	assert.Error(t, err)
}

func TestLaunchArgs(t *testing.T) {
	cfg := configWithDefaults(t)
	cfg.Headless = true
	cfg.Args = []string{"--lang=en-US"}

	args := launchArgs(cfg, 9222)
	assert.Contains(t, args, "--remote-debugging-port=9222")
	assert.Contains(t, args, "--headless=new")
	assert.Contains(t, args, "--lang=en-US")

	cfg.Headless = false
	args = launchArgs(cfg, 9222)
	assert.NotContains(t, args, "--headless=new")
}

func TestFreePort(t *testing.T) {
	port, err := freePort()
	require.NoError(t, err)
	assert.Greater(t, port, 0)
}
