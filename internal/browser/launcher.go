// File: internal/browser/launcher.go
package browser

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/exec"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer-cli/internal/config"
)

// versionInfo is the payload of the launch discovery endpoint
// (GET /json/version on the debugging port).
type versionInfo struct {
	Browser              string `json:"Browser"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// defaultBinaries are tried in order when no binary path is configured.
var defaultBinaries = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
}

// Open launches the configured browser binary with remote debugging enabled
// on a free local port, waits for the debugging endpoint to answer, and opens
// the duplex protocol channel. The returned Connection owns the process.
func Open(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Connection, error) {
	log := logger.Named("launcher")

	binary, err := resolveBinary(cfg.BinaryPath)
	if err != nil {
		return nil, err
	}

	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("pick debugging port: %w", err)
	}

	args := launchArgs(cfg, port)
	cmd := exec.Command(binary, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start browser %s: %w", binary, err)
	}
	log.Info("Browser process started.",
		zap.String("binary", binary),
		zap.Int("pid", cmd.Process.Pid),
		zap.Int("debug_port", port),
	)

	endpoint := fmt.Sprintf("http://127.0.0.1:%d", port)
	version, err := discoverEndpoint(ctx, endpoint, cfg.LaunchAttempts, cfg.LaunchRetryInterval, log)
	if err != nil {
		_ = cmd.Process.Kill()
		go func() { _ = cmd.Wait() }()
		return nil, err
	}
	log.Info("Debugging endpoint discovered.",
		zap.String("browser", version.Browser),
		zap.String("ws_url", version.WebSocketDebuggerURL),
	)

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, version.WebSocketDebuggerURL, nil)
	if err != nil {
		_ = cmd.Process.Kill()
		go func() { _ = cmd.Wait() }()
		return nil, fmt.Errorf("dial debugging channel %s: %w", version.WebSocketDebuggerURL, err)
	}

	return newConnection(ws, cmd, cfg.CommandTimeout, logger), nil
}

// Attach opens the protocol channel of an already running browser whose
// debugging endpoint is reachable at baseURL (e.g. "http://127.0.0.1:9222").
// The returned Connection does not own the browser process.
func Attach(ctx context.Context, baseURL string, cfg config.BrowserConfig, logger *zap.Logger) (*Connection, error) {
	log := logger.Named("launcher")

	version, err := discoverEndpoint(ctx, baseURL, cfg.LaunchAttempts, cfg.LaunchRetryInterval, log)
	if err != nil {
		return nil, err
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, version.WebSocketDebuggerURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial debugging channel %s: %w", version.WebSocketDebuggerURL, err)
	}
	return newConnection(ws, nil, cfg.CommandTimeout, logger), nil
}

// discoverEndpoint polls GET {baseURL}/json/version until it returns parseable
// version metadata, bounded by attempts x interval. A budget exhaustion maps
// to ErrLaunchTimeout.
func discoverEndpoint(ctx context.Context, baseURL string, attempts int, interval time.Duration, log *zap.Logger) (*versionInfo, error) {
	client := &http.Client{Timeout: interval * 2}
	url := baseURL + "/json/version"

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if info, err := fetchVersion(ctx, client, url); err == nil {
			log.Debug("Version endpoint answered.", zap.Int("attempt", attempt))
			return info, nil
		} else {
			lastErr = err
			log.Debug("Version endpoint not ready.", zap.Int("attempt", attempt), zap.Error(err))
		}

		if attempt == attempts {
			break
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return nil, fmt.Errorf("launch discovery: %w", ctx.Err())
		}
	}
	return nil, fmt.Errorf("%w: %d attempts at %s (last error: %v)", ErrLaunchTimeout, attempts, interval, lastErr)
}

func fetchVersion(ctx context.Context, client *http.Client, url string) (*versionInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var info versionInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("parse version metadata: %w", err)
	}
	if info.WebSocketDebuggerURL == "" {
		return nil, fmt.Errorf("version metadata missing webSocketDebuggerUrl")
	}
	return &info, nil
}

// resolveBinary picks the browser executable: the configured path if set,
// otherwise the first well-known candidate on PATH.
func resolveBinary(configured string) (string, error) {
	if configured != "" {
		if _, err := exec.LookPath(configured); err != nil {
			return "", fmt.Errorf("configured browser binary %q: %w", configured, err)
		}
		return configured, nil
	}
	for _, candidate := range defaultBinaries {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no browser binary found; set browser.binary_path")
}

// launchArgs assembles the command line: remote debugging plus the stability
// flags needed in containers, then any user-provided arguments.
func launchArgs(cfg config.BrowserConfig, port int) []string {
	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", port),
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-gpu",
		"--no-sandbox",
		"--disable-dev-shm-usage",
	}
	if cfg.Headless {
		args = append(args, "--headless=new")
	}
	args = append(args, cfg.Args...)
	args = append(args, "about:blank")
	return args
}

// freePort asks the kernel for an unused local TCP port.
func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
