// File: internal/browser/errors.go
package browser

import "errors"

var (
	// ErrLaunchTimeout means the browser process never opened its remote
	// debugging endpoint within the configured polling budget.
	ErrLaunchTimeout = errors.New("browser debugging endpoint did not come up in time")

	// ErrConnectionClosed means the debugging channel died while commands
	// were still outstanding. Every pending caller receives it exactly once.
	ErrConnectionClosed = errors.New("debugging connection closed")

	// ErrCommandTimeout means a single protocol command did not receive a
	// reply within the per-command deadline. The connection itself stays usable.
	ErrCommandTimeout = errors.New("protocol command timed out")
)
