// File: internal/executor/errors.go
package executor

import "errors"

var (
	// ErrMissingSession means a handler that requires an attached session was
	// invoked without one. Session creation belongs to the navigate and
	// search handlers only, so this is a contract violation, not a recoverable
	// condition.
	ErrMissingSession = errors.New("step has no session; navigate or search must run first")

	// ErrElementNotFound means no element matched the selector at all.
	ErrElementNotFound = errors.New("element not found")

	// ErrElementNotInteractable means the element exists but every interaction
	// mechanism in the fallback chain failed.
	ErrElementNotInteractable = errors.New("element not interactable")

	// ErrUnknownAction means the step's action kind is outside the closed enum.
	ErrUnknownAction = errors.New("unknown action")
)
