// File: internal/resolver/resolver.go
// The element resolution bridge: the contract between action handlers and the
// model that turns natural-language descriptions into selectors or extracted
// content.
package resolver

import (
	"context"
	encodingjson "encoding/json"
	"errors"

	"github.com/xkilldash9x/wayfarer-cli/internal/plan"
)

// ErrResolverFailure means the external resolver returned no usable result.
// Handlers do not retry on it; it is fatal to the step.
var ErrResolverFailure = errors.New("resolver returned no usable result")

// Resolver turns natural-language descriptions into concrete selectors and
// free-text instructions into extracted payloads, given the page's markup.
type Resolver interface {
	// ResolveSelector returns selector info for the element matching the
	// description within the given document markup.
	ResolveSelector(ctx context.Context, description, html string) (*plan.SelectorInfo, error)

	// ExtractContent applies a free-text extraction instruction to the
	// document markup and returns a structured JSON payload.
	ExtractContent(ctx context.Context, instructions, html string) (encodingjson.RawMessage, error)
}
