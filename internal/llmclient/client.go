// File: internal/llmclient/client.go
package llmclient

import "context"

// Client is the minimal surface the resolver and translator need from a
// language model: one prompt in, one text completion out.
type Client interface {
	// Generate sends a single prompt and returns the raw model output.
	Generate(ctx context.Context, prompt string) (string, error)
}
