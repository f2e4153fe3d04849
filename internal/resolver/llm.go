// File: internal/resolver/llm.go
package resolver

import (
	"context"
	encodingjson "encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer-cli/internal/llmclient"
	"github.com/xkilldash9x/wayfarer-cli/internal/llmutil"
	"github.com/xkilldash9x/wayfarer-cli/internal/plan"
)

const selectorPromptTemplate = `You are an expert at locating elements in HTML documents.
Given the page markup below, find the single element best matching this description:

  %s

Respond with ONLY a JSON object of this exact shape:
{"selector": "<CSS selector>", "confidence": <0.0-1.0>, "explanation": "<one sentence>", "submitSelector": "<CSS selector of the associated submit control, or omit>"}

Rules:
- The selector must be a structural CSS query (ids, attributes, classes, nth-child). Never invent attributes that are not in the markup.
- Prefer stable attributes (id, name, aria-label, data-*) over positional selectors.
- Set submitSelector only when the described element belongs to a form with an obvious submit control.

PAGE MARKUP:
%s`

const extractionPromptTemplate = `You are an expert at extracting structured data from HTML documents.
Apply this instruction to the page markup below:

  %s

Respond with ONLY a JSON object or array containing the extracted data.
Use descriptive keys. If nothing matches, respond with {"matches": []}.

PAGE MARKUP:
%s`

// LLMResolver implements Resolver on top of a language model client.
type LLMResolver struct {
	client      llmclient.Client
	logger      *zap.Logger
	maxDocBytes int
}

var _ Resolver = (*LLMResolver)(nil)

// NewLLMResolver creates the model-backed resolver. maxDocBytes caps how much
// page markup is shipped per request; zero means no cap.
func NewLLMResolver(client llmclient.Client, maxDocBytes int, logger *zap.Logger) *LLMResolver {
	return &LLMResolver{
		client:      client,
		logger:      logger.Named("resolver"),
		maxDocBytes: maxDocBytes,
	}
}

// ResolveSelector asks the model for a selector matching the description.
func (r *LLMResolver) ResolveSelector(ctx context.Context, description, html string) (*plan.SelectorInfo, error) {
	if strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("%w: empty element description", ErrResolverFailure)
	}

	prompt := fmt.Sprintf(selectorPromptTemplate, description, r.truncateDocument(html))
	response, err := r.client.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolverFailure, err)
	}

	info, err := llmutil.ParseJSONResponse[plan.SelectorInfo](response)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolverFailure, err)
	}
	if info.Kind == "" {
		info.Kind = plan.SelectorCSS
	}
	if err := info.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolverFailure, err)
	}

	r.logger.Debug("Selector resolved.",
		zap.String("description", description),
		zap.String("selector", info.Selector),
		zap.Float64("confidence", info.Confidence),
	)
	return info, nil
}

// ExtractContent asks the model to pull structured data out of the markup.
func (r *LLMResolver) ExtractContent(ctx context.Context, instructions, html string) (encodingjson.RawMessage, error) {
	if strings.TrimSpace(instructions) == "" {
		return nil, fmt.Errorf("%w: empty extraction instructions", ErrResolverFailure)
	}

	prompt := fmt.Sprintf(extractionPromptTemplate, instructions, r.truncateDocument(html))
	response, err := r.client.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolverFailure, err)
	}

	payload, err := llmutil.ParseJSONResponse[encodingjson.RawMessage](response)
	if err != nil {
		// The model answered in prose; keep the text rather than failing the step.
		r.logger.Debug("Extraction response was not JSON; wrapping as text.", zap.Error(err))
		wrapped, merr := encodingjson.Marshal(map[string]string{"text": strings.TrimSpace(response)})
		if merr != nil {
			return nil, fmt.Errorf("%w: %v", ErrResolverFailure, merr)
		}
		return wrapped, nil
	}
	return *payload, nil
}

// truncateDocument caps markup size before it is embedded in a prompt.
func (r *LLMResolver) truncateDocument(html string) string {
	if r.maxDocBytes <= 0 || len(html) <= r.maxDocBytes {
		return html
	}
	return html[:r.maxDocBytes] + "\n<!-- truncated -->"
}
