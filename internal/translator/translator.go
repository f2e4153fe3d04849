// File: internal/translator/translator.go
// Turns a natural-language command into an executable automation plan.
package translator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer-cli/internal/llmclient"
	"github.com/xkilldash9x/wayfarer-cli/internal/llmutil"
	"github.com/xkilldash9x/wayfarer-cli/internal/plan"
)

const planPromptTemplate = `You are a browser automation planner. Convert the user's command into an
ordered plan of automation steps.

Available actions and their params:
- navigate: {"url": "..."} opens a new tab at the URL.
- search:   {"text": "...", "description": "optional description of the search box", "selector": "optional CSS selector"} types into a search box and submits.
- click:    {"description": "which element", "selector": "optional CSS selector"}
- type:     {"text": "...", "description": "which field", "selector": "optional CSS selector"}
- extract:  {"instructions": "what to extract"}
- scroll:   {"direction": "up|down|left|right|top|bottom", "amount": <pixels>}
- wait:     {"duration": <milliseconds>}
- pressEnter: {}
- findSelector: {"description": "which element"} resolves a selector without acting on it.

Respond with ONLY a JSON object of this exact shape:
{"task": "<short task summary>", "steps": [{"action": "<action>", "description": "<human-readable step description>", "params": {...}}]}

Rules:
- The first step that needs a page must be a navigate (or a search when the command implies the current page).
- Keep the plan minimal; do not add steps the command does not require.
- Every step needs a description.

USER COMMAND:
%s`

// Translator converts commands into plans via a language model.
type Translator struct {
	client llmclient.Client
	logger *zap.Logger
}

// New creates a Translator.
func New(client llmclient.Client, logger *zap.Logger) *Translator {
	return &Translator{
		client: client,
		logger: logger.Named("translator"),
	}
}

// Translate produces a validated plan for the given command.
func (t *Translator) Translate(ctx context.Context, command string) (*plan.Plan, error) {
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("empty command")
	}

	response, err := t.client.Generate(ctx, fmt.Sprintf(planPromptTemplate, command))
	if err != nil {
		return nil, fmt.Errorf("translate command: %w", err)
	}

	p, err := llmutil.ParseJSONResponse[plan.Plan](response)
	if err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if p.Task == "" {
		p.Task = command
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("translated plan is invalid: %w", err)
	}

	t.logger.Info("Command translated to plan.",
		zap.String("task", p.Task),
		zap.Int("steps", len(p.Steps)),
	)
	return p, nil
}
