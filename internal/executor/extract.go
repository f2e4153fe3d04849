// File: internal/executor/extract.go
package executor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer-cli/internal/plan"
)

// handleExtract snapshots the page markup, hands it to the resolver with the
// step's instructions, and records the structured payload on the step.
// Durable persistence of the payload belongs to the caller, not here.
func (e *Executor) handleExtract(ctx context.Context, step *plan.Step) error {
	if err := requireSession(step); err != nil {
		return err
	}

	instructions := step.Params.Instructions
	if instructions == "" {
		instructions = step.Description
	}

	html, err := e.documentHTML(ctx, step.SessionID)
	if err != nil {
		return fmt.Errorf("fetch markup for extraction: %w", err)
	}

	payload, err := e.resolver.ExtractContent(ctx, instructions, html)
	if err != nil {
		return err
	}
	step.Result = payload
	e.logger.Debug("Extraction recorded on step.", zap.Int("payload_bytes", len(payload)))
	return nil
}
