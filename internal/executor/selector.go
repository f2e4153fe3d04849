// File: internal/executor/selector.go
package executor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer-cli/internal/plan"
)

// resolveSelector produces the concrete selector for a step. An explicit
// selector on the step short-circuits resolution with full confidence;
// otherwise the step's element description is sent to the external resolver
// together with the session's current markup. Resolver errors are fatal to
// the step; there is no retry here.
func (e *Executor) resolveSelector(ctx context.Context, step *plan.Step, descriptionBias string) (*plan.SelectorInfo, error) {
	if step.Params.Selector != "" {
		step.Selector = step.Params.Selector
		return &plan.SelectorInfo{
			Selector:   step.Params.Selector,
			Kind:       plan.SelectorCSS,
			Confidence: 1.0,
		}, nil
	}
	if step.Selector != "" {
		// Already discovered by an earlier invocation on this step.
		return &plan.SelectorInfo{
			Selector:   step.Selector,
			Kind:       plan.SelectorCSS,
			Confidence: 1.0,
		}, nil
	}

	description := step.Params.Description
	if description == "" {
		description = descriptionBias
	}
	if description == "" {
		description = step.Description
	}
	if description == "" {
		return nil, fmt.Errorf("step %q has neither a selector nor an element description", step.Description)
	}

	html, err := e.documentHTML(ctx, step.SessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch markup for resolution: %w", err)
	}

	info, err := e.resolver.ResolveSelector(ctx, description, html)
	if err != nil {
		return nil, err
	}

	step.Selector = info.Selector
	e.logger.Debug("Selector resolved for step.",
		zap.String("description", description),
		zap.String("selector", info.Selector),
		zap.Float64("confidence", info.Confidence),
	)
	return info, nil
}

// handleFindSelector resolves a selector without acting on it, recording the
// full selector info as the step's result payload.
func (e *Executor) handleFindSelector(ctx context.Context, step *plan.Step) error {
	if err := requireSession(step); err != nil {
		return err
	}

	info, err := e.resolveSelector(ctx, step, "")
	if err != nil {
		return err
	}

	payload, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal selector info: %w", err)
	}
	step.Result = payload
	return nil
}
