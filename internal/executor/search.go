// File: internal/executor/search.go
package executor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer-cli/internal/plan"
)

// handleSearch is a composite: locate the page's search box, type the query,
// submit. It reuses the inherited session when one exists so a search after a
// navigate runs against the page just opened; only a search with no session
// at all creates one.
func (e *Executor) handleSearch(ctx context.Context, step *plan.Step) error {
	if step.Params.Text == "" {
		return fmt.Errorf("search step %q has no query text", step.Description)
	}

	if step.SessionID == "" {
		session, err := e.sessions.Create(ctx)
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		step.SessionID = session.ID
	}

	info, err := e.resolveSelector(ctx, step, "the main search input box")
	if err != nil {
		return err
	}

	if err := e.typeIntoSelector(ctx, step.SessionID, info.Selector, step.Params.Text); err != nil {
		return err
	}

	// Prefer the resolver-supplied submit control; fall back to Enter in the
	// focused field.
	if info.SubmitSelector != "" {
		e.logger.Debug("Submitting search via submit control.",
			zap.String("submit_selector", info.SubmitSelector))
		if err := e.clickSelector(ctx, step.SessionID, info.SubmitSelector); err != nil {
			e.logger.Debug("Submit control click failed; falling back to Enter.", zap.Error(err))
			if err := e.pressEnter(ctx, step.SessionID); err != nil {
				return err
			}
		}
	} else {
		if err := e.pressEnter(ctx, step.SessionID); err != nil {
			return err
		}
	}

	return e.awaitPageReady(ctx, step.SessionID)
}
