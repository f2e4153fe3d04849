// File: internal/executor/navigate.go
package executor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer-cli/internal/plan"
)

// handleNavigate always opens a fresh tab: one navigate step, one new
// target+session pair. The new session id is recorded on the step and
// inherited by the steps that follow.
func (e *Executor) handleNavigate(ctx context.Context, step *plan.Step) error {
	if step.Params.URL == "" {
		return fmt.Errorf("navigate step %q has no url", step.Description)
	}

	session, err := e.sessions.Create(ctx)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	step.SessionID = session.ID

	res, err := e.client.Send(ctx, "Page.navigate", map[string]any{"url": step.Params.URL}, session.ID)
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", step.Params.URL, err)
	}
	var nav struct {
		ErrorText string `json:"errorText"`
	}
	if err := json.Unmarshal(res, &nav); err == nil && nav.ErrorText != "" {
		return fmt.Errorf("navigate to %s: %s", step.Params.URL, nav.ErrorText)
	}

	if err := e.awaitPageReady(ctx, session.ID); err != nil {
		return fmt.Errorf("await readiness of %s: %w", step.Params.URL, err)
	}

	e.logger.Debug("Navigation settled.",
		zap.String("url", step.Params.URL),
		zap.String("session_id", session.ID),
	)
	return nil
}

// awaitPageReady is the single readiness primitive: a fixed settle delay, a
// polled in-page document-ready check, then a second settle delay for late
// script initialization. A heuristic approximation of readiness, not a hard
// guarantee; replacing it with lifecycle-event subscriptions would not touch
// any handler.
func (e *Executor) awaitPageReady(ctx context.Context, sessionID string) error {
	if err := e.settle(ctx); err != nil {
		return err
	}

	const readyExpr = `document.readyState === 'complete' || document.readyState === 'interactive'`
	for attempt := 1; attempt <= e.cfg.ReadyPollAttempts; attempt++ {
		var ready bool
		if err := e.evaluate(ctx, sessionID, readyExpr, &ready); err != nil {
			// The page may be mid-navigation; poll again rather than fail.
			e.logger.Debug("Readiness poll errored.", zap.Int("attempt", attempt), zap.Error(err))
		} else if ready {
			break
		}
		if attempt == e.cfg.ReadyPollAttempts {
			e.logger.Warn("Document never reported ready; continuing anyway.",
				zap.String("session_id", sessionID),
				zap.Int("attempts", e.cfg.ReadyPollAttempts),
			)
			break
		}
		if err := sleepCtx(ctx, e.cfg.ReadyPollInterval); err != nil {
			return err
		}
	}

	return e.settle(ctx)
}

// settle pauses for the configured fixed delay.
func (e *Executor) settle(ctx context.Context) error {
	return sleepCtx(ctx, e.cfg.SettleDelay)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
