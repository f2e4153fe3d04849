// File: internal/executor/click.go
package executor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer-cli/internal/plan"
)

// handleClick resolves the step's target and drives it through the click
// fallback chain.
func (e *Executor) handleClick(ctx context.Context, step *plan.Step) error {
	if err := requireSession(step); err != nil {
		return err
	}
	info, err := e.resolveSelector(ctx, step, "")
	if err != nil {
		return err
	}
	if err := e.clickSelector(ctx, step.SessionID, info.Selector); err != nil {
		return err
	}
	return e.settle(ctx)
}

// clickSelector prepares the element and tries each click mechanism in order:
// a direct DOM click, synthetic mouse events at the element's center, a click
// on the first interactive descendant, a retry after forcing visibility, and
// finally direct navigation for anchors that carry an href.
func (e *Executor) clickSelector(ctx context.Context, sessionID, selector string) error {
	state, err := e.prepareElement(ctx, sessionID, selector)
	if err != nil {
		return err
	}

	chain := []strategy{
		{name: "dom-click", run: func(ctx context.Context) error {
			return e.jsClick(ctx, sessionID, selector)
		}},
		{name: "mouse-events", run: func(ctx context.Context) error {
			return e.mouseClick(ctx, sessionID, state.X, state.Y)
		}},
		{name: "descendant-click", run: func(ctx context.Context) error {
			return e.clickInteractiveDescendant(ctx, sessionID, selector)
		}},
		{name: "force-visible-retry", run: func(ctx context.Context) error {
			if err := e.forceVisible(ctx, sessionID, selector); err != nil {
				return err
			}
			return e.jsClick(ctx, sessionID, selector)
		}},
		{name: "href-navigate", run: func(ctx context.Context) error {
			return e.navigateAnchorHref(ctx, sessionID, selector)
		}},
	}

	if err := e.runStrategyChain(ctx, ErrElementNotInteractable, chain); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

// jsClick invokes the element's own click() in page context.
func (e *Executor) jsClick(ctx context.Context, sessionID, selector string) error {
	script := fmt.Sprintf(`(function(sel) {
		const el = document.querySelector(sel);
		if (!el) return false;
		el.click();
		return true;
	})(%s)`, jsArg(selector))

	var clicked bool
	if err := e.evaluate(ctx, sessionID, script, &clicked); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return nil
}

// mouseClick dispatches a pressed/released pair of raw mouse events at the
// given viewport coordinates.
func (e *Executor) mouseClick(ctx context.Context, sessionID string, x, y float64) error {
	for _, eventType := range []string{"mousePressed", "mouseReleased"} {
		_, err := e.client.Send(ctx, "Input.dispatchMouseEvent", map[string]any{
			"type":       eventType,
			"x":          x,
			"y":          y,
			"button":     "left",
			"clickCount": 1,
		}, sessionID)
		if err != nil {
			return fmt.Errorf("dispatch %s: %w", eventType, err)
		}
	}
	return nil
}

// clickInteractiveDescendant handles wrapper elements whose clickable part is
// a nested anchor, button, or input.
func (e *Executor) clickInteractiveDescendant(ctx context.Context, sessionID, selector string) error {
	script := fmt.Sprintf(`(function(sel) {
		const el = document.querySelector(sel);
		if (!el) return false;
		const target = el.querySelector('a, button, input[type="submit"], input[type="button"], [role="button"], [onclick]');
		if (!target) return false;
		target.click();
		return true;
	})(%s)`, jsArg(selector))

	var clicked bool
	if err := e.evaluate(ctx, sessionID, script, &clicked); err != nil {
		return err
	}
	if !clicked {
		return errors.New("no interactive descendant")
	}
	return nil
}

// navigateAnchorHref is the last resort for anchors: read the resolved href
// and navigate the session there directly.
func (e *Executor) navigateAnchorHref(ctx context.Context, sessionID, selector string) error {
	script := fmt.Sprintf(`(function(sel) {
		const el = document.querySelector(sel);
		if (!el) return "";
		const anchor = el.closest('a') || el.querySelector('a');
		return anchor && anchor.href ? anchor.href : "";
	})(%s)`, jsArg(selector))

	var href string
	if err := e.evaluate(ctx, sessionID, script, &href); err != nil {
		return err
	}
	if href == "" {
		return errors.New("no href to follow")
	}

	e.logger.Debug("Following anchor href directly.", zap.String("href", href))
	if _, err := e.client.Send(ctx, "Page.navigate", map[string]any{"url": href}, sessionID); err != nil {
		return fmt.Errorf("navigate to href: %w", err)
	}
	return e.awaitPageReady(ctx, sessionID)
}
