// File: internal/executor/element.go
// Element inspection and visibility affordances shared by the interaction
// handlers: scroll into view, settle, then verify geometry before acting.
package executor

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// elementState is the in-page snapshot of one element's interactability.
type elementState struct {
	Found    bool    `json:"found"`
	X        float64 `json:"x"` // center, viewport coordinates
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Visible  bool    `json:"visible"`
	Obscured bool    `json:"obscured"`
}

// inspectElement reports the element's bounding box, whether its computed
// style makes it visible, and whether another element fully covers its center.
func (e *Executor) inspectElement(ctx context.Context, sessionID, selector string) (*elementState, error) {
	script := fmt.Sprintf(`(function(sel) {
		const el = document.querySelector(sel);
		if (!el) return { found: false };
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		const visible = rect.width > 0 && rect.height > 0 &&
			style.display !== 'none' && style.visibility !== 'hidden' && style.opacity !== '0';
		const cx = rect.left + rect.width / 2;
		const cy = rect.top + rect.height / 2;
		let obscured = false;
		if (visible && cx >= 0 && cy >= 0 && cx <= window.innerWidth && cy <= window.innerHeight) {
			const top = document.elementFromPoint(cx, cy);
			obscured = !!top && top !== el && !el.contains(top) && !top.contains(el);
		}
		return { found: true, x: cx, y: cy, width: rect.width, height: rect.height, visible: visible, obscured: obscured };
	})(%s)`, jsArg(selector))

	var state elementState
	if err := e.evaluate(ctx, sessionID, script, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// prepareElement scrolls the element into view, waits a short settle period,
// and verifies it exists with a non-zero bounding box. An obscured or
// invisible element is not an error here: the fallback chain decides how to
// deal with it.
func (e *Executor) prepareElement(ctx context.Context, sessionID, selector string) (*elementState, error) {
	scroll := fmt.Sprintf(`(function(sel) {
		const el = document.querySelector(sel);
		if (!el) return false;
		el.scrollIntoView({ block: 'center', inline: 'center' });
		return true;
	})(%s)`, jsArg(selector))

	var present bool
	if err := e.evaluate(ctx, sessionID, scroll, &present); err != nil {
		return nil, fmt.Errorf("scroll into view: %w", err)
	}
	if !present {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}

	if err := e.settle(ctx); err != nil {
		return nil, err
	}

	state, err := e.inspectElement(ctx, sessionID, selector)
	if err != nil {
		return nil, err
	}
	if !state.Found {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	if state.Width == 0 || state.Height == 0 {
		e.logger.Debug("Element has a zero-sized bounding box.",
			zap.String("selector", selector))
	}
	if state.Obscured {
		e.logger.Debug("Element center is covered by another element.",
			zap.String("selector", selector))
	}
	return state, nil
}

// forceVisible overrides the styles that most commonly hide an element so a
// retry can reach it.
func (e *Executor) forceVisible(ctx context.Context, sessionID, selector string) error {
	script := fmt.Sprintf(`(function(sel) {
		const el = document.querySelector(sel);
		if (!el) return false;
		el.style.display = 'block';
		el.style.visibility = 'visible';
		el.style.opacity = '1';
		el.style.pointerEvents = 'auto';
		return true;
	})(%s)`, jsArg(selector))

	var ok bool
	if err := e.evaluate(ctx, sessionID, script, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return nil
}
