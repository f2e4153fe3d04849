// File: internal/executor/keys.go
package executor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer-cli/internal/plan"
)

// handlePressEnter submits whatever currently holds focus in the step's page.
func (e *Executor) handlePressEnter(ctx context.Context, step *plan.Step) error {
	if err := requireSession(step); err != nil {
		return err
	}
	if err := e.pressEnter(ctx, step.SessionID); err != nil {
		return err
	}
	return e.awaitPageReady(ctx, step.SessionID)
}

// pressEnter drives the Enter key through both channels pages listen on: a
// raw key down/up pair at the input level, then a script-level synthetic
// keydown with an explicit form submit for pages that ignore key events.
// A protocol-level key dispatch failure falls back to inserting a literal
// newline before the script-level pass.
func (e *Executor) pressEnter(ctx context.Context, sessionID string) error {
	if err := e.dispatchEnterKey(ctx, sessionID); err != nil {
		e.logger.Debug("Raw key dispatch failed; inserting newline instead.", zap.Error(err))
		if _, nlErr := e.client.Send(ctx, "Input.insertText", map[string]any{"text": "\n"}, sessionID); nlErr != nil {
			return fmt.Errorf("press enter: %w", nlErr)
		}
	}

	// Best effort: the key events above may already have submitted; the
	// script guards against submitting twice.
	if err := e.submitFocusedForm(ctx, sessionID); err != nil {
		e.logger.Debug("Script-level submit not applicable.", zap.Error(err))
	}
	return nil
}

// dispatchEnterKey sends the rawKeyDown/keyUp pair with the full key
// identity most pages key their handlers on.
func (e *Executor) dispatchEnterKey(ctx context.Context, sessionID string) error {
	for _, eventType := range []string{"rawKeyDown", "keyUp"} {
		_, err := e.client.Send(ctx, "Input.dispatchKeyEvent", map[string]any{
			"type":                  eventType,
			"key":                   "Enter",
			"code":                  "Enter",
			"windowsVirtualKeyCode": 13,
			"nativeVirtualKeyCode":  13,
			"text":                  "\r",
			"unmodifiedText":        "\r",
		}, sessionID)
		if err != nil {
			return fmt.Errorf("dispatch %s: %w", eventType, err)
		}
	}
	return nil
}

// submitFocusedForm fires a synthetic Enter keydown at the focused element
// and, if a handler did not consume it, submits the element's form directly.
func (e *Executor) submitFocusedForm(ctx context.Context, sessionID string) error {
	script := `(function() {
		const el = document.activeElement;
		if (!el || el === document.body) return false;
		const event = new KeyboardEvent('keydown', {
			key: 'Enter', code: 'Enter', keyCode: 13, which: 13, bubbles: true, cancelable: true,
		});
		const handled = !el.dispatchEvent(event);
		if (!handled && el.form) {
			if (typeof el.form.requestSubmit === 'function') el.form.requestSubmit();
			else el.form.submit();
			return true;
		}
		return handled || !!el.form;
	})()`

	var submitted bool
	if err := e.evaluate(ctx, sessionID, script, &submitted); err != nil {
		return err
	}
	if !submitted {
		return fmt.Errorf("no focused form element")
	}
	return nil
}
