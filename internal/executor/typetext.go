// File: internal/executor/typetext.go
package executor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer-cli/internal/plan"
)

// handleType resolves the step's input field and types the step's text into
// it. Re-running the step overwrites rather than appends: every mechanism
// clears the field first.
func (e *Executor) handleType(ctx context.Context, step *plan.Step) error {
	if err := requireSession(step); err != nil {
		return err
	}
	if step.Params.Text == "" {
		return fmt.Errorf("type step %q has no text", step.Description)
	}
	info, err := e.resolveSelector(ctx, step, "")
	if err != nil {
		return err
	}
	return e.typeIntoSelector(ctx, step.SessionID, info.Selector, step.Params.Text)
}

// typeIntoSelector writes text into the field behind selector. The primary
// mechanism focuses the cleared field and inserts the text through the input
// domain so page-side key listeners fire; the fallback mutates the value
// directly and synthesizes the input and change events frameworks listen for.
func (e *Executor) typeIntoSelector(ctx context.Context, sessionID, selector, text string) error {
	if _, err := e.prepareElement(ctx, sessionID, selector); err != nil {
		return err
	}

	chain := []strategy{
		{name: "insert-text", run: func(ctx context.Context) error {
			if err := e.focusAndClear(ctx, sessionID, selector); err != nil {
				return err
			}
			_, err := e.client.Send(ctx, "Input.insertText", map[string]any{"text": text}, sessionID)
			return err
		}},
		{name: "value-mutation", run: func(ctx context.Context) error {
			return e.setValueWithEvents(ctx, sessionID, selector, text)
		}},
	}
	if err := e.runStrategyChain(ctx, ErrElementNotInteractable, chain); err != nil {
		return fmt.Errorf("type into %s: %w", selector, err)
	}

	e.verifyFieldValue(ctx, sessionID, selector, text)
	return nil
}

// focusAndClear focuses the field and empties any existing value.
func (e *Executor) focusAndClear(ctx context.Context, sessionID, selector string) error {
	script := fmt.Sprintf(`(function(sel) {
		const el = document.querySelector(sel);
		if (!el) return false;
		el.focus();
		if ('value' in el) el.value = '';
		else if (el.isContentEditable) el.textContent = '';
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

// setValueWithEvents assigns the value in page context and fires the events
// that reactive frameworks bind their models to.
func (e *Executor) setValueWithEvents(ctx context.Context, sessionID, selector, text string) error {
	script := fmt.Sprintf(`(function(sel, value) {
		const el = document.querySelector(sel);
		if (!el) return false;
		el.focus();
		if ('value' in el) el.value = value;
		else if (el.isContentEditable) el.textContent = value;
		else return false;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	})(%s, %s)`, jsArg(selector), jsArg(text))

	var ok bool
	if err := e.evaluate(ctx, sessionID, script, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return nil
}

// verifyFieldValue reads the field back and logs a mismatch. Pages rewrite
// input freely (masking, autocomplete), so a mismatch is advisory, never an
// error.
func (e *Executor) verifyFieldValue(ctx context.Context, sessionID, selector, want string) {
	script := fmt.Sprintf(`(function(sel) {
		const el = document.querySelector(sel);
		if (!el) return "";
		return 'value' in el ? String(el.value) : String(el.textContent || "");
	})(%s)`, jsArg(selector))

	var got string
	if err := e.evaluate(ctx, sessionID, script, &got); err != nil {
		e.logger.Debug("Read-back after typing failed.", zap.Error(err))
		return
	}
	if got != want {
		e.logger.Warn("Field value differs from typed text.",
			zap.String("selector", selector),
			zap.String("typed", want),
			zap.String("field", got),
		)
	}
}
