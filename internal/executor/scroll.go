// File: internal/executor/scroll.go
package executor

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/wayfarer-cli/internal/plan"
)

const defaultScrollAmount = 600 // pixels, roughly one viewport step

// handleScroll moves the page window in the requested direction. A zero
// amount scrolls a viewport-sized step; top and bottom ignore the amount.
func (e *Executor) handleScroll(ctx context.Context, step *plan.Step) error {
	if err := requireSession(step); err != nil {
		return err
	}

	amount := step.Params.Amount
	if amount <= 0 {
		amount = defaultScrollAmount
	}

	var expr string
	switch step.Params.Direction {
	case plan.ScrollDown, "":
		expr = fmt.Sprintf("window.scrollBy(0, %d)", amount)
	case plan.ScrollUp:
		expr = fmt.Sprintf("window.scrollBy(0, -%d)", amount)
	case plan.ScrollLeft:
		expr = fmt.Sprintf("window.scrollBy(-%d, 0)", amount)
	case plan.ScrollRight:
		expr = fmt.Sprintf("window.scrollBy(%d, 0)", amount)
	case plan.ScrollTop:
		expr = "window.scrollTo(0, 0)"
	case plan.ScrollBottom:
		expr = "window.scrollTo(0, document.body.scrollHeight)"
	default:
		return fmt.Errorf("unknown scroll direction %q", step.Params.Direction)
	}

	if err := e.evaluate(ctx, step.SessionID, expr, nil); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	return e.settle(ctx)
}
