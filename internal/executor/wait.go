// File: internal/executor/wait.go
package executor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer-cli/internal/plan"
)

const defaultWaitDuration = 2 * time.Second

// handleWait pauses plan execution for the step's duration. Like every
// non-creating handler it requires an established session; the executor's
// session threading supplies one to any wait that follows a navigate or
// search.
func (e *Executor) handleWait(ctx context.Context, step *plan.Step) error {
	if err := requireSession(step); err != nil {
		return err
	}
	d := time.Duration(step.Params.Duration) * time.Millisecond
	if d <= 0 {
		d = defaultWaitDuration
	}
	e.logger.Debug("Waiting.", zap.Duration("duration", d))
	return sleepCtx(ctx, d)
}
