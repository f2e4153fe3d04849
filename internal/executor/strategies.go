// File: internal/executor/strategies.go
package executor

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// strategy is one named interaction mechanism. Strategies in a chain share a
// signature so the chain stays data-driven and each mechanism can be tested
// on its own.
type strategy struct {
	name string
	run  func(ctx context.Context) error
}

// runStrategyChain tries each strategy in order and stops at the first one
// that succeeds. Individual failures are demoted to debug logs; only chain
// exhaustion surfaces, wrapped in the caller's sentinel.
func (e *Executor) runStrategyChain(ctx context.Context, sentinel error, chain []strategy) error {
	for _, s := range chain {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := s.run(ctx)
		if err == nil {
			e.logger.Debug("Interaction strategy succeeded.", zap.String("strategy", s.name))
			return nil
		}
		e.logger.Debug("Interaction strategy failed; trying next.",
			zap.String("strategy", s.name),
			zap.Error(err),
		)
	}
	return fmt.Errorf("%w: exhausted %d strategies", sentinel, len(chain))
}
