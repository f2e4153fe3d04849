// File: internal/executor/executor.go
// The plan executor: walks a plan's steps in order, threads session identity
// forward, dispatches each step to its handler, and stops at the first failure.
package executor

import (
	"context"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer-cli/internal/browser"
	"github.com/xkilldash9x/wayfarer-cli/internal/config"
	"github.com/xkilldash9x/wayfarer-cli/internal/plan"
	"github.com/xkilldash9x/wayfarer-cli/internal/resolver"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// sessionFactory creates new debugging sessions. *browser.Registry satisfies
// it; tests substitute fakes.
type sessionFactory interface {
	Create(ctx context.Context) (*browser.Session, error)
}

// Executor runs one plan at a time against a single browser connection.
// Extracted payloads are recorded on the steps themselves; persisting them
// anywhere durable is the caller's concern.
type Executor struct {
	client   browser.Client
	sessions sessionFactory
	resolver resolver.Resolver
	cfg      config.BrowserConfig
	logger   *zap.Logger
}

// New creates an Executor. Every dependency is required.
func New(
	client browser.Client,
	sessions sessionFactory,
	res resolver.Resolver,
	cfg config.BrowserConfig,
	logger *zap.Logger,
) (*Executor, error) {
	if client == nil {
		return nil, errors.New("client cannot be nil")
	}
	if sessions == nil {
		return nil, errors.New("session factory cannot be nil")
	}
	if res == nil {
		return nil, errors.New("resolver cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Executor{
		client:   client,
		sessions: sessions,
		resolver: res,
		cfg:      cfg,
		logger:   logger.Named("executor"),
	}, nil
}

// Run executes the plan's steps in order. The active session id is threaded
// forward explicitly: a step without a session inherits the one most recently
// established. On the first failed step the remaining steps are left pending
// and the annotated plan is returned alongside the step's error.
func (e *Executor) Run(ctx context.Context, p *plan.Plan) (*plan.Plan, error) {
	if err := p.Validate(); err != nil {
		return p, err
	}
	for i := range p.Steps {
		p.Steps[i].Status = plan.StatusPending
	}

	e.logger.Info("Executing plan.", zap.String("task", p.Task), zap.Int("steps", len(p.Steps)))

	activeSession := ""
	for i := range p.Steps {
		step := &p.Steps[i]
		step.Status = plan.StatusRunning
		if step.SessionID == "" {
			step.SessionID = activeSession
		}

		log := e.logger.With(
			zap.Int("step", i+1),
			zap.String("action", string(step.Action)),
			zap.String("session_id", step.SessionID),
		)
		log.Info("Step started.", zap.String("description", step.Description))

		if err := e.dispatch(ctx, step); err != nil {
			step.Status = plan.StatusFailed
			step.Error = err.Error()
			p.Completed = false
			log.Error("Step failed; aborting remaining steps.", zap.Error(err))
			return p, fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
		}

		step.Status = plan.StatusSucceeded
		if step.SessionID != "" {
			activeSession = step.SessionID
		}
		log.Info("Step succeeded.")
	}

	p.Completed = true
	e.logger.Info("Plan completed.", zap.String("task", p.Task))
	return p, nil
}

// dispatch routes a step to its handler. The switch is exhaustive over the
// closed action enum; Validate has already rejected anything else, but the
// default arm keeps the invariant explicit.
func (e *Executor) dispatch(ctx context.Context, step *plan.Step) error {
	switch step.Action {
	case plan.ActionNavigate:
		return e.handleNavigate(ctx, step)
	case plan.ActionSearch:
		return e.handleSearch(ctx, step)
	case plan.ActionClick:
		return e.handleClick(ctx, step)
	case plan.ActionType:
		return e.handleType(ctx, step)
	case plan.ActionExtract:
		return e.handleExtract(ctx, step)
	case plan.ActionScroll:
		return e.handleScroll(ctx, step)
	case plan.ActionWait:
		return e.handleWait(ctx, step)
	case plan.ActionPressEnter:
		return e.handlePressEnter(ctx, step)
	case plan.ActionFindSelector:
		return e.handleFindSelector(ctx, step)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, step.Action)
	}
}

// requireSession enforces the handler contract: interaction handlers never
// create sessions themselves.
func requireSession(step *plan.Step) error {
	if step.SessionID == "" {
		return fmt.Errorf("%w (action %s)", ErrMissingSession, step.Action)
	}
	return nil
}
