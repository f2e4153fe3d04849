// File: internal/plan/plan.go
// The data model shared by the translator, the executor, and the resolver:
// plans, steps, the closed action enum, and the selector contract.
package plan

import (
	"encoding/json"
	"fmt"
)

// Action is the closed set of step kinds the executor can dispatch.
type Action string

const (
	ActionNavigate     Action = "navigate"
	ActionSearch       Action = "search"
	ActionClick        Action = "click"
	ActionType         Action = "type"
	ActionExtract      Action = "extract"
	ActionScroll       Action = "scroll"
	ActionWait         Action = "wait"
	ActionPressEnter   Action = "pressEnter"
	ActionFindSelector Action = "findSelector"
)

// validActions is the authoritative membership set for the enum.
var validActions = map[Action]struct{}{
	ActionNavigate:     {},
	ActionSearch:       {},
	ActionClick:        {},
	ActionType:         {},
	ActionExtract:      {},
	ActionScroll:       {},
	ActionWait:         {},
	ActionPressEnter:   {},
	ActionFindSelector: {},
}

// Valid reports whether the action is a member of the closed enum.
func (a Action) Valid() bool {
	_, ok := validActions[a]
	return ok
}

// UnmarshalJSON rejects unknown action tags at decode time so a malformed
// plan fails before execution starts.
func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	candidate := Action(s)
	if !candidate.Valid() {
		return fmt.Errorf("unknown action %q", s)
	}
	*a = candidate
	return nil
}

// ScrollDirection is the symbolic direction for scroll steps.
type ScrollDirection string

const (
	ScrollUp     ScrollDirection = "up"
	ScrollDown   ScrollDirection = "down"
	ScrollLeft   ScrollDirection = "left"
	ScrollRight  ScrollDirection = "right"
	ScrollTop    ScrollDirection = "top"
	ScrollBottom ScrollDirection = "bottom"
)

// StepStatus tracks a step through the executor's state machine.
type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusRunning   StepStatus = "running"
	StatusSucceeded StepStatus = "succeeded"
	StatusFailed    StepStatus = "failed"
)

// Params is the parameter bag attached to a step. All fields are optional;
// each handler validates the ones it needs.
type Params struct {
	URL          string          `json:"url,omitempty"`
	Text         string          `json:"text,omitempty"`
	Description  string          `json:"description,omitempty"`
	Selector     string          `json:"selector,omitempty"`
	Duration     int             `json:"duration,omitempty"` // milliseconds
	Direction    ScrollDirection `json:"direction,omitempty"`
	Amount       int             `json:"amount,omitempty"` // pixels
	Instructions string          `json:"instructions,omitempty"`
}

// Step is one unit of an automation plan. The translator produces the first
// three fields; the executor fills in the rest during execution.
type Step struct {
	Action      Action `json:"action"`
	Description string `json:"description"`
	Params      Params `json:"params"`

	// Execution results, populated by exactly one handler invocation.
	Status    StepStatus      `json:"status,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Selector  string          `json:"selector,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Plan is an ordered sequence of steps with a short task description.
// The step list is immutable once produced; the executor annotates steps
// in place but never reorders or reuses them.
type Plan struct {
	Task  string `json:"task"`
	Steps []Step `json:"steps"`

	// Completed is true when every step succeeded; a failed plan carries the
	// per-step errors and leaves trailing steps pending.
	Completed bool `json:"completed,omitempty"`
}

// Validate checks the structural invariants of a freshly decoded plan:
// every step needs an action inside the closed enum and a description.
func (p *Plan) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("plan %q has no steps", p.Task)
	}
	for i := range p.Steps {
		step := &p.Steps[i]
		if !step.Action.Valid() {
			return fmt.Errorf("step %d: unknown action %q", i, step.Action)
		}
		if step.Description == "" {
			return fmt.Errorf("step %d (%s): missing description", i, step.Action)
		}
	}
	return nil
}

// SelectorKind identifies how a selector string should be interpreted.
// Only structural CSS queries are part of the external contract.
type SelectorKind string

const (
	SelectorCSS SelectorKind = "css"
)

// SelectorInfo is the resolver's answer to a description-to-selector request.
type SelectorInfo struct {
	Selector       string       `json:"selector"`
	Kind           SelectorKind `json:"kind,omitempty"`
	Confidence     float64      `json:"confidence"`
	Explanation    string       `json:"explanation,omitempty"`
	SubmitSelector string       `json:"submitSelector,omitempty"`
}

// Validate enforces the resolver contract on a SelectorInfo.
func (s *SelectorInfo) Validate() error {
	if s.Selector == "" {
		return fmt.Errorf("selector info has empty selector")
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("selector confidence %.3f outside [0,1]", s.Confidence)
	}
	return nil
}
