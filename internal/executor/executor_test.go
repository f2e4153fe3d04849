// File: internal/executor/executor_test.go
package executor

import (
	"context"
	encodingjson "encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer-cli/internal/browser"
	"github.com/xkilldash9x/wayfarer-cli/internal/config"
	"github.com/xkilldash9x/wayfarer-cli/internal/plan"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testBrowserConfig() config.BrowserConfig {
	return config.BrowserConfig{
		CommandTimeout:    time.Second,
		SettleDelay:       0,
		ReadyPollInterval: time.Millisecond,
		ReadyPollAttempts: 1,
	}
}

// --- fakes ---------------------------------------------------------------

type execCall struct {
	method     string
	sessionID  string
	params     map[string]any
	expression string
}

// evalHook routes Runtime.evaluate calls by expression substring. The first
// matching hook wins.
type evalHook struct {
	substr string
	value  any
	err    error
}

type fakeExec struct {
	mu    sync.Mutex
	calls []execCall
	hooks []evalHook
	// methodErr fails every call of a method outright.
	methodErr map[string]error
	// methodReply overrides the default reply for a method.
	methodReply map[string]string
}

func defaultHooks() []evalHook {
	return []evalHook{
		{substr: "getBoundingClientRect", value: map[string]any{
			"found": true, "x": 120.0, "y": 48.0, "width": 80.0, "height": 24.0,
			"visible": true, "obscured": false,
		}},
		{substr: "readyState", value: true},
	}
}

func newFakeExec() *fakeExec {
	return &fakeExec{
		hooks:       defaultHooks(),
		methodErr:   map[string]error{},
		methodReply: map[string]string{},
	}
}

// prependHook gives a test-specific hook priority over the defaults.
func (f *fakeExec) prependHook(h evalHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks = append([]evalHook{h}, f.hooks...)
}

func (f *fakeExec) Send(ctx context.Context, method string, params any, sessionID string) (encodingjson.RawMessage, error) {
	pm, _ := params.(map[string]any)
	call := execCall{method: method, sessionID: sessionID, params: pm}
	if expr, ok := pm["expression"].(string); ok {
		call.expression = expr
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	hooks := append([]evalHook(nil), f.hooks...)
	err := f.methodErr[method]
	reply := f.methodReply[method]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if reply != "" {
		return encodingjson.RawMessage(reply), nil
	}

	switch method {
	case "Runtime.evaluate":
		for _, h := range hooks {
			if strings.Contains(call.expression, h.substr) {
				if h.err != nil {
					return nil, h.err
				}
				return evalReplyJSON(h.value)
			}
		}
		// Scripts without a dedicated hook report generic success.
		return evalReplyJSON(true)
	case "DOM.getDocument":
		return encodingjson.RawMessage(`{"root":{"nodeId":7}}`), nil
	case "DOM.getOuterHTML":
		return encodingjson.RawMessage(`{"outerHTML":"<html><body>stub</body></html>"}`), nil
	default:
		return encodingjson.RawMessage(`{}`), nil
	}
}

func evalReplyJSON(v any) (encodingjson.RawMessage, error) {
	value, err := encodingjson.Marshal(v)
	if err != nil {
		return nil, err
	}
	return encodingjson.RawMessage(fmt.Sprintf(`{"result":{"type":"object","value":%s}}`, value)), nil
}

func (f *fakeExec) callsFor(method string) []execCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []execCall
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeExec) evalCallsContaining(substr string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.method == "Runtime.evaluate" && strings.Contains(c.expression, substr) {
			n++
		}
	}
	return n
}

type fakeSessions struct {
	mu      sync.Mutex
	created int
	err     error
}

func (f *fakeSessions) Create(ctx context.Context) (*browser.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.created++
	return &browser.Session{
		ID:       fmt.Sprintf("sess-%d", f.created),
		TargetID: fmt.Sprintf("target-%d", f.created),
	}, nil
}

func (f *fakeSessions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created
}

type fakeResolver struct {
	mu           sync.Mutex
	info         *plan.SelectorInfo
	resolveErr   error
	payload      encodingjson.RawMessage
	extractErr   error
	descriptions []string
}

func (f *fakeResolver) ResolveSelector(ctx context.Context, description, html string) (*plan.SelectorInfo, error) {
	f.mu.Lock()
	f.descriptions = append(f.descriptions, description)
	f.mu.Unlock()
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.info, nil
}

func (f *fakeResolver) ExtractContent(ctx context.Context, instructions, html string) (encodingjson.RawMessage, error) {
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	return f.payload, nil
}

func newTestExecutor(t *testing.T, client *fakeExec, sessions *fakeSessions, res *fakeResolver) *Executor {
	t.Helper()
	e, err := New(client, sessions, res, testBrowserConfig(), zap.NewNop())
	require.NoError(t, err)
	return e
}

// --- tests ---------------------------------------------------------------

func TestRunExecutesStepsInOrderAndThreadsSession(t *testing.T) {
	client := newFakeExec()
	sessions := &fakeSessions{}
	res := &fakeResolver{payload: encodingjson.RawMessage(`{"title":"stub"}`)}
	e := newTestExecutor(t, client, sessions, res)

	p := &plan.Plan{
		Task: "grab the page title",
		Steps: []plan.Step{
			{Action: plan.ActionNavigate, Description: "open example", Params: plan.Params{URL: "https://example.com"}},
			{Action: plan.ActionWait, Description: "settle", Params: plan.Params{Duration: 5}},
			{Action: plan.ActionExtract, Description: "extract title", Params: plan.Params{Instructions: "page title"}},
		},
	}

	got, err := e.Run(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, got.Completed)
	for i, step := range got.Steps {
		assert.Equal(t, plan.StatusSucceeded, step.Status, "step %d", i)
	}

	// All three steps ran against the single session the navigate created.
	assert.Equal(t, 1, sessions.count())
	for i, step := range got.Steps {
		assert.Equal(t, "sess-1", step.SessionID, "step %d", i)
	}

	assert.JSONEq(t, `{"title":"stub"}`, string(got.Steps[2].Result))
}

func TestRunAbortsOnFirstFailure(t *testing.T) {
	client := newFakeExec()
	sessions := &fakeSessions{}
	res := &fakeResolver{resolveErr: errors.New("no candidate element")}
	e := newTestExecutor(t, client, sessions, res)

	p := &plan.Plan{
		Task: "doomed",
		Steps: []plan.Step{
			{Action: plan.ActionNavigate, Description: "open example", Params: plan.Params{URL: "https://example.com"}},
			{Action: plan.ActionClick, Description: "click the missing thing"},
			{Action: plan.ActionWait, Description: "never reached"},
		},
	}

	got, err := e.Run(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 2")

	assert.False(t, got.Completed)
	assert.Equal(t, plan.StatusSucceeded, got.Steps[0].Status)
	assert.Equal(t, plan.StatusFailed, got.Steps[1].Status)
	assert.Contains(t, got.Steps[1].Error, "no candidate element")
	// The trailing step was never started.
	assert.Equal(t, plan.StatusPending, got.Steps[2].Status)
}

func TestRunRejectsInvalidPlan(t *testing.T) {
	e := newTestExecutor(t, newFakeExec(), &fakeSessions{}, &fakeResolver{})

	_, err := e.Run(context.Background(), &plan.Plan{Task: "empty"})
	require.Error(t, err)

	_, err = e.Run(context.Background(), &plan.Plan{
		Task:  "bogus action",
		Steps: []plan.Step{{Action: plan.Action("teleport"), Description: "x"}},
	})
	require.Error(t, err)
}

func TestInteractionHandlersRequireSession(t *testing.T) {
	e := newTestExecutor(t, newFakeExec(), &fakeSessions{}, &fakeResolver{})

	steps := []plan.Step{
		{Action: plan.ActionClick, Description: "click"},
		{Action: plan.ActionType, Description: "type", Params: plan.Params{Text: "hi"}},
		{Action: plan.ActionExtract, Description: "extract"},
		{Action: plan.ActionScroll, Description: "scroll"},
		{Action: plan.ActionWait, Description: "wait"},
		{Action: plan.ActionPressEnter, Description: "enter"},
		{Action: plan.ActionFindSelector, Description: "find", Params: plan.Params{Description: "a link"}},
	}
	for _, step := range steps {
		step := step
		err := e.dispatch(context.Background(), &step)
		assert.ErrorIs(t, err, ErrMissingSession, "action %s", step.Action)
	}
}

func TestNavigateReportsNetworkError(t *testing.T) {
	client := newFakeExec()
	client.methodReply["Page.navigate"] = `{"errorText":"net::ERR_NAME_NOT_RESOLVED"}`
	e := newTestExecutor(t, client, &fakeSessions{}, &fakeResolver{})

	step := &plan.Step{Action: plan.ActionNavigate, Description: "open", Params: plan.Params{URL: "https://nope.invalid"}}
	err := e.dispatch(context.Background(), step)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR_NAME_NOT_RESOLVED")
}

func TestClickFallsBackToMouseEventsWhenDomClickFails(t *testing.T) {
	client := newFakeExec()
	client.prependHook(evalHook{substr: "el.click()", err: errors.New("blocked by overlay")})
	res := &fakeResolver{info: &plan.SelectorInfo{Selector: "#go", Kind: plan.SelectorCSS, Confidence: 0.9}}
	e := newTestExecutor(t, client, &fakeSessions{}, res)

	step := &plan.Step{
		Action:      plan.ActionClick,
		Description: "press the go button",
		SessionID:   "sess-1",
	}
	require.NoError(t, e.dispatch(context.Background(), step))

	mouse := client.callsFor("Input.dispatchMouseEvent")
	require.Len(t, mouse, 2)
	assert.Equal(t, "mousePressed", mouse[0].params["type"])
	assert.Equal(t, "mouseReleased", mouse[1].params["type"])
	assert.Equal(t, 120.0, mouse[0].params["x"])
	assert.Equal(t, 48.0, mouse[0].params["y"])
	assert.Equal(t, "sess-1", mouse[0].sessionID)
	assert.Equal(t, "#go", step.Selector)
}

func TestClickExhaustedChainReportsNotInteractable(t *testing.T) {
	client := newFakeExec()
	// Every interaction script fails; only preparation scripts succeed.
	client.prependHook(evalHook{substr: "el.click()", err: errors.New("nope")})
	client.prependHook(evalHook{substr: "target.click()", err: errors.New("nope")})
	client.prependHook(evalHook{substr: "pointerEvents", err: errors.New("nope")})
	client.prependHook(evalHook{substr: "anchor.href", value: ""})
	client.methodErr["Input.dispatchMouseEvent"] = errors.New("nope")
	res := &fakeResolver{info: &plan.SelectorInfo{Selector: "#stuck", Confidence: 0.5}}
	e := newTestExecutor(t, client, &fakeSessions{}, res)

	step := &plan.Step{Action: plan.ActionClick, Description: "click", SessionID: "sess-1"}
	err := e.dispatch(context.Background(), step)
	assert.ErrorIs(t, err, ErrElementNotInteractable)
}

func TestTypeClearsBeforeEveryInsert(t *testing.T) {
	client := newFakeExec()
	e := newTestExecutor(t, client, &fakeSessions{}, &fakeResolver{})

	require.NoError(t, e.typeIntoSelector(context.Background(), "sess-1", "#q", "golang"))
	require.NoError(t, e.typeIntoSelector(context.Background(), "sess-1", "#q", "golang"))

	// Each invocation clears the field, so re-running overwrites instead of
	// appending.
	assert.Equal(t, 2, client.evalCallsContaining("el.value = ''"))
	inserts := client.callsFor("Input.insertText")
	require.Len(t, inserts, 2)
	for _, c := range inserts {
		assert.Equal(t, "golang", c.params["text"])
	}
}

func TestTypeFallsBackToValueMutation(t *testing.T) {
	client := newFakeExec()
	client.methodErr["Input.insertText"] = errors.New("input domain unavailable")
	e := newTestExecutor(t, client, &fakeSessions{}, &fakeResolver{})

	require.NoError(t, e.typeIntoSelector(context.Background(), "sess-1", "#q", "golang"))
	assert.Equal(t, 1, client.evalCallsContaining("dispatchEvent(new Event('input'"))
}

func TestSearchReusesInheritedSession(t *testing.T) {
	client := newFakeExec()
	sessions := &fakeSessions{}
	res := &fakeResolver{info: &plan.SelectorInfo{Selector: "#search", Confidence: 0.8}}
	e := newTestExecutor(t, client, sessions, res)

	p := &plan.Plan{
		Task: "search",
		Steps: []plan.Step{
			{Action: plan.ActionNavigate, Description: "open engine", Params: plan.Params{URL: "https://example.com"}},
			{Action: plan.ActionSearch, Description: "search for gophers", Params: plan.Params{Text: "gophers"}},
		},
	}
	got, err := e.Run(context.Background(), p)
	require.NoError(t, err)

	// The search ran in the navigate's session rather than opening another.
	assert.Equal(t, 1, sessions.count())
	assert.Equal(t, "sess-1", got.Steps[1].SessionID)

	// Query typed, then submitted with Enter since no submit control came back.
	inserts := client.callsFor("Input.insertText")
	require.NotEmpty(t, inserts)
	assert.Equal(t, "gophers", inserts[0].params["text"])
	keys := client.callsFor("Input.dispatchKeyEvent")
	require.Len(t, keys, 2)
	assert.Equal(t, "rawKeyDown", keys[0].params["type"])
	assert.Equal(t, "Enter", keys[0].params["key"])
}

func TestSearchWithoutSessionCreatesOne(t *testing.T) {
	client := newFakeExec()
	sessions := &fakeSessions{}
	res := &fakeResolver{info: &plan.SelectorInfo{Selector: "#search", Confidence: 0.8}}
	e := newTestExecutor(t, client, sessions, res)

	step := &plan.Step{Action: plan.ActionSearch, Description: "search", Params: plan.Params{Text: "gophers"}}
	require.NoError(t, e.dispatch(context.Background(), step))
	assert.Equal(t, 1, sessions.count())
	assert.Equal(t, "sess-1", step.SessionID)
}

func TestSearchUsesResolverSubmitControl(t *testing.T) {
	client := newFakeExec()
	res := &fakeResolver{info: &plan.SelectorInfo{
		Selector:       "#search",
		SubmitSelector: "#submit",
		Confidence:     0.8,
	}}
	e := newTestExecutor(t, client, &fakeSessions{}, res)

	step := &plan.Step{
		Action: plan.ActionSearch, Description: "search",
		Params: plan.Params{Text: "gophers"}, SessionID: "sess-1",
	}
	require.NoError(t, e.dispatch(context.Background(), step))

	// Submit control clicked; Enter never needed.
	assert.GreaterOrEqual(t, client.evalCallsContaining("el.click()"), 1)
	assert.Empty(t, client.callsFor("Input.dispatchKeyEvent"))
}

func TestPressEnterFallsBackToNewlineInsert(t *testing.T) {
	client := newFakeExec()
	client.methodErr["Input.dispatchKeyEvent"] = errors.New("input domain unavailable")
	e := newTestExecutor(t, client, &fakeSessions{}, &fakeResolver{})

	step := &plan.Step{Action: plan.ActionPressEnter, Description: "submit", SessionID: "sess-1"}
	require.NoError(t, e.dispatch(context.Background(), step))

	inserts := client.callsFor("Input.insertText")
	require.Len(t, inserts, 1)
	assert.Equal(t, "\n", inserts[0].params["text"])
}

func TestFindSelectorRecordsResult(t *testing.T) {
	client := newFakeExec()
	res := &fakeResolver{info: &plan.SelectorInfo{
		Selector:    "a.result",
		Kind:        plan.SelectorCSS,
		Confidence:  0.72,
		Explanation: "first result link",
	}}
	e := newTestExecutor(t, client, &fakeSessions{}, res)

	step := &plan.Step{
		Action: plan.ActionFindSelector, Description: "find the first result",
		Params: plan.Params{Description: "first search result link"}, SessionID: "sess-1",
	}
	require.NoError(t, e.dispatch(context.Background(), step))

	assert.Equal(t, "a.result", step.Selector)
	var info plan.SelectorInfo
	require.NoError(t, encodingjson.Unmarshal(step.Result, &info))
	assert.Equal(t, 0.72, info.Confidence)
	assert.Equal(t, []string{"first search result link"}, res.descriptions)
}

func TestExplicitSelectorSkipsResolver(t *testing.T) {
	client := newFakeExec()
	res := &fakeResolver{}
	e := newTestExecutor(t, client, &fakeSessions{}, res)

	step := &plan.Step{
		Action: plan.ActionClick, Description: "click",
		Params: plan.Params{Selector: "#known"}, SessionID: "sess-1",
	}
	require.NoError(t, e.dispatch(context.Background(), step))
	assert.Empty(t, res.descriptions)
	assert.Equal(t, "#known", step.Selector)
}

func TestExtractRecordsPayloadOnStepOnly(t *testing.T) {
	client := newFakeExec()
	res := &fakeResolver{payload: encodingjson.RawMessage(`{"x":1}`)}
	e := newTestExecutor(t, client, &fakeSessions{}, res)

	step := &plan.Step{Action: plan.ActionExtract, Description: "extract", SessionID: "sess-1"}
	require.NoError(t, e.dispatch(context.Background(), step))
	assert.JSONEq(t, `{"x":1}`, string(step.Result))
}

func TestExtractPropagatesResolverFailure(t *testing.T) {
	client := newFakeExec()
	res := &fakeResolver{extractErr: errors.New("no usable result")}
	e := newTestExecutor(t, client, &fakeSessions{}, res)

	step := &plan.Step{Action: plan.ActionExtract, Description: "extract", SessionID: "sess-1"}
	err := e.dispatch(context.Background(), step)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable result")
}

func TestScrollDirections(t *testing.T) {
	cases := []struct {
		direction plan.ScrollDirection
		wantExpr  string
	}{
		{plan.ScrollDown, "window.scrollBy(0, 600)"},
		{plan.ScrollUp, "window.scrollBy(0, -600)"},
		{plan.ScrollTop, "window.scrollTo(0, 0)"},
		{plan.ScrollBottom, "window.scrollTo(0, document.body.scrollHeight)"},
	}
	for _, tc := range cases {
		t.Run(string(tc.direction), func(t *testing.T) {
			client := newFakeExec()
			e := newTestExecutor(t, client, &fakeSessions{}, &fakeResolver{})
			step := &plan.Step{
				Action: plan.ActionScroll, Description: "scroll",
				Params: plan.Params{Direction: tc.direction}, SessionID: "sess-1",
			}
			require.NoError(t, e.dispatch(context.Background(), step))
			evals := client.callsFor("Runtime.evaluate")
			require.Len(t, evals, 1)
			assert.Equal(t, tc.wantExpr, evals[0].expression)
		})
	}

	t.Run("unknown direction", func(t *testing.T) {
		e := newTestExecutor(t, newFakeExec(), &fakeSessions{}, &fakeResolver{})
		step := &plan.Step{
			Action: plan.ActionScroll, Description: "scroll",
			Params: plan.Params{Direction: plan.ScrollDirection("sideways")}, SessionID: "sess-1",
		}
		require.Error(t, e.dispatch(context.Background(), step))
	})
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	e := newTestExecutor(t, newFakeExec(), &fakeSessions{}, &fakeResolver{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	step := &plan.Step{
		Action: plan.ActionWait, Description: "wait",
		Params: plan.Params{Duration: 60000}, SessionID: "sess-1",
	}
	err := e.dispatch(ctx, step)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewValidatesDependencies(t *testing.T) {
	client := newFakeExec()
	sessions := &fakeSessions{}
	res := &fakeResolver{}
	cfg := testBrowserConfig()

	_, err := New(nil, sessions, res, cfg, zap.NewNop())
	assert.Error(t, err)
	_, err = New(client, nil, res, cfg, zap.NewNop())
	assert.Error(t, err)
	_, err = New(client, sessions, nil, cfg, zap.NewNop())
	assert.Error(t, err)
	_, err = New(client, sessions, res, cfg, nil)
	assert.Error(t, err)

	e, err := New(client, sessions, res, cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, e)
}
