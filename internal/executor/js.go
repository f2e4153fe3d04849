// File: internal/executor/js.go
// In-page script evaluation is the primary interaction mechanism; these are
// the shared protocol helpers every handler builds on.
package executor

import (
	"context"
	encodingjson "encoding/json"
	"fmt"
)

// evaluateReply is the Runtime.evaluate result envelope.
type evaluateReply struct {
	Result struct {
		Type    string                  `json:"type"`
		Subtype string                  `json:"subtype"`
		Value   encodingjson.RawMessage `json:"value"`
	} `json:"result"`
	ExceptionDetails *struct {
		Text      string `json:"text"`
		Exception *struct {
			Description string `json:"description"`
		} `json:"exception"`
	} `json:"exceptionDetails"`
}

// evaluate runs an expression in the session's page and, when out is non-nil,
// unmarshals the by-value result into it.
func (e *Executor) evaluate(ctx context.Context, sessionID, expression string, out any) error {
	res, err := e.client.Send(ctx, "Runtime.evaluate", map[string]any{
		"expression":    expression,
		"returnByValue": true,
		"awaitPromise":  true,
	}, sessionID)
	if err != nil {
		return err
	}

	var reply evaluateReply
	if err := json.Unmarshal(res, &reply); err != nil {
		return fmt.Errorf("parse evaluate reply: %w", err)
	}
	if reply.ExceptionDetails != nil {
		detail := reply.ExceptionDetails.Text
		if reply.ExceptionDetails.Exception != nil && reply.ExceptionDetails.Exception.Description != "" {
			detail = reply.ExceptionDetails.Exception.Description
		}
		return fmt.Errorf("script threw: %s", detail)
	}

	if out == nil || len(reply.Result.Value) == 0 {
		return nil
	}
	if err := json.Unmarshal(reply.Result.Value, out); err != nil {
		return fmt.Errorf("parse evaluate value: %w", err)
	}
	return nil
}

// documentHTML fetches the session's full document markup via the DOM domain.
func (e *Executor) documentHTML(ctx context.Context, sessionID string) (string, error) {
	res, err := e.client.Send(ctx, "DOM.getDocument", map[string]any{"depth": 0}, sessionID)
	if err != nil {
		return "", fmt.Errorf("get document: %w", err)
	}
	var doc struct {
		Root struct {
			NodeID int64 `json:"nodeId"`
		} `json:"root"`
	}
	if err := json.Unmarshal(res, &doc); err != nil {
		return "", fmt.Errorf("parse getDocument reply: %w", err)
	}

	res, err = e.client.Send(ctx, "DOM.getOuterHTML", map[string]any{"nodeId": doc.Root.NodeID}, sessionID)
	if err != nil {
		return "", fmt.Errorf("get outer html: %w", err)
	}
	var outer struct {
		OuterHTML string `json:"outerHTML"`
	}
	if err := json.Unmarshal(res, &outer); err != nil {
		return "", fmt.Errorf("parse getOuterHTML reply: %w", err)
	}
	return outer.OuterHTML, nil
}

// jsArg safely encodes a value for embedding in a script string.
func jsArg(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}
