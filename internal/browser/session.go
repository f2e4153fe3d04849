// File: internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Session identifies an attached debugging context: a browser tab (target)
// plus the session bound to it. Handlers hold the session id only and go
// through the registry for lookups.
type Session struct {
	TargetID string
	ID       string

	// domains records which protocol domains have been enabled on this session.
	domains map[string]bool
}

// EnabledDomains lists the protocol domains enabled on the session.
func (s *Session) EnabledDomains() []string {
	out := make([]string, 0, len(s.domains))
	for d := range s.domains {
		out = append(out, d)
	}
	return out
}

// enabledDomains are switched on for every new session so navigation, DOM
// inspection, script evaluation, and network visibility all work immediately.
var enabledDomains = []string{"Page", "DOM", "Runtime", "Network"}

// Registry tracks the {target, session} pairs created over one connection.
// Sessions are created lazily and live until the connection closes; there is
// no per-tab teardown.
type Registry struct {
	client Client
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a session registry over the given protocol client.
func NewRegistry(client Client, logger *zap.Logger) *Registry {
	return &Registry{
		client:   client,
		logger:   logger.Named("sessions"),
		sessions: make(map[string]*Session),
	}
}

// Create opens a new tab, attaches a debugging session to it, and enables
// the standard protocol domains. Every call produces a fresh target; tabs
// are never reused.
func (r *Registry) Create(ctx context.Context) (*Session, error) {
	var created struct {
		TargetID string `json:"targetId"`
	}
	res, err := r.client.Send(ctx, "Target.createTarget", map[string]any{"url": "about:blank"}, "")
	if err != nil {
		return nil, fmt.Errorf("create target: %w", err)
	}
	if err := json.Unmarshal(res, &created); err != nil {
		return nil, fmt.Errorf("parse createTarget reply: %w", err)
	}

	var attached struct {
		SessionID string `json:"sessionId"`
	}
	res, err = r.client.Send(ctx, "Target.attachToTarget", map[string]any{
		"targetId": created.TargetID,
		"flatten":  true,
	}, "")
	if err != nil {
		return nil, fmt.Errorf("attach to target %s: %w", created.TargetID, err)
	}
	if err := json.Unmarshal(res, &attached); err != nil {
		return nil, fmt.Errorf("parse attachToTarget reply: %w", err)
	}

	session := &Session{
		TargetID: created.TargetID,
		ID:       attached.SessionID,
		domains:  make(map[string]bool, len(enabledDomains)),
	}

	for _, domain := range enabledDomains {
		if _, err := r.client.Send(ctx, domain+".enable", nil, session.ID); err != nil {
			return nil, fmt.Errorf("enable %s on session %s: %w", domain, session.ID, err)
		}
		session.domains[domain] = true
	}

	// Lifecycle events are not consumed yet but enabling them here keeps the
	// door open for event-driven readiness without touching handlers.
	if _, err := r.client.Send(ctx, "Page.setLifecycleEventsEnabled", map[string]any{"enabled": true}, session.ID); err != nil {
		r.logger.Debug("Failed to enable lifecycle events.", zap.String("session_id", session.ID), zap.Error(err))
	}

	r.mu.Lock()
	r.sessions[session.ID] = session
	r.mu.Unlock()

	r.logger.Info("Session created.",
		zap.String("target_id", session.TargetID),
		zap.String("session_id", session.ID),
	)
	return session, nil
}

// Get looks up a session by id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Len reports the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
