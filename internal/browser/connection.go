// File: internal/browser/connection.go
// The correlated request/response client over the browser's remote debugging
// WebSocket. One connection multiplexes commands for every attached session;
// replies are matched back to callers purely by command id.
package browser

import (
	"context"
	encodingjson "encoding/json"
	"fmt"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// json is the codec for all wire traffic. Drop-in replacement for
// encoding/json on a hot path.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// writeWait bounds a single frame write to the peer.
	writeWait = 10 * time.Second
	// maxMessageSize caps inbound frames. Full-document HTML payloads can be
	// large, so this is generous.
	maxMessageSize = 64 * 1024 * 1024
)

// Client is the single primitive handlers use to talk to the browser.
// Connection implements it; tests substitute scripted fakes.
type Client interface {
	Send(ctx context.Context, method string, params any, sessionID string) (encodingjson.RawMessage, error)
}

// message is the generic protocol envelope for both directions.
type message struct {
	ID        int64               `json:"id,omitempty"`
	Method    string              `json:"method,omitempty"`
	Params    any                 `json:"params,omitempty"`
	SessionID string              `json:"sessionId,omitempty"`
	Result    encodingjson.RawMessage `json:"result,omitempty"`
	Error     *CommandError       `json:"error,omitempty"`
}

// CommandError is the protocol-level error object inside a reply envelope.
type CommandError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("protocol error %d: %s", e.Code, e.Message)
}

// reply carries one completed command back to its caller.
type reply struct {
	result encodingjson.RawMessage
	err    error
}

// Connection owns the duplex debugging channel and, when the browser was
// launched by us, the browser process itself.
type Connection struct {
	logger *zap.Logger

	ws      *websocket.Conn
	writeMu sync.Mutex // serializes frame writes; gorilla allows one writer

	proc *exec.Cmd // nil when attached to an externally managed browser

	nextID atomic.Int64

	// pending maps in-flight command ids to their completion channels.
	// Every entry is removed exactly once: on reply, on caller timeout, or
	// on connection teardown.
	pendingMu sync.Mutex
	pending   map[int64]chan reply

	commandTimeout time.Duration

	closeOnce sync.Once
	closed    chan struct{}
}

// newConnection wraps an established WebSocket. The read pump starts immediately.
func newConnection(ws *websocket.Conn, proc *exec.Cmd, commandTimeout time.Duration, logger *zap.Logger) *Connection {
	c := &Connection{
		logger:         logger.Named("connection"),
		ws:             ws,
		proc:           proc,
		pending:        make(map[int64]chan reply),
		commandTimeout: commandTimeout,
		closed:         make(chan struct{}),
	}
	ws.SetReadLimit(maxMessageSize)
	go c.readPump()
	return c
}

// Send issues one protocol command and blocks until its reply arrives, the
// per-command deadline expires, the caller's context is done, or the
// connection closes. Concurrent Send calls do not block each other beyond
// the frame write itself.
func (c *Connection) Send(ctx context.Context, method string, params any, sessionID string) (encodingjson.RawMessage, error) {
	select {
	case <-c.closed:
		return nil, ErrConnectionClosed
	default:
	}

	id := c.nextID.Add(1)
	msg := message{ID: id, Method: method, Params: params, SessionID: sessionID}

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal command %s: %w", method, err)
	}

	ch := make(chan reply, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	c.logger.Debug("-> command",
		zap.Int64("id", id),
		zap.String("method", method),
		zap.String("session_id", sessionID),
	)

	if err := c.writeFrame(payload); err != nil {
		c.removePending(id)
		// A write failure poisons the channel for everyone.
		c.teardown(fmt.Errorf("write %s: %w", method, err))
		return nil, fmt.Errorf("write command %s: %w", method, err)
	}

	timer := time.NewTimer(c.commandTimeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("command %s: %w", method, r.err)
		}
		return r.result, nil
	case <-timer.C:
		c.removePending(id)
		return nil, fmt.Errorf("command %s (id %d) after %s: %w", method, id, c.commandTimeout, ErrCommandTimeout)
	case <-ctx.Done():
		c.removePending(id)
		return nil, fmt.Errorf("command %s (id %d): %w", method, id, ctx.Err())
	case <-c.closed:
		c.removePending(id)
		return nil, fmt.Errorf("command %s (id %d): %w", method, id, ErrConnectionClosed)
	}
}

func (c *Connection) writeFrame(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *Connection) removePending(id int64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// readPump is the single reader of the channel. It dispatches replies to
// their pending callers and logs protocol events.
func (c *Connection) readPump() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.teardown(err)
			return
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			// Malformed frames cannot be matched to any caller; log and drop.
			// The per-command timeout bounds the affected caller's wait.
			c.logger.Warn("Dropping malformed protocol frame.",
				zap.Error(err),
				zap.Int("bytes", len(data)),
			)
			continue
		}

		if msg.ID != 0 {
			c.completePending(&msg)
			continue
		}

		// id-less frames are protocol events. Out of scope behaviorally,
		// but logged for observability.
		c.logger.Debug("<- event",
			zap.String("method", msg.Method),
			zap.String("session_id", msg.SessionID),
		)
	}
}

func (c *Connection) completePending(msg *message) {
	c.pendingMu.Lock()
	ch, ok := c.pending[msg.ID]
	if ok {
		delete(c.pending, msg.ID)
	}
	c.pendingMu.Unlock()

	if !ok {
		// Caller already gave up (timeout/cancel) or the id is bogus.
		c.logger.Debug("Reply for unknown or abandoned command id.", zap.Int64("id", msg.ID))
		return
	}

	c.logger.Debug("<- reply", zap.Int64("id", msg.ID), zap.Bool("error", msg.Error != nil))

	if msg.Error != nil {
		ch <- reply{err: msg.Error}
		return
	}
	ch <- reply{result: msg.Result}
}

// teardown fails every pending command with a connection-closed error and
// marks the connection dead. Safe to call from multiple paths.
func (c *Connection) teardown(cause error) {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.logger.Debug("Connection teardown.", zap.Error(cause))

		c.pendingMu.Lock()
		for id, ch := range c.pending {
			delete(c.pending, id)
			ch <- reply{err: ErrConnectionClosed}
		}
		c.pendingMu.Unlock()

		_ = c.ws.Close()

		if c.proc != nil && c.proc.Process != nil {
			if err := c.proc.Process.Kill(); err != nil {
				c.logger.Warn("Failed to kill browser process.", zap.Error(err))
			}
			// Reap the child so it does not linger as a zombie.
			go func() { _ = c.proc.Wait() }()
		}
	})
}

// Close terminates the channel and the spawned browser process, failing any
// still-pending commands with ErrConnectionClosed.
func (c *Connection) Close() error {
	c.teardown(nil)
	return nil
}

// Done is closed when the connection has been torn down.
func (c *Connection) Done() <-chan struct{} {
	return c.closed
}
