package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"solana-vote-server/internal/observability"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ConfirmTimeout bounds each confirmation wait.
	ConfirmTimeout time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ConfirmTimeout:    DefaultConfirmTimeout,
		PingInterval:      30 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
	}
}

// WSConfirmer confirms transactions over a WebSocket connection using
// signatureSubscribe. The node fires a single notification per
// subscription and removes it, so each wait is one-shot. A dropped
// connection is redialed with exponential backoff and every in-flight
// wait is resubscribed on the new connection.
type WSConfirmer struct {
	endpoint string
	config   WSClientConfig

	conn    *websocket.Conn
	connMu  sync.Mutex
	writeMu sync.Mutex

	closed       atomic.Bool
	reconnecting atomic.Bool
	requestID    atomic.Uint64

	// mu guards both maps so readLoop can move a waiter from pending
	// to active in one critical section: the node may send the
	// notification on the very next frame after the subscription
	// reply, and a waiter registered late would miss it.
	mu      sync.Mutex
	pending map[uint64]*wsWaiter // by subscribe request ID
	active  map[int64]*wsWaiter  // by subscription ID

	done chan struct{}
	wg   sync.WaitGroup
}

// wsWaiter is one in-flight confirmation wait.
type wsWaiter struct {
	signature  string
	reqID      uint64
	subID      int64
	subscribed bool
	notify     chan signatureNotification // buffered; readLoop never blocks
}

type signatureNotification struct {
	Err interface{}
}

// NewWSConfirmer creates a confirmer and connects to the endpoint.
func NewWSConfirmer(ctx context.Context, endpoint string, config *WSClientConfig) (*WSConfirmer, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = DefaultConfirmTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 1 * time.Second
	}
	if cfg.MaxReconnectDelay <= 0 {
		cfg.MaxReconnectDelay = 30 * time.Second
	}

	c := &WSConfirmer{
		endpoint: endpoint,
		config:   cfg,
		pending:  make(map[uint64]*wsWaiter),
		active:   make(map[int64]*wsWaiter),
		done:     make(chan struct{}),
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	c.conn = conn

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// Compile-time interface check.
var _ Confirmer = (*WSConfirmer)(nil)

// WaitForConfirmation subscribes to the signature and waits for its
// single notification, bounded by the configured timeout.
func (c *WSConfirmer) WaitForConfirmation(ctx context.Context, signature string) error {
	if c.closed.Load() {
		return fmt.Errorf("websocket confirmer is closed")
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.config.ConfirmTimeout)
	defer cancel()

	w := &wsWaiter{
		signature: signature,
		notify:    make(chan signatureNotification, 1),
	}

	c.mu.Lock()
	w.reqID = c.requestID.Add(1)
	reqID := w.reqID
	c.pending[w.reqID] = w
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, w.reqID)
		if w.subscribed {
			delete(c.active, w.subID)
		}
		c.mu.Unlock()
	}()

	// A write failure here is a dropped connection. The waiter is
	// already registered and the reconnect path resubscribes every
	// in-flight wait, so keep waiting instead of bailing.
	_ = c.writeJSON(subscribeRequest(reqID, signature))

	select {
	case n := <-w.notify:
		if n.Err != nil {
			return fmt.Errorf("%w: %v", ErrTransactionFailed, n.Err)
		}
		observability.RecordConfirmation(time.Since(start).Seconds())
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %s", ErrConfirmationTimeout, signature)
	case <-c.done:
		return fmt.Errorf("websocket confirmer closed while waiting")
	}
}

func subscribeRequest(reqID uint64, signature string) rpcRequest {
	return rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "signatureSubscribe",
		Params: []interface{}{
			signature,
			map[string]interface{}{"commitment": "confirmed"},
		},
	}
}

// wsMessage covers both subscription replies and notifications.
type wsMessage struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Method string          `json:"method"`
	Params *struct {
		Subscription int64 `json:"subscription"`
		Result       struct {
			Value struct {
				Err interface{} `json:"err"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
	Error *rpcError `json:"error"`
}

// readLoop reads frames and dispatches them; on a connection error it
// kicks off a reconnect with exponential backoff.
func (c *WSConfirmer) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			// A previous reconnect attempt failed; keep trying.
			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
				reconnectDelay = bumpDelay(reconnectDelay, c.config.MaxReconnectDelay)
			}
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if c.closed.Load() {
				return
			}

			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}
			reconnectDelay = bumpDelay(reconnectDelay, c.config.MaxReconnectDelay)

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		// Reset delay on successful read
		reconnectDelay = c.config.ReconnectDelay

		c.dispatch(&msg)
	}
}

func bumpDelay(delay, max time.Duration) time.Duration {
	delay *= 2
	if delay > max {
		delay = max
	}
	return delay
}

// dispatch routes one frame to its waiter.
func (c *WSConfirmer) dispatch(msg *wsMessage) {
	switch {
	case msg.ID != 0 && msg.Result != nil:
		// Reply to signatureSubscribe: result is the subscription ID.
		var subID int64
		if err := json.Unmarshal(msg.Result, &subID); err != nil {
			return
		}
		c.mu.Lock()
		if w, ok := c.pending[msg.ID]; ok {
			delete(c.pending, msg.ID)
			w.subID = subID
			w.subscribed = true
			c.active[subID] = w
		}
		c.mu.Unlock()

	case msg.Method == "signatureNotification" && msg.Params != nil:
		c.mu.Lock()
		if w, ok := c.active[msg.Params.Subscription]; ok {
			select {
			case w.notify <- signatureNotification{Err: msg.Params.Result.Value.Err}:
			default:
			}
		}
		c.mu.Unlock()
	}
}

// reconnect attempts to reconnect and resubscribe.
func (c *WSConfirmer) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	// Wait before reconnecting
	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	// Close existing connection
	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		// Reconnect failed; readLoop retries with a larger delay.
		return
	}

	c.connMu.Lock()
	if c.closed.Load() {
		c.connMu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.connMu.Unlock()

	c.resubscribeAll()
}

// resubscribeAll re-issues signatureSubscribe for every in-flight wait
// after a reconnect. Subscription IDs from the old connection are void,
// so active waiters fold back into pending under fresh request IDs.
func (c *WSConfirmer) resubscribeAll() {
	c.mu.Lock()
	waiters := make([]*wsWaiter, 0, len(c.pending)+len(c.active))
	for id, w := range c.pending {
		delete(c.pending, id)
		waiters = append(waiters, w)
	}
	for id, w := range c.active {
		delete(c.active, id)
		w.subscribed = false
		waiters = append(waiters, w)
	}
	for _, w := range waiters {
		w.reqID = c.requestID.Add(1)
		c.pending[w.reqID] = w
	}
	c.mu.Unlock()

	for _, w := range waiters {
		if err := c.writeJSON(subscribeRequest(w.reqID, w.signature)); err != nil {
			// Connection dropped again; the next reconnect retries.
			return
		}
	}
}

// pingLoop keeps the connection alive.
func (c *WSConfirmer) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			conn := c.conn
			c.connMu.Unlock()
			if conn == nil {
				continue
			}
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.config.WriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				// The read side notices the broken connection and
				// reconnects; keep the loop alive for the new one.
				continue
			}
		}
	}
}

func (c *WSConfirmer) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		return fmt.Errorf("websocket not connected")
	}

	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return conn.WriteJSON(v)
}

// Close closes the WebSocket connection.
func (c *WSConfirmer) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)

	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	c.wg.Wait()
	return err
}
