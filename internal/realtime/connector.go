// Package realtime provides a client-side connection manager for the event
// stream. All connection and reconnect state lives on the Connector with
// injected configuration, so consumers and tests construct their own
// instances instead of sharing a process-wide socket.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	ws "github.com/coder/websocket"
	"github.com/sethvargo/go-retry"

	"github.com/dwaite/trimpool/internal/websocket"
)

// Config controls dialing and reconnect behavior. Zero values fall back to
// the defaults below.
type Config struct {
	URL            string
	MaxAttempts    uint64
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

const (
	defaultMaxAttempts    = 5
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 15 * time.Second
)

// Connector maintains a WebSocket connection to the event stream, redialing
// with capped fibonacci backoff when the connection drops. Received events
// are handed to the callback; there is no replay, so after a reconnect the
// consumer should re-read current leaderboard and feed state.
type Connector struct {
	cfg     Config
	onEvent func(websocket.Event)
	logger  *slog.Logger

	mu   sync.Mutex
	conn *ws.Conn
	subs map[int64]struct{}
}

// NewConnector creates a Connector. onEvent is invoked from the read loop
// for every event frame that parses.
func NewConnector(cfg Config, onEvent func(websocket.Event), logger *slog.Logger) *Connector {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	return &Connector{
		cfg:     cfg,
		onEvent: onEvent,
		logger:  logger,
		subs:    make(map[int64]struct{}),
	}
}

// Run connects and reads events until ctx is canceled or the reconnect
// budget is exhausted. Subscriptions registered through Subscribe are
// replayed after every successful dial.
func (c *Connector) Run(ctx context.Context) error {
	for {
		conn, err := c.dial(ctx)
		if err != nil {
			return err
		}

		c.setConn(conn)
		c.resubscribe(ctx)
		c.readLoop(ctx, conn)
		c.setConn(nil)
		conn.Close(ws.StatusNormalClosure, "")

		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Info("connection lost, redialing", "url", c.cfg.URL)
	}
}

// Subscribe registers interest in a challenge's events. If connected, the
// subscribe frame is sent immediately; either way it is replayed on every
// reconnect.
func (c *Connector) Subscribe(ctx context.Context, challengeID int64) error {
	c.mu.Lock()
	c.subs[challengeID] = struct{}{}
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return c.sendControl(ctx, conn, "subscribe", challengeID)
}

// Unsubscribe drops interest in a challenge's events.
func (c *Connector) Unsubscribe(ctx context.Context, challengeID int64) error {
	c.mu.Lock()
	delete(c.subs, challengeID)
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return c.sendControl(ctx, conn, "unsubscribe", challengeID)
}

func (c *Connector) dial(ctx context.Context) (*ws.Conn, error) {
	backoff := retry.WithMaxRetries(c.cfg.MaxAttempts,
		retry.WithCappedDuration(c.cfg.MaxBackoff,
			retry.NewFibonacci(c.cfg.InitialBackoff)))

	var conn *ws.Conn
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		dialed, _, err := ws.Dial(ctx, c.cfg.URL, nil)
		if err != nil {
			c.logger.Warn("dial failed", "url", c.cfg.URL, "error", err)
			return retry.RetryableError(err)
		}
		conn = dialed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *Connector) setConn(conn *ws.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Connector) resubscribe(ctx context.Context) {
	c.mu.Lock()
	conn := c.conn
	ids := make([]int64, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		if err := c.sendControl(ctx, conn, "subscribe", id); err != nil {
			c.logger.Warn("resubscribe failed", "challenge_id", id, "error", err)
			return
		}
	}
}

func (c *Connector) sendControl(ctx context.Context, conn *ws.Conn, action string, challengeID int64) error {
	frame, err := json.Marshal(map[string]any{
		"action":       action,
		"challenge_id": challengeID,
	})
	if err != nil {
		return err
	}
	return conn.Write(ctx, ws.MessageText, frame)
}

func (c *Connector) readLoop(ctx context.Context, conn *ws.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var ev websocket.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.logger.Warn("unparseable event frame", "error", err)
			continue
		}
		c.onEvent(ev)
	}
}
