// Package stream maintains the telemetry websocket: connect, authenticate,
// decode inbound frames into the engine, and keep the link healthy with
// pings, a silence monitor and jittered reconnect backoff.
package stream

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/tntool/escapebot/internal/protocol"
)

// Sink receives decoded frames and periodic monitor ticks. *engine.Engine
// satisfies it.
type Sink interface {
	HandleFrame(ctx context.Context, f *protocol.Frame)
	MonitorTick(ctx context.Context)
}

// Config controls the connection and its liveness policy.
type Config struct {
	// URL is the websocket endpoint.
	URL string
	// Handshake identity.
	AssetType string
	UserID    int64
	SecretKey string

	// Reconnect backoff: sleep starts at BackoffStart, multiplies by
	// BackoffFactor per failure up to BackoffCap, plus up to BackoffJitter
	// of random spread so restarted bots do not reconnect in lockstep.
	BackoffStart  time.Duration
	BackoffFactor float64
	BackoffCap    time.Duration
	BackoffJitter time.Duration

	// PingInterval / PongTimeout drive protocol-level keepalive.
	PingInterval time.Duration
	PongTimeout  time.Duration

	// MonitorInterval is the silence-check cadence. After HandshakeSilence
	// without any inbound frame the handshake is resent; after
	// ReconnectSilence the connection is torn down and redialed.
	MonitorInterval  time.Duration
	HandshakeSilence time.Duration
	ReconnectSilence time.Duration
}

// DefaultURL is the live telemetry endpoint.
const DefaultURL = "wss://api.escapemaster.net/escape_master/ws"

func (c *Config) applyDefaults() {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.BackoffStart <= 0 {
		c.BackoffStart = time.Second
	}
	if c.BackoffFactor <= 1 {
		c.BackoffFactor = 1.8
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 30 * time.Second
	}
	if c.BackoffJitter < 0 {
		c.BackoffJitter = 0
	} else if c.BackoffJitter == 0 {
		c.BackoffJitter = 800 * time.Millisecond
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 15 * time.Second
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = 6 * time.Second
	}
	if c.MonitorInterval <= 0 {
		c.MonitorInterval = 600 * time.Millisecond
	}
	if c.HandshakeSilence <= 0 {
		c.HandshakeSilence = 12 * time.Second
	}
	if c.ReconnectSilence <= 0 {
		c.ReconnectSilence = 45 * time.Second
	}
}

const writeTimeout = 5 * time.Second

// Client owns one logical connection to the telemetry feed, redialing as
// needed until Close or context cancellation.
type Client struct {
	cfg    Config
	sink   Sink
	logger *log.Logger
	clock  quartz.Clock
	rng    *rand.Rand
	dialer *websocket.Dialer

	mu            sync.Mutex
	conn          *websocket.Conn
	closed        bool
	lastRecv      time.Time
	lastHandshake time.Time
}

// New creates a client. clock and rng may be nil for real clock and a
// time-seeded generator.
func New(cfg Config, sink Sink, logger *log.Logger, clock quartz.Clock, rng *rand.Rand) *Client {
	cfg.applyDefaults()
	if clock == nil {
		clock = quartz.NewReal()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return &Client{
		cfg:    cfg,
		sink:   sink,
		logger: logger.WithPrefix("stream"),
		clock:  clock,
		rng:    rng,
		dialer: websocket.DefaultDialer,
	}
}

// Run dials and services the connection until ctx is cancelled or Close is
// called. Dial failures and dropped connections redial with backoff.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.cfg.BackoffStart
	for {
		if ctx.Err() != nil || c.isClosed() {
			return ctx.Err()
		}

		conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("dial failed", "url", c.cfg.URL, "error", err, "retry_in", backoff)
			if err := c.sleep(ctx, c.withJitter(backoff)); err != nil {
				return err
			}
			backoff = c.nextBackoff(backoff)
			continue
		}
		backoff = c.cfg.BackoffStart

		err = c.session(ctx, conn)
		if ctx.Err() != nil || c.isClosed() {
			return ctx.Err()
		}
		c.logger.Warn("connection lost, reconnecting", "error", err)
		if err := c.sleep(ctx, c.withJitter(backoff)); err != nil {
			return err
		}
		backoff = c.nextBackoff(backoff)
	}
}

// Close tears down the connection and stops Run after the current session
// unwinds. Safe to call from any goroutine, including engine stop callbacks.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout))
		_ = conn.Close()
	}
}

// session services one live connection until it fails or goes silent.
func (c *Client) session(ctx context.Context, conn *websocket.Conn) error {
	now := c.clock.Now()
	c.mu.Lock()
	c.conn = conn
	c.lastRecv = now
	c.lastHandshake = now
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
	}()

	pongWait := c.cfg.PingInterval + c.cfg.PongTimeout
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		c.touch()
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	if err := c.sendHandshake(conn); err != nil {
		return err
	}
	c.logger.Info("connected", "url", c.cfg.URL)

	readErr := make(chan error, 1)
	go func() { readErr <- c.readLoop(ctx, conn, pongWait) }()

	monitor := time.NewTicker(c.cfg.MonitorInterval)
	defer monitor.Stop()
	ping := time.NewTicker(c.cfg.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil,
				time.Now().Add(writeTimeout)); err != nil {
				return err
			}
		case <-monitor.C:
			c.sink.MonitorTick(ctx)
			if err := c.checkSilence(conn); err != nil {
				return err
			}
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, pongWait time.Duration) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("read failed", "error", err)
			}
			return err
		}
		c.touch()
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		frame, err := protocol.DecodeFrame(data)
		if err != nil {
			c.logger.Debug("undecodable frame", "error", err)
			continue
		}
		c.sink.HandleFrame(ctx, frame)
	}
}

// checkSilence resends the handshake after HandshakeSilence without inbound
// traffic (the server stops pushing to sessions it considers unauthenticated)
// and gives up on the connection entirely after ReconnectSilence.
func (c *Client) checkSilence(conn *websocket.Conn) error {
	now := c.clock.Now()
	c.mu.Lock()
	silence := now.Sub(c.lastRecv)
	sinceHandshake := now.Sub(c.lastHandshake)
	c.mu.Unlock()

	if silence >= c.cfg.ReconnectSilence {
		c.logger.Warn("feed silent, forcing reconnect", "silence", silence)
		return errSilence
	}
	if silence >= c.cfg.HandshakeSilence && sinceHandshake >= c.cfg.HandshakeSilence {
		c.logger.Info("feed quiet, resending handshake", "silence", silence)
		return c.sendHandshake(conn)
	}
	return nil
}

var errSilence = &silenceError{}

type silenceError struct{}

func (*silenceError) Error() string { return "no telemetry received within silence limit" }

func (c *Client) sendHandshake(conn *websocket.Conn) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := conn.WriteJSON(protocol.NewEnterGame(c.cfg.AssetType, c.cfg.UserID, c.cfg.SecretKey))
	if err == nil {
		c.mu.Lock()
		c.lastHandshake = c.clock.Now()
		c.mu.Unlock()
	}
	return err
}

func (c *Client) touch() {
	c.mu.Lock()
	c.lastRecv = c.clock.Now()
	c.mu.Unlock()
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// nextBackoff grows the sleep multiplicatively up to the cap.
func (c *Client) nextBackoff(cur time.Duration) time.Duration {
	next := time.Duration(float64(cur) * c.cfg.BackoffFactor)
	if next > c.cfg.BackoffCap {
		next = c.cfg.BackoffCap
	}
	return next
}

// withJitter spreads reconnect attempts; the jittered sleep never
// exceeds the backoff cap.
func (c *Client) withJitter(d time.Duration) time.Duration {
	if c.cfg.BackoffJitter <= 0 {
		return d
	}
	d += time.Duration(c.rng.Float64() * float64(c.cfg.BackoffJitter))
	if d > c.cfg.BackoffCap {
		d = c.cfg.BackoffCap
	}
	return d
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	timer := c.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
