package server

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/oleksShevch/websockets-chat/internal/metrics"
	"github.com/oleksShevch/websockets-chat/internal/protocol"
)

// FileHandler persists an inbound File message and announces it.
type FileHandler interface {
	Handle(msg protocol.ChatMessage)
}

// Client is one admitted websocket connection. Its username is fixed at
// admission; its outbox is filled by the hub and drained by writePump only.
type Client struct {
	id       uuid.UUID
	username string
	conn     *websocket.Conn
	outbox   *outbox
	hub      *Hub
	files    FileHandler
	addr     string
	limiter  *rate.Limiter
	cfg      Config
	log      *slog.Logger
}

// NewClient wraps conn for username. conn may be nil in tests that never
// start the flows.
func NewClient(conn *websocket.Conn, hub *Hub, files FileHandler, username, addr string, cfg Config) *Client {
	cfg = sanitizeConfig(cfg)
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	id := uuid.New()

	return &Client{
		id:       id,
		username: username,
		conn:     conn,
		outbox:   newOutbox(),
		hub:      hub,
		files:    files,
		addr:     addr,
		limiter:  newRateLimiter(cfg.RateLimit),
		cfg:      cfg,
		log:      hub.log.With("client_id", id, "username", username, "addr", addr),
	}
}

func newRateLimiter(cfg RateLimitConfig) *rate.Limiter {
	perSecond := float64(cfg.Burst) / cfg.RefillInterval.Seconds()
	return rate.NewLimiter(rate.Limit(perSecond), cfg.Burst)
}

// ID returns the process-unique connection id.
func (c *Client) ID() uuid.UUID {
	return c.id
}

// Username returns the name resolved at admission.
func (c *Client) Username() string {
	return c.username
}

// send unicasts msg to this connection only.
func (c *Client) send(msg protocol.ChatMessage) bool {
	payload, err := protocol.Encode(msg)
	if err != nil {
		c.log.Error("failed to encode message", "message_type", msg.MessageType, "error", err)
		return false
	}
	return c.outbox.push(payload)
}

// setupReadConnection configures the read deadline and pong handler. With
// keepalive disabled the deadline is cleared so that idle connections stay
// open.
func (c *Client) setupReadConnection() {
	if c.cfg.PingInterval <= 0 {
		if err := c.conn.SetReadDeadline(time.Time{}); err != nil {
			c.log.Warn("error clearing read deadline", "error", err)
		}
		return
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
		c.log.Warn("error setting initial read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
			c.log.Warn("error setting read deadline in pong handler", "error", err)
		}
		return nil
	})
}

// logReadError records why the read flow is ending. Every read error ends
// the connection; none of them is fatal to the process.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("message exceeded maximum size", "limit", c.cfg.MaxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived):
		c.log.Info("client disconnected", "reason", err)
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		c.log.Info("client connection closed", "reason", err)
	case websocket.IsUnexpectedCloseError(err):
		c.log.Warn("unexpected websocket close", "error", err)
	default:
		c.log.Warn("websocket read error", "error", err)
	}
}

// checkRateLimit reports whether the frame may be processed.
func (c *Client) checkRateLimit() bool {
	if c.limiter.Allow() {
		return true
	}
	c.hub.metrics.InboundFrame(metrics.FrameRateLimited)
	c.log.Warn("rate limit exceeded; discarding message",
		"burst", c.cfg.RateLimit.Burst, "interval", c.cfg.RateLimit.RefillInterval)
	return false
}

// processMessage decodes one text frame and routes it. A frame that does not
// decode is broadcast as plain text from this connection.
func (c *Client) processMessage(raw []byte) {
	msg, fallback := protocol.ParseFrame(raw, c.username)
	if fallback {
		c.hub.metrics.InboundFrame(metrics.FrameFallback)
		c.log.Debug("treating undecodable frame as plain text", "bytes", len(raw))
		c.hub.Broadcast(msg)
		return
	}

	c.hub.metrics.InboundFrame(metrics.FrameDecoded)
	c.dispatch(msg)
}

// dispatch routes a decoded message by kind. The sender is always the
// connection's own username; a File message without one is left for the
// relay to reject.
func (c *Client) dispatch(msg protocol.ChatMessage) {
	switch msg.MessageType {
	case protocol.User:
		msg.SenderUsername = protocol.Text(c.username)
		c.hub.Broadcast(msg)
	case protocol.File:
		if msg.SenderUsername != nil {
			msg.SenderUsername = protocol.Text(c.username)
		}
		if c.files == nil {
			c.log.Warn("dropping file message: no file relay configured")
			return
		}
		c.files.Handle(msg)
	case protocol.System, protocol.Init:
		c.log.Debug("ignoring server-only message from client", "message_type", msg.MessageType)
	}
}

func (c *Client) readPump() {
	defer c.disconnect()

	c.setupReadConnection()

	for {
		messageType, rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		if !c.checkRateLimit() {
			continue
		}

		c.processMessage(rawMessage)
	}
}

// disconnect runs exactly once, when the read flow ends: the connection
// leaves the registry, its outbox is closed so the write flow exits, and
// the remaining connections are told.
func (c *Client) disconnect() {
	c.hub.Unregister(c.id)
	c.outbox.close()
	c.closeConnection()
	c.hub.Broadcast(protocol.LeftNotice(c.username))
}

func (c *Client) writePump() {
	var tick <-chan time.Time
	if c.cfg.PingInterval > 0 {
		ticker := time.NewTicker(c.cfg.PingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer c.closeConnection()

	for c.processWriteEvent(tick) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(tick <-chan time.Time) bool {
	select {
	case <-c.outbox.ready():
		batch, open := c.outbox.drain()
		if !c.writeBatch(batch) {
			return false
		}
		if !open {
			c.writeCloseMessage()
			return false
		}
		return true
	case <-tick:
		return c.handlePing()
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (c *Client) closeConnection() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn("error closing connection", "error", err)
		}
	}
}

func (c *Client) setWriteDeadline() bool {
	deadline := time.Time{}
	if c.cfg.WriteWait > 0 {
		deadline = time.Now().Add(c.cfg.WriteWait)
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		c.log.Warn("error setting write deadline", "error", err)
		return false
	}
	return true
}

// writeBatch writes each queued payload as its own text frame.
func (c *Client) writeBatch(batch [][]byte) bool {
	for _, payload := range batch {
		if !c.writeTextMessage(payload) {
			return false
		}
	}
	return true
}

func (c *Client) writeTextMessage(payload []byte) bool {
	if !c.setWriteDeadline() {
		return false
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn("error writing message", "error", err)
		}
		return false
	}
	return true
}

// writeCloseMessage sends a close frame to the client
func (c *Client) writeCloseMessage() {
	if !c.setWriteDeadline() {
		return
	}
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn("error writing close message", "error", err)
		}
	}
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if !c.setWriteDeadline() {
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn("error writing ping message", "error", err)
		}
		return false
	}
	return true
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, websocket.ErrCloseSent) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "connection reset by peer")
}
