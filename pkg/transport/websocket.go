// ABOUTME: WebSocket call adapter using gorilla/websocket
// ABOUTME: JSON control frames with metadata, binary audio frames and pings
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// eventCallEnd is the input event type that ends a call
const eventCallEnd = 2

// controlFrame is a JSON frame sent to the service
type controlFrame struct {
	Metadata    *frameMetadata `json:"metadata,omitempty"`
	CloseStream bool           `json:"closeStream,omitempty"`
	InputEvent  *inputEvent    `json:"inputEvent,omitempty"`
	Ping        int            `json:"ping,omitempty"`
}

type frameMetadata struct {
	Host  string `json:"host"`
	Token string `json:"token"`
}

type inputEvent struct {
	EventType int `json:"eventType"`
}

// serverFrame is a JSON frame received from the service
type serverFrame struct {
	Error        string `json:"error"`
	Details      string `json:"details"`
	AudioContent []byte `json:"audioContent"`
}

// WebSocketCall is a Call over a websocket connection
type WebSocketCall struct {
	cfg  Config
	conn *websocket.Conn

	writeMu sync.Mutex

	audio chan []byte
	errs  chan error

	sendClosed atomic.Bool
	closeOnce  sync.Once
	done       chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// DialWebSocket connects to cfg.URL and sends the metadata frame
func DialWebSocket(ctx context.Context, cfg Config) (*WebSocketCall, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	if cfg.Host == "" {
		if u, err := url.Parse(cfg.URL); err == nil {
			cfg.Host = u.Host
		}
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.OpenTimeout,
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.Token)
	if cfg.UserAgent != "" {
		header.Set("User-Agent", cfg.UserAgent)
	}

	dialCtx, cancelDial := context.WithTimeout(ctx, cfg.OpenTimeout)
	defer cancelDial()

	cfg.Logger.Info("connecting", "transport", KindWebSocket, "url", cfg.URL)
	conn, resp, err := dialer.DialContext(dialCtx, cfg.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial failed (%s): %w", resp.Status, err)
		}
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	callCtx, cancel := context.WithCancel(context.Background())
	c := &WebSocketCall{
		cfg:    cfg,
		conn:   conn,
		audio:  make(chan []byte, audioBuffer),
		errs:   make(chan error, 8),
		done:   make(chan struct{}),
		ctx:    callCtx,
		cancel: cancel,
	}

	if err := c.writeJSON(controlFrame{Metadata: c.metadata()}); err != nil {
		cancel()
		conn.Close()
		return nil, fmt.Errorf("failed to send metadata: %w", err)
	}

	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

func (c *WebSocketCall) metadata() *frameMetadata {
	return &frameMetadata{Host: c.cfg.Host, Token: c.cfg.Token}
}

// Send writes one binary audio frame
func (c *WebSocketCall) Send(ctx context.Context, data []byte) error {
	if c.ctx.Err() != nil {
		return ErrCallClosed
	}
	if c.sendClosed.Load() {
		return fmt.Errorf("send after close: %w", ErrCallClosed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

// Audio returns the inbound audio channel
func (c *WebSocketCall) Audio() <-chan []byte {
	return c.audio
}

// Errors returns the inbound error channel
func (c *WebSocketCall) Errors() <-chan error {
	return c.errs
}

// CloseSend sends the end-of-stream control frame once
func (c *WebSocketCall) CloseSend(ctx context.Context) error {
	if c.ctx.Err() != nil {
		return ErrCallClosed
	}
	if !c.sendClosed.CompareAndSwap(false, true) {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	frame := controlFrame{Metadata: c.metadata()}
	if c.cfg.CloseMode == CloseCallEnd {
		frame.InputEvent = &inputEvent{EventType: eventCallEnd}
	} else {
		frame.CloseStream = true
	}
	if err := c.writeJSON(frame); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}
	return nil
}

// Close sends a close frame and releases the connection
func (c *WebSocketCall) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()

		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client close")
		c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.writeMu.Unlock()

		err = c.conn.Close()
		<-c.done
	})
	return err
}

func (c *WebSocketCall) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.OpenTimeout))
	return c.conn.WriteJSON(v)
}

// readLoop routes inbound frames until the connection fails
func (c *WebSocketCall) readLoop() {
	defer close(c.done)
	defer close(c.errs)
	defer close(c.audio)

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.report(fmt.Errorf("read failed: %w", err))
			}
			c.cancel()
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			c.deliver(data)
		case websocket.TextMessage:
			c.handleJSON(data)
		default:
			c.cfg.Logger.Debug("ignoring websocket frame", "type", messageType)
		}
	}
}

func (c *WebSocketCall) handleJSON(data []byte) {
	var frame serverFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.report(fmt.Errorf("bad server frame: %w", err))
		return
	}
	if frame.Error != "" {
		c.report(&ServerError{Message: frame.Error, Details: frame.Details})
		return
	}
	if len(frame.AudioContent) > 0 {
		c.deliver(frame.AudioContent)
	}
}

func (c *WebSocketCall) deliver(data []byte) {
	select {
	case c.audio <- data:
	case <-c.ctx.Done():
	}
}

// report never blocks the reader; errors nobody drains are logged
func (c *WebSocketCall) report(err error) {
	select {
	case c.errs <- err:
	default:
		c.cfg.Logger.Warn("dropping call error", "err", err)
	}
}

func (c *WebSocketCall) pingLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if err := c.writeJSON(controlFrame{Ping: 1}); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.cfg.Logger.Debug("ping failed", "err", err)
				}
			}
		}
	}
}
