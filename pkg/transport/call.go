// ABOUTME: Call interface and shared configuration for transports
// ABOUTME: Defaults, close modes and server error type
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Transport kinds accepted by Dial
const (
	KindWebSocket = "websocket"
	KindGRPC      = "grpc"
)

const (
	// DefaultOpenTimeout bounds the connection handshake
	DefaultOpenTimeout = 10 * time.Second

	// DefaultPingInterval is the keepalive period for websocket calls
	DefaultPingInterval = 30 * time.Second

	// DefaultDeadline is applied to gRPC calls without their own deadline
	DefaultDeadline = 30 * time.Second

	// DefaultMethod is the bidirectional streaming method for gRPC calls
	DefaultMethod = "/speech.v1.SpeechOrchestrator/StreamSpeech"

	// audioBuffer is the number of inbound chunks buffered per call
	audioBuffer = 64
)

// CloseMode selects how the upstream side of a call ends
type CloseMode string

const (
	// CloseComplete ends the request stream and waits for trailing audio
	CloseComplete CloseMode = "complete"
	// CloseCallEnd signals a call-end event to the service
	CloseCallEnd CloseMode = "callEnd"
)

var (
	// ErrNoToken is returned when the bearer token is empty
	ErrNoToken = errors.New("no token provided")
	// ErrCallClosed is returned by Send after Close
	ErrCallClosed = errors.New("call closed")
)

// Call is an open duplex audio stream
type Call interface {
	// Send pushes one chunk of caller audio upstream
	Send(ctx context.Context, data []byte) error
	// Audio delivers agent audio; closed when the call ends
	Audio() <-chan []byte
	// Errors reports server and connection errors; closed when the call ends
	Errors() <-chan error
	// CloseSend ends the upstream side according to the CloseMode
	CloseSend(ctx context.Context) error
	// Close releases the call
	Close() error
}

// Config holds call configuration shared by all adapters
type Config struct {
	URL          string
	Token        string
	Host         string        // service host forwarded in websocket metadata
	Method       string        // gRPC full method name
	Deadline     time.Duration // gRPC call deadline
	OpenTimeout  time.Duration
	PingInterval time.Duration
	CloseMode    CloseMode
	TLS          bool
	UserAgent    string
	Logger       *slog.Logger
}

// withDefaults validates cfg and fills unset fields
func (c Config) withDefaults() (Config, error) {
	c.Token = strings.TrimSpace(c.Token)
	if c.Token == "" {
		return c, ErrNoToken
	}
	if c.URL == "" {
		return c, fmt.Errorf("transport url is empty")
	}
	if c.Method == "" {
		c.Method = DefaultMethod
	}
	if c.Deadline <= 0 {
		c.Deadline = DefaultDeadline
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = DefaultOpenTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	switch c.CloseMode {
	case "":
		c.CloseMode = CloseComplete
	case CloseComplete, CloseCallEnd:
	default:
		return c, fmt.Errorf("unknown close mode: %s", c.CloseMode)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c, nil
}

// ServerError is an error frame sent by the service
type ServerError struct {
	Message string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (e *ServerError) Error() string {
	if e.Details == "" {
		return "server error: " + e.Message
	}
	return fmt.Sprintf("server error: %s (%s)", e.Message, e.Details)
}

// Dial opens a call with the adapter named by kind
func Dial(ctx context.Context, kind string, cfg Config) (Call, error) {
	switch kind {
	case KindWebSocket, "ws", "":
		c, err := DialWebSocket(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case KindGRPC:
		c, err := DialGRPC(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown transport: %s", kind)
	}
}
