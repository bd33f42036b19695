// ABOUTME: gRPC call adapter over a bidirectional raw-bytes stream
// ABOUTME: Bearer credentials, keepalive and per-call deadline
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
)

const (
	keepaliveTime     = 10 * time.Second
	keepaliveTimeout  = 5 * time.Second
	initialWindowSize = 4 << 20
)

// rawCodec passes message bytes through untouched. It registers under
// the proto name so servers see the usual content type.
type rawCodec struct{}

func (rawCodec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case *[]byte:
		return *m, nil
	case []byte:
		return m, nil
	default:
		return nil, fmt.Errorf("raw codec: unsupported type %T", v)
	}
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	p, ok := v.(*[]byte)
	if !ok {
		return fmt.Errorf("raw codec: unsupported type %T", v)
	}
	*p = append([]byte(nil), data...)
	return nil
}

func (rawCodec) Name() string {
	return "proto"
}

// bearerToken attaches the authorization header to every RPC
type bearerToken struct {
	token  string
	secure bool
}

func (b bearerToken) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}

func (b bearerToken) RequireTransportSecurity() bool {
	return b.secure
}

// GRPCCall is a Call over a bidirectional gRPC stream
type GRPCCall struct {
	cfg    Config
	conn   *grpc.ClientConn
	stream grpc.ClientStream

	sendMu     sync.Mutex
	sendClosed bool

	audio chan []byte
	errs  chan error

	closeOnce sync.Once
	done      chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// DialGRPC opens cfg.Method on the server at cfg.URL. A URL with an
// https scheme, or cfg.TLS, selects transport security.
func DialGRPC(ctx context.Context, cfg Config) (*GRPCCall, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	target, secure, err := grpcTarget(cfg.URL)
	if err != nil {
		return nil, err
	}
	secure = secure || cfg.TLS

	creds := insecure.NewCredentials()
	if secure {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	cfg.Logger.Info("connecting", "transport", KindGRPC, "target", target, "method", cfg.Method, "tls", secure)
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithPerRPCCredentials(bearerToken{token: cfg.Token, secure: secure}),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                keepaliveTime,
			Timeout:             keepaliveTimeout,
			PermitWithoutStream: true,
		}),
		grpc.WithInitialWindowSize(initialWindowSize),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(rawCodec{})),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, grpc.WithUserAgent(cfg.UserAgent))
	}

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc client: %w", err)
	}

	callCtx, cancel := context.WithTimeout(context.Background(), cfg.Deadline)
	stop := context.AfterFunc(ctx, cancel)
	stream, err := conn.NewStream(callCtx, &grpc.StreamDesc{
		StreamName:    "StreamSpeech",
		ClientStreams: true,
		ServerStreams: true,
	}, cfg.Method)
	if !stop() || err != nil {
		cancel()
		conn.Close()
		if err == nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	c := &GRPCCall{
		cfg:    cfg,
		conn:   conn,
		stream: stream,
		audio:  make(chan []byte, audioBuffer),
		errs:   make(chan error, 8),
		done:   make(chan struct{}),
		ctx:    callCtx,
		cancel: cancel,
	}
	go c.recvLoop()

	return c, nil
}

func grpcTarget(raw string) (target string, secure bool, err error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		// host:port without a scheme
		return raw, false, nil
	}
	switch u.Scheme {
	case "https", "grpcs":
		return u.Host, true, nil
	case "http", "grpc":
		return u.Host, false, nil
	default:
		return "", false, fmt.Errorf("unsupported grpc url scheme: %s", u.Scheme)
	}
}

// Send writes one message on the request stream
func (c *GRPCCall) Send(ctx context.Context, data []byte) error {
	if c.ctx.Err() != nil {
		return ErrCallClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendClosed {
		return fmt.Errorf("send after close: %w", ErrCallClosed)
	}
	if err := c.stream.SendMsg(&data); err != nil {
		if errors.Is(err, io.EOF) {
			// the real status is delivered by RecvMsg
			return fmt.Errorf("stream ended: %w", ErrCallClosed)
		}
		return fmt.Errorf("send failed: %w", err)
	}
	return nil
}

// Audio returns the inbound audio channel
func (c *GRPCCall) Audio() <-chan []byte {
	return c.audio
}

// Errors returns the inbound error channel
func (c *GRPCCall) Errors() <-chan error {
	return c.errs
}

// CloseSend half-closes the request stream. Both close modes map to a
// half-close since the raw stream has no in-band event channel.
func (c *GRPCCall) CloseSend(ctx context.Context) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendClosed {
		return nil
	}
	c.sendClosed = true
	if err := c.stream.CloseSend(); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}
	return nil
}

// Close cancels the stream and releases the connection
func (c *GRPCCall) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		<-c.done
		err = c.conn.Close()
	})
	return err
}

func (c *GRPCCall) recvLoop() {
	defer close(c.done)
	defer close(c.errs)
	defer close(c.audio)

	for {
		var msg []byte
		err := c.stream.RecvMsg(&msg)
		if errors.Is(err, io.EOF) {
			c.cfg.Logger.Debug("grpc stream ended")
			return
		}
		if err != nil {
			if status.Code(err) != codes.Canceled || c.ctx.Err() == nil {
				c.report(fmt.Errorf("receive failed: %w", err))
			}
			return
		}

		select {
		case c.audio <- msg:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *GRPCCall) report(err error) {
	select {
	case c.errs <- err:
	default:
		c.cfg.Logger.Warn("dropping call error", "err", err)
	}
}
