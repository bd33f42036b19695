// ABOUTME: Tests for the gRPC call adapter
// ABOUTME: Runs a loopback server with an unknown-service echo handler
package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// newGRPCServer echoes every message on any method when the bearer token matches
func newGRPCServer(t *testing.T, token string) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}

	handler := func(srv any, stream grpc.ServerStream) error {
		method, _ := grpc.MethodFromServerStream(stream)
		if method != DefaultMethod {
			return status.Errorf(codes.Unimplemented, "unknown method %s", method)
		}
		md, _ := metadata.FromIncomingContext(stream.Context())
		if auth := md.Get("authorization"); len(auth) == 0 || auth[0] != "Bearer "+token {
			return status.Error(codes.Unauthenticated, "bad token")
		}
		for {
			var msg []byte
			err := stream.RecvMsg(&msg)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := stream.SendMsg(&msg); err != nil {
				return err
			}
		}
	}

	srv := grpc.NewServer(
		grpc.ForceServerCodec(rawCodec{}),
		grpc.UnknownServiceHandler(handler),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             time.Second,
			PermitWithoutStream: true,
		}),
	)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	return lis.Addr().String()
}

func TestGRPCEcho(t *testing.T) {
	addr := newGRPCServer(t, "secret")

	call, err := DialGRPC(context.Background(), Config{URL: addr, Token: "secret"})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer call.Close()

	for _, chunk := range [][]byte{{1, 2}, {3, 4, 5}} {
		if err := call.Send(context.Background(), chunk); err != nil {
			t.Fatalf("send failed: %v", err)
		}
		got := receive(t, call.Audio())
		if string(got) != string(chunk) {
			t.Errorf("echo = %v, want %v", got, chunk)
		}
	}

	if err := call.CloseSend(context.Background()); err != nil {
		t.Fatalf("CloseSend failed: %v", err)
	}
	// server returns after EOF, so the audio channel drains and closes
	select {
	case _, ok := <-call.Audio():
		if ok {
			t.Error("expected audio channel to close after CloseSend")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stream end")
	}
	if err := call.Send(context.Background(), []byte{0}); !errors.Is(err, ErrCallClosed) {
		t.Errorf("Send after CloseSend = %v, want ErrCallClosed", err)
	}
}

func TestGRPCUnauthenticated(t *testing.T) {
	addr := newGRPCServer(t, "secret")

	call, err := DialGRPC(context.Background(), Config{URL: "http://" + addr, Token: "wrong"})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer call.Close()

	select {
	case err := <-call.Errors():
		if status.Code(errors.Unwrap(err)) != codes.Unauthenticated {
			t.Errorf("expected Unauthenticated, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error")
	}
}

func TestGRPCDeadline(t *testing.T) {
	addr := newGRPCServer(t, "secret")

	call, err := DialGRPC(context.Background(), Config{URL: addr, Token: "secret", Deadline: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer call.Close()

	select {
	case err := <-call.Errors():
		if status.Code(errors.Unwrap(err)) != codes.DeadlineExceeded {
			t.Errorf("expected DeadlineExceeded, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for deadline")
	}
}

func TestGRPCTarget(t *testing.T) {
	tests := []struct {
		raw        string
		wantTarget string
		wantSecure bool
		wantErr    bool
	}{
		{"127.0.0.1:5000", "127.0.0.1:5000", false, false},
		{"localhost:5000", "localhost:5000", false, false},
		{"https://speech.example.com:443", "speech.example.com:443", true, false},
		{"http://speech.example.com:8080", "speech.example.com:8080", false, false},
		{"ftp://speech.example.com", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			target, secure, err := grpcTarget(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if target != tt.wantTarget || secure != tt.wantSecure {
				t.Errorf("grpcTarget(%q) = %q, %v; want %q, %v", tt.raw, target, secure, tt.wantTarget, tt.wantSecure)
			}
		})
	}
}

func TestRawCodec(t *testing.T) {
	var c rawCodec
	data := []byte{9, 8, 7}

	out, err := c.Marshal(&data)
	if err != nil || string(out) != string(data) {
		t.Fatalf("Marshal = %v, %v", out, err)
	}
	if _, err := c.Marshal("nope"); err == nil {
		t.Error("expected error marshalling a string")
	}

	var got []byte
	if err := c.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	data[0] = 0
	if got[0] != 9 {
		t.Error("Unmarshal must copy the input")
	}
	if c.Name() != "proto" {
		t.Errorf("Name() = %q", c.Name())
	}
}
