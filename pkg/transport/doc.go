// ABOUTME: Transport package for streaming calls to the speech service
// ABOUTME: WebSocket and gRPC adapters behind a single Call interface
// Package transport carries audio between the client and the remote
// speech service.
//
// A Call is a duplex byte stream: Send pushes caller audio upstream,
// Audio delivers synthesized agent audio, and Errors reports server and
// connection failures. CloseSend half-closes the upstream side using the
// configured CloseMode; Close tears the call down.
//
// Adapters:
//   - DialWebSocket: gorilla/websocket, bearer header, JSON control frames
//     with {host, token} metadata, binary audio frames, 30 s pings
//   - DialGRPC: bidirectional raw-bytes stream with bearer credentials,
//     keepalive and a per-call deadline
//
// Example:
//
//	call, err := transport.Dial(ctx, transport.KindWebSocket, transport.Config{
//		URL:   "wss://bridge.example.com/ws",
//		Token: os.Getenv("SPEECHBRIDGE_TOKEN"),
//	})
//	if err != nil {
//		return err
//	}
//	defer call.Close()
//
//	go func() {
//		for chunk := range call.Audio() {
//			engine.Enqueue(chunk)
//		}
//	}()
//	err = call.Send(ctx, frame)
package transport
