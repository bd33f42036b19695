// ABOUTME: High-level call session API
// ABOUTME: Wires capture, transport, playback, recording and storage together
// Package speechbridge runs one voice call against the remote speech service.
//
// A Session takes encoded microphone frames from a capture.Processor,
// batches them on a short flush interval and sends them over a
// transport.Call. Agent audio arriving on the call is queued on a
// playback.Engine. Both legs are stamped on a recording.Timeline; the
// engine observer taps agent PCM and resamples it to the timeline rate.
//
// End tears the call down, builds the caller, agent and mixed WAVs and
// hands them to the store as detached writes under
// "<conversation>-caller", "<conversation>-agent" and
// "<conversation>-mixed". Wait blocks until those writes settle.
//
// Example:
//
//	call, err := transport.Dial(ctx, transport.KindWebSocket, transport.Config{URL: url, Token: token})
//	if err != nil {
//		log.Fatal(err)
//	}
//	mic := input.NewMalgo(input.Config{SampleRate: 16000})
//	proc, err := capture.Register(mic, capture.Config{})
//	dev, err := output.New(output.BackendOto, 8000, 1)
//
//	session, err := speechbridge.NewSession(speechbridge.SessionConfig{
//		Call:    call,
//		Capture: proc,
//		Device:  dev,
//		Store:   store.New(store.NewMemoryBackend()),
//		OnError: func(err error) { log.Printf("call error: %v", err) },
//	})
//	session.Start(ctx)
//	// ...
//	session.BargeIn()
//	recs, err := session.End(ctx)
//	err = session.Wait(ctx)
package speechbridge
