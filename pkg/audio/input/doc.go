// ABOUTME: Audio input package for microphone capture
// ABOUTME: Delivers float32 frames from a malgo capture device to a callback
// Package input provides the real-time microphone host.
//
// Malgo opens a miniaudio capture device in float32 format and invokes a
// callback once per period with the frame split into channels. The
// callback runs on the audio thread and must not block. Returning false
// detaches it; later periods are discarded.
//
// Example:
//
//	mic := input.NewMalgo(input.Config{SampleRate: 16000, Channels: 1})
//	err := mic.Start(func(channels [][]float32) bool {
//	    return processor.Process(channels)
//	})
//	defer mic.Stop()
package input
