// ABOUTME: Capture encoder package for the real-time microphone path
// ABOUTME: Converts float frames to PCM16 or mu-law bytes without blocking
// Package capture converts real-time audio callbacks into transmittable bytes.
//
// A Processor is invoked once per render quantum on the audio thread. It
// reads the first channel, clamps each sample to [-1, 1] and scales it to
// int16 (negative values by 32768, positive by 32767). The packed bytes are
// handed to the control side through a buffered channel with a
// non-blocking send; a full channel drops the frame and counts it.
//
// Nothing on this path panics or blocks. Malformed frames are skipped,
// faults are recovered and reported on Errors(), and Process always asks
// the host to keep running.
//
// Example:
//
//	proc, err := capture.Register(mic, capture.Config{Encoding: audio.EncodingLinear16})
//	for frame := range proc.Frames() {
//	    call.Send(ctx, frame)
//	}
package capture
