// ABOUTME: Audio output package for playing decoded speech
// ABOUTME: Provides Device and Voice interfaces with oto and malgo backends
// Package output provides audio playback devices.
//
// A Device owns one hardware output context. It decodes WAV bytes to PCM,
// starts one Voice per buffer and reports when that voice finishes. The
// context may be suspended by the host; callers check Suspended and call
// Resume before scheduling audio.
//
// Two backends are available:
//   - Oto: github.com/ebitengine/oto/v3, one player per voice
//   - Malgo: github.com/gen2brain/malgo, a callback-driven playback device
//
// Example:
//
//	dev, err := output.New(output.BackendOto, 8000, 1)
//	buf, err := dev.Decode(ctx, wavBytes)
//	voice, err := dev.Start(buf)
//	<-voice.Done()
package output
