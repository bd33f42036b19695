// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for audio playback backends
package output

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/speechbridge/speechbridge-go/pkg/audio"
	"github.com/speechbridge/speechbridge-go/pkg/audio/wav"
)

// Backend names accepted by New
const (
	BackendOto   = "oto"
	BackendMalgo = "malgo"
)

// ErrDeviceClosed is returned by operations on a closed device
var ErrDeviceClosed = errors.New("output device closed")

// Device represents a hardware audio output context
type Device interface {
	// Suspended reports whether the output context is suspended
	Suspended() bool

	// Resume wakes a suspended output context
	Resume(ctx context.Context) error

	// Decode converts a complete WAV file to PCM
	Decode(ctx context.Context, wavBytes []byte) (audio.PCMBuffer, error)

	// Start begins playing buf and returns immediately
	Start(buf audio.PCMBuffer) (Voice, error)

	// Close releases output resources
	Close() error
}

// Voice is one buffer scheduled on a Device
type Voice interface {
	// Done is closed when playback finishes or the voice is stopped
	Done() <-chan struct{}

	// Stop halts playback; safe to call more than once
	Stop()
}

// New creates a device for the named backend
func New(backend string, sampleRate, channels int) (Device, error) {
	switch backend {
	case BackendOto, "":
		return NewOto(sampleRate, channels)
	case BackendMalgo:
		return NewMalgo(sampleRate, channels)
	default:
		return nil, fmt.Errorf("unknown output backend: %s", backend)
	}
}

// decodeWav is the in-process WAV decoder shared by the backends
func decodeWav(ctx context.Context, wavBytes []byte) (audio.PCMBuffer, error) {
	if err := ctx.Err(); err != nil {
		return audio.PCMBuffer{}, err
	}
	return wav.Decode(wavBytes)
}

// voice is the Voice implementation shared by the backends
type voice struct {
	done   chan struct{}
	once   sync.Once
	onStop func()
}

func newVoice(onStop func()) *voice {
	return &voice{done: make(chan struct{}), onStop: onStop}
}

func (v *voice) Done() <-chan struct{} {
	return v.done
}

func (v *voice) Stop() {
	v.finish(true)
}

// finish closes done once; stopped runs the backend hook
func (v *voice) finish(stopped bool) {
	v.once.Do(func() {
		if stopped && v.onStop != nil {
			v.onStop()
		}
		close(v.done)
	})
}
