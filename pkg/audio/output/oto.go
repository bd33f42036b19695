// ABOUTME: Oto-based audio output implementation
// ABOUTME: Plays each decoded buffer on its own oto player with software volume
package output

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/speechbridge/speechbridge-go/pkg/audio"
)

// pollInterval is how often a playing oto player is checked for completion
const pollInterval = 10 * time.Millisecond

var (
	// oto allows one context per process
	otoOnce   sync.Once
	otoCtx    *oto.Context
	otoShared *sharedContext
	otoRate   int
	otoChan   int
	otoErr    error
)

// suspender is the part of the oto context devices share
type suspender interface {
	Suspend() error
	Resume() error
}

// sharedContext keeps the process-wide context running while at least one
// device is awake
type sharedContext struct {
	mu    sync.Mutex
	ctx   suspender
	awake int
}

// acquire marks one device awake, resuming the context for the first
func (s *sharedContext) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.awake == 0 {
		if err := s.ctx.Resume(); err != nil {
			return err
		}
	}
	s.awake++
	return nil
}

// release marks one device asleep, suspending the context after the last
func (s *sharedContext) release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.awake == 0 {
		return nil
	}
	s.awake--
	if s.awake == 0 {
		return s.ctx.Suspend()
	}
	return nil
}

// idle suspends the context unless a device is awake
func (s *sharedContext) idle() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.awake > 0 {
		return nil
	}
	return s.ctx.Suspend()
}

// Oto output implementation using oto library
type Oto struct {
	otoCtx     *oto.Context
	shared     *sharedContext
	sampleRate int
	channels   int

	mu        sync.Mutex
	volume    int
	muted     bool
	suspended bool
	closed    bool
	active    *voice
}

// NewOto creates a new Oto output. The device starts suspended and is
// resumed when the first voice is scheduled.
//
// oto has one context per process, so every Oto shares it: the first
// format wins, and the context only suspends when no device is awake.
func NewOto(sampleRate, channels int) (*Oto, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-readyChan

		otoCtx, otoRate, otoChan = ctx, sampleRate, channels
		otoShared = &sharedContext{ctx: ctx}
		slog.Info("audio output initialized", "backend", BackendOto, "sample_rate", sampleRate, "channels", channels)
	})
	if otoErr != nil {
		return nil, otoErr
	}

	// oto doesn't support reinitialization with a different format
	if otoRate != sampleRate || otoChan != channels {
		slog.Warn("oto context already open with another format, reusing it",
			"sample_rate", otoRate, "channels", otoChan,
			"requested_rate", sampleRate, "requested_channels", channels)
	}

	if err := otoShared.idle(); err != nil {
		return nil, fmt.Errorf("failed to suspend oto context: %w", err)
	}

	return &Oto{
		otoCtx:     otoCtx,
		shared:     otoShared,
		sampleRate: otoRate,
		channels:   otoChan,
		volume:     100,
		suspended:  true,
	}, nil
}

// Suspended reports whether the oto context is suspended
func (o *Oto) Suspended() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.suspended
}

// Resume wakes the oto context
func (o *Oto) Resume(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrDeviceClosed
	}
	if !o.suspended {
		return nil
	}
	if err := o.shared.acquire(); err != nil {
		return fmt.Errorf("failed to resume oto context: %w", err)
	}
	o.suspended = false
	return nil
}

// Decode converts WAV bytes to PCM
func (o *Oto) Decode(ctx context.Context, wavBytes []byte) (audio.PCMBuffer, error) {
	return decodeWav(ctx, wavBytes)
}

// Start plays buf on a fresh oto player
func (o *Oto) Start(buf audio.PCMBuffer) (Voice, error) {
	samples, err := toDeviceFormat(buf, o.sampleRate, o.channels)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil, ErrDeviceClosed
	}

	samples = applyVolume(samples, o.volume, o.muted)
	player := o.otoCtx.NewPlayer(bytes.NewReader(audio.Int16ToBytes(samples)))

	v := newVoice(func() {
		player.Pause()
	})
	o.active = v

	player.Play()
	go o.watch(player, v)

	return v, nil
}

// watch waits for the player to drain and releases it
func (o *Oto) watch(player *oto.Player, v *voice) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-v.done:
			break loop
		case <-ticker.C:
			if !player.IsPlaying() {
				v.finish(false)
				break loop
			}
		}
	}

	if err := player.Close(); err != nil {
		slog.Debug("oto player close failed", "error", err)
	}

	o.mu.Lock()
	if o.active == v {
		o.active = nil
	}
	o.mu.Unlock()
}

// Close stops the active voice and releases this device's hold on the
// shared context
func (o *Oto) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	awake := !o.suspended
	o.suspended = true
	active := o.active
	o.mu.Unlock()

	if active != nil {
		active.Stop()
	}
	if !awake {
		return nil
	}

	if err := o.shared.release(); err != nil {
		return fmt.Errorf("failed to suspend oto context: %w", err)
	}
	return nil
}

// SetVolume sets the volume (0-100) for voices started afterwards
func (o *Oto) SetVolume(volume int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.volume = clampVolume(volume)
}

// SetMuted sets mute state for voices started afterwards
func (o *Oto) SetMuted(muted bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.muted = muted
}

// GetVolume returns current volume
func (o *Oto) GetVolume() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

// IsMuted returns mute state
func (o *Oto) IsMuted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.muted
}
