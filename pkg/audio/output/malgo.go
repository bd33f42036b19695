// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Feeds the active voice to a miniaudio playback callback
package output

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/speechbridge/speechbridge-go/pkg/audio"
)

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	malgoCtx   *malgo.AllocatedContext
	device     *malgo.Device
	sampleRate int
	channels   int

	mu        sync.Mutex
	volume    int
	muted     bool
	suspended bool
	closed    bool
	active    *malgoVoice
}

// malgoVoice tracks the read cursor of the buffer being played
type malgoVoice struct {
	*voice
	samples []int16
	pos     int
}

// NewMalgo creates a playback device. The device is initialized stopped
// and reports itself suspended until Resume starts it.
func NewMalgo(sampleRate, channels int) (*Malgo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	m := &Malgo{
		malgoCtx:   ctx,
		sampleRate: sampleRate,
		channels:   channels,
		volume:     100,
		suspended:  true,
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(channels)
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, frameCount uint32) {
			m.dataCallback(pOutputSample, frameCount)
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}
	m.device = device

	slog.Info("audio output initialized", "backend", BackendMalgo, "sample_rate", sampleRate, "channels", channels)
	return m, nil
}

// dataCallback is called by malgo to fill the audio output buffer
func (m *Malgo) dataCallback(pOutput []byte, frameCount uint32) {
	if v := m.render(pOutput, int(frameCount)*m.channels); v != nil {
		v.finish(false)
	}
}

// render copies the active voice into out and zero-fills the rest. A voice
// is returned as finished on the period after its last samples went out,
// once the device has played them.
func (m *Malgo) render(out []byte, total int) *malgoVoice {
	m.mu.Lock()
	v := m.active
	n := 0
	var finished *malgoVoice
	if v != nil {
		if v.pos >= len(v.samples) {
			m.active = nil
			finished = v
		} else {
			n = copy16(out, v.samples[v.pos:], total)
			v.pos += n
		}
	}
	m.mu.Unlock()

	// Zero-fill remaining if underrun
	for i := n * 2; i < total*2 && i < len(out); i++ {
		out[i] = 0
	}
	return finished
}

// copy16 writes up to limit samples little-endian into out
func copy16(out []byte, samples []int16, limit int) int {
	n := len(samples)
	if n > limit {
		n = limit
	}
	if n > len(out)/2 {
		n = len(out) / 2
	}
	for i := 0; i < n; i++ {
		out[i*2] = byte(samples[i])
		out[i*2+1] = byte(samples[i] >> 8)
	}
	return n
}

// Suspended reports whether the device is stopped
func (m *Malgo) Suspended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suspended
}

// Resume starts the device
func (m *Malgo) Resume(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrDeviceClosed
	}
	if !m.suspended {
		return nil
	}
	if err := m.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	m.suspended = false
	return nil
}

// Decode converts WAV bytes to PCM
func (m *Malgo) Decode(ctx context.Context, wavBytes []byte) (audio.PCMBuffer, error) {
	return decodeWav(ctx, wavBytes)
}

// Start replaces the active voice with buf
func (m *Malgo) Start(buf audio.PCMBuffer) (Voice, error) {
	samples, err := toDeviceFormat(buf, m.sampleRate, m.channels)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrDeviceClosed
	}

	v := &malgoVoice{samples: applyVolume(samples, m.volume, m.muted)}
	v.voice = newVoice(func() {
		m.mu.Lock()
		if m.active == v {
			m.active = nil
		}
		m.mu.Unlock()
	})

	previous := m.active
	m.active = v
	m.mu.Unlock()

	if previous != nil {
		previous.finish(false)
	}
	if len(v.samples) == 0 {
		m.mu.Lock()
		m.active = nil
		m.mu.Unlock()
		v.finish(false)
	}

	return v, nil
}

// Close releases output resources
func (m *Malgo) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	active := m.active
	m.active = nil
	m.mu.Unlock()

	if active != nil {
		active.finish(false)
	}

	if err := m.device.Stop(); err != nil {
		slog.Warn("device stop error", "error", err)
	}
	m.device.Uninit()

	if err := m.malgoCtx.Uninit(); err != nil {
		slog.Warn("malgo context uninit error", "error", err)
	}
	m.malgoCtx.Free()
	return nil
}

// SetVolume sets the volume (0-100) for voices started afterwards
func (m *Malgo) SetVolume(volume int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = clampVolume(volume)
}

// SetMuted sets mute state for voices started afterwards
func (m *Malgo) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = muted
}
