// ABOUTME: Malgo-based capture host
// ABOUTME: Converts miniaudio float32 input periods to per-channel slices
package input

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// DefaultPeriodFrames is the render quantum delivered per callback
const DefaultPeriodFrames = 128

// ErrAlreadyStarted is returned when Start is called twice
var ErrAlreadyStarted = errors.New("capture already started")

// Config describes the capture device
type Config struct {
	SampleRate   int
	Channels     int
	PeriodFrames int
}

func (c Config) withDefaults() Config {
	if c.SampleRate == 0 {
		c.SampleRate = 16000
	}
	if c.Channels == 0 {
		c.Channels = 1
	}
	if c.PeriodFrames == 0 {
		c.PeriodFrames = DefaultPeriodFrames
	}
	return c
}

// Malgo captures audio from the default input device
type Malgo struct {
	config Config

	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device

	callback func([][]float32) bool
	detached atomic.Bool
	periods  atomic.Uint64

	// scratch is reused across callbacks; only the audio thread touches it
	scratch [][]float32
}

// NewMalgo creates a capture host; the device opens on Start
func NewMalgo(config Config) *Malgo {
	return &Malgo{config: config.withDefaults()}
}

// Config returns the effective configuration
func (m *Malgo) Config() Config {
	return m.config
}

// Start opens the capture device and begins delivering periods to cb
func (m *Malgo) Start(cb func([][]float32) bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return ErrAlreadyStarted
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(m.config.Channels)
	deviceConfig.SampleRate = uint32(m.config.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(m.config.PeriodFrames)
	deviceConfig.Alsa.NoMMap = 1

	m.callback = cb
	m.detached.Store(false)
	m.scratch = makeScratch(m.config.Channels, m.config.PeriodFrames)

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, frameCount uint32) {
			m.deliver(pInputSamples, int(frameCount))
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	m.malgoCtx = ctx
	m.device = device

	slog.Info("audio input started",
		"sample_rate", m.config.SampleRate,
		"channels", m.config.Channels,
		"period_frames", m.config.PeriodFrames)

	return nil
}

// deliver runs on the audio thread
func (m *Malgo) deliver(raw []byte, frameCount int) {
	if m.detached.Load() || m.callback == nil {
		return
	}
	m.periods.Add(1)

	channels := Deinterleave(raw, frameCount, m.config.Channels, m.scratch)
	m.scratch = channels

	if !m.callback(channels) {
		m.detached.Store(true)
	}
}

// Periods returns the number of periods delivered since Start
func (m *Malgo) Periods() uint64 {
	return m.periods.Load()
}

// Stop closes the capture device
func (m *Malgo) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return nil
	}

	if err := m.device.Stop(); err != nil {
		slog.Warn("capture device stop error", "error", err)
	}
	m.device.Uninit()
	m.device = nil

	if err := m.malgoCtx.Uninit(); err != nil {
		slog.Warn("malgo context uninit error", "error", err)
	}
	m.malgoCtx.Free()
	m.malgoCtx = nil

	slog.Info("audio input stopped", "periods", m.periods.Load())
	return nil
}

func makeScratch(channels, frames int) [][]float32 {
	scratch := make([][]float32, channels)
	for ch := range scratch {
		scratch[ch] = make([]float32, frames)
	}
	return scratch
}

// Deinterleave splits little-endian float32 frames into per-channel slices,
// reusing dst when it is large enough
func Deinterleave(raw []byte, frameCount, channels int, dst [][]float32) [][]float32 {
	if frameCount*channels*4 > len(raw) {
		frameCount = len(raw) / (4 * channels)
	}
	if len(dst) != channels || (channels > 0 && cap(dst[0]) < frameCount) {
		dst = makeScratch(channels, frameCount)
	}

	for ch := 0; ch < channels; ch++ {
		dst[ch] = dst[ch][:frameCount]
	}
	for i := 0; i < frameCount; i++ {
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * 4
			dst[ch][i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[off:]))
		}
	}
	return dst
}
