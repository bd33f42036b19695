// ABOUTME: Offset-based additive PCM mixer
// ABOUTME: Saturating overlay onto a growing timeline with WAV export
package recording

import (
	"errors"
	"math"
	"time"

	"github.com/speechbridge/speechbridge-go/pkg/audio"
	"github.com/speechbridge/speechbridge-go/pkg/audio/wav"
)

// DefaultSampleRate is the rate recordings are mixed at
const DefaultSampleRate = 16000

// MaxDuration bounds the timeline length
const MaxDuration = 4 * time.Hour

// maxWavSamples is the most 16-bit samples a WAV header can describe
const maxWavSamples = (math.MaxUint32 - 36) / 2

var (
	// ErrInvalidOffset is returned for NaN or infinite offsets
	ErrInvalidOffset = errors.New("invalid segment offset")

	// ErrOffsetTooLarge is returned when a segment would end past MaxDuration
	ErrOffsetTooLarge = errors.New("segment ends past the maximum timeline length")
)

// Mixer owns one timeline buffer; it is not safe for concurrent use
type Mixer struct {
	sampleRate int
	maxSamples int
	buf        []int16
	length     int
}

// NewMixer creates an empty timeline at sampleRate
func NewMixer(sampleRate int) *Mixer {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	limit := int64(sampleRate) * int64(MaxDuration/time.Second)
	if limit > maxWavSamples {
		limit = maxWavSamples
	}
	return &Mixer{sampleRate: sampleRate, maxSamples: int(limit)}
}

// SampleRate returns the timeline rate
func (m *Mixer) SampleRate() int {
	return m.sampleRate
}

// AddSegment overlays samples starting offsetMs into the timeline.
// Negative offsets start at zero. A segment ending past MaxDuration is
// rejected with ErrOffsetTooLarge and leaves the timeline unchanged.
func (m *Mixer) AddSegment(offsetMs float64, samples []int16) error {
	if math.IsNaN(offsetMs) || math.IsInf(offsetMs, 0) {
		return ErrInvalidOffset
	}

	// bounds are checked in float64 before converting to int
	pos := math.Floor(offsetMs * float64(m.sampleRate) / 1000)
	if pos < 0 {
		pos = 0
	}
	if pos+float64(len(samples)) > float64(m.maxSamples) {
		return ErrOffsetTooLarge
	}

	start := int(pos)
	end := start + len(samples)
	m.grow(end)

	for i, s := range samples {
		m.buf[start+i] = audio.SaturatingAdd(m.buf[start+i], s)
	}
	if end > m.length {
		m.length = end
	}
	return nil
}

// grow ensures capacity for n samples, doubling to amortize repeated growth
func (m *Mixer) grow(n int) {
	if n <= len(m.buf) {
		return
	}

	size := len(m.buf) * 2
	if size > m.maxSamples {
		size = m.maxSamples
	}
	if size < n {
		size = n
	}
	next := make([]int16, size)
	copy(next, m.buf[:m.length])
	m.buf = next
}

// Len returns the timeline length in samples
func (m *Mixer) Len() int {
	return m.length
}

// Duration returns the timeline length in milliseconds
func (m *Mixer) Duration() float64 {
	return float64(m.length) * 1000 / float64(m.sampleRate)
}

// Samples returns a copy of the mixed timeline
func (m *Mixer) Samples() []int16 {
	out := make([]int16, m.length)
	copy(out, m.buf[:m.length])
	return out
}

// ToWav serializes the timeline as 16-bit mono PCM
func (m *Mixer) ToWav() wav.Blob {
	return wav.EncodePCM16(m.buf[:m.length], m.sampleRate)
}
