// ABOUTME: Audio type definitions
// ABOUTME: Defines audio formats, PCM buffers and sample conversions
package audio

import (
	"encoding/binary"
	"time"
)

const (
	// 16-bit audio range constants
	MaxInt16 = 32767
	MinInt16 = -32768
)

// Codec names used in Format.Codec
const (
	CodecPCM   = "pcm"
	CodecMuLaw = "mulaw"
)

// Encoding names the wire encoding of captured audio
type Encoding string

const (
	EncodingLinear16 Encoding = "linear16"
	EncodingMuLaw    Encoding = "mulaw"
)

// Valid reports whether e is a known encoding
func (e Encoding) Valid() bool {
	return e == EncodingLinear16 || e == EncodingMuLaw
}

// Format describes audio stream format
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// Common formats
var (
	// PCM16Mono16k is the capture and recording format
	PCM16Mono16k = Format{Codec: CodecPCM, SampleRate: 16000, Channels: 1, BitDepth: 16}

	// MuLawMono8k is the telephony format synthesized speech arrives in
	MuLawMono8k = Format{Codec: CodecMuLaw, SampleRate: 8000, Channels: 1, BitDepth: 8}
)

// BytesPerSample returns the size of one sample of one channel
func (f Format) BytesPerSample() int {
	return f.BitDepth / 8
}

// BlockAlign returns the size of one frame (all channels)
func (f Format) BlockAlign() int {
	return f.Channels * f.BytesPerSample()
}

// ByteRate returns the number of bytes per second of audio
func (f Format) ByteRate() int {
	return f.SampleRate * f.BlockAlign()
}

// PCMBuffer holds signed 16-bit little-endian interleaved samples
type PCMBuffer struct {
	Format Format
	Data   []byte
}

// NewPCMBuffer packs samples into a buffer with the given format
func NewPCMBuffer(format Format, samples []int16) PCMBuffer {
	format.Codec = CodecPCM
	format.BitDepth = 16
	return PCMBuffer{Format: format, Data: Int16ToBytes(samples)}
}

// Samples unpacks the buffer into int16 samples
func (b PCMBuffer) Samples() []int16 {
	return BytesToInt16(b.Data)
}

// Frames returns the number of sample frames in the buffer
func (b PCMBuffer) Frames() int {
	align := b.Format.BlockAlign()
	if align == 0 {
		return 0
	}
	return len(b.Data) / align
}

// Duration returns the playback duration of the buffer
func (b PCMBuffer) Duration() time.Duration {
	if b.Format.SampleRate == 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.Format.SampleRate)
}

// FloatToInt16 clamps a float sample to [-1, 1] and scales it to int16.
// Negative values scale by 32768 and positive by 32767 so both ends of the
// signed range are reachable.
func FloatToInt16(s float32) int16 {
	if s != s { // NaN
		return 0
	}
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	if s < 0 {
		return int16(s * 32768)
	}
	return int16(s * 32767)
}

// ClampInt16 saturates a wide value into the int16 range
func ClampInt16(v int32) int16 {
	if v > MaxInt16 {
		return MaxInt16
	}
	if v < MinInt16 {
		return MinInt16
	}
	return int16(v)
}

// SaturatingAdd adds two samples, clamping instead of wrapping on overflow
func SaturatingAdd(a, b int16) int16 {
	return ClampInt16(int32(a) + int32(b))
}

// Int16ToBytes packs samples little-endian
func Int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// BytesToInt16 unpacks little-endian samples; a trailing odd byte is ignored
func BytesToInt16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}
