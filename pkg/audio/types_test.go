// ABOUTME: Tests for audio types
// ABOUTME: Tests sample conversion and buffer helpers
package audio

import (
	"math"
	"testing"
	"time"
)

func TestFloatToInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    float32
		expected int16
	}{
		{"zero", 0, 0},
		{"full positive", 1.0, 32767},
		{"full negative", -1.0, -32768},
		{"half positive", 0.5, 16383},
		{"half negative", -0.5, -16384},
		{"clamp positive", 1.7, 32767},
		{"clamp negative", -3.2, -32768},
		{"nan", float32(math.NaN()), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FloatToInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestSaturatingAdd(t *testing.T) {
	tests := []struct {
		name     string
		a, b     int16
		expected int16
	}{
		{"zero", 0, 0, 0},
		{"simple", 100, -40, 60},
		{"positive overflow", 32767, 32767, 32767},
		{"negative overflow", -32768, -1, -32768},
		{"edge", 32000, 767, 32767},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SaturatingAdd(tt.a, tt.b)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestInt16BytesRoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 256, -256, 32767, -32768}

	data := Int16ToBytes(samples)
	if len(data) != len(samples)*2 {
		t.Fatalf("expected %d bytes, got %d", len(samples)*2, len(data))
	}

	// little-endian: 256 -> 0x00 0x01
	if data[6] != 0x00 || data[7] != 0x01 {
		t.Errorf("expected little-endian packing, got %#x %#x", data[6], data[7])
	}

	result := BytesToInt16(data)
	for i, original := range samples {
		if result[i] != original {
			t.Errorf("round-trip failed at %d: %d -> %d", i, original, result[i])
		}
	}
}

func TestBytesToInt16OddLength(t *testing.T) {
	result := BytesToInt16([]byte{0x01, 0x00, 0xFF})
	if len(result) != 1 || result[0] != 1 {
		t.Errorf("expected [1], got %v", result)
	}
}

func TestPCMBufferDuration(t *testing.T) {
	buf := NewPCMBuffer(PCM16Mono16k, make([]int16, 16000))

	if buf.Frames() != 16000 {
		t.Errorf("expected 16000 frames, got %d", buf.Frames())
	}
	if buf.Duration() != time.Second {
		t.Errorf("expected 1s, got %v", buf.Duration())
	}
}

func TestFormatRates(t *testing.T) {
	if PCM16Mono16k.ByteRate() != 32000 {
		t.Errorf("expected byte rate 32000, got %d", PCM16Mono16k.ByteRate())
	}
	if MuLawMono8k.BlockAlign() != 1 {
		t.Errorf("expected block align 1, got %d", MuLawMono8k.BlockAlign())
	}
}
